// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// Repo provides data access layer interface needed by account service layer.
type Repo interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	Get(ctx context.Context, id int32) (domain.Account, error)
	List(ctx context.Context, limit, offset int32) ([]domain.Account, error)
	Delete(ctx context.Context, id int32) error
}

// Service facilitates account service layer logic.
type Service struct {
	repo Repo
}

// New returns account service struct to manage account bussines logic.
func New(ar Repo) *Service {
	return &Service{repo: ar}
}

// Create opens an empty account of the given category and currency.
func (s *Service) Create(ctx context.Context, category domain.Category, name, currency string) (domain.Account, error) {
	return s.Open(ctx, domain.CreateAccountParams{
		Category: category,
		Name:     name,
		Currency: currency,
		Balance:  decimal.Zero,
	})
}

// Open opens an account with an opening balance.
func (s *Service) Open(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	if arg.Name == "" {
		arg.Name = string(arg.Category)
	}

	account, err := s.repo.Create(ctx, arg)
	if err != nil {
		return account, err
	}

	return account, nil
}

// Get returns account for the given account ID.
func (s *Service) Get(ctx context.Context, id int32) (domain.Account, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return account, err
	}

	return account, nil
}

// List returns one page of accounts.
func (s *Service) List(ctx context.Context, pageSize, pageID int32) ([]domain.Account, error) {
	limit := pageSize
	offset := (pageID - 1) * pageSize

	accounts, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	return accounts, err
}

// Close removes the account. Transactions that still reference it are left to the sweeper.
func (s *Service) Close(ctx context.Context, id int32) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().Int32("account_id", id).Msg("account closed")

	return nil
}
