// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

// RepoMem owns every account and its balance.
// All balance changes go through Debit and Credit; accounts are returned by value.
type RepoMem struct {
	mu       sync.RWMutex
	nextID   int32
	accounts map[int32]*domain.Account
	now      func() time.Time
}

// NewRepoMem returns an empty account RepoMem.
func NewRepoMem(now func() time.Time) *RepoMem {
	return &RepoMem{
		accounts: make(map[int32]*domain.Account),
		now:      now,
	}
}

// Create opens an account and then returns it.
func (r *RepoMem) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	if !arg.Category.Valid() {
		l.Info().Str("category", string(arg.Category)).Msg("rejected account category")
		return domain.Account{}, domain.ErrInvalidCategory
	}

	if arg.Balance.IsNegative() {
		return domain.Account{}, domain.ErrInvalidAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++

	a := &domain.Account{
		ID:        r.nextID,
		Category:  arg.Category,
		Name:      arg.Name,
		Number:    randompkg.AccountNumber(),
		Currency:  arg.Currency,
		Balance:   arg.Balance,
		CreatedAt: r.now(),
	}
	r.accounts[a.ID] = a

	return *a, nil
}

// Get returns the account with the given id.
func (r *RepoMem) Get(ctx context.Context, id int32) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return *a, nil
}

// List returns accounts ordered by id. A zero limit returns every account after offset.
func (r *RepoMem) List(ctx context.Context, limit, offset int32) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]domain.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		items = append(items, *a)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	if offset < 0 || int(offset) >= len(items) {
		return []domain.Account{}, nil
	}

	items = items[offset:]

	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}

	return items, nil
}

// FindByCategory returns the primary account of the category, which is the oldest one.
func (r *RepoMem) FindByCategory(ctx context.Context, category domain.Category) (domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *domain.Account

	for _, a := range r.accounts {
		if a.Category == category && (found == nil || a.ID < found.ID) {
			found = a
		}
	}

	if found == nil {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	return *found, nil
}

// Debit takes amount from the account and returns the new balance.
// The balance is left untouched when it does not cover amount.
func (r *RepoMem) Debit(ctx context.Context, id int32, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return decimal.Zero, domain.ErrAccountNotFound
	}

	if amount.GreaterThan(a.Balance) {
		zerolog.Ctx(ctx).Info().
			Int32("account_id", id).
			Str("balance", a.Balance.String()).
			Str("amount", amount.String()).
			Msg("debit refused")

		return a.Balance, domain.ErrInsufficientFunds
	}

	a.Balance = a.Balance.Sub(amount)

	return a.Balance, nil
}

// Credit adds amount to the account and returns the new balance.
func (r *RepoMem) Credit(ctx context.Context, id int32, amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, domain.ErrInvalidAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return decimal.Zero, domain.ErrAccountNotFound
	}

	a.Balance = a.Balance.Add(amount)

	return a.Balance, nil
}

// Delete removes the account.
func (r *RepoMem) Delete(ctx context.Context, id int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[id]; !ok {
		return domain.ErrAccountNotFound
	}

	delete(r.accounts, id)

	return nil
}
