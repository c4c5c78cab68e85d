// Package transactionservice manages business logic layer of the transaction ledger.
package transactionservice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/lifecycle"
	"github.com/go-petr/pet-ledger/internal/limits"
	"github.com/go-petr/pet-ledger/pkg/clockpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// Repo provides data access layer interface needed by transaction service layer.
type Repo interface {
	Append(ctx context.Context, t domain.Transaction) error
	Get(ctx context.Context, id uuid.UUID) (domain.Transaction, error)
	Update(ctx context.Context, t domain.Transaction) error
	List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error)
	Pending(ctx context.Context) ([]domain.Transaction, error)
	Exclude(ctx context.Context, id uuid.UUID, reason error) error
	Excluded(ctx context.Context) (map[uuid.UUID]error, error)
}

// AccountStore provides the balance operations the ledger orchestrates.
type AccountStore interface {
	Get(ctx context.Context, id int32) (domain.Account, error)
	Debit(ctx context.Context, id int32, amount decimal.Decimal) (decimal.Decimal, error)
	Credit(ctx context.Context, id int32, amount decimal.Decimal) (decimal.Decimal, error)
}

// Publisher receives the events produced by the ledger.
type Publisher interface {
	Publish(ctx context.Context, e domain.Event)
}

// Service facilitates transaction service layer logic.
//
// Every mutation of the ledger runs under the write lock of mu, so admission, debit and
// append of a new transaction never interleave with a sweep, an authorization or a ledger
// read. Account reads go straight to the account store and only see that store.
type Service struct {
	mu        sync.RWMutex
	repo      Repo
	accounts  AccountStore
	limits    limits.Limits
	durations lifecycle.Durations
	clock     clockpkg.Clock
	events    Publisher
}

// New returns transaction service struct to manage the ledger.
func New(tr Repo, as AccountStore, l limits.Limits, d lifecycle.Durations, clock clockpkg.Clock, events Publisher) *Service {
	return &Service{
		repo:      tr,
		accounts:  as,
		limits:    l,
		durations: d,
		clock:     clock,
		events:    events,
	}
}

func validTransactionRequest(arg domain.CreateTransactionParams) error {
	if !arg.SendAmount.IsPositive() || arg.Fee.IsNegative() {
		return domain.ErrInvalidAmount
	}

	if !arg.ExchangeRate.IsPositive() {
		return domain.ErrInvalidExchangeRate
	}

	return nil
}

// CreateTransaction admits the transfer against the account limits, debits send amount plus
// fee and only then appends a SUBMITTED transaction to the ledger.
func (s *Service) CreateTransaction(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	if err := validTransactionRequest(arg); err != nil {
		l.Info().Err(err).Send()
		return domain.Transaction{}, err
	}

	t, err := s.createTransaction(ctx, arg)
	if err != nil {
		s.events.Publish(ctx, rejected(s.clock.Now(), arg, err))
		return domain.Transaction{}, err
	}

	s.events.Publish(ctx, domain.NewEvent(domain.EventTransactionSubmitted, t.SubmittedAt()).
		WithTransaction(t).
		WithAmount(t.SendAmount))

	return t, nil
}

func (s *Service) createTransaction(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	cost := arg.SendAmount.Add(arg.Fee)

	history, err := s.repo.List(ctx, domain.ListTransactionsParams{AccountID: arg.AccountID})
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Transaction{}, errorspkg.ErrInternal
	}

	breach, err := limits.Check(cost, history, s.limits, now)
	if err != nil {
		l.Info().
			Int32("account_id", arg.AccountID).
			Str("window", breach.Window).
			Bool("amount", breach.Amount).
			Bool("count", breach.Count).
			Msg("transaction not admitted")

		return domain.Transaction{}, err
	}

	if _, err := s.accounts.Debit(ctx, arg.AccountID, cost); err != nil {
		l.Info().Err(err).Send()
		return domain.Transaction{}, err
	}

	t := lifecycle.NewTransfer(now, arg, s.durations)

	if err := s.repo.Append(ctx, t); err != nil {
		l.Error().Err(err).Str("transaction_id", t.ID.String()).Msg("append failed, refunding debit")

		if _, cerr := s.accounts.Credit(ctx, arg.AccountID, cost); cerr != nil {
			l.Error().Err(cerr).Int32("account_id", arg.AccountID).Msg("refund failed")
		}

		return domain.Transaction{}, errorspkg.ErrInternal
	}

	return t, nil
}

func rejected(now time.Time, arg domain.CreateTransactionParams, reason error) domain.Event {
	e := domain.NewEvent(domain.EventTransactionRejected, now).WithAmount(arg.SendAmount)
	e.AccountID = arg.AccountID
	e.Counterparty = arg.Counterparty
	e.Reason = reason.Error()

	return e
}

// CreateDeposit credits the account and records an already arrived credit transaction.
func (s *Service) CreateDeposit(ctx context.Context, arg domain.CreateDepositParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	if !arg.Amount.IsPositive() {
		l.Info().Str("amount", arg.Amount.String()).Msg("rejected deposit amount")
		return domain.Transaction{}, domain.ErrInvalidAmount
	}

	t, balance, err := s.createDeposit(ctx, arg)
	if err != nil {
		return domain.Transaction{}, err
	}

	l.Info().
		Int32("account_id", arg.AccountID).
		Str("balance", balance.String()).
		Msg("deposit credited")

	s.events.Publish(ctx, domain.NewEvent(domain.EventAccountCredited, t.SubmittedAt()).
		WithTransaction(t).
		WithAmount(t.ReceiveAmount))

	return t, nil
}

func (s *Service) createDeposit(ctx context.Context, arg domain.CreateDepositParams) (domain.Transaction, decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.record(ctx, lifecycle.NewDeposit(s.clock.Now(), arg))
}

// Record moves money on the account for a crypto trade or a loan payout and appends the
// already arrived entry for it. It returns the entry and the resulting balance. Entries
// are not admitted against the transfer limits.
func (s *Service) Record(ctx context.Context, arg domain.RecordEntryParams) (domain.Transaction, decimal.Decimal, error) {
	l := zerolog.Ctx(ctx)

	if err := validEntry(arg); err != nil {
		l.Info().Err(err).Str("kind", string(arg.Kind)).Str("amount", arg.Amount.String()).Send()
		return domain.Transaction{}, decimal.Zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, balance, err := s.record(ctx, lifecycle.NewEntry(s.clock.Now(), arg))
	if err != nil {
		return domain.Transaction{}, decimal.Zero, err
	}

	l.Info().
		Str("transaction_id", t.ID.String()).
		Str("kind", string(t.Kind)).
		Str("direction", string(t.Direction)).
		Str("balance", balance.String()).
		Msg("entry recorded")

	return t, balance, nil
}

func validEntry(arg domain.RecordEntryParams) error {
	if !arg.Amount.IsPositive() || arg.Fee.IsNegative() {
		return domain.ErrInvalidAmount
	}

	switch arg.Direction {
	case domain.DirectionDebit:
		return nil
	case domain.DirectionCredit:
		if !arg.Amount.GreaterThan(arg.Fee) {
			return domain.ErrInvalidAmount
		}

		return nil
	}

	return fmt.Errorf("%w: unknown direction %q", domain.ErrInvalidAmount, arg.Direction)
}

// record applies an arrived entry to its account and appends it, reverting the balance
// change if the append fails. Callers hold the write lock.
func (s *Service) record(ctx context.Context, t domain.Transaction) (domain.Transaction, decimal.Decimal, error) {
	l := zerolog.Ctx(ctx)

	apply, revert := s.accounts.Credit, s.accounts.Debit
	amount := t.ReceiveAmount

	if t.Direction == domain.DirectionDebit {
		apply, revert = s.accounts.Debit, s.accounts.Credit
		amount = t.TotalCost()
	}

	balance, err := apply(ctx, t.AccountID, amount)
	if err != nil {
		l.Info().Err(err).Int32("account_id", t.AccountID).Send()
		return domain.Transaction{}, decimal.Zero, err
	}

	if err := s.repo.Append(ctx, t); err != nil {
		l.Error().Err(err).Str("transaction_id", t.ID.String()).Msg("append failed, reverting balance")

		if _, rerr := revert(ctx, t.AccountID, amount); rerr != nil {
			l.Error().Err(rerr).Int32("account_id", t.AccountID).Msg("revert failed")
		}

		return domain.Transaction{}, decimal.Zero, errorspkg.ErrInternal
	}

	return t, balance, nil
}

// Authorize releases a held IN_TRANSIT transaction to FUNDS_ARRIVED.
func (s *Service) Authorize(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	t, events, err := s.authorize(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}

	s.publish(ctx, events)

	return t, nil
}

func (s *Service) authorize(ctx context.Context, id uuid.UUID) (domain.Transaction, []domain.Event, error) {
	l := zerolog.Ctx(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		l.Info().Err(err).Str("transaction_id", id.String()).Send()
		return domain.Transaction{}, nil, err
	}

	next, events, err := lifecycle.Authorize(s.clock.Now(), t)
	if err != nil {
		if errors.Is(err, domain.ErrInconsistentTransaction) {
			l.Error().Err(err).Send()
			return domain.Transaction{}, nil, errorspkg.ErrInternal
		}

		l.Info().Err(err).Str("transaction_id", id.String()).Str("status", string(t.Status)).Send()

		return domain.Transaction{}, nil, err
	}

	if err := s.repo.Update(ctx, next); err != nil {
		l.Error().Err(err).Str("transaction_id", id.String()).Send()
		return domain.Transaction{}, nil, errorspkg.ErrInternal
	}

	return next, events, nil
}

// Get returns the transaction with the given id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}

	return t, nil
}

// List returns the transactions matching the filter in ledger order.
func (s *Service) List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, err := s.repo.List(ctx, arg)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

// Statement returns the account with its ledger entries. Both are read under the ledger
// read lock, so the balance always matches the entries.
func (s *Service) Statement(ctx context.Context, accountID int32) (domain.Statement, error) {
	l := zerolog.Ctx(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		l.Info().Err(err).Int32("account_id", accountID).Send()
		return domain.Statement{}, err
	}

	items, err := s.repo.List(ctx, domain.ListTransactionsParams{AccountID: accountID})
	if err != nil {
		l.Error().Err(err).Send()
		return domain.Statement{}, errorspkg.ErrInternal
	}

	return domain.Statement{Account: a, Transactions: items}, nil
}

// Sweep advances every non-terminal transaction to the state due at now and returns how
// many transactions changed. Transactions whose account is gone or whose stored state is
// inconsistent are logged once and left out of later sweeps.
func (s *Service) Sweep(ctx context.Context, now time.Time) int {
	advanced, events := s.sweep(ctx, now)

	s.publish(ctx, events)

	return advanced
}

func (s *Service) sweep(ctx context.Context, now time.Time) (int, []domain.Event) {
	l := zerolog.Ctx(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	pending, err := s.repo.Pending(ctx)
	if err != nil {
		l.Error().Err(err).Msg("sweep could not list pending transactions")
		return 0, nil
	}

	var (
		advanced int
		events   []domain.Event
	)

	for _, t := range pending {
		if _, err := s.accounts.Get(ctx, t.AccountID); err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				l.Warn().
					Str("transaction_id", t.ID.String()).
					Int32("account_id", t.AccountID).
					Msg("account is gone")
				s.exclude(ctx, t.ID, err)
			} else {
				l.Error().Err(err).Str("transaction_id", t.ID.String()).Send()
			}

			continue
		}

		next, evs, err := lifecycle.Advance(now, t, s.durations)
		if err != nil {
			l.Error().Err(err).Str("transaction_id", t.ID.String()).Send()
			s.exclude(ctx, t.ID, err)

			continue
		}

		if next.Status == t.Status {
			continue
		}

		if err := s.repo.Update(ctx, next); err != nil {
			l.Error().Err(err).Str("transaction_id", t.ID.String()).Send()
			continue
		}

		l.Debug().
			Str("transaction_id", t.ID.String()).
			Str("from", string(t.Status)).
			Str("to", string(next.Status)).
			Msg("transaction advanced")

		advanced++
		events = append(events, evs...)
	}

	return advanced, events
}

// exclude takes the transaction out of later sweeps. Account ids are never reused, so a
// transaction whose account is gone can never advance again.
func (s *Service) exclude(ctx context.Context, id uuid.UUID, reason error) {
	l := zerolog.Ctx(ctx)

	if err := s.repo.Exclude(ctx, id, reason); err != nil {
		l.Error().Err(err).Str("transaction_id", id.String()).Msg("cannot exclude transaction from sweeps")
		return
	}

	l.Warn().Str("transaction_id", id.String()).Msg("transaction excluded from sweeps")
}

// Skipped returns the ids the sweeper no longer evaluates with the reason each was excluded.
func (s *Service) Skipped(ctx context.Context) (map[uuid.UUID]error, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	skipped, err := s.repo.Excluded(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return skipped, nil
}

func (s *Service) publish(ctx context.Context, events []domain.Event) {
	for _, e := range events {
		s.events.Publish(ctx, e)
	}
}
