// Package loanservice manages business logic layer of loan underwriting.
package loanservice

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/clockpkg"
)

// ErrClosed indicates a submission after the underwriter was closed.
var ErrClosed = errors.New("loan underwriter is closed")

// AccountStore finds the disbursement account.
type AccountStore interface {
	FindByCategory(ctx context.Context, category domain.Category) (domain.Account, error)
}

// Ledger credits the payout and records an entry for it.
type Ledger interface {
	Record(ctx context.Context, arg domain.RecordEntryParams) (domain.Transaction, decimal.Decimal, error)
}

// Publisher receives underwriting events.
type Publisher interface {
	Publish(ctx context.Context, e domain.Event)
}

// Service accepts loan applications and decides each one once after a fixed delay.
type Service struct {
	mu       sync.Mutex
	order    []uuid.UUID
	apps     map[uuid.UUID]*domain.LoanApplication
	timers   map[uuid.UUID]clockpkg.Timer
	closed   bool
	accounts AccountStore
	ledger   Ledger
	policy   Policy
	delay    time.Duration
	clock    clockpkg.Clock
	events   Publisher
	logger   zerolog.Logger
}

// New returns loan service struct deciding applications delay after submission.
func New(as AccountStore, ledger Ledger, policy Policy, delay time.Duration, clock clockpkg.Clock,
	events Publisher, logger zerolog.Logger) *Service {
	return &Service{
		apps:     make(map[uuid.UUID]*domain.LoanApplication),
		timers:   make(map[uuid.UUID]clockpkg.Timer),
		accounts: as,
		ledger:   ledger,
		policy:   policy,
		delay:    delay,
		clock:    clock,
		events:   events,
		logger:   logger.With().Str("component", "underwriter").Logger(),
	}
}

// Submit stores a PENDING application and schedules its decision.
func (s *Service) Submit(ctx context.Context, arg domain.SubmitLoanParams) (domain.LoanApplication, error) {
	l := zerolog.Ctx(ctx)

	if !arg.Amount.IsPositive() {
		l.Info().Str("amount", arg.Amount.String()).Msg("rejected loan amount")
		return domain.LoanApplication{}, domain.ErrInvalidAmount
	}

	if arg.ProductID == "" {
		return domain.LoanApplication{}, domain.ErrInvalidProduct
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return domain.LoanApplication{}, ErrClosed
	}

	app := &domain.LoanApplication{
		ID:          uuid.New(),
		Amount:      arg.Amount,
		ProductID:   arg.ProductID,
		Status:      domain.LoanPending,
		SubmittedAt: s.clock.Now(),
	}

	s.apps[app.ID] = app
	s.order = append(s.order, app.ID)

	id := app.ID
	s.timers[id] = s.clock.AfterFunc(s.delay, func() { s.decide(id) })

	l.Info().Str("loan_id", id.String()).Dur("delay", s.delay).Msg("loan application submitted")

	return *app, nil
}

func (s *Service) decide(id uuid.UUID) {
	events := s.resolve(id)

	ctx := s.logger.WithContext(context.Background())
	for _, e := range events {
		s.events.Publish(ctx, e)
	}
}

func (s *Service) resolve(id uuid.UUID) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.timers, id)

	app, ok := s.apps[id]
	if !ok || s.closed || app.Status != domain.LoanPending {
		return nil
	}

	ctx := s.logger.WithContext(context.Background())
	now := s.clock.Now()

	var (
		events []domain.Event
		reason string
	)

	outcome := s.policy.Decide(ctx, *app)

	if outcome == domain.LoanApproved {
		credited, err := s.disburse(ctx, app)
		if err != nil {
			s.logger.Error().Err(err).Str("loan_id", id.String()).Msg("disbursement failed")

			outcome = domain.LoanRejected
			reason = err.Error()
		} else {
			events = append(events, credited.WithAmount(app.Amount))
		}
	} else {
		outcome = domain.LoanRejected
	}

	app.Status = outcome
	app.DecidedAt = &now

	loanID := app.ID

	decided := domain.NewEvent(domain.EventLoanDecided, now).WithAmount(app.Amount)
	decided.LoanID = &loanID
	decided.AccountID = app.AccountID
	decided.Outcome = outcome
	decided.Reason = reason

	s.logger.Info().Str("loan_id", id.String()).Str("outcome", string(outcome)).Msg("loan application decided")

	return append(events, decided)
}

func (s *Service) disburse(ctx context.Context, app *domain.LoanApplication) (domain.Event, error) {
	account, err := s.accounts.FindByCategory(ctx, domain.CategoryChecking)
	if err != nil {
		return domain.Event{}, err
	}

	entry, _, err := s.ledger.Record(ctx, domain.RecordEntryParams{
		AccountID:    account.ID,
		Kind:         domain.KindLoan,
		Direction:    domain.DirectionCredit,
		Amount:       app.Amount,
		Fee:          decimal.Zero,
		Counterparty: app.ProductID,
		Purpose:      "loan " + app.ID.String(),
	})
	if err != nil {
		return domain.Event{}, err
	}

	entryID := entry.ID

	app.AccountID = account.ID
	app.EntryID = &entryID

	loanID := app.ID

	e := domain.NewEvent(domain.EventAccountCredited, s.clock.Now()).WithTransaction(entry)
	e.LoanID = &loanID

	return e, nil
}

// Get returns the application with the given id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.LoanApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[id]
	if !ok {
		return domain.LoanApplication{}, domain.ErrLoanNotFound
	}

	return *app, nil
}

// List returns every application in submission order.
func (s *Service) List(ctx context.Context) []domain.LoanApplication {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]domain.LoanApplication, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, *s.apps[id])
	}

	return items
}

// Close cancels every pending decision. Pending applications stay PENDING.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}

	s.logger.Info().Msg("underwriter closed")
}
