// Package transactionrepo manages repository layer of transactions.
package transactionrepo

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/go-petr/pet-ledger/internal/domain"
)

var (
	// ErrDuplicateID indicates that a transaction with the same id is already stored.
	ErrDuplicateID = errors.New("duplicate transaction id")
	// ErrImmutable indicates an update of a transaction that already reached FUNDS_ARRIVED.
	ErrImmutable = errors.New("transaction is immutable")
)

// RepoMem keeps the ledger in insertion order.
// Transactions are copied in and out so callers never share a timeline with the store.
//
// pending indexes, in insertion order, the transactions that are neither terminal nor
// excluded, so a sweep only reads the open part of the ledger.
type RepoMem struct {
	mu       sync.RWMutex
	order    []uuid.UUID
	byID     map[uuid.UUID]domain.Transaction
	pending  []uuid.UUID
	excluded map[uuid.UUID]error
}

// NewRepoMem returns an empty ledger store.
func NewRepoMem() *RepoMem {
	return &RepoMem{
		byID:     make(map[uuid.UUID]domain.Transaction),
		excluded: make(map[uuid.UUID]error),
	}
}

// Append stores a new transaction at the end of the ledger.
func (r *RepoMem) Append(ctx context.Context, t domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[t.ID]; ok {
		return ErrDuplicateID
	}

	r.order = append(r.order, t.ID)
	r.byID[t.ID] = t.Clone()

	if !t.Terminal() {
		r.pending = append(r.pending, t.ID)
	}

	return nil
}

// Get returns the transaction with the given id.
func (r *RepoMem) Get(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}

	return t.Clone(), nil
}

// Update replaces a stored transaction. Terminal transactions are never replaced.
func (r *RepoMem) Update(ctx context.Context, t domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[t.ID]
	if !ok {
		return domain.ErrTransactionNotFound
	}

	if stored.Terminal() {
		return ErrImmutable
	}

	r.byID[t.ID] = t.Clone()

	if t.Terminal() {
		r.dropPending(t.ID)
	}

	return nil
}

// Exclude takes a non-terminal transaction out of Pending for good and remembers why.
func (r *RepoMem) Exclude(ctx context.Context, id uuid.UUID, reason error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return domain.ErrTransactionNotFound
	}

	r.excluded[id] = reason
	r.dropPending(id)

	return nil
}

// Excluded returns the excluded transaction ids with the reason each was excluded.
func (r *RepoMem) Excluded(ctx context.Context) (map[uuid.UUID]error, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[uuid.UUID]error, len(r.excluded))
	for id, reason := range r.excluded {
		out[id] = reason
	}

	return out, nil
}

func (r *RepoMem) dropPending(id uuid.UUID) {
	for i, p := range r.pending {
		if p == id {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return
		}
	}
}

// List returns the transactions matching arg in insertion order.
func (r *RepoMem) List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := []domain.Transaction{}

	for _, id := range r.order {
		t := r.byID[id]

		if arg.AccountID != 0 && t.AccountID != arg.AccountID {
			continue
		}

		at := t.SubmittedAt()
		if !arg.From.IsZero() && at.Before(arg.From) {
			continue
		}

		if !arg.To.IsZero() && at.After(arg.To) {
			continue
		}

		items = append(items, t.Clone())
	}

	return items, nil
}

// Pending returns every transaction that has not reached FUNDS_ARRIVED and was not excluded,
// in insertion order.
func (r *RepoMem) Pending(ctx context.Context) ([]domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]domain.Transaction, 0, len(r.pending))
	for _, id := range r.pending {
		items = append(items, r.byID[id].Clone())
	}

	return items, nil
}
