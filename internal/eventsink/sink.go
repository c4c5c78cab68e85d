// Package eventsink delivers domain events to downstream consumers.
package eventsink

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// Sink receives domain events.
type Sink interface {
	Publish(ctx context.Context, e domain.Event)
}

// Log writes every event as a structured log line.
type Log struct {
	logger zerolog.Logger
}

// NewLog returns a sink that logs events with logger.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "events").Logger()}
}

// Publish logs the event.
func (s *Log) Publish(_ context.Context, e domain.Event) {
	ev := s.logger.Info().
		Str("event_id", e.ID.String()).
		Str("kind", string(e.Kind)).
		Time("occurred_at", e.OccurredAt)

	if e.AccountID != 0 {
		ev = ev.Int32("account_id", e.AccountID)
	}
	if e.TransactionID != nil {
		ev = ev.Str("transaction_id", e.TransactionID.String())
	}
	if e.LoanID != nil {
		ev = ev.Str("loan_id", e.LoanID.String())
	}
	if e.Amount != nil {
		ev = ev.Str("amount", e.Amount.String())
	}
	if e.AssetID != "" {
		ev = ev.Str("asset_id", e.AssetID)
	}
	if e.Reason != "" {
		ev = ev.Str("reason", e.Reason)
	}
	if e.Outcome != "" {
		ev = ev.Str("outcome", string(e.Outcome))
	}

	ev.Msg("domain event")
}

// Memory keeps published events in memory.
type Memory struct {
	mu     sync.Mutex
	events []domain.Event
}

// NewMemory returns an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{}
}

// Publish records the event.
func (s *Memory) Publish(_ context.Context, e domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, e)
}

// Events returns a copy of every recorded event in publish order.
func (s *Memory) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.Event(nil), s.events...)
}

// OfKind returns the recorded events of the given kind.
func (s *Memory) OfKind(kind domain.EventKind) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Event

	for _, e := range s.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}

	return out
}

// Multi fans every event out to several sinks.
type Multi []Sink

// Publish forwards the event to each sink in order.
func (m Multi) Publish(ctx context.Context, e domain.Event) {
	for _, s := range m {
		s.Publish(ctx, e)
	}
}
