// Package lifecycle holds the transaction state machine.
//
// Every function is pure: it takes the current time and a transaction and returns the
// updated copy together with the events the change produces. Guards are measured from
// the SUBMITTED stamp, not from the previous state's stamp.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// Durations configures the time driven transitions.
type Durations struct {
	ConvertingAfter time.Duration // SUBMITTED -> CONVERTING
	InTransitAfter  time.Duration // CONVERTING -> IN_TRANSIT
	Transit         time.Duration // SUBMITTED -> estimated arrival
}

// DefaultDurations are the stock transfer timings.
var DefaultDurations = Durations{
	ConvertingAfter: 5 * time.Second,
	InTransitAfter:  15 * time.Second,
	Transit:         20 * time.Second,
}

// NewTransfer builds a submitted outgoing transaction. It does not touch any balance.
func NewTransfer(now time.Time, arg domain.CreateTransactionParams, d Durations) domain.Transaction {
	return domain.Transaction{
		ID:               uuid.New(),
		AccountID:        arg.AccountID,
		Counterparty:     arg.Counterparty,
		SendAmount:       arg.SendAmount,
		ReceiveAmount:    arg.SendAmount.Mul(arg.ExchangeRate),
		Fee:              arg.Fee,
		ExchangeRate:     arg.ExchangeRate,
		Status:           domain.StatusSubmitted,
		EstimatedArrival: now.Add(d.Transit),
		RequiresAuth:     true,
		Timeline:         []domain.StatusStamp{{Status: domain.StatusSubmitted, At: now}},
		Direction:        domain.DirectionDebit,
		Kind:             domain.KindTransfer,
		Purpose:          arg.Purpose,
	}
}

// NewDeposit builds an already arrived incoming transaction.
func NewDeposit(now time.Time, arg domain.CreateDepositParams) domain.Transaction {
	return NewEntry(now, domain.RecordEntryParams{
		AccountID:    arg.AccountID,
		Kind:         domain.KindDeposit,
		Direction:    domain.DirectionCredit,
		Amount:       arg.Amount,
		Fee:          decimal.Zero,
		Counterparty: arg.Description,
		Purpose:      arg.Description,
	})
}

// NewEntry builds an already arrived transaction for money moved outside the transfer
// lifecycle. ReceiveAmount is what reached the account on a credit.
func NewEntry(now time.Time, arg domain.RecordEntryParams) domain.Transaction {
	receive := arg.Amount
	if arg.Direction == domain.DirectionCredit {
		receive = arg.Amount.Sub(arg.Fee)
	}

	return domain.Transaction{
		ID:               uuid.New(),
		AccountID:        arg.AccountID,
		Counterparty:     arg.Counterparty,
		SendAmount:       arg.Amount,
		ReceiveAmount:    receive,
		Fee:              arg.Fee,
		ExchangeRate:     decimal.NewFromInt(1),
		Status:           domain.StatusFundsArrived,
		EstimatedArrival: now,
		RequiresAuth:     false,
		Timeline: []domain.StatusStamp{
			{Status: domain.StatusSubmitted, At: now},
			{Status: domain.StatusFundsArrived, At: now},
		},
		Direction: arg.Direction,
		Kind:      arg.Kind,
		Purpose:   arg.Purpose,
	}
}

// Validate checks the internal invariants of a stored transaction: the timeline starts with
// SUBMITTED, ends with the current status, follows lifecycle order with non-decreasing stamps
// and, for transfers, never skips a state.
func Validate(t domain.Transaction) error {
	if t.Status.Rank() < 0 {
		return fmt.Errorf("%w: unknown status %q of %s", domain.ErrInconsistentTransaction, t.Status, t.ID)
	}

	if len(t.Timeline) == 0 || t.Timeline[0].Status != domain.StatusSubmitted {
		return fmt.Errorf("%w: %s has no %s stamp", domain.ErrInconsistentTransaction, t.ID, domain.StatusSubmitted)
	}

	if last := t.Timeline[len(t.Timeline)-1]; last.Status != t.Status {
		return fmt.Errorf("%w: %s is %s but was last stamped %s",
			domain.ErrInconsistentTransaction, t.ID, t.Status, last.Status)
	}

	for i := 1; i < len(t.Timeline); i++ {
		prev, cur := t.Timeline[i-1], t.Timeline[i]

		if cur.Status.Rank() <= prev.Status.Rank() ||
			(t.Kind == domain.KindTransfer && cur.Status.Rank() != prev.Status.Rank()+1) {
			return fmt.Errorf("%w: %s stamped %s after %s",
				domain.ErrInconsistentTransaction, t.ID, cur.Status, prev.Status)
		}

		if cur.At.Before(prev.At) {
			return fmt.Errorf("%w: %s stamp %s precedes %s",
				domain.ErrInconsistentTransaction, t.ID, cur.Status, prev.Status)
		}
	}

	return nil
}

// Advance applies every time driven transition that is due at now, one state at a time.
// A held transaction (RequiresAuth) stops at IN_TRANSIT.
func Advance(now time.Time, t domain.Transaction, d Durations) (domain.Transaction, []domain.Event, error) {
	if err := Validate(t); err != nil {
		return t, nil, err
	}

	next := t.Clone()
	elapsed := now.Sub(next.SubmittedAt())

	var events []domain.Event

	for {
		var due bool

		switch next.Status {
		case domain.StatusSubmitted:
			due = elapsed >= d.ConvertingAfter
		case domain.StatusConverting:
			due = elapsed >= d.InTransitAfter
		case domain.StatusInTransit:
			due = !now.Before(next.EstimatedArrival) && !next.RequiresAuth
		case domain.StatusFundsArrived:
			due = false
		}

		if !due {
			return next, events, nil
		}

		next = stamp(now, next)

		if next.Status == domain.StatusFundsArrived {
			events = append(events, fundsArrived(now, next))
		}
	}
}

// Authorize releases a held IN_TRANSIT transaction straight to FUNDS_ARRIVED.
func Authorize(now time.Time, t domain.Transaction) (domain.Transaction, []domain.Event, error) {
	if err := Validate(t); err != nil {
		return t, nil, err
	}

	if t.Status != domain.StatusInTransit || !t.RequiresAuth {
		return t, nil, domain.ErrNotAuthorizable
	}

	next := stamp(now, t.Clone())
	next.RequiresAuth = false

	return next, []domain.Event{fundsArrived(now, next)}, nil
}

// stamp moves t to the status after its current one. The stamp never precedes the last one.
func stamp(now time.Time, t domain.Transaction) domain.Transaction {
	status := domain.StatusOrder[t.Status.Rank()+1]

	at := now
	if last := t.Timeline[len(t.Timeline)-1].At; at.Before(last) {
		at = last
	}

	t.Status = status
	t.Timeline = append(t.Timeline, domain.StatusStamp{Status: status, At: at})

	return t
}

func fundsArrived(now time.Time, t domain.Transaction) domain.Event {
	return domain.NewEvent(domain.EventFundsArrived, now).
		WithTransaction(t).
		WithAmount(t.ReceiveAmount)
}
