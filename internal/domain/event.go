package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventKind names a domain event.
type EventKind string

// Events emitted for downstream notification.
const (
	EventTransactionSubmitted EventKind = "transaction_submitted"
	EventTransactionRejected  EventKind = "transaction_rejected"
	EventFundsArrived         EventKind = "funds_arrived"
	EventAccountCredited      EventKind = "account_credited"
	EventTradeExecuted        EventKind = "trade_executed"
	EventTradeRejected        EventKind = "trade_rejected"
	EventLoanDecided          EventKind = "loan_decided"
)

// Event carries the structured data needed to render a notification.
type Event struct {
	ID            uuid.UUID        `json:"id"`
	Kind          EventKind        `json:"kind"`
	OccurredAt    time.Time        `json:"occurred_at"`
	AccountID     int32            `json:"account_id,omitempty"`
	TransactionID *uuid.UUID       `json:"transaction_id,omitempty"`
	LoanID        *uuid.UUID       `json:"loan_id,omitempty"`
	Counterparty  string           `json:"counterparty,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	AssetID       string           `json:"asset_id,omitempty"`
	Side          Side             `json:"side,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	Outcome       LoanStatus       `json:"outcome,omitempty"`
}

// NewEvent returns an event of the given kind stamped with at.
func NewEvent(kind EventKind, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		OccurredAt: at,
	}
}

// WithAmount sets the amount of the event.
func (e Event) WithAmount(d decimal.Decimal) Event {
	e.Amount = &d
	return e
}

// WithTransaction sets the transaction reference of the event.
func (e Event) WithTransaction(t Transaction) Event {
	id := t.ID
	e.TransactionID = &id
	e.AccountID = t.AccountID
	e.Counterparty = t.Counterparty

	return e
}
