package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrTransactionNotFound indicates that the transaction is not found.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrLimitExceeded indicates that a spending window would be exceeded.
	ErrLimitExceeded = errors.New("transaction limit exceeded")
	// ErrNotAuthorizable indicates that the transaction is not held for authorization.
	ErrNotAuthorizable = errors.New("transaction is not awaiting authorization")
	// ErrInvalidExchangeRate indicates a non-positive exchange rate.
	ErrInvalidExchangeRate = errors.New("invalid exchange rate")
	// ErrInconsistentTransaction indicates a broken internal invariant of a stored transaction.
	ErrInconsistentTransaction = errors.New("inconsistent transaction")
)

// Status is a delivery state of a transaction.
type Status string

// Transaction statuses in the order they are reached.
const (
	StatusSubmitted    Status = "SUBMITTED"
	StatusConverting   Status = "CONVERTING"
	StatusInTransit    Status = "IN_TRANSIT"
	StatusFundsArrived Status = "FUNDS_ARRIVED"
)

// StatusOrder lists every status in lifecycle order.
var StatusOrder = []Status{StatusSubmitted, StatusConverting, StatusInTransit, StatusFundsArrived}

// Rank returns the position of s in StatusOrder or -1 for an unknown status.
func (s Status) Rank() int {
	for i, status := range StatusOrder {
		if status == s {
			return i
		}
	}

	return -1
}

// Direction tells whether money left or entered the account.
type Direction string

// Transaction directions.
const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
)

// Kind tells what produced a ledger entry.
type Kind string

// Ledger entry kinds. Only transfers go through the delivery lifecycle; every other kind is
// recorded already arrived.
const (
	KindTransfer Kind = "transfer"
	KindDeposit  Kind = "deposit"
	KindTrade    Kind = "trade"
	KindLoan     Kind = "loan_payout"
)

// StatusStamp records when a status was reached.
type StatusStamp struct {
	Status Status    `json:"status"`
	At     time.Time `json:"at"`
}

// Transaction holds money movement data of an account.
type Transaction struct {
	ID               uuid.UUID       `json:"id"`
	AccountID        int32           `json:"account_id"`
	Counterparty     string          `json:"counterparty"`
	SendAmount       decimal.Decimal `json:"send_amount"`
	ReceiveAmount    decimal.Decimal `json:"receive_amount"`
	Fee              decimal.Decimal `json:"fee"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
	Status           Status          `json:"status"`
	EstimatedArrival time.Time       `json:"estimated_arrival"`
	RequiresAuth     bool            `json:"requires_auth"`
	Timeline         []StatusStamp   `json:"timeline"` // one entry per reached status, in order
	Direction        Direction       `json:"direction"`
	Kind             Kind            `json:"kind"`
	Purpose          string          `json:"purpose"`
}

// TotalCost is the amount taken from the account by a debit.
func (t Transaction) TotalCost() decimal.Decimal {
	return t.SendAmount.Add(t.Fee)
}

// StampOf returns the time the status was reached.
func (t Transaction) StampOf(s Status) (time.Time, bool) {
	for _, stamp := range t.Timeline {
		if stamp.Status == s {
			return stamp.At, true
		}
	}

	return time.Time{}, false
}

// SubmittedAt returns the SUBMITTED stamp or the zero time.
func (t Transaction) SubmittedAt() time.Time {
	at, _ := t.StampOf(StatusSubmitted)
	return at
}

// Terminal reports whether the transaction reached FUNDS_ARRIVED.
func (t Transaction) Terminal() bool {
	return t.Status == StatusFundsArrived
}

// Clone returns a copy that shares no memory with t.
func (t Transaction) Clone() Transaction {
	c := t
	c.Timeline = append([]StatusStamp(nil), t.Timeline...)

	return c
}

// CreateTransactionParams is the input data for an outgoing transaction.
type CreateTransactionParams struct {
	AccountID    int32
	Counterparty string
	SendAmount   decimal.Decimal
	Fee          decimal.Decimal
	ExchangeRate decimal.Decimal
	Purpose      string
}

// CreateDepositParams is the input data for an incoming deposit.
type CreateDepositParams struct {
	AccountID   int32
	Amount      decimal.Decimal
	Description string
}

// RecordEntryParams is the input data for money the engine moves on its own behalf.
// A debit takes Amount plus Fee from the account, a credit adds Amount less Fee.
type RecordEntryParams struct {
	AccountID    int32
	Kind         Kind
	Direction    Direction
	Amount       decimal.Decimal
	Fee          decimal.Decimal
	Counterparty string
	Purpose      string
}

// Statement is an account together with every ledger entry of it.
type Statement struct {
	Account      Account       `json:"account"`
	Transactions []Transaction `json:"transactions"`
}

// ListTransactionsParams filters ledger queries. Zero values match everything.
type ListTransactionsParams struct {
	AccountID int32
	From      time.Time
	To        time.Time
}
