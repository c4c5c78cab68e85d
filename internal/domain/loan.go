package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrLoanNotFound indicates that the loan application is not found.
	ErrLoanNotFound = errors.New("loan application not found")
	// ErrInvalidProduct indicates a loan application without a product reference.
	ErrInvalidProduct = errors.New("invalid loan product")
)

// LoanStatus is the underwriting state of an application.
type LoanStatus string

// Loan statuses. APPROVED and REJECTED are terminal.
const (
	LoanPending  LoanStatus = "PENDING"
	LoanApproved LoanStatus = "APPROVED"
	LoanRejected LoanStatus = "REJECTED"
)

// LoanApplication holds a request for credit and its decision.
type LoanApplication struct {
	ID          uuid.UUID       `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	ProductID   string          `json:"product_id"`
	Status      LoanStatus      `json:"status"`
	SubmittedAt time.Time       `json:"submitted_at"`
	DecidedAt   *time.Time      `json:"decided_at,omitempty"`
	AccountID   int32           `json:"account_id,omitempty"` // disbursement target once approved
	EntryID     *uuid.UUID      `json:"entry_id,omitempty"`   // ledger entry of the payout
}

// SubmitLoanParams is the input data for a loan application.
type SubmitLoanParams struct {
	Amount    decimal.Decimal
	ProductID string
}
