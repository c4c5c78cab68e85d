package domain

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientHoldings indicates that the sell amount exceeds the owned amount.
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	// ErrInvalidPrice indicates a non-positive asset price.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrInvalidAsset indicates an empty asset id.
	ErrInvalidAsset = errors.New("invalid asset")
)

// Side of a trade.
type Side string

// Trade sides.
const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Holding holds the owned amount of a crypto asset and its cost basis.
type Holding struct {
	AssetID     string          `json:"asset_id"`
	Amount      decimal.Decimal `json:"amount"`
	AvgBuyPrice decimal.Decimal `json:"avg_buy_price"`
}

// Trade is the result of an executed order.
type Trade struct {
	Side      Side            `json:"side"`
	AssetID   string          `json:"asset_id"`
	Amount    decimal.Decimal `json:"amount"` // crypto amount bought or sold
	Price     decimal.Decimal `json:"price"`
	Fee       decimal.Decimal `json:"fee"`
	Total     decimal.Decimal `json:"total"` // money debited on buy, credited on sell
	AccountID int32           `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	Holding   *Holding        `json:"holding,omitempty"` // nil once the position is closed
	EntryID   uuid.UUID       `json:"entry_id"`          // ledger entry of the money movement
}
