// Package domain provides defenitions of all entities.
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInsufficientFunds indicates that the account balance does not cover the debit.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrInvalidAmount indicates a missing, malformed or non-positive amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidCategory indicates an unknown account category.
	ErrInvalidCategory = errors.New("invalid account category")
)

// Category classifies an account.
type Category string

// Account categories.
const (
	CategoryChecking Category = "checking"
	CategorySavings  Category = "savings"
	CategoryBusiness Category = "business"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryChecking, CategorySavings, CategoryBusiness:
		return true
	default:
		return false
	}
}

// Account holds balance data of a single currency account.
type Account struct {
	ID        int32           `json:"id"`
	Category  Category        `json:"category"`
	Name      string          `json:"name"`
	Number    string          `json:"number"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"` // never negative
	CreatedAt time.Time       `json:"created_at"`
}

// CreateAccountParams is the input data to open an account.
type CreateAccountParams struct {
	Category Category
	Name     string
	Currency string
	Balance  decimal.Decimal
}
