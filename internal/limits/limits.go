// Package limits admits outgoing transactions against rolling spending windows.
package limits

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// Rolling window lengths.
const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day
)

// Window caps the summed amount and the number of debits within a period.
// A zero cap disables that constraint.
type Window struct {
	Name      string
	Period    time.Duration
	MaxAmount decimal.Decimal
	MaxCount  int
}

// Limits holds the daily, weekly and monthly windows.
type Limits struct {
	Daily   Window
	Weekly  Window
	Monthly Window
}

// New returns limits for the three standard windows.
func New(dailyAmount decimal.Decimal, dailyCount int, weeklyAmount decimal.Decimal, weeklyCount int,
	monthlyAmount decimal.Decimal, monthlyCount int) Limits {
	return Limits{
		Daily:   Window{Name: "daily", Period: Day, MaxAmount: dailyAmount, MaxCount: dailyCount},
		Weekly:  Window{Name: "weekly", Period: Week, MaxAmount: weeklyAmount, MaxCount: weeklyCount},
		Monthly: Window{Name: "monthly", Period: Month, MaxAmount: monthlyAmount, MaxCount: monthlyCount},
	}
}

// Windows returns the windows in increasing period order.
func (l Limits) Windows() []Window {
	return []Window{l.Daily, l.Weekly, l.Monthly}
}

// Usage is what the history already consumed of a window.
type Usage struct {
	Window Window
	Amount decimal.Decimal
	Count  int
}

// Breach describes the first window a candidate would exceed.
type Breach struct {
	Window string
	Amount bool // the summed amount cap would be exceeded
	Count  bool // the count cap would be exceeded
}

// UsageAt sums send amount plus fee and counts the debits of history submitted within
// (now-period, now] of the window. Crypto trade debits settle against the account but are
// not spending and never count.
func UsageAt(w Window, history []domain.Transaction, now time.Time) Usage {
	u := Usage{Window: w, Amount: decimal.Zero}
	start := now.Add(-w.Period)

	for _, t := range history {
		if t.Direction != domain.DirectionDebit || t.Kind == domain.KindTrade {
			continue
		}

		at := t.SubmittedAt()
		if !at.After(start) || at.After(now) {
			continue
		}

		u.Amount = u.Amount.Add(t.TotalCost())
		u.Count++
	}

	return u
}

// Check fails with domain.ErrLimitExceeded if adding a debit costing cost at now would push
// the amount or the count of any window past its cap.
func Check(cost decimal.Decimal, history []domain.Transaction, l Limits, now time.Time) (Breach, error) {
	for _, w := range l.Windows() {
		u := UsageAt(w, history, now)

		b := Breach{Window: w.Name}
		b.Amount = w.MaxAmount.IsPositive() && u.Amount.Add(cost).GreaterThan(w.MaxAmount)
		b.Count = w.MaxCount > 0 && u.Count+1 > w.MaxCount

		if b.Amount || b.Count {
			return b, domain.ErrLimitExceeded
		}
	}

	return Breach{}, nil
}
