package loanservice

import (
	"context"
	"math/rand"
	"sync"

	"github.com/go-petr/pet-ledger/internal/domain"
)

// Policy decides a pending loan application.
type Policy interface {
	Decide(ctx context.Context, app domain.LoanApplication) domain.LoanStatus
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(ctx context.Context, app domain.LoanApplication) domain.LoanStatus

// Decide calls f.
func (f PolicyFunc) Decide(ctx context.Context, app domain.LoanApplication) domain.LoanStatus {
	return f(ctx, app)
}

// Approve approves every application.
var Approve = PolicyFunc(func(context.Context, domain.LoanApplication) domain.LoanStatus {
	return domain.LoanApproved
})

// Reject rejects every application.
var Reject = PolicyFunc(func(context.Context, domain.LoanApplication) domain.LoanStatus {
	return domain.LoanRejected
})

// RandomPolicy approves with a fixed probability. The same seed yields the same decisions.
type RandomPolicy struct {
	mu          sync.Mutex
	rng         *rand.Rand
	probability float64
}

// NewRandomPolicy returns a policy approving with the given probability.
func NewRandomPolicy(probability float64, seed int64) *RandomPolicy {
	return &RandomPolicy{
		rng:         rand.New(rand.NewSource(seed)),
		probability: probability,
	}
}

// Decide draws the next decision.
func (p *RandomPolicy) Decide(context.Context, domain.LoanApplication) domain.LoanStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rng.Float64() < p.probability {
		return domain.LoanApproved
	}

	return domain.LoanRejected
}
