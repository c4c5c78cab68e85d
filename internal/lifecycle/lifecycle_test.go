package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/internal/domain"
)

var t0 = time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

func newTestTransfer() domain.Transaction {
	return NewTransfer(t0, domain.CreateTransactionParams{
		AccountID:    1,
		Counterparty: "ACME GmbH",
		SendAmount:   decimal.NewFromInt(90),
		Fee:          decimal.NewFromInt(5),
		ExchangeRate: decimal.RequireFromString("0.92"),
		Purpose:      "invoice 42",
	}, DefaultDurations)
}

func sec(n int) time.Time {
	return t0.Add(time.Duration(n) * time.Second)
}

func TestNewTransfer(t *testing.T) {
	tx := newTestTransfer()

	require.Equal(t, domain.StatusSubmitted, tx.Status)
	require.True(t, tx.RequiresAuth)
	require.Equal(t, domain.DirectionDebit, tx.Direction)
	require.Equal(t, domain.KindTransfer, tx.Kind)
	require.Equal(t, t0.Add(20*time.Second), tx.EstimatedArrival)
	require.True(t, tx.ReceiveAmount.Equal(decimal.RequireFromString("82.8")))
	require.Equal(t, []domain.StatusStamp{{Status: domain.StatusSubmitted, At: t0}}, tx.Timeline)
	require.NoError(t, Validate(tx))
}

func TestNewDeposit(t *testing.T) {
	tx := NewDeposit(t0, domain.CreateDepositParams{AccountID: 2, Amount: decimal.NewFromInt(50), Description: "payroll"})

	require.Equal(t, domain.StatusFundsArrived, tx.Status)
	require.False(t, tx.RequiresAuth)
	require.Equal(t, domain.DirectionCredit, tx.Direction)
	require.Equal(t, domain.KindDeposit, tx.Kind)
	require.Equal(t, []domain.StatusStamp{
		{Status: domain.StatusSubmitted, At: t0},
		{Status: domain.StatusFundsArrived, At: t0},
	}, tx.Timeline)
	require.NoError(t, Validate(tx))

	got, events, err := Advance(sec(100), tx, DefaultDurations)
	require.NoError(t, err)
	require.Empty(t, events)
	require.Equal(t, tx, got)
}

func TestAdvanceStepByStep(t *testing.T) {
	tx := newTestTransfer()
	tx.RequiresAuth = false

	steps := []struct {
		at         time.Time
		wantStatus domain.Status
		wantEvents int
	}{
		{at: sec(4), wantStatus: domain.StatusSubmitted},
		{at: sec(5), wantStatus: domain.StatusConverting},
		{at: sec(6), wantStatus: domain.StatusConverting},
		{at: sec(15), wantStatus: domain.StatusInTransit},
		{at: sec(19), wantStatus: domain.StatusInTransit},
		{at: sec(20), wantStatus: domain.StatusFundsArrived, wantEvents: 1},
		{at: sec(25), wantStatus: domain.StatusFundsArrived},
	}

	for _, step := range steps {
		var (
			events []domain.Event
			err    error
		)

		tx, events, err = Advance(step.at, tx, DefaultDurations)
		require.NoError(t, err)
		require.Equal(t, step.wantStatus, tx.Status, "at %s", step.at.Sub(t0))
		require.Len(t, events, step.wantEvents, "at %s", step.at.Sub(t0))
	}

	want := []domain.StatusStamp{
		{Status: domain.StatusSubmitted, At: sec(0)},
		{Status: domain.StatusConverting, At: sec(5)},
		{Status: domain.StatusInTransit, At: sec(15)},
		{Status: domain.StatusFundsArrived, At: sec(20)},
	}
	if diff := cmp.Diff(want, tx.Timeline); diff != "" {
		t.Errorf("timeline mismatch (-want +got):\n%s", diff)
	}
}

func TestAdvanceCascadesWithoutSkipping(t *testing.T) {
	tx := newTestTransfer()
	tx.RequiresAuth = false

	got, events, err := Advance(sec(30), tx, DefaultDurations)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFundsArrived, got.Status)
	require.Len(t, events, 1)
	require.Equal(t, domain.EventFundsArrived, events[0].Kind)
	require.Equal(t, got.ID, *events[0].TransactionID)
	require.True(t, events[0].Amount.Equal(got.ReceiveAmount))

	want := []domain.StatusStamp{
		{Status: domain.StatusSubmitted, At: sec(0)},
		{Status: domain.StatusConverting, At: sec(30)},
		{Status: domain.StatusInTransit, At: sec(30)},
		{Status: domain.StatusFundsArrived, At: sec(30)},
	}
	if diff := cmp.Diff(want, got.Timeline); diff != "" {
		t.Errorf("timeline mismatch (-want +got):\n%s", diff)
	}

	// the input is not mutated
	require.Equal(t, domain.StatusSubmitted, tx.Status)
	require.Len(t, tx.Timeline, 1)
}

func TestAdvanceHoldsUntilAuthorized(t *testing.T) {
	tx := newTestTransfer()

	held, events, err := Advance(sec(20), tx, DefaultDurations)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInTransit, held.Status)
	require.Empty(t, events)

	held, events, err = Advance(sec(3600), held, DefaultDurations)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInTransit, held.Status)
	require.Empty(t, events)

	released, events, err := Authorize(sec(21), held)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFundsArrived, released.Status)
	require.False(t, released.RequiresAuth)
	require.Len(t, events, 1)

	at, ok := released.StampOf(domain.StatusFundsArrived)
	require.True(t, ok)
	require.Equal(t, sec(21), at)
	require.NoError(t, Validate(released))

	_, _, err = Authorize(sec(22), released)
	require.ErrorIs(t, err, domain.ErrNotAuthorizable)
}

func TestStampNeverPrecedesPrevious(t *testing.T) {
	tx := newTestTransfer()

	inTransit, _, err := Advance(sec(20), tx, DefaultDurations)
	require.NoError(t, err)

	released, _, err := Authorize(sec(10), inTransit)
	require.NoError(t, err)

	at, _ := released.StampOf(domain.StatusFundsArrived)
	require.Equal(t, sec(20), at)
	require.NoError(t, Validate(released))
}

func TestAuthorizeEarlyArrival(t *testing.T) {
	tx := newTestTransfer()

	inTransit, _, err := Advance(sec(15), tx, DefaultDurations)
	require.NoError(t, err)
	require.Equal(t, domain.StatusInTransit, inTransit.Status)

	released, _, err := Authorize(sec(16), inTransit)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFundsArrived, released.Status)
}

func TestAuthorizeWrongState(t *testing.T) {
	tx := newTestTransfer()

	_, _, err := Authorize(sec(1), tx)
	require.ErrorIs(t, err, domain.ErrNotAuthorizable)

	converting, _, err := Advance(sec(5), tx, DefaultDurations)
	require.NoError(t, err)

	_, _, err = Authorize(sec(6), converting)
	require.ErrorIs(t, err, domain.ErrNotAuthorizable)

	inTransit, _, err := Advance(sec(15), converting, DefaultDurations)
	require.NoError(t, err)
	inTransit.RequiresAuth = false

	_, _, err = Authorize(sec(16), inTransit)
	require.ErrorIs(t, err, domain.ErrNotAuthorizable)
}

func TestNewEntry(t *testing.T) {
	sell := NewEntry(t0, domain.RecordEntryParams{
		AccountID: 3,
		Kind:      domain.KindTrade,
		Direction: domain.DirectionCredit,
		Amount:    decimal.NewFromInt(400),
		Fee:       decimal.NewFromInt(2),
	})
	require.True(t, sell.ReceiveAmount.Equal(decimal.NewFromInt(398)))
	require.Equal(t, domain.StatusFundsArrived, sell.Status)
	require.NoError(t, Validate(sell))

	// arrived debits skip the delivery states without being inconsistent
	buy := NewEntry(t0, domain.RecordEntryParams{
		AccountID: 3,
		Kind:      domain.KindTrade,
		Direction: domain.DirectionDebit,
		Amount:    decimal.NewFromInt(100),
		Fee:       decimal.RequireFromString("0.5"),
	})
	require.True(t, buy.TotalCost().Equal(decimal.RequireFromString("100.5")))
	require.NoError(t, Validate(buy))

	got, events, err := Advance(sec(100), buy, DefaultDurations)
	require.NoError(t, err)
	require.Empty(t, events)
	require.Equal(t, buy, got)
}

func TestValidate(t *testing.T) {
	valid := newTestTransfer()

	testCases := []struct {
		name   string
		mutate func(tx *domain.Transaction)
	}{
		{
			name:   "UnknownStatus",
			mutate: func(tx *domain.Transaction) { tx.Status = "LOST" },
		},
		{
			name:   "MissingSubmittedStamp",
			mutate: func(tx *domain.Transaction) { tx.Timeline = nil },
		},
		{
			name:   "StatusWithoutStamp",
			mutate: func(tx *domain.Transaction) { tx.Status = domain.StatusConverting },
		},
		{
			name: "SkippedState",
			mutate: func(tx *domain.Transaction) {
				tx.Status = domain.StatusInTransit
				tx.Timeline = append(tx.Timeline, domain.StatusStamp{Status: domain.StatusInTransit, At: sec(15)})
			},
		},
		{
			name: "StampGoesBack",
			mutate: func(tx *domain.Transaction) {
				tx.Status = domain.StatusConverting
				tx.Timeline = append(tx.Timeline, domain.StatusStamp{Status: domain.StatusConverting, At: sec(-1)})
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tx := valid.Clone()
			tc.mutate(&tx)

			err := Validate(tx)
			require.True(t, errors.Is(err, domain.ErrInconsistentTransaction), "got %v", err)

			_, _, err = Advance(sec(100), tx, DefaultDurations)
			require.ErrorIs(t, err, domain.ErrInconsistentTransaction)
		})
	}
}
