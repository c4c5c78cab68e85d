package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/go-petr/pet-ledger/cmd/httpserver"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/eventsink"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/clockpkg"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

const (
	checkingID = 1
	savingsID  = 2
)

type fixture struct {
	server *httpserver.Server
	clock  *clockpkg.Fake
	events *eventsink.Memory
}

func testConfig() configpkg.Config {
	return configpkg.Config{
		TokenType:               "paseto",
		TokenSymmetricKey:       "12345678901234567890123456789012",
		AccessTokenDuration:     time.Minute,
		OperatorUsername:        "compliance",
		OperatorPassword:        "secret123",
		SweepInterval:           time.Second,
		LimitDailyCount:         3,
		CryptoFeeRate:           "0.005",
		LoanDecisionDelay:       10 * time.Second,
		LoanApprovalProbability: 1,
		LoanPolicySeed:          1,
		SeedCurrency:            "USD",
		SeedCheckingBalance:     "1000",
		SeedSavingsBalance:      "500",
	}
}

func setup(t *testing.T, config configpkg.Config) fixture {
	t.Helper()

	clock := clockpkg.NewFake(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	events := eventsink.NewMemory()

	server, err := httpserver.New(config, zerolog.Nop(), clock, events)
	require.NoError(t, err)
	t.Cleanup(server.Loans.Close)

	return fixture{server: server, clock: clock, events: events}
}

func (f fixture) do(t *testing.T, method, url string, body any, token string, data any) (int, web.Response) {
	t.Helper()

	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, url, bytes.NewReader(raw))
	require.NoError(t, err)

	if token != "" {
		req.Header.Set(middleware.AuthHeaderKey, middleware.AuthTypeBearer+" "+token)
	}

	recorder := httptest.NewRecorder()
	f.server.ServeHTTP(recorder, req)

	res := web.Response{Data: data}
	if recorder.Body.Len() > 0 {
		require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))
	}

	return recorder.Code, res
}

func (f fixture) login(t *testing.T) string {
	t.Helper()

	code, res := f.do(t, http.MethodPost, "/operators/login",
		gin.H{"username": "compliance", "password": "secret123"}, "", nil)
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, res.AccessToken)

	return res.AccessToken
}

func (f fixture) balance(t *testing.T, id int32) decimal.Decimal {
	t.Helper()

	var got struct {
		Account domain.Account `json:"account"`
	}

	code, _ := f.do(t, http.MethodGet, fmt.Sprintf("/accounts/%d", id), nil, "", &got)
	require.Equal(t, http.StatusOK, code)

	return got.Account.Balance
}

func (f fixture) statement(t *testing.T, id int32) domain.Statement {
	t.Helper()

	var got struct {
		Statement domain.Statement `json:"statement"`
	}

	code, _ := f.do(t, http.MethodGet, fmt.Sprintf("/accounts/%d/statement", id), nil, "", &got)
	require.Equal(t, http.StatusOK, code)

	return got.Statement
}

type transactionData struct {
	Transaction domain.Transaction `json:"transaction"`
}

func (f fixture) transfer(t *testing.T, send, fee string) (int, web.Response, domain.Transaction) {
	t.Helper()

	var got transactionData

	code, res := f.do(t, http.MethodPost, "/transactions", gin.H{
		"account_id":   checkingID,
		"counterparty": "ACME GmbH",
		"send_amount":  send,
		"fee":          fee,
		"purpose":      "invoice",
	}, "", &got)

	return code, res, got.Transaction
}

func TestSeededAccounts(t *testing.T) {
	f := setup(t, testConfig())

	require.True(t, f.balance(t, checkingID).Equal(decimal.NewFromInt(1000)))
	require.True(t, f.balance(t, savingsID).Equal(decimal.NewFromInt(500)))

	var got struct {
		Accounts []domain.Account `json:"accounts"`
	}

	code, _ := f.do(t, http.MethodGet, "/accounts?page_id=1&page_size=10", nil, "", &got)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, got.Accounts, 2)
	require.Equal(t, domain.CategoryChecking, got.Accounts[0].Category)
	require.Equal(t, domain.CategorySavings, got.Accounts[1].Category)
}

func TestComplianceHoldFlow(t *testing.T) {
	f := setup(t, testConfig())
	token := f.login(t)

	code, _, tx := f.transfer(t, "100", "5")
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, domain.StatusSubmitted, tx.Status)
	require.True(t, tx.RequiresAuth)
	require.True(t, f.balance(t, checkingID).Equal(decimal.NewFromInt(895)))

	f.clock.Advance(20 * time.Second)
	require.Equal(t, 1, f.server.Sweeper.Tick(context.Background()))

	var got transactionData

	code, _ = f.do(t, http.MethodGet, "/transactions/"+tx.ID.String(), nil, "", &got)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, domain.StatusInTransit, got.Transaction.Status)
	require.Empty(t, f.events.OfKind(domain.EventFundsArrived))

	authorizeURL := "/transactions/" + tx.ID.String() + "/authorize"

	code, res := f.do(t, http.MethodPost, authorizeURL, nil, "", nil)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Equal(t, middleware.ErrAuthHeaderNotFound.Error(), res.Error)

	f.clock.Advance(time.Second)

	code, _ = f.do(t, http.MethodPost, authorizeURL, nil, token, &got)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, domain.StatusFundsArrived, got.Transaction.Status)
	require.False(t, got.Transaction.RequiresAuth)

	at, ok := got.Transaction.StampOf(domain.StatusFundsArrived)
	require.True(t, ok)
	require.True(t, at.Equal(f.clock.Now()))

	code, res = f.do(t, http.MethodPost, authorizeURL, nil, token, nil)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, domain.ErrNotAuthorizable.Error(), res.Error)

	require.Equal(t, 0, f.server.Sweeper.Tick(context.Background()))
	require.Len(t, f.events.OfKind(domain.EventFundsArrived), 1)
	require.Len(t, f.events.OfKind(domain.EventTransactionSubmitted), 1)
}

func TestOperatorLoginRejectsWrongPassword(t *testing.T) {
	f := setup(t, testConfig())

	code, res := f.do(t, http.MethodPost, "/operators/login",
		gin.H{"username": "compliance", "password": "not-the-password"}, "", nil)
	require.Equal(t, http.StatusUnauthorized, code)
	require.Empty(t, res.AccessToken)
}

func TestRejectedTransfers(t *testing.T) {
	f := setup(t, testConfig())

	code, res, _ := f.transfer(t, "996", "5")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, domain.ErrInsufficientFunds.Error(), res.Error)
	require.True(t, f.balance(t, checkingID).Equal(decimal.NewFromInt(1000)))

	for i := 0; i < 3; i++ {
		code, _, _ = f.transfer(t, "10", "0")
		require.Equal(t, http.StatusCreated, code)
	}

	code, res, _ = f.transfer(t, "10", "0")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, domain.ErrLimitExceeded.Error(), res.Error)

	rejected := f.events.OfKind(domain.EventTransactionRejected)
	require.Len(t, rejected, 2)
	require.Equal(t, domain.ErrInsufficientFunds.Error(), rejected[0].Reason)
	require.Equal(t, domain.ErrLimitExceeded.Error(), rejected[1].Reason)

	var got struct {
		Transactions []domain.Transaction `json:"transactions"`
	}

	code, _ = f.do(t, http.MethodGet, fmt.Sprintf("/transactions?account_id=%d", checkingID), nil, "", &got)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, got.Transactions, 3)

	f.clock.Advance(24 * time.Hour)

	code, _, _ = f.transfer(t, "10", "0")
	require.Equal(t, http.StatusCreated, code)
}

func TestDeposit(t *testing.T) {
	f := setup(t, testConfig())

	var got transactionData

	code, _ := f.do(t, http.MethodPost, fmt.Sprintf("/accounts/%d/deposits", savingsID),
		gin.H{"amount": "42.50", "description": "interest"}, "", &got)
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, domain.StatusFundsArrived, got.Transaction.Status)
	require.Equal(t, domain.DirectionCredit, got.Transaction.Direction)
	require.True(t, f.balance(t, savingsID).Equal(decimal.RequireFromString("542.50")))
	require.Len(t, f.events.OfKind(domain.EventAccountCredited), 1)
}

func TestClosedAccountIsSkippedBySweeper(t *testing.T) {
	f := setup(t, testConfig())

	code, _, tx := f.transfer(t, "10", "1")
	require.Equal(t, http.StatusCreated, code)

	code, _ = f.do(t, http.MethodDelete, fmt.Sprintf("/accounts/%d", checkingID), nil, "", nil)
	require.Equal(t, http.StatusNoContent, code)

	f.clock.Advance(time.Minute)
	require.Equal(t, 0, f.server.Sweeper.Tick(context.Background()))

	skipped, err := f.server.Ledger.Skipped(context.Background())
	require.NoError(t, err)
	require.Contains(t, skipped, tx.ID)
	require.ErrorIs(t, skipped[tx.ID], domain.ErrAccountNotFound)
}

func TestCryptoRoundTrip(t *testing.T) {
	f := setup(t, testConfig())

	var trade struct {
		Trade domain.Trade `json:"trade"`
	}

	code, _ := f.do(t, http.MethodPost, "/crypto/buy",
		gin.H{"asset_id": "BTC", "usd_amount": "100", "price": "10"}, "", &trade)
	require.Equal(t, http.StatusCreated, code)
	require.True(t, trade.Trade.Total.Equal(decimal.RequireFromString("100.5")))
	require.True(t, f.balance(t, checkingID).Equal(decimal.RequireFromString("899.5")))

	var holdings struct {
		Holdings []domain.Holding `json:"holdings"`
	}

	code, _ = f.do(t, http.MethodGet, "/crypto/holdings", nil, "", &holdings)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, holdings.Holdings, 1)
	require.True(t, holdings.Holdings[0].Amount.Equal(decimal.NewFromInt(10)))

	code, res := f.do(t, http.MethodPost, "/crypto/sell",
		gin.H{"asset_id": "BTC", "amount": "11", "price": "10"}, "", nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, domain.ErrInsufficientHoldings.Error(), res.Error)

	var sold struct {
		Trade domain.Trade `json:"trade"`
	}

	code, _ = f.do(t, http.MethodPost, "/crypto/sell",
		gin.H{"asset_id": "BTC", "amount": "10", "price": "10"}, "", &sold)
	require.Equal(t, http.StatusCreated, code)
	require.Nil(t, sold.Trade.Holding)

	// 1000 - 2 * 0.005 * 100
	require.True(t, f.balance(t, checkingID).Equal(decimal.NewFromInt(999)))

	st := f.statement(t, checkingID)
	require.True(t, st.Account.Balance.Equal(decimal.NewFromInt(999)))
	require.Len(t, st.Transactions, 2)
	require.Equal(t, trade.Trade.EntryID, st.Transactions[0].ID)
	require.Equal(t, sold.Trade.EntryID, st.Transactions[1].ID)

	for _, tx := range st.Transactions {
		require.Equal(t, domain.KindTrade, tx.Kind)
		require.Equal(t, domain.StatusFundsArrived, tx.Status)
	}

	require.True(t, st.Transactions[0].TotalCost().Equal(decimal.RequireFromString("100.5")))
	require.True(t, st.Transactions[1].ReceiveAmount.Equal(decimal.RequireFromString("99.5")))
}

func TestLoanApproval(t *testing.T) {
	f := setup(t, testConfig())

	var got struct {
		Loan domain.LoanApplication `json:"loan"`
	}

	code, _ := f.do(t, http.MethodPost, "/loans", gin.H{"amount": "250", "product_id": "personal-12m"}, "", &got)
	require.Equal(t, http.StatusAccepted, code)
	require.Equal(t, domain.LoanPending, got.Loan.Status)

	url := "/loans/" + got.Loan.ID.String()

	f.clock.Advance(9 * time.Second)

	code, _ = f.do(t, http.MethodGet, url, nil, "", &got)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, domain.LoanPending, got.Loan.Status)

	f.clock.Advance(time.Second)

	code, _ = f.do(t, http.MethodGet, url, nil, "", &got)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, domain.LoanApproved, got.Loan.Status)
	require.NotNil(t, got.Loan.DecidedAt)
	require.True(t, f.balance(t, checkingID).Equal(decimal.NewFromInt(1250)))

	decided := f.events.OfKind(domain.EventLoanDecided)
	require.Len(t, decided, 1)
	require.Equal(t, domain.LoanApproved, decided[0].Outcome)

	st := f.statement(t, checkingID)
	require.Len(t, st.Transactions, 1)
	require.Equal(t, domain.KindLoan, st.Transactions[0].Kind)
	require.Equal(t, *got.Loan.EntryID, st.Transactions[0].ID)
	require.True(t, st.Transactions[0].ReceiveAmount.Equal(decimal.NewFromInt(250)))
}
