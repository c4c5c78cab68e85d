// Package transactiondelivery manages delivery layer of the transaction ledger.
package transactiondelivery

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by transaction delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transactiondelivery
type Service interface {
	CreateTransaction(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error)
	CreateDeposit(ctx context.Context, arg domain.CreateDepositParams) (domain.Transaction, error)
	Authorize(ctx context.Context, id uuid.UUID) (domain.Transaction, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Transaction, error)
	List(ctx context.Context, arg domain.ListTransactionsParams) ([]domain.Transaction, error)
	Statement(ctx context.Context, accountID int32) (domain.Statement, error)
}

// Handler facilitates transaction delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transaction handler.
func NewHandler(ts Service) *Handler {
	return &Handler{service: ts}
}

type data struct {
	Transaction domain.Transaction `json:"transaction"`
}

type dataTransactions struct {
	Transactions []domain.Transaction `json:"transactions"`
}

type dataStatement struct {
	Statement domain.Statement `json:"statement"`
}

func (h *Handler) writeError(gctx *gin.Context, err error) {
	switch err {
	case
		domain.ErrInsufficientFunds,
		domain.ErrLimitExceeded,
		domain.ErrInvalidAmount,
		domain.ErrInvalidExchangeRate:
		gctx.JSON(http.StatusBadRequest, web.Error(err))
	case
		domain.ErrAccountNotFound,
		domain.ErrTransactionNotFound:
		gctx.JSON(http.StatusNotFound, web.Error(err))
	case domain.ErrNotAuthorizable:
		gctx.JSON(http.StatusConflict, web.Error(err))
	default:
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
	}
}

type createRequest struct {
	AccountID    int32  `json:"account_id" binding:"required,min=1"`
	Counterparty string `json:"counterparty" binding:"required,max=128"`
	SendAmount   string `json:"send_amount" binding:"required,positive_decimal"`
	Fee          string `json:"fee" binding:"omitempty,decimal"`
	ExchangeRate string `json:"exchange_rate" binding:"omitempty,positive_decimal"`
	Purpose      string `json:"purpose" binding:"max=256"`
}

func decimalOr(s string, fallback decimal.Decimal) decimal.Decimal {
	if s == "" {
		return fallback
	}

	// validated by the binding tags
	return decimal.RequireFromString(s)
}

// Create handles http request to submit an outgoing transaction.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	arg := domain.CreateTransactionParams{
		AccountID:    req.AccountID,
		Counterparty: req.Counterparty,
		SendAmount:   decimalOr(req.SendAmount, decimal.Zero),
		Fee:          decimalOr(req.Fee, decimal.Zero),
		ExchangeRate: decimalOr(req.ExchangeRate, decimal.NewFromInt(1)),
		Purpose:      req.Purpose,
	}

	t, err := h.service.CreateTransaction(ctx, arg)
	if err != nil {
		l.Info().Err(err).Send()
		h.writeError(gctx, err)

		return
	}

	gctx.JSON(http.StatusCreated, web.Response{Data: data{t}})
}

type accountURI struct {
	ID int32 `uri:"id" binding:"required,min=1"`
}

type depositRequest struct {
	Amount      string `json:"amount" binding:"required,positive_decimal"`
	Description string `json:"description" binding:"max=256"`
}

// CreateDeposit handles http request to credit an account.
func (h *Handler) CreateDeposit(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri accountURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	var req depositRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	t, err := h.service.CreateDeposit(ctx, domain.CreateDepositParams{
		AccountID:   uri.ID,
		Amount:      decimalOr(req.Amount, decimal.Zero),
		Description: req.Description,
	})
	if err != nil {
		l.Info().Err(err).Send()
		h.writeError(gctx, err)

		return
	}

	gctx.JSON(http.StatusCreated, web.Response{Data: data{t}})
}

// Statement handles http request to get an account with its ledger entries.
func (h *Handler) Statement(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri accountURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	st, err := h.service.Statement(ctx, uri.ID)
	if err != nil {
		l.Info().Err(err).Send()
		h.writeError(gctx, err)

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: dataStatement{st}})
}

type transactionURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

func bindTransactionID(gctx *gin.Context) (uuid.UUID, error) {
	var uri transactionURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		return uuid.Nil, err
	}

	return uuid.Parse(uri.ID)
}

// Get handles http request to get a transaction.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	id, err := bindTransactionID(gctx)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	t, err := h.service.Get(ctx, id)
	if err != nil {
		l.Info().Err(err).Send()
		h.writeError(gctx, err)

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{t}})
}

// Authorize handles http request of a compliance operator to release a held transaction.
func (h *Handler) Authorize(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	id, err := bindTransactionID(gctx)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	authPayload := gctx.MustGet(middleware.AuthPayloadKey).(*tokenpkg.Payload)

	t, err := h.service.Authorize(ctx, id)
	if err != nil {
		l.Info().Err(err).Str("operator", authPayload.Username).Send()
		h.writeError(gctx, err)

		return
	}

	l.Info().
		Str("operator", authPayload.Username).
		Str("transaction_id", t.ID.String()).
		Msg("transaction authorized")

	gctx.JSON(http.StatusOK, web.Response{Data: data{t}})
}

type listRequest struct {
	AccountID int32     `form:"account_id" binding:"omitempty,min=1"`
	From      time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To        time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// List handles http request to list transactions, optionally by account and time range.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req listRequest
	if err := gctx.ShouldBindQuery(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	items, err := h.service.List(ctx, domain.ListTransactionsParams{
		AccountID: req.AccountID,
		From:      req.From,
		To:        req.To,
	})
	if err != nil {
		l.Error().Err(err).Send()
		h.writeError(gctx, err)

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: dataTransactions{items}})
}
