// Package loandelivery manages delivery layer of loan applications.
package loandelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by loan delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package loandelivery
type Service interface {
	Submit(ctx context.Context, arg domain.SubmitLoanParams) (domain.LoanApplication, error)
	Get(ctx context.Context, id uuid.UUID) (domain.LoanApplication, error)
	List(ctx context.Context) []domain.LoanApplication
}

// Handler facilitates loan delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns loan handler.
func NewHandler(ls Service) *Handler {
	return &Handler{service: ls}
}

type data struct {
	Loan domain.LoanApplication `json:"loan"`
}

type dataLoans struct {
	Loans []domain.LoanApplication `json:"loans"`
}

type submitRequest struct {
	Amount    string `json:"amount" binding:"required,positive_decimal"`
	ProductID string `json:"product_id" binding:"required,max=64"`
}

// Submit handles http request to apply for a loan. The decision is taken asynchronously.
func (h *Handler) Submit(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req submitRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	app, err := h.service.Submit(ctx, domain.SubmitLoanParams{
		Amount:    decimal.RequireFromString(req.Amount),
		ProductID: req.ProductID,
	})
	if err != nil {
		l.Info().Err(err).Send()

		switch err {
		case domain.ErrInvalidAmount, domain.ErrInvalidProduct:
			gctx.JSON(http.StatusBadRequest, web.Error(err))
		default:
			gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		}

		return
	}

	gctx.JSON(http.StatusAccepted, web.Response{Data: data{app}})
}

type loanURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// Get handles http request to get a loan application.
func (h *Handler) Get(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri loanURI
	if err := gctx.ShouldBindUri(&uri); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	app, err := h.service.Get(ctx, uuid.MustParse(uri.ID))
	if err != nil {
		l.Info().Err(err).Send()

		if err == domain.ErrLoanNotFound {
			gctx.JSON(http.StatusNotFound, web.Error(err))
			return
		}

		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: data{app}})
}

// List handles http request to list loan applications in submission order.
func (h *Handler) List(gctx *gin.Context) {
	apps := h.service.List(gctx.Request.Context())

	gctx.JSON(http.StatusOK, web.Response{Data: dataLoans{apps}})
}
