// Package cryptodelivery manages delivery layer of crypto trading.
package cryptodelivery

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by crypto delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package cryptodelivery
type Service interface {
	Buy(ctx context.Context, assetID string, usdAmount, price decimal.Decimal) (domain.Trade, error)
	Sell(ctx context.Context, assetID string, cryptoAmount, price decimal.Decimal) (domain.Trade, error)
	Holdings(ctx context.Context) []domain.Holding
}

// Handler facilitates crypto delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns crypto handler.
func NewHandler(cs Service) *Handler {
	return &Handler{service: cs}
}

type data struct {
	Trade domain.Trade `json:"trade"`
}

type dataHoldings struct {
	Holdings []domain.Holding `json:"holdings"`
}

type buyRequest struct {
	AssetID   string `json:"asset_id" binding:"required,max=32"`
	USDAmount string `json:"usd_amount" binding:"required,positive_decimal"`
	Price     string `json:"price" binding:"required,positive_decimal"`
}

type sellRequest struct {
	AssetID string `json:"asset_id" binding:"required,max=32"`
	Amount  string `json:"amount" binding:"required,positive_decimal"`
	Price   string `json:"price" binding:"required,positive_decimal"`
}

func writeError(gctx *gin.Context, err error) {
	switch err {
	case
		domain.ErrInsufficientFunds,
		domain.ErrInsufficientHoldings,
		domain.ErrInvalidAmount,
		domain.ErrInvalidPrice,
		domain.ErrInvalidAsset:
		gctx.JSON(http.StatusBadRequest, web.Error(err))
	case domain.ErrAccountNotFound:
		gctx.JSON(http.StatusNotFound, web.Error(err))
	default:
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
	}
}

// Buy handles http request to buy a crypto asset for money of the checking account.
func (h *Handler) Buy(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req buyRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	trade, err := h.service.Buy(ctx, req.AssetID,
		decimal.RequireFromString(req.USDAmount),
		decimal.RequireFromString(req.Price))
	if err != nil {
		l.Info().Err(err).Str("asset_id", req.AssetID).Send()
		writeError(gctx, err)

		return
	}

	gctx.JSON(http.StatusCreated, web.Response{Data: data{trade}})
}

// Sell handles http request to sell an owned crypto asset.
func (h *Handler) Sell(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req sellRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	trade, err := h.service.Sell(ctx, req.AssetID,
		decimal.RequireFromString(req.Amount),
		decimal.RequireFromString(req.Price))
	if err != nil {
		l.Info().Err(err).Str("asset_id", req.AssetID).Send()
		writeError(gctx, err)

		return
	}

	gctx.JSON(http.StatusCreated, web.Response{Data: data{trade}})
}

// Holdings handles http request to list owned crypto assets.
func (h *Handler) Holdings(gctx *gin.Context) {
	holdings := h.service.Holdings(gctx.Request.Context())

	gctx.JSON(http.StatusOK, web.Response{Data: dataHoldings{holdings}})
}
