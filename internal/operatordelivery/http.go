// Package operatordelivery manages delivery layer of compliance operator sessions.
package operatordelivery

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by operator delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package operatordelivery
type Service interface {
	Login(ctx context.Context, username, password string) (string, *tokenpkg.Payload, error)
}

// Handler facilitates operator delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns operator handler.
func NewHandler(ops Service) *Handler {
	return &Handler{service: ops}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=6"`
}

type operator struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type data struct {
	Operator operator `json:"operator"`
}

// Login handles http request to issue an operator access token.
func (h *Handler) Login(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req loginRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.BindError(err))

		return
	}

	token, payload, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch err {
		case errorspkg.ErrInvalidCredentials:
			gctx.JSON(http.StatusUnauthorized, web.Error(err))
		default:
			gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
		}

		return
	}

	gctx.JSON(http.StatusOK, web.Response{
		AccessToken:          token,
		AccessTokenExpiresAt: payload.ExpiredAt.Format(time.RFC3339),
		Data:                 data{operator{Username: payload.Username, Role: payload.Role}},
	})
}
