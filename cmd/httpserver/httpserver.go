// Package httpserver manages server creation and api routing.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/accountdelivery"
	"github.com/go-petr/pet-ledger/internal/accountrepo"
	"github.com/go-petr/pet-ledger/internal/accountservice"
	"github.com/go-petr/pet-ledger/internal/cryptodelivery"
	"github.com/go-petr/pet-ledger/internal/cryptoservice"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/internal/eventsink"
	"github.com/go-petr/pet-ledger/internal/lifecycle"
	"github.com/go-petr/pet-ledger/internal/limits"
	"github.com/go-petr/pet-ledger/internal/loandelivery"
	"github.com/go-petr/pet-ledger/internal/loanservice"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/internal/operatordelivery"
	"github.com/go-petr/pet-ledger/internal/operatorservice"
	"github.com/go-petr/pet-ledger/internal/sweeper"
	"github.com/go-petr/pet-ledger/internal/transactiondelivery"
	"github.com/go-petr/pet-ledger/internal/transactionrepo"
	"github.com/go-petr/pet-ledger/internal/transactionservice"
	"github.com/go-petr/pet-ledger/pkg/clockpkg"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/currencypkg"
	"github.com/go-petr/pet-ledger/pkg/passpkg"
	"github.com/go-petr/pet-ledger/pkg/tokenpkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Server holds handlers router, configuration and the background components of the engine.
type Server struct {
	Engine   *gin.Engine
	Config   configpkg.Config
	Accounts *accountservice.Service
	Ledger   *transactionservice.Service
	Crypto   *cryptoservice.Service
	Loans    *loanservice.Service
	Sweeper  *sweeper.Sweeper
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
// Every component reads time from clock and publishes to sink.
func New(config configpkg.Config, logger zerolog.Logger, clock clockpkg.Clock, sink eventsink.Sink) (*Server, error) {
	txLimits, err := limitsFromConfig(config)
	if err != nil {
		return nil, fmt.Errorf("cannot parse limits: %w", err)
	}

	feeRate, err := configpkg.Decimal(config.CryptoFeeRate)
	if err != nil {
		return nil, fmt.Errorf("cannot parse crypto fee rate: %w", err)
	}

	tokenMaker, err := tokenpkg.NewMaker(config.TokenType, config.TokenSymmetricKey)
	if err != nil {
		return nil, fmt.Errorf("cannot create token maker: %w", err)
	}

	operatorHash, err := operatorPasswordHash(config)
	if err != nil {
		return nil, err
	}

	accountRepo := accountrepo.NewRepoMem(clock.Now)
	transactionRepo := transactionrepo.NewRepoMem()

	accountService := accountservice.New(accountRepo)
	transactionService := transactionservice.New(transactionRepo, accountRepo, txLimits, durationsFromConfig(config), clock, sink)
	cryptoService := cryptoservice.New(accountRepo, transactionService, feeRate, clock, sink)
	loanService := loanservice.New(accountRepo, transactionService, loanPolicy(config), config.LoanDecisionDelay,
		clock, sink, logger)
	operatorService := operatorservice.New(config.OperatorUsername, operatorHash, tokenMaker, config.AccessTokenDuration)

	if err := seed(logger.WithContext(context.Background()), accountService, config); err != nil {
		return nil, err
	}

	if err := registerValidations(); err != nil {
		return nil, err
	}

	accountHandler := accountdelivery.NewHandler(accountService)
	transactionHandler := transactiondelivery.NewHandler(transactionService)
	cryptoHandler := cryptodelivery.NewHandler(cryptoService)
	loanHandler := loandelivery.NewHandler(loanService)
	operatorHandler := operatordelivery.NewHandler(operatorService)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))

	engine.POST("/operators/login", operatorHandler.Login)

	engine.POST("/accounts", accountHandler.Create)
	engine.GET("/accounts/:id", accountHandler.Get)
	engine.GET("/accounts", accountHandler.List)
	engine.DELETE("/accounts/:id", accountHandler.Close)
	engine.POST("/accounts/:id/deposits", transactionHandler.CreateDeposit)
	engine.GET("/accounts/:id/statement", transactionHandler.Statement)

	engine.POST("/transactions", transactionHandler.Create)
	engine.GET("/transactions", transactionHandler.List)
	engine.GET("/transactions/:id", transactionHandler.Get)

	operatorRoutes := engine.Group("/").Use(
		middleware.AuthMiddleware(tokenMaker),
		middleware.RequireRole(tokenpkg.RoleOperator),
	)
	operatorRoutes.POST("/transactions/:id/authorize", transactionHandler.Authorize)

	engine.POST("/crypto/buy", cryptoHandler.Buy)
	engine.POST("/crypto/sell", cryptoHandler.Sell)
	engine.GET("/crypto/holdings", cryptoHandler.Holdings)

	engine.POST("/loans", loanHandler.Submit)
	engine.GET("/loans", loanHandler.List)
	engine.GET("/loans/:id", loanHandler.Get)

	server := &Server{
		Engine:   engine,
		Config:   config,
		Accounts: accountService,
		Ledger:   transactionService,
		Crypto:   cryptoService,
		Loans:    loanService,
		Sweeper:  sweeper.New(transactionService, clock, config.SweepInterval, logger),
	}

	return server, nil
}

func registerValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}

	err := web.RegisterValidations(v, map[string]validator.Func{
		"currency":         currencypkg.ValidCurrency,
		"category":         accountdelivery.ValidCategory,
		"decimal":          web.ValidDecimal,
		"positive_decimal": web.ValidPositiveDecimal,
	})
	if err != nil {
		return fmt.Errorf("cannot register validators: %w", err)
	}

	return nil
}

func limitsFromConfig(config configpkg.Config) (limits.Limits, error) {
	amounts := make([]decimal.Decimal, 0, 3)

	for _, s := range []string{config.LimitDailyAmount, config.LimitWeeklyAmount, config.LimitMonthlyAmount} {
		d, err := configpkg.Decimal(s)
		if err != nil {
			return limits.Limits{}, err
		}

		if d.IsNegative() {
			return limits.Limits{}, fmt.Errorf("negative limit %s", s)
		}

		amounts = append(amounts, d)
	}

	return limits.New(
		amounts[0], config.LimitDailyCount,
		amounts[1], config.LimitWeeklyCount,
		amounts[2], config.LimitMonthlyCount,
	), nil
}

func durationsFromConfig(config configpkg.Config) lifecycle.Durations {
	d := lifecycle.DefaultDurations

	if config.ConvertingAfter > 0 {
		d.ConvertingAfter = config.ConvertingAfter
	}

	if config.InTransitAfter > 0 {
		d.InTransitAfter = config.InTransitAfter
	}

	if config.TransitDuration > 0 {
		d.Transit = config.TransitDuration
	}

	return d
}

func loanPolicy(config configpkg.Config) loanservice.Policy {
	seed := config.LoanPolicySeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return loanservice.NewRandomPolicy(config.LoanApprovalProbability, seed)
}

// operatorPasswordHash prefers the configured bcrypt hash and falls back to hashing
// the plain operator password.
func operatorPasswordHash(config configpkg.Config) (string, error) {
	if config.OperatorPasswordHash != "" || config.OperatorPassword == "" {
		return config.OperatorPasswordHash, nil
	}

	hash, err := passpkg.Hash(config.OperatorPassword)
	if err != nil {
		return "", fmt.Errorf("cannot hash operator password: %w", err)
	}

	return hash, nil
}

// seed opens the primary checking and savings accounts.
func seed(ctx context.Context, accounts *accountservice.Service, config configpkg.Config) error {
	balances := []struct {
		category domain.Category
		balance  string
	}{
		{domain.CategoryChecking, config.SeedCheckingBalance},
		{domain.CategorySavings, config.SeedSavingsBalance},
	}

	for _, b := range balances {
		balance, err := configpkg.Decimal(b.balance)
		if err != nil {
			return fmt.Errorf("cannot parse %s seed balance: %w", b.category, err)
		}

		account, err := accounts.Open(ctx, domain.CreateAccountParams{
			Category: b.category,
			Currency: config.SeedCurrency,
			Balance:  balance,
		})
		if err != nil {
			return fmt.Errorf("cannot seed %s account: %w", b.category, err)
		}

		zerolog.Ctx(ctx).Info().
			Int32("account_id", account.ID).
			Str("category", string(account.Category)).
			Str("balance", account.Balance.String()).
			Msg("account seeded")
	}

	return nil
}
