// Package ledgerapi provides the API to manage accounts, money transfers, crypto trades and loans.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-petr/pet-ledger/cmd/httpserver"
	"github.com/go-petr/pet-ledger/internal/eventsink"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/clockpkg"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"

	_ "github.com/lib/pq"
)

const shutdownTimeout = 10 * time.Second

func main() {
	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, closeSink, err := newSink(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create event sink")
	}
	defer closeSink()

	server, err := httpserver.New(config, logger, clockpkg.Real{}, sink)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	go server.Sweeper.Run(ctx)

	srv := &http.Server{
		Addr:              config.ServerAddress,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("cannot start server")
		}
	}()

	logger.Info().Str("address", config.ServerAddress).Msg("LEDGER API SERVER HAS STARTED")

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	server.Loans.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
}

// newSink returns the configured event sink and a function releasing its resources.
func newSink(ctx context.Context, config configpkg.Config, logger zerolog.Logger) (eventsink.Sink, func(), error) {
	logSink := eventsink.NewLog(logger)

	if config.EventSink != "postgres" {
		return logSink, func() {}, nil
	}

	db, err := dbpkg.Setup(ctx, config.DBDriver, config.DBSource, 5*time.Second)
	if err != nil {
		return nil, nil, err
	}

	closeDB := func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("closing database")
		}
	}

	return eventsink.Multi{logSink, eventsink.NewOutboxPGS(db, logger)}, closeDB, nil
}
