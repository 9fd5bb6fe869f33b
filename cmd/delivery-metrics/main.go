package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"delivery-metrics-service/internal/config"
	"delivery-metrics-service/internal/db"
	httphandler "delivery-metrics-service/internal/http"
	"delivery-metrics-service/internal/logger"
	"delivery-metrics-service/internal/repository"
	"delivery-metrics-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment, cfg.LogLevel)

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error().Err(err).Msg("delivery metrics service stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config, appLogger zerolog.Logger) error {
	database, err := db.New(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := db.Close(database); err != nil {
			appLogger.Error().Err(err).Msg("failed to close database")
		}
	}()

	metricsRepo := repository.NewMetricsRepository(database, cfg.DB.QueryTimeout, appLogger)
	metricsService := service.NewMetricsService(metricsRepo, cfg.Metrics.DefaultMinShipments, cfg.Metrics.DefaultLimit)

	handler := httphandler.NewHandler(metricsService, appLogger)
	router := httphandler.NewRouter(handler, cfg, appLogger)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info().Str("addr", srv.Addr).Msg("starting delivery metrics service")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		appLogger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
