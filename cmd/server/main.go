package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tourista/backend/internal/config"
	"github.com/tourista/backend/internal/handlers"
	"github.com/tourista/backend/internal/logging"
	"github.com/tourista/backend/internal/metrics"
	"github.com/tourista/backend/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	collector, err := metrics.NewCollector(cfg.Metrics.PhoneLabel)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create metrics collector")
	}

	openCtx, cancelOpen := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := services.OpenProfileStore(openCtx, cfg.Store)
	cancelOpen()
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("Failed to open profile store")
	}

	profileService := services.NewProfileService(store, collector)

	server := &http.Server{
		Addr: cfg.Server.Address,
		Handler: handlers.NewRouter(profileService, collector, handlers.RouterConfig{
			CORSOrigins:    cfg.Server.CORSOrigins,
			RateLimit:      cfg.Server.RateLimit,
			RequestTimeout: cfg.Server.RequestTimeout,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Str("driver", cfg.Store.Driver).Msg("Tourista API server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logging.Info().Msg("Received shutdown signal")
	case err := <-errCh:
		if err != nil {
			logging.Error().Err(err).Msg("Server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := store.Close(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("Profile store close error")
	}
	logging.Info().Msg("Server stopped")
}
