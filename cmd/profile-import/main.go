// Command profile-import loads a profiles.json snapshot written by the file
// store and upserts every profile into the configured store.
//
//	STORE_DRIVER=mongo MONGO_URI=mongodb://localhost:27017 profile-import ./data/profiles.json
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tourista/backend/internal/config"
	"github.com/tourista/backend/internal/logging"
	"github.com/tourista/backend/internal/models"
	"github.com/tourista/backend/internal/services"
	"github.com/tourista/backend/internal/storage"
)

const defaultWorkers = 8

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	source := filepath.Join(cfg.Store.DataDir, "profiles.json")
	if len(os.Args) > 1 {
		source = os.Args[1]
	}

	snapshot, err := storage.NewJSONStore(filepath.Dir(source), filepath.Base(source))
	if err != nil {
		logging.Fatal().Err(err).Str("source", source).Msg("Failed to open snapshot")
	}
	if !snapshot.Exists() {
		logging.Fatal().Str("source", source).Msg("Snapshot not found")
	}
	var profiles []*models.Profile
	if err := snapshot.Load(&profiles); err != nil {
		logging.Fatal().Err(err).Str("source", source).Msg("Failed to read snapshot")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancelOpen := context.WithTimeout(ctx, 10*time.Second)
	store, err := services.OpenProfileStore(openCtx, cfg.Store)
	cancelOpen()
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("Failed to open profile store")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logging.Error().Err(err).Msg("Profile store close error")
		}
	}()

	exitCode := 0
	start := time.Now()
	stats, err := services.ImportProfiles(ctx, store, profiles, defaultWorkers)
	event := logging.Info()
	if err != nil {
		event = logging.Error().Err(err)
		exitCode = 1
	}
	event.
		Str("source", source).
		Str("driver", cfg.Store.Driver).
		Int("profiles", stats.Profiles).
		Int("created", stats.Created).
		Int("fields", stats.Fields).
		Int("skipped", stats.Skipped).
		Dur("duration", time.Since(start)).
		Msg("Import finished")
	return exitCode
}
