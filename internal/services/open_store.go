package services

import (
	"context"
	"fmt"

	"github.com/tourista/backend/internal/config"
	"github.com/tourista/backend/internal/logging"
)

// OpenProfileStore builds the store selected by cfg.Driver.
func OpenProfileStore(ctx context.Context, cfg config.StoreConfig) (ProfileStore, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		return NewMongoProfileStore(ctx, cfg.MongoURI, cfg.Database, cfg.Collection)
	case config.DriverFile:
		return NewFileProfileStore(cfg.DataDir)
	case config.DriverMemory:
		logging.Warn().Msg("Using in-memory profile store; data is lost on restart")
		return NewMemoryProfileStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
