package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hongminglow/deepsea-be/internal/config"
	"github.com/hongminglow/deepsea-be/internal/storage"
	"github.com/hongminglow/deepsea-be/internal/storage/memstore"
	"github.com/hongminglow/deepsea-be/internal/storage/postgres"
)

const connectTimeout = 10 * time.Second

// OpenStore opens the configured storage driver, running migrations first
// when the driver is postgres and DB_AUTO_MIGRATE is set.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory storage; data is lost on exit")
		return memstore.New(), nil
	case config.DriverPostgres:
		url := cfg.DatabaseURL()
		if cfg.Database.AutoMigrate {
			if err := postgres.MigrateUp(url, logger); err != nil {
				return nil, err
			}
		}
		store, err := postgres.Open(ctx, url, postgres.Options{
			MaxConns:       cfg.Database.PoolMax,
			IdleTimeout:    cfg.Database.IdleTimeout.Std(),
			ConnectTimeout: connectTimeout,
			AcquireTimeout: cfg.Database.AcquireTimeout.Std(),
		})
		if err != nil {
			return nil, err
		}
		logger.Info("connected to postgres", slog.Int("pool_max", int(cfg.Database.PoolMax)))
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
