package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/osse101/BrandishDuels_Go/internal/config"
	"github.com/osse101/BrandishDuels_Go/internal/database"
	"github.com/osse101/BrandishDuels_Go/internal/database/memory"
	"github.com/osse101/BrandishDuels_Go/internal/database/postgres"
	"github.com/osse101/BrandishDuels_Go/internal/database/sqlite"
	"github.com/osse101/BrandishDuels_Go/internal/handler"
	"github.com/osse101/BrandishDuels_Go/internal/repository"
)

// Storage is the duel repository for the configured dialect together with
// its readiness probe and teardown
type Storage struct {
	Backend string
	Duel    repository.Duel
	Health  handler.HealthChecker
	close   func()
}

// Close releases the backend's connections
func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
	slog.Info(LogMsgStorageClosed, "backend", s.Backend)
}

// OpenStorage connects to the backend named by cfg.DBDialect and brings its schema up to date
func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	var s *Storage

	switch cfg.DBDialect {
	case config.DialectPostgres:
		pool, err := database.NewPool(ctx, cfg.GetDBConnString(), database.PoolOptions{
			MaxConns:    cfg.DBMaxConns,
			MaxIdleTime: cfg.DBMaxConnIdle,
			MaxLifetime: cfg.DBMaxConnLife,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedOpenStorage, err)
		}
		if err := database.MigratePool(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedMigrate, err)
		}
		s = &Storage{
			Duel:   postgres.NewDuelRepository(pool),
			Health: handler.HealthCheckFunc(pool.Ping),
			close:  pool.Close,
		}

	case config.DialectSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedOpenStorage, err)
		}
		s = &Storage{
			Duel:   sqlite.NewDuelRepository(db),
			Health: handler.HealthCheckFunc(db.PingContext),
			close:  func() { _ = db.Close() },
		}

	case config.DialectMemory:
		s = &Storage{
			Duel:   memory.NewDuelRepository(),
			Health: handler.HealthCheckFunc(func(context.Context) error { return nil }),
		}

	default:
		return nil, fmt.Errorf("%s: %q", ErrMsgUnknownDialect, cfg.DBDialect)
	}

	s.Backend = cfg.DBDialect
	slog.Info(LogMsgStorageReady, "backend", s.Backend)
	return s, nil
}
