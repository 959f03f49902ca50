// Package store opens the repositories for the configured driver.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ErlanBelekov/wa-scheduler/config"
	"github.com/ErlanBelekov/wa-scheduler/internal/health"
	"github.com/ErlanBelekov/wa-scheduler/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/wa-scheduler/internal/infrastructure/sqlite"
	"github.com/ErlanBelekov/wa-scheduler/internal/repository"
)

type Store struct {
	Schedules repository.ScheduleRepository
	Logs      repository.MessageLogRepository
	Contacts  repository.ContactRepository
	Ping      health.PingFunc
	Close     func()
}

// Open connects the configured driver and applies its schema.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &Store{
			Schedules: postgres.NewScheduleRepository(pool, logger),
			Logs:      postgres.NewMessageLogRepository(pool),
			Contacts:  postgres.NewContactRepository(pool),
			Ping:      pool.Ping,
			Close:     pool.Close,
		}, nil
	default:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
		return &Store{
			Schedules: sqlite.NewScheduleRepository(db, logger),
			Logs:      sqlite.NewMessageLogRepository(db),
			Contacts:  sqlite.NewContactRepository(db),
			Ping:      db.PingContext,
			Close:     func() { _ = db.Close() },
		}, nil
	}
}
