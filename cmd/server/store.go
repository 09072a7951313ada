package main

import (
	"context"
	"fmt"

	"fleetmon-server/internal/adapters/postgres"
	"fleetmon-server/internal/adapters/sqlite"
	"fleetmon-server/internal/config"
	"fleetmon-server/internal/domain"
	"fleetmon-server/internal/logger"
)

// store bundles the repositories of whichever driver DB_DRIVER selects.
type store struct {
	servers domain.ServerRepository
	metrics domain.MetricsRepository
	alerts  domain.AlertRepository
	users   domain.UserRepository
	logs    domain.LogRepository

	ping    func(ctx context.Context) error
	migrate func(ctx context.Context) error
	close   func()
}

func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (*store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := postgres.InitDB(ctx, cfg.DatabaseURL, cfg.DBMaxConns, log)
		if err != nil {
			return nil, err
		}

		return &store{
			servers: postgres.NewServerRepository(pool),
			metrics: postgres.NewMetricsRepository(pool),
			alerts:  postgres.NewAlertRepository(pool),
			users:   postgres.NewUserRepository(pool),
			logs:    postgres.NewLogRepository(pool),

			ping:    pool.Ping,
			migrate: func(ctx context.Context) error { return postgres.Migrate(ctx, pool) },
			close:   pool.Close,
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.NewSqliteDB(cfg.SQLitePath, log)
		if err != nil {
			return nil, err
		}

		return &store{
			servers: sqlite.NewServerRepository(db),
			metrics: sqlite.NewMetricsRepository(db),
			alerts:  sqlite.NewAlertRepository(db),
			users:   sqlite.NewUserRepository(db),
			logs:    sqlite.NewLogRepository(db),

			ping:    db.PingContext,
			migrate: func(ctx context.Context) error { return sqlite.Migrate(ctx, db) },
			close:   func() { db.Close() },
		}, nil
	}

	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}
