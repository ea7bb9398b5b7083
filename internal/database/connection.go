package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/sessionauth/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	connectTimeout     = 10 * time.Second
	healthCheckTimeout = 2 * time.Second
)

// DB owns the pgx pool every repository queries through.
// Transactions started with WithinTx ride along in the context.
type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewConnection opens the pool described by cfg and fails fast when the database is unreachable
func NewConnection(cfg *config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	poolConfig, err := poolConfigFrom(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating session store pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("reaching session store %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info("session store connected",
		slog.String("database", cfg.Name),
		slog.Int("max_conns", int(poolConfig.MaxConns)),
		slog.Int("min_conns", int(poolConfig.MinConns)),
	)

	return New(pool, logger), nil
}

// poolConfigFrom maps the DB_* settings onto pgxpool; zero values keep pgx defaults
func poolConfigFrom(cfg *config.DatabaseConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database settings: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}
	return poolConfig, nil
}

// New wraps an existing pool, e.g. one created against a test container
func New(pool *pgxpool.Pool, logger *slog.Logger) *DB {
	return &DB{Pool: pool, logger: logger}
}

// Close releases every pooled connection
func (db *DB) Close() {
	if db.logger != nil {
		db.logger.Info("closing session store pool")
	}
	db.Pool.Close()
}

// HealthCheck pings the database; GET /health reports its result
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("session store health check: %w", err)
	}
	return nil
}
