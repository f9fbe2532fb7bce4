package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PoolConfig holds connection pool limits
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewDatabase creates a new database connection pool
func NewDatabase(ctx context.Context, databaseURL string, pool PoolConfig) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	zap.L().Info("Connecting to PostgreSQL database")

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 10
	if pool.MaxConns > 0 {
		config.MaxConns = pool.MaxConns
	}
	config.MinConns = 2
	if pool.MinConns > 0 && pool.MinConns <= config.MaxConns {
		config.MinConns = pool.MinConns
	}
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	zap.L().Info("Database connected",
		zap.Int32("max_conns", config.MaxConns),
		zap.Int32("min_conns", config.MinConns),
	)
	return db, nil
}
