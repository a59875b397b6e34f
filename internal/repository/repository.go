package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sqids/sqids-go"

	"perflab/internal/config"
	"perflab/internal/metrics"
)

var ErrNotFound = errors.New("not found")

type Recorder interface {
	RecordCounter(name string, labels ...string)
	ObserveDuration(name string, seconds float64, labels ...string)
}

// Repository owns the pgx pool and every per-entity query. Each query is
// timed and counted on the metrics collector so database access cost is
// observable per entity and operation.
type Repository struct {
	pool     *pgxpool.Pool
	recorder Recorder
	refCodes *sqids.Sqids
}

func New(ctx context.Context, cfg *config.DatabaseConfig, recorder Recorder) (*Repository, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.MaxConns,
	)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	refCodes, err := sqids.New(sqids.Options{MinLength: 8})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create reference encoder: %w", err)
	}

	return &Repository{
		pool:     pool,
		recorder: recorder,
		refCodes: refCodes,
	}, nil
}

func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

func (r *Repository) Close() {
	r.pool.Close()
}

// LeakConn acquires a pool connection and hands back its release function.
// The resource-leak bottleneck scenario retains the release forever, so
// each invocation permanently removes one connection from the pool.
func (r *Repository) LeakConn(ctx context.Context) (func(), error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	return conn.Release, nil
}

// Migrate creates the schema if it does not exist. The shape is
// intentionally plain; schema design is not what this harness studies.
func (r *Repository) Migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS products (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	price_cents BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_products_name ON products (name);
CREATE TABLE IF NOT EXISTS orders (
	id BIGSERIAL PRIMARY KEY,
	reference TEXT NOT NULL DEFAULT '',
	user_id BIGINT NOT NULL REFERENCES users (id),
	status TEXT NOT NULL DEFAULT 'created',
	total_cents BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS order_items (
	id BIGSERIAL PRIMARY KEY,
	order_id BIGINT NOT NULL REFERENCES orders (id),
	product_id BIGINT NOT NULL REFERENCES products (id),
	quantity INT NOT NULL
);
`
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (r *Repository) observe(entity, op string, start time.Time) {
	r.recorder.RecordCounter(metrics.DBQueriesTotal, entity, op)
	r.recorder.ObserveDuration(metrics.DBQueryDuration, time.Since(start).Seconds(), entity, op)
}
