// Package postgres provides PostgreSQL repository adapters.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool is a minimal subset of pgxpool used by the repos for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// NewPool creates a pgx connection pool from the provided DSN and returns it.
// Queries are traced through otelpgx.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.ConnConfig.Tracer = otelpgx.NewTracer()
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return pool, nil
}

// Connect opens a pool and pings it until it answers or b gives up.
// An unparsable DSN fails immediately.
func Connect(ctx context.Context, dsn string, b backoff.BackOff) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	attempt := 0
	op := func() error {
		attempt++
		p, err := NewPool(ctx, dsn)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			slog.Warn("db ping failed, retrying", slog.Int("attempt", attempt), slog.Any("error", err))
			return err
		}
		pool = p
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("op=postgres.Connect: %w", err)
	}
	return pool, nil
}
