package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

//go:embed schema.sql
var schemaSQL string

// SchemaStatements returns the embedded schema split into single statements.
func SchemaStatements() []string {
	parts := strings.Split(schemaSQL, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Migrate applies the idempotent schema inside one transaction.
func Migrate(ctx context.Context, pool PgxPool) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("op=postgres.Migrate: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, stmt := range SchemaStatements() {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("op=postgres.Migrate: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=postgres.Migrate: commit: %w", err)
	}
	return nil
}
