package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
)

func startSpan(ctx context.Context, table, operation, name string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("repo."+table).Start(ctx, table+"."+name)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", table),
	)
	return ctx, span
}

// wrapErr tags err with op and maps missing rows to domain.ErrNotFound.
func wrapErr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("op=%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("op=%s: %w", op, err)
}
