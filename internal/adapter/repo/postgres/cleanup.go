package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CleanupService handles data retention for finished interviews.
type CleanupService struct {
	Pool          PgxPool
	RetentionDays int
	Now           func() time.Time
}

// NewCleanupService creates a new cleanup service
func NewCleanupService(pool PgxPool, retentionDays int) *CleanupService {
	if retentionDays <= 0 {
		retentionDays = 90 // default 90 days
	}
	return &CleanupService{Pool: pool, RetentionDays: retentionDays, Now: time.Now}
}

// CleanupOldData removes interviews older than the retention period.
// Questions, follow-ups and answers are removed by cascade.
func (s *CleanupService) CleanupOldData(ctx context.Context) (int64, error) {
	ctx, span := startSpan(ctx, "interviews", "DELETE", "Cleanup")
	defer span.End()

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	cutoff := now().UTC().AddDate(0, 0, -s.RetentionDays)
	tag, err := s.Pool.Exec(ctx, `DELETE FROM interviews WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("op=cleanup.run: %w", err)
	}
	slog.Info("data cleanup completed",
		slog.Int64("deleted_interviews", tag.RowsAffected()),
		slog.Time("cutoff", cutoff),
	)
	return tag.RowsAffected(), nil
}

// RunPeriodic starts a periodic cleanup job
func (s *CleanupService) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour // daily by default
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := s.CleanupOldData(ctx); err != nil {
		slog.Error("initial cleanup failed", slog.Any("error", err))
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("cleanup service stopping")
			return
		case <-ticker.C:
			if _, err := s.CleanupOldData(ctx); err != nil {
				slog.Error("periodic cleanup failed", slog.Any("error", err))
			}
		}
	}
}
