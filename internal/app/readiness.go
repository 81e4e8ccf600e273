package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	httpserver "github.com/fairyhunter13/ai-mock-interview/internal/adapter/httpserver"
)

// Pinger is the minimal interface for a dependency capable of Ping.
type Pinger interface{ Ping(ctx context.Context) error }

// RedisPinger is satisfied by *redis.Client.
type RedisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// BuildReadinessChecks returns the checks served by /readyz. The db check is
// always present; redis and media are probed only when configured.
func BuildReadinessChecks(pool Pinger, rdb RedisPinger, media Pinger) []httpserver.ReadinessCheck {
	checks := []httpserver.ReadinessCheck{{
		Name: "db",
		Check: func(ctx context.Context) error {
			if pool == nil {
				return fmt.Errorf("db not configured")
			}
			return pool.Ping(ctx)
		},
	}}
	if rdb != nil {
		checks = append(checks, httpserver.ReadinessCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	if media != nil {
		checks = append(checks, httpserver.ReadinessCheck{Name: "media", Check: media.Ping})
	}
	return checks
}
