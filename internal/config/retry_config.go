package config

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig holds the startup connection retry policy
type RetryConfig struct {
	// InitialDelay is the initial delay before first retry
	InitialDelay time.Duration
	// MaxDelay is the maximum delay between retries
	MaxDelay time.Duration
	// MaxElapsed stops retrying once exceeded
	MaxElapsed time.Duration
	// Multiplier is the exponential backoff multiplier
	Multiplier float64
}

// GetDBRetryConfig returns the database connection retry configuration
func (c Config) GetDBRetryConfig() RetryConfig {
	if c.IsTest() {
		return RetryConfig{InitialDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond, MaxElapsed: 500 * time.Millisecond, Multiplier: 2.0}
	}
	return RetryConfig{
		InitialDelay: c.DBConnectInitial,
		MaxDelay:     c.DBConnectMaxDelay,
		MaxElapsed:   c.DBConnectMaxElapsed,
		Multiplier:   c.DBConnectMultiplier,
	}
}

// NewBackOff builds an exponential backoff from the retry policy.
func (r RetryConfig) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.InitialDelay
	eb.MaxInterval = r.MaxDelay
	eb.MaxElapsedTime = r.MaxElapsed
	if r.Multiplier > 0 {
		eb.Multiplier = r.Multiplier
	}
	return eb
}
