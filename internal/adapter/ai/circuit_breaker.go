package ai

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-mock-interview/internal/adapter/observability"
	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
)

// ErrCircuitOpen is returned without calling the provider while the breaker is open.
var ErrCircuitOpen = errors.New("ai circuit breaker open")

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// CircuitClosed indicates the circuit is allowing requests to pass through.
	CircuitClosed CircuitState = iota
	// CircuitOpen indicates the circuit is blocking requests due to failures.
	CircuitOpen
	// CircuitHalfOpen indicates one probe request is in flight.
	CircuitHalfOpen
)

// String returns a string representation of the circuit state
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker opens after threshold consecutive failures and admits a
// single probe once cooldown has elapsed.
type CircuitBreaker struct {
	mu               sync.Mutex
	name             string
	failureThreshold int
	cooldown         time.Duration
	state            CircuitState
	failureCount     int
	openedAt         time.Time
	now              func() time.Time
}

// NewCircuitBreaker creates a breaker; non-positive arguments fall back to 3 failures / 30s.
func NewCircuitBreaker(name string, threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: threshold,
		cooldown:         cooldown,
		state:            CircuitClosed,
		now:              time.Now,
	}
}

// Allow reports whether a request may proceed, moving open -> half-open after the cooldown.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.openedAt) < cb.cooldown {
			return false
		}
		cb.setState(CircuitHalfOpen)
		return true
	default:
		// a probe is already in flight
		return false
	}
}

// RecordSuccess closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	if cb.state != CircuitClosed {
		slog.Info("circuit breaker closed after successful recovery", slog.String("name", cb.name))
		cb.setState(CircuitClosed)
	}
}

// RecordFailure counts a failure; a failed probe reopens immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	if cb.state == CircuitHalfOpen || cb.failureCount >= cb.failureThreshold {
		if cb.state != CircuitOpen {
			slog.Warn("circuit breaker opened",
				slog.String("name", cb.name),
				slog.Int("failure_count", cb.failureCount),
				slog.Int("threshold", cb.failureThreshold))
		}
		cb.openedAt = cb.now()
		cb.setState(CircuitOpen)
	}
}

// Release frees a half-open probe slot without judging the provider, so the
// next Allow may probe again.
func (cb *CircuitBreaker) Release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen {
		cb.setState(CircuitOpen)
	}
}

// GetState returns the current circuit state
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) setState(s CircuitState) {
	cb.state = s
	observability.RecordCircuitState(cb.name, int(s))
}

// BreakerClient guards a domain.AIClient with a CircuitBreaker.
type BreakerClient struct {
	next    domain.AIClient
	breaker *CircuitBreaker
}

// NewBreakerClient wraps next.
func NewBreakerClient(next domain.AIClient, breaker *CircuitBreaker) *BreakerClient {
	return &BreakerClient{next: next, breaker: breaker}
}

// ChatText implements domain.AIClient.
func (c *BreakerClient) ChatText(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return c.call(func() (string, error) { return c.next.ChatText(ctx, systemPrompt, userPrompt, maxTokens) })
}

// ChatJSON implements domain.AIClient.
func (c *BreakerClient) ChatJSON(ctx domain.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return c.call(func() (string, error) { return c.next.ChatJSON(ctx, systemPrompt, userPrompt, maxTokens) })
}

func (c *BreakerClient) call(fn func() (string, error)) (string, error) {
	if !c.breaker.Allow() {
		return "", ErrCircuitOpen
	}
	out, err := fn()
	var badJSON *JSONValidationError
	switch {
	case err == nil:
		c.breaker.RecordSuccess()
		return out, nil
	case errors.As(err, &badJSON):
		// the provider answered; the content was unusable
		c.breaker.RecordSuccess()
	case errors.Is(err, context.Canceled):
		c.breaker.Release()
	default:
		c.breaker.RecordFailure()
	}
	return "", err
}
