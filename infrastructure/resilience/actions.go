// Package resilience wraps the world's action executor with fortify's
// bulkhead, circuit breaker, retry and rate limiting patterns.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/taskloop/domain/world"
	"github.com/felixgeelhaar/taskloop/infrastructure/logging"
	"github.com/felixgeelhaar/taskloop/infrastructure/telemetry"
)

// ErrInteractionFailed is reported to the breaker and retrier when the
// wrapped executor declines an interaction.
var ErrInteractionFailed = errors.New("interaction not issued")

const (
	breakerName = "actions"
	limiterKey  = "interact"
	actionMove  = "move"
)

// Actions is a world.ActionExecutor with resilience patterns applied.
type Actions struct {
	next     world.ActionExecutor
	bulkhead bulkhead.Bulkhead[bool]
	breaker  circuitbreaker.CircuitBreaker[bool]
	retry    retry.Retry[bool]
	limiter  ratelimit.RateLimiter
	metrics  telemetry.Metrics

	mu   sync.Mutex
	open bool
}

// Config configures the resilient executor.
type Config struct {
	// MaxConcurrent limits concurrent world calls. The orchestrator is
	// single-threaded, so 1 turns stray concurrent callers into errors.
	MaxConcurrent int

	// CircuitBreakerThreshold is the number of consecutive failed
	// interactions before the breaker opens.
	CircuitBreakerThreshold int

	// CircuitBreakerTimeout is how long the circuit stays open.
	CircuitBreakerTimeout time.Duration

	// RetryMaxAttempts bounds in-call attempts for idempotent interactions.
	RetryMaxAttempts int

	// RetryInitialDelay is the initial delay between retries.
	RetryInitialDelay time.Duration

	// RetryBackoffMultiplier is the exponential backoff multiplier.
	RetryBackoffMultiplier float64

	// TapRate is the number of interactions allowed per second.
	TapRate int

	// TapBurst is the bucket capacity of the tap limiter.
	TapBurst int

	// Metrics records interaction outcomes and breaker changes.
	Metrics telemetry.Metrics
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:           1,
		CircuitBreakerThreshold: 8,
		CircuitBreakerTimeout:   10 * time.Second,
		RetryMaxAttempts:        2,
		RetryInitialDelay:       50 * time.Millisecond,
		RetryBackoffMultiplier:  2.0,
		TapRate:                 10,
		TapBurst:                10,
	}
}

// NewActions wraps next.
func NewActions(next world.ActionExecutor, config Config) *Actions {
	// Ensure non-negative values for uint32 conversion
	maxConcurrent := config.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	threshold := config.CircuitBreakerThreshold
	if threshold <= 0 {
		threshold = 8
	}
	attempts := max(1, config.RetryMaxAttempts)
	rate := config.TapRate
	if rate <= 0 {
		rate = 10
	}
	burst := config.TapBurst
	if burst <= 0 {
		burst = rate
	}
	m := config.Metrics
	if m == nil {
		m = telemetry.NoopMetricsProvider{}
	}

	return &Actions{
		next: next,
		bulkhead: bulkhead.New[bool](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
		}),
		breaker: circuitbreaker.New[bool](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    config.CircuitBreakerTimeout,
			Timeout:     config.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- bounds checked above
			},
		}),
		retry: retry.New[bool](retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  config.RetryInitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    config.RetryBackoffMultiplier,
		}),
		limiter: ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    burst,
			FailOpen: true,
		}),
		metrics: m,
	}
}

// Idempotent reports whether repeating action cannot change the outcome.
// Only these are retried within one call.
func Idempotent(action world.Action) bool {
	switch action {
	case world.ActionOpen, world.ActionSelect:
		return true
	default:
		return false
	}
}

// Interact implements world.ActionExecutor.
// Composition order: Rate limit → Bulkhead → Circuit Breaker → Retry (for idempotent)
func (a *Actions) Interact(ctx context.Context, target world.Target, action world.Action) bool {
	if err := a.limiter.Wait(ctx, limiterKey); err != nil {
		return false
	}

	ok, err := a.bulkhead.Execute(ctx, func(ctx context.Context) (bool, error) {
		return a.breaker.Execute(ctx, func(ctx context.Context) (bool, error) {
			if Idempotent(action) {
				return a.retry.Do(ctx, func(ctx context.Context) (bool, error) {
					return a.interact(ctx, target, action)
				})
			}
			return a.interact(ctx, target, action)
		})
	})
	a.observeBreaker(ctx)

	success := err == nil && ok
	a.metrics.RecordAction(ctx, string(action), success)
	if err != nil && !errors.Is(err, ErrInteractionFailed) {
		logging.Warn().
			Add(logging.Str("action", string(action))).
			Add(logging.Str("target", target.String())).
			Add(logging.ErrorField(err)).
			Msg("interaction blocked")
	}
	return success
}

func (a *Actions) interact(ctx context.Context, target world.Target, action world.Action) (bool, error) {
	if !a.next.Interact(ctx, target, action) {
		return false, ErrInteractionFailed
	}
	return true, nil
}

// MoveTo implements world.ActionExecutor. Moves are not retried; the
// caller's timeout already bounds them.
func (a *Actions) MoveTo(ctx context.Context, dest world.Position, until world.Predicate, timeout time.Duration) bool {
	ok, err := a.bulkhead.Execute(ctx, func(ctx context.Context) (bool, error) {
		return a.next.MoveTo(ctx, dest, until, timeout), nil
	})
	success := err == nil && ok
	a.metrics.RecordAction(ctx, actionMove, success)
	return success
}

// WaitUntil implements world.ActionExecutor.
func (a *Actions) WaitUntil(ctx context.Context, cond world.Predicate, timeout time.Duration) bool {
	ok, err := a.bulkhead.Execute(ctx, func(ctx context.Context) (bool, error) {
		return a.next.WaitUntil(ctx, cond, timeout), nil
	})
	return err == nil && ok
}

// CircuitBreakerState returns the current state of the circuit breaker.
func (a *Actions) CircuitBreakerState() circuitbreaker.State {
	return a.breaker.State()
}

func (a *Actions) observeBreaker(ctx context.Context) {
	open := a.breaker.State().String() == "open"

	a.mu.Lock()
	changed := open != a.open
	a.open = open
	a.mu.Unlock()
	if !changed {
		return
	}

	a.metrics.RecordCircuitBreakerStateChange(ctx, breakerName, open)
	logging.Warn().
		Add(logging.Component(breakerName)).
		Add(logging.Bool("open", open)).
		Msg("circuit breaker state changed")
}

var _ world.ActionExecutor = (*Actions)(nil)
