package resilience

import (
	"time"

	"github.com/felixgeelhaar/taskloop/domain/world"
	"github.com/felixgeelhaar/taskloop/infrastructure/telemetry"
)

// Option configures the resilient executor.
type Option func(*Config)

// WithCircuitBreakerThreshold sets the failure threshold for circuit breaker.
func WithCircuitBreakerThreshold(n int) Option {
	return func(c *Config) {
		c.CircuitBreakerThreshold = n
	}
}

// WithCircuitBreakerTimeout sets the circuit breaker open duration.
func WithCircuitBreakerTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.CircuitBreakerTimeout = d
	}
}

// WithRetryAttempts sets the maximum retry attempts.
func WithRetryAttempts(n int) Option {
	return func(c *Config) {
		c.RetryMaxAttempts = n
	}
}

// WithRetryDelay sets the initial retry delay.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Config) {
		c.RetryInitialDelay = d
	}
}

// WithTapRate sets the interaction rate limit per second.
func WithTapRate(rate, burst int) Option {
	return func(c *Config) {
		c.TapRate = rate
		c.TapBurst = burst
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m telemetry.Metrics) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

// NewActionsWithOptions wraps next with the given options.
func NewActionsWithOptions(next world.ActionExecutor, opts ...Option) *Actions {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return NewActions(next, config)
}
