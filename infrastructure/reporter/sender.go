package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/taskloop/domain/session"
)

// Endpoint is a webhook destination.
type Endpoint struct {
	URL     string            `json:"url" yaml:"url"`
	Secret  string            `json:"secret,omitempty" yaml:"secret,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// EventType distinguishes periodic reports from the last one of a session.
type EventType string

// Event types.
const (
	EventProgress EventType = "session.progress"
	EventFinal    EventType = "session.final"
)

// Event is the webhook payload.
type Event struct {
	Type  EventType     `json:"type"`
	At    time.Time     `json:"at"`
	Stats session.Stats `json:"stats"`
}

// SenderConfig configures the HTTP sender.
type SenderConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration
	// MaxRetries is the maximum number of attempts per send.
	MaxRetries int
	// RetryDelay is the initial delay between retries.
	RetryDelay time.Duration
	// CircuitBreakerThreshold is failures before opening circuit.
	CircuitBreakerThreshold int
	// CircuitBreakerTimeout is how long circuit stays open.
	CircuitBreakerTimeout time.Duration
	// UserAgent is the User-Agent header value.
	UserAgent string
}

// DefaultSenderConfig returns sensible default configuration.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Timeout:                 10 * time.Second,
		MaxRetries:              3,
		RetryDelay:              500 * time.Millisecond,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   time.Minute,
		UserAgent:               "taskloop-reporter/1.0",
	}
}

// Sender delivers events to one webhook endpoint.
type Sender struct {
	config  SenderConfig
	client  *http.Client
	signer  *Signer
	breaker circuitbreaker.CircuitBreaker[*http.Response]
	retrier retry.Retry[*http.Response]
}

// NewSender creates a new HTTP sender.
func NewSender(config SenderConfig) *Sender {
	def := DefaultSenderConfig()
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = def.MaxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = def.RetryDelay
	}
	if config.CircuitBreakerThreshold <= 0 {
		config.CircuitBreakerThreshold = def.CircuitBreakerThreshold
	}
	if config.CircuitBreakerTimeout <= 0 {
		config.CircuitBreakerTimeout = def.CircuitBreakerTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = def.UserAgent
	}
	threshold := config.CircuitBreakerThreshold

	return &Sender{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		signer: NewSigner(),
		breaker: circuitbreaker.New[*http.Response](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    config.CircuitBreakerTimeout,
			Timeout:     config.CircuitBreakerTimeout,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(threshold) // #nosec G115 -- threshold is validated
			},
		}),
		retrier: retry.New[*http.Response](retry.Config{
			MaxAttempts:   config.MaxRetries,
			InitialDelay:  config.RetryDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    2.0,
			// Don't retry on client errors (4xx) - only server errors (5xx)
			NonRetryableErrors: []error{ErrEndpointRejected},
		}),
	}
}

// Send posts event to endpoint.
func (s *Sender) Send(ctx context.Context, endpoint Endpoint, event Event) error {
	if endpoint.URL == "" {
		return ErrInvalidEndpoint
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serialize event: %w", err)
	}

	_, err = s.breaker.Execute(ctx, func(ctx context.Context) (*http.Response, error) {
		return s.retrier.Do(ctx, func(ctx context.Context) (*http.Response, error) {
			return s.post(ctx, endpoint, payload)
		})
	})
	return err
}

// post builds a fresh request per attempt so the body can be re-read.
func (s *Sender) post(ctx context.Context, endpoint Endpoint, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEndpointRejected, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.config.UserAgent)
	for key, value := range endpoint.Headers {
		req.Header.Set(key, value)
	}
	if endpoint.Secret != "" {
		for key, value := range s.signer.SignedHeaders(payload, endpoint.Secret, time.Now()) {
			req.Header.Set(key, value)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEndpointUnavailable, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, body)
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrEndpointRejected, resp.StatusCode, body)
	}
}

// BreakerState returns the circuit breaker state.
func (s *Sender) BreakerState() string {
	return s.breaker.State().String()
}
