// Package config provides domain models for session configuration files.
package config

import (
	"time"

	"github.com/felixgeelhaar/taskloop/domain/session"
	"github.com/felixgeelhaar/taskloop/domain/world"
)

// SessionConfig represents a complete session configuration file.
type SessionConfig struct {
	// Name is a human-readable name for this configuration.
	Name string `json:"name" yaml:"name"`
	// Version is the configuration schema version.
	Version string `json:"version" yaml:"version"`
	// Description describes the session.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Items selects the item ids the session works with.
	Items ItemsConfig `json:"items" yaml:"items"`
	// Loop contains the per-lap behavior settings.
	Loop LoopConfig `json:"loop,omitempty" yaml:"loop,omitempty"`
	// Locations contains every place the session visits.
	Locations LocationsConfig `json:"locations" yaml:"locations"`
	// Delivery contains the delivery puzzle settings.
	Delivery DeliveryConfig `json:"delivery,omitempty" yaml:"delivery,omitempty"`
	// Timing bounds the waits handlers perform.
	Timing TimingConfig `json:"timing,omitempty" yaml:"timing,omitempty"`
	// Watchdog configures the stall windows.
	Watchdog WatchdogConfig `json:"watchdog,omitempty" yaml:"watchdog,omitempty"`
	// Resilience configures the action executor decorators.
	Resilience ResilienceConfig `json:"resilience,omitempty" yaml:"resilience,omitempty"`
	// Reporter configures progress reporting.
	Reporter ReporterConfig `json:"reporter,omitempty" yaml:"reporter,omitempty"`
	// Telemetry configures tracing export.
	Telemetry TelemetryConfig `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
	// Storage configures the session history store.
	Storage StorageConfig `json:"storage,omitempty" yaml:"storage,omitempty"`
	// Archive configures where finished session summaries are exported.
	Archive ArchiveConfig `json:"archive,omitempty" yaml:"archive,omitempty"`
}

// ItemsConfig selects item ids.
type ItemsConfig struct {
	Tool      world.ItemID `json:"tool" yaml:"tool"`
	Material  world.ItemID `json:"material" yaml:"material"`
	Output    world.ItemID `json:"output" yaml:"output"`
	Container world.ItemID `json:"container,omitempty" yaml:"container,omitempty"`
}

// LoopConfig contains per-lap behavior settings.
type LoopConfig struct {
	// ExtendedCarry enables the container refill step.
	ExtendedCarry bool `json:"extended_carry,omitempty" yaml:"extended_carry,omitempty"`
	// ClaimOfferings enables the bonus claim after deliveries.
	ClaimOfferings bool `json:"claim_offerings,omitempty" yaml:"claim_offerings,omitempty"`
	// OutputTarget is the output count required before leaving the bank.
	OutputTarget int `json:"output_target,omitempty" yaml:"output_target,omitempty"`
	// MaterialReserve is the material carried onward from the bank.
	MaterialReserve int `json:"material_reserve,omitempty" yaml:"material_reserve,omitempty"`
	// InventoryCapacity is the number of inventory slots.
	InventoryCapacity int `json:"inventory_capacity,omitempty" yaml:"inventory_capacity,omitempty"`
	// ContainerBatch caps the outputs fletched after emptying the container.
	ContainerBatch int `json:"container_batch,omitempty" yaml:"container_batch,omitempty"`
	// ContainerGainMargin is the gain read as an already empty container.
	ContainerGainMargin int `json:"container_gain_margin,omitempty" yaml:"container_gain_margin,omitempty"`
	// MaxRetries bounds consecutive failed attempts inside a handler.
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	// GoalExperience stops the session at setup when reached.
	GoalExperience int64 `json:"goal_experience,omitempty" yaml:"goal_experience,omitempty"`
}

// LocationsConfig lists the places the session visits.
type LocationsConfig struct {
	Bank         session.Site   `json:"bank" yaml:"bank"`
	Sites        []session.Site `json:"sites" yaml:"sites"`
	StartArea    world.Area     `json:"start_area,omitempty" yaml:"start_area,omitempty"`
	ProblemAreas []world.Area   `json:"problem_areas,omitempty" yaml:"problem_areas,omitempty"`
	SafeWaypoint world.Position `json:"safe_waypoint,omitempty" yaml:"safe_waypoint,omitempty"`
}

// DeliveryConfig contains the delivery puzzle settings.
type DeliveryConfig struct {
	// CompletionPhrase marks a finished delivery in the status panel.
	CompletionPhrase string `json:"completion_phrase,omitempty" yaml:"completion_phrase,omitempty"`
	// MessageWindow is the number of status messages remembered.
	MessageWindow int `json:"message_window,omitempty" yaml:"message_window,omitempty"`
	// OfferingMin and OfferingMax bound the randomized trip threshold.
	OfferingMin int `json:"offering_min,omitempty" yaml:"offering_min,omitempty"`
	OfferingMax int `json:"offering_max,omitempty" yaml:"offering_max,omitempty"`
}

// TimingConfig bounds the waits handlers perform. Zero values keep defaults.
type TimingConfig struct {
	ActionTimeout     Duration `json:"action_timeout,omitempty" yaml:"action_timeout,omitempty"`
	FletchTimeout     Duration `json:"fletch_timeout,omitempty" yaml:"fletch_timeout,omitempty"`
	ProduceTimeout    Duration `json:"produce_timeout,omitempty" yaml:"produce_timeout,omitempty"`
	TravelTimeout     Duration `json:"travel_timeout,omitempty" yaml:"travel_timeout,omitempty"`
	CompletionTimeout Duration `json:"completion_timeout,omitempty" yaml:"completion_timeout,omitempty"`
	PaceMin           Duration `json:"pace_min,omitempty" yaml:"pace_min,omitempty"`
	PaceMax           Duration `json:"pace_max,omitempty" yaml:"pace_max,omitempty"`
	// ActiveDelay and IdleDelay are the delays Tick returns.
	ActiveDelay Duration `json:"active_delay,omitempty" yaml:"active_delay,omitempty"`
	IdleDelay   Duration `json:"idle_delay,omitempty" yaml:"idle_delay,omitempty"`
}

// WatchdogConfig configures the stall windows.
type WatchdogConfig struct {
	PositionWindow Duration `json:"position_window,omitempty" yaml:"position_window,omitempty"`
	ProgressWindow Duration `json:"progress_window,omitempty" yaml:"progress_window,omitempty"`
	TaskWindow     Duration `json:"task_window,omitempty" yaml:"task_window,omitempty"`
}

// ResilienceConfig contains resilience settings.
type ResilienceConfig struct {
	// Retry configures retry of idempotent interactions.
	Retry RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
	// CircuitBreaker configures circuit breaker behavior.
	CircuitBreaker CircuitBreakerConfig `json:"circuit_breaker,omitempty" yaml:"circuit_breaker,omitempty"`
	// RateLimit configures the interaction rate limit.
	RateLimit RateLimitConfig `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// Enabled enables retry.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// MaxAttempts is the maximum retry attempts.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// InitialDelay is the first retry delay.
	InitialDelay Duration `json:"initial_delay,omitempty" yaml:"initial_delay,omitempty"`
}

// CircuitBreakerConfig configures circuit breaker behavior.
type CircuitBreakerConfig struct {
	// Enabled enables circuit breaker.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Threshold is failures before opening.
	Threshold int `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	// Timeout is how long the circuit stays open.
	Timeout Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// RateLimitConfig configures rate limiting.
type RateLimitConfig struct {
	// Enabled enables rate limiting.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Rate is the taps per second.
	Rate int `json:"rate,omitempty" yaml:"rate,omitempty"`
	// Burst is the maximum burst size.
	Burst int `json:"burst,omitempty" yaml:"burst,omitempty"`
}

// ReporterConfig configures progress reporting.
type ReporterConfig struct {
	// Enabled enables the reporter goroutine.
	Enabled bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Interval between progress publications.
	Interval Duration `json:"interval,omitempty" yaml:"interval,omitempty"`
	// Endpoint is the optional webhook.
	Endpoint EndpointConfig `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// EndpointConfig configures a webhook endpoint.
type EndpointConfig struct {
	// URL is the webhook URL.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
	// Secret is the HMAC signing secret.
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty"`
	// Headers are additional HTTP headers.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// TelemetryConfig configures trace export.
type TelemetryConfig struct {
	// Exporter is otlp, stdout or noop.
	Exporter string `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	// Endpoint is the OTLP collector address.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// Insecure disables TLS for OTLP.
	Insecure bool `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	// SampleRate is the trace sampling ratio.
	SampleRate float64 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
}

// StorageConfig selects the session history store.
type StorageConfig struct {
	// Driver is memory, sqlite, redis, postgres, badger, mongodb or dynamodb.
	Driver string `json:"driver,omitempty" yaml:"driver,omitempty"`
	// DSN is the file, directory, address, URL or table the driver opens.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	// Limit is the number of summaries listed by default.
	Limit int `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// ArchiveConfig configures summary export to a blob store.
type ArchiveConfig struct {
	// URL selects the bucket: file:///dir, s3://bucket/prefix,
	// gs://bucket/prefix or azblob://container/prefix.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
	// Region is the S3 region.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
	// Endpoint overrides the S3 endpoint for compatible stores.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	// Account is the Azure storage account name.
	Account string `json:"account,omitempty" yaml:"account,omitempty"`
}

// Toggles returns the options that may change while a session runs.
func (c *SessionConfig) Toggles() session.Toggles {
	return session.Toggles{
		ExtendedCarry:  c.Loop.ExtendedCarry,
		ClaimOfferings: c.Loop.ClaimOfferings,
	}
}

// Duration is a time.Duration that supports JSON/YAML string representation.
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	// Handle null
	if string(b) == "null" {
		return nil
	}

	// Remove quotes
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Or returns d, or fallback when d is zero.
func (d Duration) Or(fallback time.Duration) time.Duration {
	if d == 0 {
		return fallback
	}
	return time.Duration(d)
}
