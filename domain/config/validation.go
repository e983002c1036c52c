package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/felixgeelhaar/taskloop/domain/world"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	// Path is the JSON path to the invalid field.
	Path string
	// Message describes the validation error.
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors:\n  - %s", len(e), strings.Join(msgs, "\n  - "))
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates session configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *SessionConfig) ValidationErrors {
	v.errors = nil

	v.validateRequired(config)
	v.validateItems(config)
	v.validateLoop(config)
	v.validateLocations(config)
	v.validateDelivery(config)
	v.validateTiming(config)
	v.validateWatchdog(config)
	v.validateResilience(config)
	v.validateReporter(config)
	v.validateTelemetry(config)
	v.validateStorage(config)
	v.validateArchive(config)

	return v.errors
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

func (v *Validator) nonNegative(path string, n int) {
	if n < 0 {
		v.addError(path, "must be non-negative")
	}
}

func (v *Validator) validateRequired(config *SessionConfig) {
	if config.Name == "" {
		v.addError("name", "name is required")
	}
	if config.Version == "" {
		v.addError("version", "version is required")
	}
}

func (v *Validator) validateItems(config *SessionConfig) {
	items := config.Items
	if items.Tool <= 0 {
		v.addError("items.tool", "tool item id is required")
	}
	if items.Material <= 0 {
		v.addError("items.material", "material item id is required")
	}
	if items.Output <= 0 {
		v.addError("items.output", "output item id is required")
	}
	if config.Loop.ExtendedCarry && items.Container <= 0 {
		v.addError("items.container", "container item id is required when extended_carry is enabled")
	}
	if items.Material > 0 && items.Material == items.Output {
		v.addError("items.output", "output must differ from material")
	}
}

func (v *Validator) validateLoop(config *SessionConfig) {
	loop := config.Loop
	v.nonNegative("loop.output_target", loop.OutputTarget)
	v.nonNegative("loop.material_reserve", loop.MaterialReserve)
	v.nonNegative("loop.inventory_capacity", loop.InventoryCapacity)
	v.nonNegative("loop.container_batch", loop.ContainerBatch)
	v.nonNegative("loop.container_gain_margin", loop.ContainerGainMargin)
	v.nonNegative("loop.max_retries", loop.MaxRetries)
	if loop.GoalExperience < 0 {
		v.addError("loop.goal_experience", "must be non-negative")
	}

	if loop.ContainerBatch > 0 && loop.OutputTarget > 0 && loop.ContainerBatch >= loop.OutputTarget {
		v.addError("loop.container_batch", "container_batch must be less than output_target")
	}
	if loop.InventoryCapacity > 0 && loop.MaterialReserve >= loop.InventoryCapacity {
		v.addError("loop.material_reserve", "material_reserve must leave room in the inventory")
	}
}

func (v *Validator) validateLocations(config *SessionConfig) {
	loc := config.Locations
	if loc.Bank.Object == "" {
		v.addError("locations.bank.object", "bank object is required")
	}
	if len(loc.Sites) == 0 {
		v.addError("locations.sites", "at least one delivery site is required")
	}
	for i, site := range loc.Sites {
		path := fmt.Sprintf("locations.sites[%d]", i)
		if site.Name == "" {
			v.addError(path+".name", "site name is required")
		}
		if site.Object == "" {
			v.addError(path+".object", "site object is required")
		}
		if !site.Area.IsZero() {
			v.validateArea(path+".area", site.Area)
		}
	}
	if !loc.StartArea.IsZero() {
		v.validateArea("locations.start_area", loc.StartArea)
	}
	for i, area := range loc.ProblemAreas {
		v.validateArea(fmt.Sprintf("locations.problem_areas[%d]", i), area)
	}
}

func (v *Validator) validateArea(path string, area world.Area) {
	if area.Min.Plane != area.Max.Plane {
		v.addError(path, "area corners must share a plane")
	}
	if area.Min.X > area.Max.X || area.Min.Y > area.Max.Y {
		v.addError(path, "area min must not exceed max")
	}
}

func (v *Validator) validateDelivery(config *SessionConfig) {
	d := config.Delivery
	v.nonNegative("delivery.message_window", d.MessageWindow)
	if d.OfferingMin < 0 {
		v.addError("delivery.offering_min", "must be non-negative")
	}
	if d.OfferingMax > 0 && d.OfferingMin > d.OfferingMax {
		v.addError("delivery.offering_min", "offering_min must not exceed offering_max")
	}
	if config.Loop.ClaimOfferings && d.OfferingMax < 0 {
		v.addError("delivery.offering_max", "must be non-negative")
	}
}

func (v *Validator) validateTiming(config *SessionConfig) {
	t := config.Timing
	durations := map[string]Duration{
		"timing.action_timeout":     t.ActionTimeout,
		"timing.fletch_timeout":     t.FletchTimeout,
		"timing.produce_timeout":    t.ProduceTimeout,
		"timing.travel_timeout":     t.TravelTimeout,
		"timing.completion_timeout": t.CompletionTimeout,
		"timing.pace_min":           t.PaceMin,
		"timing.pace_max":           t.PaceMax,
		"timing.active_delay":       t.ActiveDelay,
		"timing.idle_delay":         t.IdleDelay,
	}
	for path, d := range durations {
		if d < 0 {
			v.addError(path, "duration must be non-negative")
		}
	}
	if t.PaceMax > 0 && t.PaceMin > t.PaceMax {
		v.addError("timing.pace_min", "pace_min must not exceed pace_max")
	}
}

func (v *Validator) validateWatchdog(config *SessionConfig) {
	w := config.Watchdog
	if w.PositionWindow < 0 {
		v.addError("watchdog.position_window", "duration must be non-negative")
	}
	if w.ProgressWindow < 0 {
		v.addError("watchdog.progress_window", "duration must be non-negative")
	}
	if w.TaskWindow < 0 {
		v.addError("watchdog.task_window", "duration must be non-negative")
	}
}

func (v *Validator) validateResilience(config *SessionConfig) {
	// Validate retry
	if config.Resilience.Retry.Enabled {
		if config.Resilience.Retry.MaxAttempts <= 0 {
			v.addError("resilience.retry.max_attempts", "max_attempts must be positive when enabled")
		}
	}

	// Validate circuit breaker
	if config.Resilience.CircuitBreaker.Enabled {
		if config.Resilience.CircuitBreaker.Threshold <= 0 {
			v.addError("resilience.circuit_breaker.threshold", "threshold must be positive when enabled")
		}
	}

	// Validate rate limit
	if config.Resilience.RateLimit.Enabled {
		if config.Resilience.RateLimit.Rate <= 0 {
			v.addError("resilience.rate_limit.rate", "rate must be positive when enabled")
		}
		if config.Resilience.RateLimit.Burst <= 0 {
			v.addError("resilience.rate_limit.burst", "burst must be positive when enabled")
		}
	}
}

func (v *Validator) validateReporter(config *SessionConfig) {
	if !config.Reporter.Enabled {
		return
	}
	if config.Reporter.Interval < 0 {
		v.addError("reporter.interval", "duration must be non-negative")
	}
	raw := config.Reporter.Endpoint.URL
	if raw == "" {
		return
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.addError("reporter.endpoint.url", fmt.Sprintf("invalid webhook URL: %s", raw))
	}
}

func (v *Validator) validateTelemetry(config *SessionConfig) {
	t := config.Telemetry
	switch t.Exporter {
	case "", "noop", "stdout":
	case "otlp":
		if t.Endpoint == "" {
			v.addError("telemetry.endpoint", "endpoint is required for the otlp exporter")
		}
	default:
		v.addError("telemetry.exporter", fmt.Sprintf("unknown exporter: %s", t.Exporter))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		v.addError("telemetry.sample_rate", "sample_rate must be between 0 and 1")
	}
}

func (v *Validator) validateStorage(config *SessionConfig) {
	s := config.Storage
	switch s.Driver {
	case "", "memory", "dynamodb":
	case "sqlite", "redis", "postgres", "badger", "mongodb":
		if s.DSN == "" {
			v.addError("storage.dsn", fmt.Sprintf("dsn is required for the %s driver", s.Driver))
		}
	default:
		v.addError("storage.driver", fmt.Sprintf("unknown driver: %s", s.Driver))
	}
	v.nonNegative("storage.limit", s.Limit)
}

func (v *Validator) validateArchive(config *SessionConfig) {
	a := config.Archive
	if a.URL == "" {
		return
	}
	u, err := url.Parse(a.URL)
	if err != nil {
		v.addError("archive.url", fmt.Sprintf("invalid archive URL: %s", a.URL))
		return
	}
	switch u.Scheme {
	case "file", "mem":
	case "s3", "gs":
		if u.Host == "" {
			v.addError("archive.url", "bucket is required")
		}
	case "azblob":
		if u.Host == "" {
			v.addError("archive.url", "container is required")
		}
		if a.Account == "" {
			v.addError("archive.account", "account is required for azblob")
		}
	default:
		v.addError("archive.url", fmt.Sprintf("unsupported archive scheme: %s", u.Scheme))
	}
}
