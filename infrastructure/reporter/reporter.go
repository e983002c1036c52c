// Package reporter publishes session progress out of band. It runs as the
// single background goroutine of a session and only reads stats snapshots
// handed over on a channel.
package reporter

import (
	"context"
	"strconv"
	"time"

	"github.com/felixgeelhaar/taskloop/domain/session"
	"github.com/felixgeelhaar/taskloop/infrastructure/logging"
	"github.com/felixgeelhaar/taskloop/infrastructure/telemetry"
)

// DefaultInterval is how often progress is published.
const DefaultInterval = 30 * time.Second

// Config configures the reporter.
type Config struct {
	// Endpoint receives signed progress events. An empty URL disables the
	// webhook; progress is still logged and recorded.
	Endpoint Endpoint

	// Interval between progress publications.
	Interval time.Duration

	// Sender delivers webhook events. Nil uses a default sender.
	Sender *Sender

	// Metrics records the progress rate.
	Metrics telemetry.Metrics
}

// Reporter publishes the latest stats snapshot at a fixed interval.
type Reporter struct {
	endpoint Endpoint
	interval time.Duration
	sender   *Sender
	metrics  telemetry.Metrics
}

// New creates a reporter.
func New(config Config) *Reporter {
	r := &Reporter{
		endpoint: config.Endpoint,
		interval: config.Interval,
		sender:   config.Sender,
		metrics:  config.Metrics,
	}
	if r.interval <= 0 {
		r.interval = DefaultInterval
	}
	if r.sender == nil {
		r.sender = NewSender(DefaultSenderConfig())
	}
	if r.metrics == nil {
		r.metrics = telemetry.NoopMetricsProvider{}
	}
	return r
}

// Start runs the reporter in a goroutine. The returned channel is closed
// once in is closed and the final event has been published, or ctx ends.
func (r *Reporter) Start(ctx context.Context, in <-chan session.Stats) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx, in)
	}()
	return done
}

// Run consumes snapshots until in is closed or ctx is done. Only the latest
// snapshot of each interval is published.
func (r *Reporter) Run(ctx context.Context, in <-chan session.Stats) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var (
		latest session.Stats
		seen   bool
		dirty  bool
	)
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-in:
			if !ok {
				if seen {
					r.publish(ctx, EventFinal, latest)
				}
				return
			}
			latest, seen, dirty = st, true, true
			r.metrics.RecordProgress(ctx, st.SessionID, st.Rate)
		case <-ticker.C:
			if dirty {
				r.publish(ctx, EventProgress, latest)
				dirty = false
			}
		}
	}
}

func (r *Reporter) publish(ctx context.Context, kind EventType, st session.Stats) {
	logging.Info().
		Add(logging.SessionID(st.SessionID)).
		Add(logging.Task(st.CurrentTask)).
		Add(logging.Lap(st.Laps)).
		Add(logging.Int("deliveries", st.Deliveries)).
		Add(logging.Str("rate", formatRate(st.Rate))).
		Add(logging.Bool("stalled", st.Stalled)).
		Msg(string(kind))

	if r.endpoint.URL == "" {
		return
	}
	if err := r.sender.Send(ctx, r.endpoint, Event{Type: kind, At: st.At, Stats: st}); err != nil {
		logging.Warn().
			Add(logging.Component("reporter")).
			Add(logging.ErrorField(err)).
			Add(logging.Str("breaker", r.sender.BreakerState())).
			Msg("progress webhook failed")
	}
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', 1, 64) + "/h"
}
