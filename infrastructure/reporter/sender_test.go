package reporter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/taskloop/domain/session"
)

func testEvent() Event {
	return Event{
		Type:  EventProgress,
		At:    time.Unix(1700000000, 0).UTC(),
		Stats: session.Stats{SessionID: "s-1", CurrentTask: "deliver", Laps: 3, Rate: 1800},
	}
}

func fastSender(retries int) *Sender {
	return NewSender(SenderConfig{
		Timeout:    5 * time.Second,
		MaxRetries: retries,
		RetryDelay: time.Millisecond,
		UserAgent:  "test-agent/1.0",
	})
}

func TestSender_Send(t *testing.T) {
	var (
		body    []byte
		headers http.Header
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	endpoint := Endpoint{URL: server.URL, Headers: map[string]string{"X-Custom": "yes"}}
	if err := fastSender(1).Send(context.Background(), endpoint, testEvent()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if headers.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", headers.Get("Content-Type"))
	}
	if headers.Get("User-Agent") != "test-agent/1.0" {
		t.Errorf("User-Agent = %s, want test-agent/1.0", headers.Get("User-Agent"))
	}
	if headers.Get("X-Custom") != "yes" {
		t.Errorf("X-Custom = %s, want yes", headers.Get("X-Custom"))
	}
	if headers.Get(HeaderSignature) != "" {
		t.Error("unsigned endpoint received a signature")
	}

	var got Event
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if got.Type != EventProgress || got.Stats.SessionID != "s-1" || got.Stats.Laps != 3 {
		t.Errorf("event = %+v", got)
	}
}

func TestSender_SendWithSignature(t *testing.T) {
	var (
		body    []byte
		headers http.Header
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	endpoint := Endpoint{URL: server.URL, Secret: "hush"}
	if err := fastSender(1).Send(context.Background(), endpoint, testEvent()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !NewSigner().VerifySignature(body, "hush", headers.Get(HeaderSignature)) {
		t.Error("signature header does not verify")
	}
	if headers.Get(HeaderTimestamp) == "" || headers.Get(HeaderSignatureV2) == "" {
		t.Error("timestamped signature headers missing")
	}
}

func TestSender_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The body must be readable on every attempt.
		if b, _ := io.ReadAll(r.Body); len(b) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := fastSender(3).Send(context.Background(), Endpoint{URL: server.URL}, testEvent()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestSender_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	err := fastSender(3).Send(context.Background(), Endpoint{URL: server.URL}, testEvent())
	if !errors.Is(err, ErrEndpointRejected) {
		t.Fatalf("Send() error = %v, want ErrEndpointRejected", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestSender_InvalidEndpoint(t *testing.T) {
	t.Parallel()

	if err := fastSender(1).Send(context.Background(), Endpoint{}, testEvent()); !errors.Is(err, ErrInvalidEndpoint) {
		t.Errorf("Send() error = %v, want ErrInvalidEndpoint", err)
	}
}

func TestSender_BreakerState(t *testing.T) {
	t.Parallel()

	if got := fastSender(1).BreakerState(); got != "closed" {
		t.Errorf("BreakerState() = %s, want closed", got)
	}
}
