package reporter

import (
	"strconv"
	"testing"
	"time"
)

func TestSigner_SignAndVerify(t *testing.T) {
	t.Parallel()

	s := NewSigner()
	payload := []byte(`{"type":"session.progress"}`)

	sig := s.SignPayload(payload, "secret")
	if len(sig) != len("sha256=")+64 {
		t.Errorf("SignPayload() = %s, want sha256= plus 64 hex chars", sig)
	}
	if !s.VerifySignature(payload, "secret", sig) {
		t.Error("VerifySignature() = false for a valid signature")
	}
	if s.VerifySignature(payload, "other", sig) {
		t.Error("VerifySignature() = true for the wrong secret")
	}
	if s.VerifySignature([]byte(`{}`), "secret", sig) {
		t.Error("VerifySignature() = true for a different payload")
	}
}

func TestSigner_Timestamped(t *testing.T) {
	t.Parallel()

	s := NewSigner()
	payload := []byte(`{"laps":2}`)
	now := time.Unix(1700000000, 0)

	headers := s.SignedHeaders(payload, "secret", now)
	ts, err := strconv.ParseInt(headers[HeaderTimestamp], 10, 64)
	if err != nil {
		t.Fatalf("timestamp header %q: %v", headers[HeaderTimestamp], err)
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"fresh", now.Add(10 * time.Second), true},
		{"slightly early", now.Add(-10 * time.Second), true},
		{"stale", now.Add(10 * time.Minute), false},
	}
	for _, tt := range tests {
		got := s.VerifyTimestampedSignature(payload, "secret", headers[HeaderSignatureV2], ts, tt.at, 5*time.Minute)
		if got != tt.want {
			t.Errorf("%s: VerifyTimestampedSignature() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
