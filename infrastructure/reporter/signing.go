package reporter

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Signature headers.
const (
	HeaderSignature   = "X-Taskloop-Signature"
	HeaderTimestamp   = "X-Taskloop-Timestamp"
	HeaderSignatureV2 = "X-Taskloop-Signature-V2"
)

// Signer signs webhook payloads with HMAC-SHA256.
type Signer struct{}

// NewSigner creates a new payload signer.
func NewSigner() *Signer {
	return &Signer{}
}

// SignPayload signs the given payload with the secret and returns the signature.
// The signature format is: "sha256=<hex-encoded-signature>"
func (s *Signer) SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature verifies that the signature matches the payload.
func (s *Signer) VerifySignature(payload []byte, secret, signature string) bool {
	expected := s.SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignedHeaders returns the headers for a signed request sent at timestamp.
func (s *Signer) SignedHeaders(payload []byte, secret string, timestamp time.Time) map[string]string {
	ts := timestamp.Unix()
	return map[string]string{
		HeaderSignature:   s.SignPayload(payload, secret),
		HeaderTimestamp:   strconv.FormatInt(ts, 10),
		HeaderSignatureV2: s.SignPayload(timestamped(ts, payload), secret),
	}
}

// VerifyTimestampedSignature checks a V2 signature and that timestamp lies
// within tolerance of now.
func (s *Signer) VerifyTimestampedSignature(payload []byte, secret, signature string, timestamp int64, now time.Time, tolerance time.Duration) bool {
	skew := now.Unix() - timestamp
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(tolerance.Seconds()) {
		return false
	}
	expected := s.SignPayload(timestamped(timestamp, payload), secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func timestamped(ts int64, payload []byte) []byte {
	return fmt.Appendf(nil, "%d.%s", ts, payload)
}
