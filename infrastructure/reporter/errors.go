package reporter

import "errors"

// Reporter errors.
var (
	// ErrInvalidEndpoint indicates the webhook endpoint has no URL.
	ErrInvalidEndpoint = errors.New("invalid webhook endpoint")

	// ErrEndpointUnavailable indicates the endpoint could not be reached.
	ErrEndpointUnavailable = errors.New("webhook endpoint unavailable")

	// ErrEndpointRejected indicates the endpoint answered with a client error.
	ErrEndpointRejected = errors.New("webhook endpoint rejected the request")
)
