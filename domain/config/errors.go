package config

import "errors"

// Errors returned while loading, validating and watching session files.
var (
	ErrConfigNotFound    = errors.New("session file not found")
	ErrInvalidFormat     = errors.New("malformed session file")
	ErrUnsupportedFormat = errors.New("unsupported session file extension")
	ErrValidationFailed  = errors.New("session configuration is invalid")
	ErrMissingEnvVar     = errors.New("environment variable not set")
	ErrBuildFailed       = errors.New("cannot build session from configuration")
	ErrWatchFailed       = errors.New("cannot watch session file")
)
