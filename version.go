// Package taskloop provides the version information for taskloop.
package taskloop

// Version is the current version of taskloop.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
