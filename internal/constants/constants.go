// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Enrollment constants
const (
	// DefaultEnrollWorkers is the default number of parallel registrations in bulk enrollment
	DefaultEnrollWorkers = 4

	// SidecarExt is the extension of the optional attributes file next to an enrollment image
	SidecarExt = ".json"
)

// Server lifecycle constants
const (
	// ShutdownTimeout bounds graceful shutdown of the HTTP server
	ShutdownTimeout = 30 * time.Second

	// StartupTimeout bounds collaborator construction and connectivity checks
	StartupTimeout = 30 * time.Second
)
