package core

import "errors"

// Configuration errors: recovered locally as a no-op plus a log entry.
var (
	ErrUnknownMarker  = errors.New("unknown marker")
	ErrMissingContent = errors.New("missing content reference")
	ErrMissingUI      = errors.New("missing UI reference")
)

// ErrPlatform wraps failures of native map/share/URL launches.
var ErrPlatform = errors.New("platform launch failed")

// ErrNoInstance marks an update or removal for a marker without content.
// It is expected around session resets and is never reported as an error.
var ErrNoInstance = errors.New("no content instance for marker")
