package warden

import "errors"

var (
	// ErrSensitiveConfig is returned by [Builder.Build] when a custom
	// sensitive-fields document is malformed. This is the only failure class
	// that escapes the pipeline; everything downstream of entry construction
	// is fire-and-forget.
	ErrSensitiveConfig = errors.New("sensitive fields config invalid")
	// ErrLoggerClosed is returned by [Logger.Flush] after Close. Log calls
	// themselves never return it; entries submitted after Close are dropped.
	ErrLoggerClosed = errors.New("logger closed")
)
