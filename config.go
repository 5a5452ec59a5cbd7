package warden

import (
	"errors"
	"net/url"
	"time"
)

// Config defines a public type used by warden APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	// EmitEvents selects local-observer mode: flushed batches are announced
	// on the in-process emitter instead of being sent to the controller.
	// The choice is fixed for the logger's lifetime at Build.
	EmitEvents bool

	Audit     AuditConfig
	Sensitive SensitiveConfig
	Transport TransportConfig
	Metrics   MetricsConfig
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls batching and intake buffering.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	// BatchSize flushes the accumulating batch when the queue reaches this
	// length; BatchInterval flushes it when the timer armed at the first
	// queued entry fires. Whichever happens first wins.
	BatchSize     int
	BatchInterval time.Duration

	// BufferSize is the intake channel capacity between callers and the
	// dispatcher goroutine.
	BufferSize int

	// DropIfFull makes enqueue non-blocking: entries submitted while the
	// intake buffer is full are counted and discarded instead of blocking
	// the caller.
	DropIfFull bool
}

/*
====================================
SENSITIVE FIELDS CONFIG
====================================
*/

// SensitiveConfig locates the optional custom sensitive-fields document.
//
// SensitiveConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SensitiveConfig struct {
	// ConfigPath is a filesystem path to a JSON document merged additively
	// into the built-in baseline. Empty means baseline only. A malformed
	// document fails Build; it is the pipeline's only fatal path.
	ConfigPath string
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig configures delivery to the controller's log-ingestion
// endpoint. It is consulted only in network mode (EmitEvents false) when no
// explicit sink is installed via [Builder.WithSink].
//
// TransportConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TransportConfig struct {
	BaseURL      string
	IngestPath   string
	ClientID     string
	ClientSecret []byte
	TokenTTL     time.Duration
	Timeout      time.Duration
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by warden APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULTS
====================================
*/

func defaultConfig() Config {
	return Config{
		EmitEvents: false,
		Audit: AuditConfig{
			BatchSize:     25,
			BatchInterval: 5 * time.Second,
			BufferSize:    1024,
			DropIfFull:    true,
		},
		Transport: TransportConfig{
			IngestPath: "/api/v1/logs/batch",
			TokenTTL:   2 * time.Minute,
			Timeout:    10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Transport.ClientSecret = cloneBytes(cfg.Transport.ClientSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for values the pipeline cannot run with.
// Transport completeness is checked at Build, and only when the transport is
// actually selected as the sink.
func (c *Config) Validate() error {
	if c.Audit.BatchSize <= 0 {
		return errors.New("Audit BatchSize must be > 0")
	}
	if c.Audit.BatchInterval <= 0 {
		return errors.New("Audit BatchInterval must be > 0")
	}
	if c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	if c.Transport.BaseURL != "" {
		u, err := url.Parse(c.Transport.BaseURL)
		if err != nil {
			return errors.New("Transport BaseURL is not a valid URL")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.New("Transport BaseURL must be http or https")
		}
	}
	if c.Transport.TokenTTL < 0 {
		return errors.New("Transport TokenTTL must be >= 0")
	}
	if c.Transport.Timeout < 0 {
		return errors.New("Transport Timeout must be >= 0")
	}

	return nil
}
