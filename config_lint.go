package warden

import (
	"strings"
	"time"
)

// Warning flags a configuration that validates but is likely to behave
// poorly in production. Codes are stable; messages are not.
type Warning struct {
	Code    string
	Message string
}

// Warnings defines a public type used by warden APIs.
//
// Warnings instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Warnings []Warning

// Codes returns the warning codes in emission order.
func (ws Warnings) Codes() []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}

// Lint inspects a valid configuration for settings that commonly hurt in
// production: degenerate batching, blocking intake, plaintext or weakly
// authenticated transport. Warnings never fail Build; they exist for hosts
// that surface them at startup.
func (c *Config) Lint() Warnings {
	var ws Warnings
	warn := func(code, message string) {
		ws = append(ws, Warning{Code: code, Message: message})
	}

	if c.Audit.BatchSize == 1 {
		warn("batching_disabled", "Audit BatchSize of 1 ships every entry alone; batching is effectively off")
	}
	if c.Audit.BatchInterval > time.Minute {
		warn("interval_long", "Audit BatchInterval above 1m delays delivery of partial batches")
	}
	if c.Audit.BufferSize < c.Audit.BatchSize {
		warn("buffer_below_batch", "Audit BufferSize below BatchSize; the size threshold can never fill from a full buffer")
	}
	if !c.Audit.DropIfFull {
		warn("blocking_intake", "DropIfFull disabled; log calls can block when the intake buffer is full")
	}

	// Transport warnings apply only when the transport can be selected.
	if !c.EmitEvents && c.Transport.BaseURL != "" {
		if strings.HasPrefix(c.Transport.BaseURL, "http://") {
			warn("plaintext_transport", "Transport BaseURL uses http; entries travel unencrypted")
		}
		if len(c.Transport.ClientSecret) > 0 && len(c.Transport.ClientSecret) < 32 {
			warn("client_secret_short", "Transport ClientSecret below 256 bits weakens the HS256 client assertion")
		}
		if c.Transport.TokenTTL > 0 && c.Transport.TokenTTL < 30*time.Second {
			warn("token_ttl_short", "Transport TokenTTL below 30s re-mints a bearer token on nearly every flush")
		}
	}

	return ws
}
