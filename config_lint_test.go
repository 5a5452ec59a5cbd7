package warden

import (
	"testing"
	"time"
)

func containsCode(codes []string, want string) bool {
	for _, c := range codes {
		if c == want {
			return true
		}
	}
	return false
}

func TestLint_DefaultConfigNoWarnings(t *testing.T) {
	cfg := defaultConfig()
	if ws := cfg.Lint(); len(ws) != 0 {
		t.Errorf("default config should lint clean, got %v", ws.Codes())
	}
}

func TestLint_BatchingDisabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.Audit.BatchSize = 1
	if !containsCode(cfg.Lint().Codes(), "batching_disabled") {
		t.Error("expected batching_disabled warning")
	}
}

func TestLint_LongInterval(t *testing.T) {
	cfg := defaultConfig()
	cfg.Audit.BatchInterval = 5 * time.Minute
	if !containsCode(cfg.Lint().Codes(), "interval_long") {
		t.Error("expected interval_long warning")
	}
}

func TestLint_BufferBelowBatch(t *testing.T) {
	cfg := defaultConfig()
	cfg.Audit.BatchSize = 50
	cfg.Audit.BufferSize = 10
	if !containsCode(cfg.Lint().Codes(), "buffer_below_batch") {
		t.Error("expected buffer_below_batch warning")
	}
}

func TestLint_BlockingIntake(t *testing.T) {
	cfg := defaultConfig()
	cfg.Audit.DropIfFull = false
	if !containsCode(cfg.Lint().Codes(), "blocking_intake") {
		t.Error("expected blocking_intake warning")
	}
}

func TestLint_PlaintextTransport(t *testing.T) {
	cfg := defaultConfig()
	cfg.Transport.BaseURL = "http://controller.internal"
	if !containsCode(cfg.Lint().Codes(), "plaintext_transport") {
		t.Error("expected plaintext_transport warning")
	}
}

func TestLint_ShortClientSecret(t *testing.T) {
	cfg := defaultConfig()
	cfg.Transport.BaseURL = "https://controller.internal"
	cfg.Transport.ClientSecret = []byte("short")
	if !containsCode(cfg.Lint().Codes(), "client_secret_short") {
		t.Error("expected client_secret_short warning")
	}
}

func TestLint_TransportWarningsSuppressedInObserverMode(t *testing.T) {
	cfg := defaultConfig()
	cfg.EmitEvents = true
	cfg.Transport.BaseURL = "http://controller.internal"
	cfg.Transport.ClientSecret = []byte("short")

	codes := cfg.Lint().Codes()
	if containsCode(codes, "plaintext_transport") || containsCode(codes, "client_secret_short") {
		t.Errorf("observer mode never touches the transport, got %v", codes)
	}
}
