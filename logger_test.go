package warden

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"sync"
	"testing"
	"time"
)

func buildTestLogger(t *testing.T, cfg Config, sink Sink) *Logger {
	t.Helper()

	logger, err := New().
		WithConfig(cfg).
		WithSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(logger.Close)
	return logger
}

func fastBatchConfig() Config {
	cfg := defaultConfig()
	cfg.Audit.BatchSize = 1
	cfg.Audit.BatchInterval = 10 * time.Millisecond
	return cfg
}

func receiveEntry(t *testing.T, sink *ChannelSink) Entry {
	t.Helper()

	select {
	case entry := <-sink.Entries():
		return entry
	case <-time.After(2 * time.Second):
		t.Fatal("expected an entry to be delivered")
		return Entry{}
	}
}

func TestInfoCapturesAmbientContext(t *testing.T) {
	sink := NewChannelSink(8)
	logger := buildTestLogger(t, fastBatchConfig(), sink)

	ctx := WithLoggerContext(context.Background(), Context{
		UserID:        "u1",
		CorrelationID: "corr-1",
		RequestID:     "req-1",
		SessionID:     "sess-1",
		IPAddress:     "203.0.113.9",
	})
	logger.Info(ctx, "hello")

	entry := receiveEntry(t, sink)
	if entry.Level != LevelInfo || entry.Message != "hello" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if entry.Context.UserID != "u1" || entry.Context.CorrelationID != "corr-1" ||
		entry.Context.RequestID != "req-1" || entry.Context.SessionID != "sess-1" ||
		entry.Context.IPAddress != "203.0.113.9" {
		t.Fatalf("ambient context not captured: %#v", entry.Context)
	}
	if entry.ID == "" {
		t.Fatal("expected entry ID to be assigned")
	}
	if entry.Timestamp.IsZero() {
		t.Fatal("expected entry timestamp to be set")
	}
}

func TestContextSnapshotNotRetroactivelyMutated(t *testing.T) {
	sink := NewChannelSink(8)
	logger := buildTestLogger(t, fastBatchConfig(), sink)

	ctx := WithLoggerContext(context.Background(), Context{UserID: "before"})
	logger.Info(ctx, "first")

	// Deriving a new scope afterwards must not change the captured snapshot.
	_ = WithLoggerContext(ctx, Context{UserID: "after"})

	entry := receiveEntry(t, sink)
	if entry.Context.UserID != "before" {
		t.Fatalf("snapshot mutated retroactively: %#v", entry.Context)
	}
}

func TestPayloadMaskedBeforeQueueing(t *testing.T) {
	sink := NewChannelSink(8)
	logger := buildTestLogger(t, fastBatchConfig(), sink)

	logger.Info(context.Background(), "login attempt", map[string]any{
		"username": "alice",
		"password": "hunter2",
		"nested":   map[string]any{"token": "t0k3n", "ok": 1},
	})

	entry := receiveEntry(t, sink)
	payload, ok := entry.Payload.(map[string]any)
	if !ok {
		t.Fatalf("expected map payload, got %#v", entry.Payload)
	}
	if payload["password"] != "***REDACTED***" {
		t.Fatalf("password leaked: %#v", payload["password"])
	}
	nested := payload["nested"].(map[string]any)
	if nested["token"] != "***REDACTED***" {
		t.Fatalf("nested token leaked: %#v", nested["token"])
	}
	if payload["username"] != "alice" || nested["ok"] != 1 {
		t.Fatalf("non-sensitive values altered: %#v", payload)
	}
}

func TestErrorExtractsDetailFromErrorArgument(t *testing.T) {
	sink := NewChannelSink(8)
	logger := buildTestLogger(t, fastBatchConfig(), sink)

	logger.Error(context.Background(), "lookup failed", errors.New("connection refused"))

	entry := receiveEntry(t, sink)
	if entry.ErrorDetail == nil {
		t.Fatal("expected errorDetail to be extracted")
	}
	if entry.ErrorDetail.Message != "connection refused" {
		t.Fatalf("unexpected error message: %q", entry.ErrorDetail.Message)
	}
	if entry.ErrorDetail.Name == "" {
		t.Fatal("expected error name to be populated")
	}
	if !strings.Contains(entry.ErrorDetail.Stack, "TestErrorExtractsDetailFromErrorArgument") {
		t.Fatalf("expected stack to include the call site, got:\n%s", entry.ErrorDetail.Stack)
	}
	if entry.Payload != nil {
		t.Fatal("error argument must not double as payload")
	}
}

func TestErrorTreatsNonErrorArgumentAsPayload(t *testing.T) {
	sink := NewChannelSink(8)
	logger := buildTestLogger(t, fastBatchConfig(), sink)

	logger.Error(context.Background(), "validation failed", map[string]any{
		"field":  "email",
		"secret": "leak-me-not",
	})

	entry := receiveEntry(t, sink)
	if entry.ErrorDetail != nil {
		t.Fatal("payload argument must not produce errorDetail")
	}
	payload := entry.Payload.(map[string]any)
	if payload["secret"] != "***REDACTED***" {
		t.Fatal("payload of Error call must still be masked")
	}
	if payload["field"] != "email" {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestErrorToleratesTypedNilError(t *testing.T) {
	sink := NewChannelSink(8)
	logger := buildTestLogger(t, fastBatchConfig(), sink)

	var pathErr *fs.PathError
	logger.Error(context.Background(), "lookup failed", pathErr)

	entry := receiveEntry(t, sink)
	if entry.Level != LevelError || entry.Message != "lookup failed" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if entry.ErrorDetail != nil {
		t.Fatalf("typed-nil error must carry no detail, got %#v", entry.ErrorDetail)
	}
	if entry.Payload != nil {
		t.Fatalf("typed-nil error must not become payload, got %#v", entry.Payload)
	}
}

func TestAuditDefaultsEntityToUnknown(t *testing.T) {
	sink := NewChannelSink(8)
	logger := buildTestLogger(t, fastBatchConfig(), sink)

	logger.Audit(context.Background(), "access.denied", "authentication", "", nil, nil)

	entry := receiveEntry(t, sink)
	if !entry.IsAudit() {
		t.Fatalf("expected audit entry, got level %q", entry.Level)
	}
	if entry.Action != "access.denied" || entry.ResourceType != "authentication" {
		t.Fatalf("unexpected audit fields: %#v", entry)
	}
	if entry.EntityID != EntityUnknown {
		t.Fatalf("expected entityId %q, got %q", EntityUnknown, entry.EntityID)
	}
}

func TestAuditMasksOldAndNewValues(t *testing.T) {
	sink := NewChannelSink(8)
	logger := buildTestLogger(t, fastBatchConfig(), sink)

	logger.Audit(context.Background(), "user.update", "user", "u1",
		map[string]any{"email": "old@example.com", "role": "viewer"},
		map[string]any{"email": "new@example.com", "role": "admin"},
	)

	entry := receiveEntry(t, sink)
	oldValues := entry.OldValues.(map[string]any)
	newValues := entry.NewValues.(map[string]any)
	if oldValues["email"] != "***REDACTED***" || newValues["email"] != "***REDACTED***" {
		t.Fatal("expected pii field masked in oldValues/newValues")
	}
	if oldValues["role"] != "viewer" || newValues["role"] != "admin" {
		t.Fatalf("non-sensitive audit values altered: %#v / %#v", oldValues, newValues)
	}
}

func TestWithBindsLocalContextWithoutMutatingAmbient(t *testing.T) {
	sink := NewChannelSink(8)
	logger := buildTestLogger(t, fastBatchConfig(), sink)

	ctx := WithLoggerContext(context.Background(), Context{RequestID: "req-1"})

	bound := logger.With(Context{UserID: "resolved-user"})
	bound.Info(ctx, "bound call")
	logger.Info(ctx, "sibling call")

	first := receiveEntry(t, sink)
	second := receiveEntry(t, sink)

	if first.Context.UserID != "resolved-user" || first.Context.RequestID != "req-1" {
		t.Fatalf("bound logger context wrong: %#v", first.Context)
	}
	if second.Context.UserID != "" {
		t.Fatalf("sibling logger observed the local binding: %#v", second.Context)
	}
}

func TestConcurrentCallChainsAreIsolated(t *testing.T) {
	sink := NewChannelSink(16)
	logger := buildTestLogger(t, fastBatchConfig(), sink)

	var wg sync.WaitGroup
	for _, user := range []string{"A", "B"} {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			ctx := WithLoggerContext(context.Background(), Context{UserID: user})
			for i := 0; i < 20; i++ {
				logger.Info(ctx, "chain-"+user)
			}
		}(user)
	}
	wg.Wait()

	for i := 0; i < 40; i++ {
		entry := receiveEntry(t, sink)
		want := strings.TrimPrefix(entry.Message, "chain-")
		if entry.Context.UserID != want {
			t.Fatalf("cross-chain leak: message %q carries userId %q", entry.Message, entry.Context.UserID)
		}
	}
}

func TestObserverModeEmitsSingleLogEvent(t *testing.T) {
	cfg := fastBatchConfig()
	cfg.EmitEvents = true

	logger, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer logger.Close()

	events := make(chan []Entry, 4)
	logger.Events().Subscribe(EventLog, func(entries []Entry) {
		events <- entries
	})
	batches := make(chan []Entry, 4)
	logger.Events().Subscribe(EventLogBatch, func(entries []Entry) {
		batches <- entries
	})

	logger.Info(context.Background(), "x")

	select {
	case entries := <-events:
		if len(entries) != 1 || entries[0].Message != "x" {
			t.Fatalf("unexpected log event payload: %#v", entries)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected exactly one log observer event")
	}

	select {
	case got := <-events:
		t.Fatalf("unexpected extra log event: %#v", got)
	case got := <-batches:
		t.Fatalf("unexpected batch event for a single entry: %#v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestObserverModeEmitsBatchEvent(t *testing.T) {
	cfg := defaultConfig()
	cfg.EmitEvents = true
	cfg.Audit.BatchSize = 2
	cfg.Audit.BatchInterval = time.Hour

	logger, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer logger.Close()

	batches := make(chan []Entry, 4)
	logger.Events().Subscribe(EventLogBatch, func(entries []Entry) {
		batches <- entries
	})

	logger.Info(context.Background(), "one")
	logger.Audit(context.Background(), "thing.changed", "thing", "t1", nil, nil)

	select {
	case entries := <-batches:
		if len(entries) != 2 || entries[0].Message != "one" || entries[1].Action != "thing.changed" {
			t.Fatalf("unexpected batch payload: %#v", entries)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a log:batch observer event")
	}
}

func TestDeliveryFailureInvisibleToCaller(t *testing.T) {
	inner := NewChannelSink(8)
	sink := &failNSink{n: 1, next: inner}

	cfg := fastBatchConfig()
	logger := buildTestLogger(t, cfg, sink)

	// Must not panic or return anything; the failure is swallowed internally.
	logger.Error(context.Background(), "controller unreachable", errors.New("dial tcp: refused"))

	deadline := time.After(2 * time.Second)
	for logger.Failures() == 0 {
		select {
		case <-deadline:
			t.Fatal("expected the delivery failure to be observed internally")
		case <-time.After(5 * time.Millisecond):
		}
	}

	logger.Info(context.Background(), "still alive")
	entry := receiveEntry(t, inner)
	if entry.Message != "still alive" {
		t.Fatalf("expected pipeline to keep flowing after a failure, got %#v", entry)
	}
}

func TestPanickingObserverHandlerIsContained(t *testing.T) {
	cfg := fastBatchConfig()
	cfg.EmitEvents = true

	logger, err := New().WithConfig(cfg).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer logger.Close()

	logger.Events().Subscribe(EventLog, func([]Entry) {
		panic("host handler bug")
	})

	logger.Info(context.Background(), "boom")

	deadline := time.After(2 * time.Second)
	for logger.Failures() == 0 {
		select {
		case <-deadline:
			t.Fatal("expected handler panic to be recovered and counted")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// The pipeline stays usable afterwards.
	logger.Info(context.Background(), "recovered")
	if err := logger.Flush(context.Background()); err != nil {
		t.Fatalf("Flush after handler panic failed: %v", err)
	}
}

func TestNetworkModeMakesNoObserverEvents(t *testing.T) {
	sink := NewChannelSink(8)
	logger := buildTestLogger(t, fastBatchConfig(), sink)

	if logger.Events() != nil {
		t.Fatal("expected no emitter outside local-observer mode")
	}
}
