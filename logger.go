package warden

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wardenhq/warden-go/internal/mask"
)

// Logger defines a public type used by warden APIs.
//
// A Logger assembles a canonical entry from 1–3 caller-supplied arguments,
// pulls the rest from the ambient context carried on ctx, masks sensitive
// fields, and queues the entry for batched dispatch. Log calls are
// fire-and-forget: delivery failure is observed internally and can never
// surface to the caller. Logger methods are safe for concurrent use.
type Logger struct {
	cfg     Config
	masker  *mask.Masker
	disp    *dispatcher
	emitter *Emitter
	guard   *failureGuard
	stats   *Metrics
	bound   Context
}

// Info records an informational entry. At most one payload value is used;
// it is masked before the entry is queued.
func (l *Logger) Info(ctx context.Context, message string, payload ...any) {
	l.emit(ctx, LevelInfo, message, firstOf(payload))
}

// Debug records a debug entry.
func (l *Logger) Debug(ctx context.Context, message string, payload ...any) {
	l.emit(ctx, LevelDebug, message, firstOf(payload))
}

// Error records an error entry. When detail is an error its type name,
// message, and call-site stack are extracted into the entry's errorDetail;
// any other value is treated as an arbitrary payload and masked.
func (l *Logger) Error(ctx context.Context, message string, detail ...any) {
	entry := l.newEntry(ctx, LevelError, message)
	switch v := firstOf(detail).(type) {
	case nil:
	case error:
		entry.ErrorDetail = newErrorDetail(v)
	default:
		entry.Payload = l.masker.Mask(v)
	}
	l.enqueue(ctx, entry)
}

// Audit records an audit-trail entry. An empty entityID defaults to
// [EntityUnknown] for events with no concrete subject. oldValues and
// newValues are masked before the entry is queued.
func (l *Logger) Audit(ctx context.Context, action, resourceType, entityID string, oldValues, newValues any) {
	if entityID == "" {
		entityID = EntityUnknown
	}

	entry := l.newEntry(ctx, LevelAudit, "")
	entry.Action = action
	entry.ResourceType = resourceType
	entry.EntityID = entityID
	if oldValues != nil {
		entry.OldValues = l.masker.Mask(oldValues)
	}
	if newValues != nil {
		entry.NewValues = l.masker.Mask(newValues)
	}
	l.enqueue(ctx, entry)
}

// With returns a logger bound to a locally extended context, e.g. to attach
// a resolved user id after authentication. The binding overrides the ambient
// fields per entry without mutating the ambient scope for sibling code.
func (l *Logger) With(partial Context) *Logger {
	out := *l
	out.bound = l.bound.merge(partial)
	return &out
}

// Events returns the local observer channel, or nil when the logger was not
// built in local-observer mode.
func (l *Logger) Events() *Emitter {
	return l.emitter
}

// Flush forces queued entries to be handed to the sink regardless of batch
// thresholds and returns once dispatch has been initiated.
func (l *Logger) Flush(ctx context.Context) error {
	return l.disp.Flush(ctx)
}

// Close drains outstanding entries as a final batch, waits for in-flight
// deliveries, and rejects further entries. Idempotent.
func (l *Logger) Close() {
	l.disp.Close()
}

// Dropped reports entries discarded at intake since construction.
func (l *Logger) Dropped() uint64 {
	return l.disp.Dropped()
}

// Failures reports delivery/transform failures observed (and swallowed) by
// the pipeline since construction.
func (l *Logger) Failures() uint64 {
	return l.guard.Failures()
}

// Metrics returns the pipeline counters.
func (l *Logger) Metrics() *Metrics {
	return l.stats
}

func (l *Logger) emit(ctx context.Context, level Level, message string, payload any) {
	entry := l.newEntry(ctx, level, message)
	if payload != nil {
		entry.Payload = l.masker.Mask(payload)
	}
	l.enqueue(ctx, entry)
}

func (l *Logger) newEntry(ctx context.Context, level Level, message string) Entry {
	return Entry{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		Context:   LoggerContext(ctx).merge(l.bound),
		Timestamp: time.Now().UTC(),
	}
}

func (l *Logger) enqueue(ctx context.Context, entry Entry) {
	l.disp.Enqueue(ctx, entry)
}

func firstOf(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

// newErrorDetail extracts the name/message/stack triple from err. The stack
// is captured at the log call site, skipping pipeline frames. A typed-nil
// error carries nothing to extract and yields nil instead of panicking in
// err.Error() on the caller's goroutine.
func newErrorDetail(err error) *ErrorDetail {
	if isNilErrorValue(err) {
		return nil
	}
	return &ErrorDetail{
		Name:    fmt.Sprintf("%T", err),
		Message: err.Error(),
		Stack:   callerStack(3),
	}
}

func isNilErrorValue(err error) bool {
	if err == nil {
		return true
	}
	rv := reflect.ValueOf(err)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

const maxStackFrames = 16

func callerStack(skip int) string {
	pcs := make([]uintptr, maxStackFrames)
	n := runtime.Callers(skip+1, pcs)
	if n == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			b.WriteString(frame.Function)
			b.WriteString(" (")
			b.WriteString(frame.File)
			b.WriteString(":")
			b.WriteString(strconv.Itoa(frame.Line))
			b.WriteString(")\n")
		}
		if !more {
			break
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
