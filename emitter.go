package warden

import (
	"context"
	"sync"
)

// Observer channel events announced in local-observer mode.
const (
	// EventLog carries a single masked entry.
	EventLog = "log"
	// EventLogBatch carries an ordered batch of masked entries.
	EventLogBatch = "log:batch"
)

// Handler receives the entries of one observer event. For EventLog the slice
// holds exactly one entry. Handlers run synchronously on the delivery
// goroutine; a panicking handler is caught by the pipeline's failure guard.
type Handler func(entries []Entry)

// Emitter is the local publish/subscribe channel used in local-observer mode
// so a host application embedding the SDK can persist entries itself without
// any network call.
type Emitter struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[string]map[int]Handler
}

func NewEmitter() *Emitter {
	return &Emitter{
		handlers: make(map[string]map[int]Handler),
	}
}

// Subscribe registers a handler for event (EventLog or EventLogBatch) and
// returns a cancel function that removes it.
func (e *Emitter) Subscribe(event string, h Handler) (cancel func()) {
	if h == nil {
		return func() {}
	}

	e.mu.Lock()
	id := e.nextID
	e.nextID++
	if e.handlers[event] == nil {
		e.handlers[event] = make(map[int]Handler)
	}
	e.handlers[event][id] = h
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.handlers[event], id)
		e.mu.Unlock()
	}
}

func (e *Emitter) publish(event string, entries []Entry) {
	e.mu.RLock()
	subs := make([]Handler, 0, len(e.handlers[event]))
	for _, h := range e.handlers[event] {
		subs = append(subs, h)
	}
	e.mu.RUnlock()

	for _, h := range subs {
		// Each handler gets its own copy; queued entries stay immutable.
		own := make([]Entry, len(entries))
		copy(own, entries)
		h(own)
	}
}

// EmitterSink routes flushes onto an Emitter: single-entry flushes as
// EventLog, larger ones as EventLogBatch.
type EmitterSink struct {
	emitter *Emitter
}

func NewEmitterSink(emitter *Emitter) *EmitterSink {
	return &EmitterSink{emitter: emitter}
}

func (s *EmitterSink) Emit(_ context.Context, entry Entry) error {
	s.emitter.publish(EventLog, []Entry{entry})
	return nil
}

func (s *EmitterSink) EmitBatch(_ context.Context, batch []Entry) error {
	s.emitter.publish(EventLogBatch, batch)
	return nil
}
