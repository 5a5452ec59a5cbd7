package warden

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// Sink receives flushed entries. EmitBatch is called with batches in
// submission order; Emit is used when a flush carries exactly one entry.
// Entries handed to a sink are already masked. A returned error is observed
// by the pipeline's failure guard and never reaches the original caller.
type Sink interface {
	Emit(ctx context.Context, entry Entry) error
	EmitBatch(ctx context.Context, batch []Entry) error
}

// NoOpSink drops entries.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Entry) error        { return nil }
func (NoOpSink) EmitBatch(context.Context, []Entry) error { return nil }

// ChannelSink writes entries into a buffered channel, preserving batch order.
type ChannelSink struct {
	entries chan Entry
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		entries: make(chan Entry, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, entry Entry) error {
	select {
	case s.entries <- entry:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChannelSink) EmitBatch(ctx context.Context, batch []Entry) error {
	for _, entry := range batch {
		if err := s.Emit(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (s *ChannelSink) Entries() <-chan Entry {
	return s.entries
}

// JSONWriterSink writes one JSON object per line. A batch is written under a
// single lock so its entries are never interleaved with another flush.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, entry Entry) error {
	return s.EmitBatch(ctx, []Entry{entry})
}

func (s *JSONWriterSink) EmitBatch(_ context.Context, batch []Entry) error {
	if s == nil || s.writer == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range batch {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if _, err := s.writer.Write(data); err != nil {
			return err
		}
		if _, err := s.writer.Write([]byte("\n")); err != nil {
			return err
		}
	}
	return nil
}
