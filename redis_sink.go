package warden

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RedisStreamSink appends masked entries to a Redis stream. It is an
// alternative for hosts that already run Redis and want the trail persisted
// locally instead of (or before) shipping it to the controller; install it
// via [Builder.WithSink].
type RedisStreamSink struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

// NewRedisStreamSink writes entries to stream. maxLen > 0 caps the stream
// approximately (XADD MAXLEN ~); 0 leaves it unbounded.
func NewRedisStreamSink(client redis.UniversalClient, stream string, maxLen int64) *RedisStreamSink {
	return &RedisStreamSink{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

func (s *RedisStreamSink) Emit(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.XAdd(ctx, s.addArgs(data)).Err()
}

// EmitBatch pipelines one XADD per entry so a batch costs a single
// round-trip and lands in submission order.
func (s *RedisStreamSink) EmitBatch(ctx context.Context, batch []Entry) error {
	pipe := s.client.Pipeline()
	for _, entry := range batch {
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		pipe.XAdd(ctx, s.addArgs(data))
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStreamSink) addArgs(data []byte) *redis.XAddArgs {
	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{"entry": string(data)},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}
	return args
}
