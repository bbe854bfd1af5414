package changelog

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// StreamAdder is the subset of *redis.Client used by RedisStream.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStream appends change records to a Redis stream. A nil New value is
// stored as an entry without the "new" field.
type RedisStream struct {
	rdb    StreamAdder
	stream string
	maxLen int64
}

// NewRedisStream returns a logger writing to stream. When maxLen is positive the
// stream is approximately trimmed to that length.
func NewRedisStream(rdb StreamAdder, stream string, maxLen int64) *RedisStream {
	return &RedisStream{rdb: rdb, stream: stream, maxLen: maxLen}
}

func (r *RedisStream) Log(ctx context.Context, c ChangeRecord) error {
	values := []any{"original", c.Original}
	if c.New != nil {
		values = append(values, "new", *c.New)
	}

	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: values,
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	if err := r.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", r.stream, err)
	}
	return nil
}
