package rediscomm

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v7"
	"go.uber.org/zap"

	"github.com/SSRS-Innovation/redis-communication/pkg/stream"
)

// RedisLog implements stream.Log over Redis Streams.
type RedisLog struct {
	rclient *redis.Client
	log     *zap.SugaredLogger

	// MaxLen, when positive, trims streams to approximately that many
	// entries on append.
	MaxLen int64
}

var _ stream.Log = (*RedisLog)(nil)

func NewRedisLog(log *zap.SugaredLogger, rclient *redis.Client) *RedisLog {
	return &RedisLog{rclient: rclient, log: log}
}

func (r *RedisLog) Append(ctx context.Context, name string, fields map[string]string) (stream.ID, error) {
	args := new(redis.XAddArgs)
	args.ID = "*"
	args.Stream = name
	args.MaxLenApprox = r.MaxLen
	args.Values = make(map[string]interface{}, len(fields))
	for k, v := range fields {
		args.Values[k] = v
	}

	res, err := r.rclient.WithContext(ctx).XAdd(args).Result()
	if err != nil {
		r.log.Debugw("failed to append to stream", "stream", name, "error", err)
		return stream.ID{}, wrapErr("xadd", err)
	}

	id, err := stream.ParseID(res)
	if err != nil {
		return stream.ID{}, fmt.Errorf("redis returned an unexpected entry id: %w", err)
	}
	return id, nil
}

func (r *RedisLog) ReadRange(ctx context.Context, name string, after stream.ID, count int64) ([]stream.Entry, error) {
	// XRANGE bounds are inclusive; start at the successor of the cursor.
	start := "-"
	if !after.IsZero() {
		start = after.Next().String()
	}

	c := r.rclient.WithContext(ctx)

	var cmd *redis.XMessageSliceCmd
	if count > 0 {
		cmd = c.XRangeN(name, start, "+", count)
	} else {
		cmd = c.XRange(name, start, "+")
	}

	msgs, err := cmd.Result()
	if err != nil {
		return nil, wrapErr("xrange", err)
	}
	return toEntries(msgs)
}

func (r *RedisLog) ReadLast(ctx context.Context, name string, count int64) ([]stream.Entry, error) {
	if count <= 0 {
		count = 1
	}

	msgs, err := r.rclient.WithContext(ctx).XRevRangeN(name, "+", "-", count).Result()
	if err != nil {
		return nil, wrapErr("xrevrange", err)
	}
	return toEntries(msgs)
}

// Len returns the number of entries in the stream.
func (r *RedisLog) Len(ctx context.Context, name string) (int64, error) {
	n, err := r.rclient.WithContext(ctx).XLen(name).Result()
	return n, wrapErr("xlen", err)
}

func toEntries(msgs []redis.XMessage) ([]stream.Entry, error) {
	entries := make([]stream.Entry, 0, len(msgs))
	for _, m := range msgs {
		id, err := stream.ParseID(m.ID)
		if err != nil {
			return nil, fmt.Errorf("redis returned an unexpected entry id: %w", err)
		}

		fields := make(map[string]string, len(m.Values))
		for k, v := range m.Values {
			switch v := v.(type) {
			case string:
				fields[k] = v
			default:
				fields[k] = fmt.Sprint(v)
			}
		}
		entries = append(entries, stream.Entry{ID: id, Fields: fields})
	}
	return entries, nil
}
