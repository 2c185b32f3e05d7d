package cursor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v7"
	"github.com/google/uuid"
)

// DefaultRedisNamespace is the hash key RedisStore uses when none is given.
const DefaultRedisNamespace = "redcomm:cursors"

// DefaultLockTTL bounds how long a crashed reader can keep a stream locked.
const DefaultLockTTL = 30 * time.Second

const (
	lockRetryMin = 5 * time.Millisecond
	lockRetryMax = 100 * time.Millisecond
)

// unlockScript deletes the lock only if it is still held by the caller's
// token, so that an expired lock taken over by another reader survives.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisStore is a Store kept in a Redis hash, one field per stream. The
// client is borrowed; closing the store does not close it.
type RedisStore struct {
	client    *redis.Client
	namespace string

	// LockTTL is the expiry of stream locks. A reader holding a lock for
	// longer than this may lose it to another reader.
	LockTTL time.Duration
}

var (
	_ Store  = (*RedisStore)(nil)
	_ Locker = (*RedisStore)(nil)
)

func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = DefaultRedisNamespace
	}
	return &RedisStore{client: client, namespace: namespace, LockTTL: DefaultLockTTL}
}

func (r *RedisStore) Get(ctx context.Context, stream string) (string, bool, error) {
	id, err := r.client.WithContext(ctx).HGet(r.namespace, stream).Result()
	switch {
	case err == redis.Nil:
		return "", false, nil
	case errors.Is(err, redis.ErrClosed):
		return "", false, ErrClosed
	case err != nil:
		return "", false, err
	}
	return id, true, nil
}

func (r *RedisStore) Set(ctx context.Context, stream string, id string) error {
	err := r.client.WithContext(ctx).HSet(r.namespace, stream, id).Err()
	if errors.Is(err, redis.ErrClosed) {
		return ErrClosed
	}
	return err
}

func (r *RedisStore) Delete(ctx context.Context, stream string) error {
	err := r.client.WithContext(ctx).HDel(r.namespace, stream).Err()
	if errors.Is(err, redis.ErrClosed) {
		return ErrClosed
	}
	return err
}

// Lock takes the stream lock with SET NX PX, polling until it is free.
func (r *RedisStore) Lock(ctx context.Context, stream string) (func(), error) {
	key := r.lockKey(stream)
	token := uuid.New().String()
	c := r.client.WithContext(ctx)

	backoff := lockRetryMin
	for {
		ok, err := c.SetNX(key, token, r.LockTTL).Result()
		switch {
		case errors.Is(err, redis.ErrClosed):
			return nil, ErrClosed
		case err != nil:
			return nil, fmt.Errorf("failed to lock stream %s: %w", stream, err)
		case ok:
			return func() {
				// not bound to ctx, which may be done by now.
				_ = unlockScript.Run(r.client, []string{key}, token).Err()
			}, nil
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if backoff *= 2; backoff > lockRetryMax {
			backoff = lockRetryMax
		}
	}
}

func (r *RedisStore) lockKey(stream string) string {
	return r.namespace + ":lock:" + stream
}

func (r *RedisStore) Close() error {
	return nil
}
