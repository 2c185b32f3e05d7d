package rediscomm

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v7"
)

var (
	// ErrChannelExists is returned when registering a second handler for a
	// channel.
	ErrChannelExists = errors.New("channel already has a subscriber")

	// ErrClientClosed is returned by operations on a closed Client.
	ErrClientClosed = errors.New("client closed")
)

// ConnectionError reports that Redis could not be reached. Nothing in this
// package retries beyond the retries of the redis client itself.
type ConnectionError struct {
	Op   string
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("redis %s at %s: connection error: %s", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("redis %s: connection error: %s", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// wrapErr classifies an error returned by the redis client. Error replies
// from the server and context errors are returned as they are; anything else
// is a transport failure.
func wrapErr(op string, err error) error {
	if err == nil || err == redis.Nil {
		return err
	}
	if errors.Is(err, redis.ErrClosed) {
		return ErrClientClosed
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var rerr redis.Error
	if errors.As(err, &rerr) {
		return fmt.Errorf("redis %s: %w", op, err)
	}
	return &ConnectionError{Op: op, Err: err}
}
