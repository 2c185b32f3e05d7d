package rediscomm

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v7"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/SSRS-Innovation/redis-communication/pkg/codec"
	"github.com/SSRS-Innovation/redis-communication/pkg/cursor"
	"github.com/SSRS-Innovation/redis-communication/pkg/stream"
)

// CursorStoreFunc builds the cursor store of a Client, possibly on top of
// the client's own redis connection.
type CursorStoreFunc func(rclient *redis.Client) (cursor.Store, error)

// ClientConfig configures a Client.
type ClientConfig struct {
	Redis RedisConfiguration

	// Cursors builds the cursor store. When nil, cursors are kept in memory
	// and every stream is read from the beginning after a restart.
	Cursors CursorStoreFunc

	// StreamMaxLen, when positive, caps the length of the streams written
	// by this client.
	StreamMaxLen int64
}

// Client sends and receives messages on Redis channels and streams.
type Client struct {
	ctx    context.Context
	cancel context.CancelFunc

	rclient *redis.Client
	log     *zap.SugaredLogger

	subs    *subscribers
	rlog    *RedisLog
	streams *stream.Manager

	closeOnce sync.Once
	closeErr  error
}

// NewClient connects to Redis. The connection is checked with a PING, and a
// *ConnectionError is returned if the server cannot be reached.
func NewClient(ctx context.Context, log *zap.SugaredLogger, cfg *ClientConfig) (*Client, error) {
	if err := checkAddr(&cfg.Redis); err != nil {
		return nil, err
	}

	rclient, err := redisClient(ctx, log, &cfg.Redis)
	if err != nil {
		return nil, err
	}

	var store cursor.Store
	if cfg.Cursors != nil {
		if store, err = cfg.Cursors(rclient); err != nil {
			_ = rclient.Close()
			return nil, fmt.Errorf("failed to create cursor store: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Client{
		ctx:     ctx,
		cancel:  cancel,
		rclient: rclient,
		log:     log,
		subs:    newSubscribers(log, rclient),
		rlog:    NewRedisLog(log, rclient),
	}
	c.rlog.MaxLen = cfg.StreamMaxLen
	c.streams = stream.NewManager(log, c.rlog, store)

	log.Infow("connected to redis", "addr", cfg.Redis.Addr())
	return c, nil
}

// Redis exposes the underlying redis client.
func (c *Client) Redis() *redis.Client {
	return c.rclient
}

// Streams exposes the stream manager of this client.
func (c *Client) Streams() *stream.Manager {
	return c.streams
}

// AddSubscriber registers h as the handler of channel and subscribes to it.
// A channel holds a single handler; registering another one returns
// ErrChannelExists and keeps the first. Handlers run on the goroutine that
// calls Listen.
func (c *Client) AddSubscriber(channel string, h Handler) error {
	if err := c.ctx.Err(); err != nil {
		return ErrClientClosed
	}
	return c.subs.add(channel, h)
}

// RemoveSubscriber unregisters the handler of channel and unsubscribes from
// it. Removing an unknown channel is a no-op.
func (c *Client) RemoveSubscriber(channel string) error {
	if err := c.ctx.Err(); err != nil {
		return ErrClientClosed
	}
	return c.subs.remove(channel)
}

// Subscribers returns the channels with a registered handler.
func (c *Client) Subscribers() []string {
	return c.subs.channels()
}

// Listen dispatches received messages to their handlers until ctx fires or
// the client is closed. Messages that are not well-formed envelopes are
// logged and dropped.
func (c *Client) Listen(ctx context.Context) error {
	if err := c.ctx.Err(); err != nil {
		return ErrClientClosed
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.ctx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	err := c.subs.listen(ctx)
	if c.ctx.Err() != nil {
		// closed underneath us.
		return nil
	}
	return err
}

// Subscribe opens a dedicated subscription to channels. The subscription
// ends when ctx fires or it is closed.
func (c *Client) Subscribe(ctx context.Context, channels ...string) (*Subscription, error) {
	if err := c.ctx.Err(); err != nil {
		return nil, ErrClientClosed
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("no channels to subscribe to")
	}
	return newSubscription(ctx, c.log, c.rclient, channels...)
}

// SendMessage publishes content on channel, wrapped in an envelope stamped
// with the local time. It returns the number of clients that received it.
func (c *Client) SendMessage(ctx context.Context, channel string, content interface{}) (receivers int64, err error) {
	payload, err := codec.EncodeEnvelope(codec.Now(), content)
	if err != nil {
		return 0, err
	}

	receivers, err = c.rclient.WithContext(ctx).Publish(channel, payload).Result()
	if err != nil {
		return 0, wrapErr("publish", err)
	}

	c.log.Debugw("published message", "channel", channel, "receivers", receivers)
	return receivers, nil
}

// AddStreamMessage appends content to the stream.
func (c *Client) AddStreamMessage(ctx context.Context, name string, content interface{}) (stream.ID, error) {
	return c.streams.Add(ctx, name, content)
}

// LatestStreamMessage returns the newest message of the stream, without
// affecting UnreadStreamMessages. ok is false when the stream is empty.
func (c *Client) LatestStreamMessage(ctx context.Context, name string) (msg stream.Message, ok bool, err error) {
	return c.streams.ReadLatest(ctx, name)
}

// UnreadStreamMessages returns the messages appended to the stream since the
// previous call, up to maxMessages when positive.
func (c *Client) UnreadStreamMessages(ctx context.Context, name string, maxMessages int) ([]stream.Message, error) {
	return c.streams.ReadUnread(ctx, name, maxMessages)
}

// StreamLen returns the number of entries of the stream.
func (c *Client) StreamLen(ctx context.Context, name string) (int64, error) {
	return c.rlog.Len(ctx, name)
}

// ServerTime returns the clock of the Redis server.
func (c *Client) ServerTime(ctx context.Context) (codec.Timestamp, error) {
	t, err := c.rclient.WithContext(ctx).Time().Result()
	if err != nil {
		return codec.Timestamp{}, wrapErr("time", err)
	}
	return codec.FromTime(t), nil
}

// Close stops listeners, and releases the cursor store and the connections.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()

		var merr *multierror.Error
		if err := c.subs.close(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("failed to close subscriptions: %w", err))
		}
		if err := c.streams.Close(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("failed to close cursor store: %w", err))
		}
		if err := c.rclient.Close(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("failed to close redis client: %w", err))
		}
		c.closeErr = merr.ErrorOrNil()
	})
	return c.closeErr
}
