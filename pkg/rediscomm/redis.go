package rediscomm

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-redis/redis/v7"
	"go.uber.org/zap"
)

const DefaultPort = 6379

var DefaultRedisOpts = redis.Options{
	MinIdleConns:       2,               // allow the pool to downsize to 0 conns.
	PoolSize:           5,               // one for subscriptions, one for nonblocking operations.
	PoolTimeout:        3 * time.Minute, // amount of time a waiter will wait for a conn to become available.
	MaxRetries:         3,
	MinRetryBackoff:    8 * time.Millisecond,
	MaxRetryBackoff:    512 * time.Millisecond,
	DialTimeout:        10 * time.Second,
	ReadTimeout:        10 * time.Second,
	WriteTimeout:       10 * time.Second,
	IdleCheckFrequency: 30 * time.Second,
	MaxConnAge:         2 * time.Minute,
}

// RedisConfiguration is the connection target.
type RedisConfiguration struct {
	Host     string
	Port     int
	DB       int
	Password string

	// DialTimeout overrides DefaultRedisOpts.DialTimeout when non-zero.
	DialTimeout time.Duration

	// MaxRetries overrides DefaultRedisOpts.MaxRetries when non-zero; -1
	// disables retries.
	MaxRetries int
}

func (c *RedisConfiguration) Addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// redisClient returns a Redis client for cfg, after checking that the server
// answers a PING.
func redisClient(ctx context.Context, log *zap.SugaredLogger, cfg *RedisConfiguration) (client *redis.Client, err error) {
	log.Debugw("trying redis host", "addr", cfg.Addr(), "db", cfg.DB)

	opts := redisOptions(cfg)
	client = redis.NewClient(&opts).WithContext(ctx)

	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		log.Errorw("failed to ping redis host", "addr", cfg.Addr(), "error", err)
		return nil, &ConnectionError{Op: "ping", Addr: cfg.Addr(), Err: err}
	}

	log.Debugw("redis ping OK", "addr", cfg.Addr())
	return client, nil
}

// redisOptions applies cfg over DefaultRedisOpts.
func redisOptions(cfg *RedisConfiguration) redis.Options {
	opts := DefaultRedisOpts
	opts.Addr = cfg.Addr()
	opts.DB = cfg.DB
	opts.Password = cfg.Password
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	switch {
	case cfg.MaxRetries < 0:
		opts.MaxRetries = 0
	case cfg.MaxRetries > 0:
		opts.MaxRetries = cfg.MaxRetries
	}
	return opts
}

// checkAddr rejects configurations that cannot possibly be dialed.
func checkAddr(cfg *RedisConfiguration) error {
	if cfg.Host == "" {
		return fmt.Errorf("redis host not set")
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return fmt.Errorf("invalid redis port: %d", cfg.Port)
	}
	return nil
}
