package cmd

import (
	"fmt"

	"github.com/go-redis/redis/v7"
	"github.com/urfave/cli/v2"

	"github.com/SSRS-Innovation/redis-communication/pkg/codec"
	"github.com/SSRS-Innovation/redis-communication/pkg/config"
	"github.com/SSRS-Innovation/redis-communication/pkg/cursor"
	"github.com/SSRS-Innovation/redis-communication/pkg/logging"
	"github.com/SSRS-Innovation/redis-communication/pkg/rediscomm"
)

// loadConfig loads the configuration and applies the global flags on top.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := &config.Config{}
	if err := cfg.Load(c.String("config")); err != nil {
		return nil, err
	}

	if c.IsSet("redis-host") {
		cfg.Redis.Host = c.String("redis-host")
	}
	if c.IsSet("redis-port") {
		cfg.Redis.Port = c.Int("redis-port")
	}
	if c.IsSet("cursor-backend") {
		cfg.Cursor.Backend = c.String("cursor-backend")
	}
	return cfg, cfg.Validate()
}

// setupClient loads the configuration and connects to redis.
func setupClient(c *cli.Context) (*rediscomm.Client, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	client, err := rediscomm.NewClient(ProcessContext(), logging.S(), clientConfig(cfg))
	if err != nil {
		return nil, nil, err
	}
	return client, cfg, nil
}

func clientConfig(cfg *config.Config) *rediscomm.ClientConfig {
	return &rediscomm.ClientConfig{
		Redis: rediscomm.RedisConfiguration{
			Host:        cfg.Redis.Host,
			Port:        cfg.Redis.Port,
			DB:          cfg.Redis.DB,
			Password:    cfg.Redis.Password,
			DialTimeout: cfg.Redis.DialTimeout.Std(),
			MaxRetries:  cfg.Redis.MaxRetries,
		},
		Cursors:      cursorStore(cfg.Cursor),
		StreamMaxLen: cfg.Stream.MaxLen,
	}
}

// cursorStore returns the factory of the configured cursor backend.
func cursorStore(cfg config.CursorConfig) rediscomm.CursorStoreFunc {
	switch cfg.Backend {
	case config.BackendLevelDB:
		return func(*redis.Client) (cursor.Store, error) {
			s, err := cursor.OpenLevelDBStore(cfg.Path)
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	case config.BackendRedis:
		return func(rclient *redis.Client) (cursor.Store, error) {
			return cursor.NewRedisStore(rclient, cfg.Namespace), nil
		}
	default:
		return nil
	}
}

// parseContent decodes a command line argument as JSON, falling back to the
// raw string when it is not valid JSON.
func parseContent(arg string) interface{} {
	v, err := codec.Decode([]byte(arg))
	if err != nil {
		return arg
	}
	return v
}

func requireArgs(c *cli.Context, n int, usage string) error {
	if c.NArg() != n {
		return fmt.Errorf("expected %d argument(s): %s", n, usage)
	}
	return nil
}
