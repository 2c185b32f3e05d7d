package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvRedcommHome = "REDCOMM_HOME"

	EnvRedisHost     = "REDIS_HOST"
	EnvRedisPort     = "REDIS_PORT"
	EnvRedisDB       = "REDIS_DB"
	EnvRedisPassword = "REDIS_PASSWORD"

	EnvRedisMaxRetries = "REDCOMM_REDIS_MAX_RETRIES"

	EnvCursorBackend = "REDCOMM_CURSOR_BACKEND"
	EnvCursorPath    = "REDCOMM_CURSOR_PATH"
	EnvStreamMaxLen  = "REDCOMM_STREAM_MAX_LEN"
	EnvListen        = "REDCOMM_LISTEN"
)

// applyEnv overrides configuration values with those set in the
// environment.
func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv(EnvRedisHost); ok {
		c.Redis.Host = v
	}
	if v, ok := os.LookupEnv(EnvRedisPassword); ok {
		c.Redis.Password = v
	}
	if v, ok := os.LookupEnv(EnvCursorBackend); ok {
		c.Cursor.Backend = v
	}
	if v, ok := os.LookupEnv(EnvCursorPath); ok {
		c.Cursor.Path = v
	}
	if v, ok := os.LookupEnv(EnvListen); ok {
		c.Server.Listen = v
	}

	for _, e := range []struct {
		name string
		dst  *int
	}{
		{EnvRedisPort, &c.Redis.Port},
		{EnvRedisDB, &c.Redis.DB},
		{EnvRedisMaxRetries, &c.Redis.MaxRetries},
	} {
		v, ok := os.LookupEnv(e.name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %q is not an integer", e.name, v)
		}
		*e.dst = n
	}

	if v, ok := os.LookupEnv(EnvStreamMaxLen); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %q is not an integer", EnvStreamMaxLen, v)
		}
		c.Stream.MaxLen = n
	}
	return nil
}
