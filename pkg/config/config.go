// Package config loads the redcomm configuration. Values are coalesced from
// these sources, in descending order of precedence:
//
//  1. environment variables.
//  2. config.toml in the redcomm home directory.
//  3. default fallbacks.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	BackendMemory  = "memory"
	BackendLevelDB = "leveldb"
	BackendRedis   = "redis"
)

type Config struct {
	home string
	file string

	Redis  RedisConfig  `toml:"redis"`
	Cursor CursorConfig `toml:"cursor"`
	Stream StreamConfig `toml:"stream"`
	Server ServerConfig `toml:"server"`
}

// Home returns the home directory the configuration was resolved against.
func (c *Config) Home() string {
	return c.home
}

// File returns the path of the TOML file that was loaded, or an empty
// string if none was found.
func (c *Config) File() string {
	return c.file
}

type RedisConfig struct {
	Host        string   `toml:"host" validate:"required"`
	Port        int      `toml:"port" validate:"min=1,max=65535"`
	DB          int      `toml:"db" validate:"min=0"`
	Password    string   `toml:"password"`
	DialTimeout Duration `toml:"dial_timeout"`

	// MaxRetries is the number of times a failed command is retried. Zero
	// keeps the client default and -1 disables retries.
	MaxRetries int `toml:"max_retries" validate:"min=-1"`
}

type CursorConfig struct {
	Backend   string `toml:"backend" validate:"oneof=memory leveldb redis"`
	Path      string `toml:"path" validate:"required_if=Backend leveldb"`
	Namespace string `toml:"namespace" validate:"required_if=Backend redis"`
}

type StreamConfig struct {
	// MaxLen caps streams at approximately this many entries on append.
	MaxLen int64 `toml:"max_len" validate:"min=0"`
}

type ServerConfig struct {
	Listen string `toml:"listen" validate:"required,hostname_port"`
}

// Duration is a time.Duration that decodes from strings like "10s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	if v < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", text)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

var configValidator = validator.New()

// Validate performs structural validation of the configuration.
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
