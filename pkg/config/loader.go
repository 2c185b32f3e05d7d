package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/imdario/mergo"

	"github.com/SSRS-Innovation/redis-communication/pkg/logging"
)

const (
	DefaultRedisHost       = "localhost"
	DefaultRedisPort       = 6379
	DefaultDialTimeout     = 10 * time.Second
	DefaultListenAddr      = "localhost:8077"
	DefaultCursorNamespace = "redcomm:cursors"

	configFile = "config.toml"
)

// Default returns the fallback configuration for the given home directory.
func Default(home string) Config {
	return Config{
		Redis: RedisConfig{
			Host:        DefaultRedisHost,
			Port:        DefaultRedisPort,
			DialTimeout: Duration(DefaultDialTimeout),
		},
		Cursor: CursorConfig{
			Backend:   BackendMemory,
			Path:      filepath.Join(home, "cursors"),
			Namespace: DefaultCursorNamespace,
		},
		Server: ServerConfig{
			Listen: DefaultListenAddr,
		},
	}
}

// Load populates the configuration. If file is empty, config.toml is looked
// up in the home directory and used only if it exists; an explicit file
// must exist.
func (c *Config) Load(file string) error {
	home, err := homeDir()
	if err != nil {
		return err
	}
	c.home = home

	explicit := file != ""
	if !explicit {
		file = filepath.Join(home, configFile)
	}

	switch _, err := os.Stat(file); {
	case err == nil:
		if _, err := toml.DecodeFile(file, c); err != nil {
			return fmt.Errorf("found config at %s, but failed to parse: %w", file, err)
		}
		c.file = file
		logging.S().Infof("config loaded from: %s", file)
	case explicit:
		return fmt.Errorf("failed to read config file %s: %w", file, err)
	default:
		logging.S().Infof("no config found at %s; running with defaults", file)
	}

	if err := c.applyEnv(); err != nil {
		return err
	}

	// apply fallbacks to every value left unset.
	if err := mergo.Merge(c, Default(home)); err != nil {
		return fmt.Errorf("error while merging configurations: %w", err)
	}

	c.Cursor.Path = expandHome(c.Cursor.Path)
	return c.Validate()
}

// homeDir returns $REDCOMM_HOME, or falls back to $HOME/.redcomm.
func homeDir() (string, error) {
	if v, ok := os.LookupEnv(EnvRedcommHome); ok && v != "" {
		return v, nil
	}
	v, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to obtain user home dir: %w", err)
	}
	return filepath.Join(v, ".redcomm"), nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	v, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(v, strings.TrimPrefix(path, "~"))
}
