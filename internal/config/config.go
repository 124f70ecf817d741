// Package config loads tool configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all settings. Every field can be set through the
// environment with the ZOTOC_ prefix; a .env file in the working
// directory is honored if present.
type Config struct {
	// DataDir is the Zotero data directory containing zotero.sqlite,
	// better-bibtex.sqlite and the storage/ tree.
	DataDir string `envconfig:"DATA_DIR"`

	// ColorTolerance is the per-channel slack used when matching
	// highlight colors. Colors are rarely bit-exact after a round trip
	// through annotation editors.
	ColorTolerance float64 `envconfig:"COLOR_TOLERANCE" default:"0.02"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var c Config
	if err := envconfig.Process("zotoc", &c); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, "Zotero")
	}
	return &c, nil
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	if c.ColorTolerance < 0 || c.ColorTolerance > 0.5 {
		return fmt.Errorf("color tolerance %g out of range [0, 0.5]", c.ColorTolerance)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}
