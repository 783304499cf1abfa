package app

import (
	"tether/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of the configured level.
	Debug bool

	// Silent discards all log output.
	Silent bool

	// ConfigPath is the configuration directory. Empty selects
	// ~/.config/tether.
	ConfigPath string

	// TetherConfig is filled by NewApplication. Tests may pre-populate it to
	// skip loading from disk.
	TetherConfig *config.TetherConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug, silent bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		Silent:     silent,
		ConfigPath: configPath,
	}
}
