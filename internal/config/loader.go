package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tether/pkg/logging"
)

const (
	userConfigDir  = ".config/tether"
	configFileName = "config.yaml"
	envFileName    = ".env"
)

// GetDefaultConfigPathOrPanic returns ~/.config/tether.
func GetDefaultConfigPathOrPanic() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(fmt.Errorf("could not determine user config directory: %w", err))
	}

	return filepath.Join(homeDir, userConfigDir)
}

// LoadConfig loads configuration from a single specified directory.
func LoadConfig(configPath string) (TetherConfig, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Info("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		logging.Info("ConfigLoader", "Error loading config.yaml from %s: %s", configFilePath, err)
		return TetherConfig{}, NewConfigurationError(configFilePath, configFileName, "io", err.Error())
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			// config malformed
			return TetherConfig{}, NewConfigurationError(configFilePath, configFileName, "parse", err.Error())
		}
		logging.Info("ConfigLoader", "Loaded configuration from %s", configFilePath)
	}

	envPath := filepath.Join(configPath, envFileName)
	if err := godotenv.Load(envPath); err == nil {
		logging.Debug("ConfigLoader", "Loaded environment from %s", envPath)
	}
	applyEnvOverrides(&config)

	if config.Directory.Path != "" && !filepath.IsAbs(config.Directory.Path) {
		config.Directory.Path = filepath.Join(configPath, config.Directory.Path)
	}
	return config, nil
}

// applyEnvOverrides replaces file values with TETHER_* variables.
func applyEnvOverrides(config *TetherConfig) {
	config.Logging.Level = getEnv("TETHER_LOG_LEVEL", config.Logging.Level)
	config.Graph.Driver = getEnv("TETHER_GRAPH_DRIVER", config.Graph.Driver)
	config.Graph.Path = getEnv("TETHER_GRAPH_PATH", config.Graph.Path)
	config.Directory.DSN = getEnv("TETHER_DIRECTORY_DSN", config.Directory.DSN)
	config.Cache.RedisAddr = getEnv("TETHER_REDIS_ADDR", config.Cache.RedisAddr)
	config.Events.NATSURL = getEnv("TETHER_NATS_URL", config.Events.NATSURL)
	config.Hostname.Domain = getEnv("TETHER_HOSTNAME_DOMAIN", config.Hostname.Domain)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
