package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"tether/internal/config"
	"tether/pkg/logging"
)

// Application represents the main application structure that bootstraps tether.
type Application struct {
	config   *Config
	services *Services
}

// NewApplication loads and validates configuration, configures logging and
// initialises all services.
func NewApplication(ctx context.Context, cfg *Config) (*Application, error) {
	var logOutput io.Writer = os.Stderr
	if cfg.Silent {
		logOutput = io.Discard
	}
	// Bootstrap logs go out at info until the configured level is known.
	logging.InitForCLI(logging.LevelInfo, logOutput)

	if cfg.TetherConfig == nil {
		configPath := cfg.ConfigPath
		if configPath == "" {
			configPath = config.GetDefaultConfigPathOrPanic()
		}
		tc, err := config.LoadConfig(configPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load tether configuration from path: %s", configPath)
			return nil, fmt.Errorf("failed to load tether configuration from path %s: %w", configPath, err)
		}
		cfg.TetherConfig = &tc
	}

	if err := cfg.TetherConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	initLogging(cfg, logOutput)

	services, err := InitializeServices(ctx, *cfg.TetherConfig)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

func initLogging(cfg *Config, out io.Writer) {
	level, _ := logging.ParseLevel(cfg.TetherConfig.Logging.Level)
	if cfg.Debug {
		level = logging.LevelDebug
	}
	if cfg.TetherConfig.Logging.Format == config.LogFormatJSON {
		logging.InitJSON(level, out)
		return
	}
	logging.InitForCLI(level, out)
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// Config returns the effective configuration.
func (a *Application) Config() config.TetherConfig {
	return *a.config.TetherConfig
}

// Close releases all services.
func (a *Application) Close() error {
	return a.services.Close()
}
