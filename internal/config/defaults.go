package config

import (
	"time"

	"tether/internal/events"
	"tether/internal/hostname"
	"tether/internal/isolation"
)

const (
	DefaultGraphPath      = "./data/graph"
	DefaultTopologyFile   = "topology.yaml"
	DefaultRequestTimeout = 5 * time.Second
	DefaultCacheTTL       = 30 * time.Second
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() TetherConfig {
	return TetherConfig{
		Logging: LoggingConfig{
			Level:  "info",
			Format: LogFormatText,
		},
		Graph: GraphConfig{
			Driver:         GraphDriverBadger,
			Path:           DefaultGraphPath,
			RequestTimeout: DefaultRequestTimeout,
			SyncWrites:     true,
		},
		Directory: DirectoryConfig{
			Driver: DirectoryDriverYAML,
			Path:   DefaultTopologyFile,
		},
		Hostname: HostnameConfig{
			Domain:      hostname.DefaultDomain,
			Environment: hostname.DefaultEnvironment,
			Template:    hostname.DefaultTemplate,
		},
		Isolation: IsolationConfig{
			MaxConcurrency: isolation.DefaultMaxConcurrency,
		},
		Cache: CacheConfig{
			TTL: DefaultCacheTTL,
		},
		Events: EventsConfig{
			Subject: events.DefaultSubject,
		},
	}
}
