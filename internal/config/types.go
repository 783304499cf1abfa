package config

import "time"

// TetherConfig is the top-level configuration structure for tether.
type TetherConfig struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Graph     GraphConfig     `yaml:"graph"`
	Directory DirectoryConfig `yaml:"directory"`
	Hostname  HostnameConfig  `yaml:"hostname"`
	Isolation IsolationConfig `yaml:"isolation"`
	Cache     CacheConfig     `yaml:"cache"`
	Events    EventsConfig    `yaml:"events"`
}

// LoggingConfig selects log verbosity and output format.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn or error
	Format string `yaml:"format,omitempty"` // text or json
}

const (
	GraphDriverMemory = "memory"
	GraphDriverBadger = "badger"

	DirectoryDriverYAML     = "yaml"
	DirectoryDriverPostgres = "postgres"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

// GraphConfig configures the graph store.
type GraphConfig struct {
	Driver         string        `yaml:"driver,omitempty"`
	Path           string        `yaml:"path,omitempty"`           // badger data directory
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"` // bound on every store call
	SyncWrites     bool          `yaml:"syncWrites"`
}

// DirectoryConfig configures where instance records are read from.
type DirectoryConfig struct {
	Driver string `yaml:"driver,omitempty"`
	Path   string `yaml:"path,omitempty"` // topology file, relative to the config directory
	DSN    string `yaml:"dsn,omitempty"`  // postgres connection string
}

// HostnameConfig shapes elastic hostnames.
type HostnameConfig struct {
	Domain      string `yaml:"domain,omitempty"`
	Environment string `yaml:"environment,omitempty"`
	Template    string `yaml:"template,omitempty"`
}

// IsolationConfig tunes the rewire engine.
type IsolationConfig struct {
	MaxConcurrency int `yaml:"maxConcurrency,omitempty"`
}

// CacheConfig enables the redis hostname cache when RedisAddr is set.
type CacheConfig struct {
	RedisAddr string        `yaml:"redisAddr,omitempty"`
	TTL       time.Duration `yaml:"ttl,omitempty"`
}

// EventsConfig enables NATS change events when NATSURL is set.
type EventsConfig struct {
	NATSURL string `yaml:"natsURL,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}
