// Package config loads tether's configuration.
//
// Configuration is read from config.yaml inside a single directory. The
// default directory is ~/.config/tether; commands accept --config-path to
// point elsewhere. A missing config.yaml is not an error: defaults apply.
//
// After the file is decoded, an optional .env file in the same directory is
// loaded into the process environment (existing variables win) and the
// following variables override file values:
//
//	TETHER_LOG_LEVEL        logging.level
//	TETHER_GRAPH_DRIVER     graph.driver
//	TETHER_GRAPH_PATH       graph.path
//	TETHER_DIRECTORY_DSN    directory.dsn
//	TETHER_REDIS_ADDR       cache.redisAddr
//	TETHER_NATS_URL         events.natsURL
//	TETHER_HOSTNAME_DOMAIN  hostname.domain
//
// A minimal config.yaml:
//
//	graph:
//	  driver: badger
//	  path: /var/lib/tether/graph
//	directory:
//	  driver: yaml
//	  path: topology.yaml
//	hostname:
//	  domain: runnableapp.com
//	  environment: staging
//
// Validate reports every problem at once as ValidationErrors.
package config
