// Package logging provides subsystem-tagged structured logging for tether.
//
// The package wraps Go's log/slog. Every record carries a "subsystem"
// attribute naming the component that emitted it (GraphStore,
// DependencyService, EnvResolver, IsolationEngine, ...), and error records
// carry the error text under "error".
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Bootstrap", "Opened graph store at %s", path)
//	logging.Debug("EnvResolver", "Resolved %d hostnames for %s", n, id)
//	logging.Error("IsolationEngine", err, "Rewire failed for member %s", id)
//
// Until one of the Init functions runs, all logging calls are discarded, which
// keeps package tests quiet.
package logging
