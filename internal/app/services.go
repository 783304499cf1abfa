package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"tether/internal/cache"
	"tether/internal/config"
	"tether/internal/dependency"
	"tether/internal/events"
	"tether/internal/graph"
	"tether/internal/hostname"
	"tether/internal/instance"
	"tether/internal/isolation"
	"tether/internal/resolver"
	"tether/pkg/logging"
)

// Services holds all initialized components used by the commands.
type Services struct {
	Store     graph.Store
	Directory instance.Directory
	Hostnames *hostname.Generator
	Publisher events.Publisher

	Deps      *dependency.Service
	Resolver  *resolver.Resolver
	Isolation *isolation.Engine

	closers []func() error
}

// InitializeServices opens the configured backends and builds the engine.
// On error everything opened so far is closed again.
func InitializeServices(ctx context.Context, tc config.TetherConfig) (s *Services, err error) {
	s = &Services{}
	defer func() {
		if err != nil {
			_ = s.Close()
			s = nil
		}
	}()

	s.Hostnames, err = hostname.NewGenerator(hostname.Config{
		Template:    tc.Hostname.Template,
		Domain:      tc.Hostname.Domain,
		Environment: tc.Hostname.Environment,
	})
	if err != nil {
		return nil, err
	}

	if s.Store, err = openStore(tc.Graph); err != nil {
		return nil, err
	}
	s.closers = append(s.closers, s.Store.Close)

	if s.Directory, err = s.openDirectory(ctx, tc.Directory); err != nil {
		return nil, err
	}

	s.Publisher = events.NopPublisher{}
	if tc.Events.NATSURL != "" {
		pub, err := events.NewNATSPublisher(tc.Events.NATSURL, tc.Events.Subject)
		if err != nil {
			return nil, err
		}
		s.Publisher = pub
		s.closers = append(s.closers, pub.Close)
		logging.Info("Bootstrap", "Publishing graph events to %s", tc.Events.NATSURL)
	}

	s.Deps = dependency.New(s.Store,
		dependency.WithTimeout(tc.Graph.RequestTimeout),
		dependency.WithPublisher(s.Publisher),
	)

	var resolverOpts []resolver.Option
	if tc.Cache.RedisAddr != "" {
		rc := cache.NewRedisHostnameCache(tc.Cache.RedisAddr, tc.Cache.TTL)
		s.closers = append(s.closers, rc.Close)
		if pingErr := rc.Ping(ctx); pingErr != nil {
			logging.Warn("Bootstrap", "Redis at %s unreachable, using in-process hostname cache: %v", tc.Cache.RedisAddr, pingErr)
			resolverOpts = append(resolverOpts, resolver.WithCache(cache.NewMemoryHostnameCache(tc.Cache.TTL)))
		} else {
			resolverOpts = append(resolverOpts, resolver.WithCache(rc))
			logging.Info("Bootstrap", "Hostname cache enabled at %s", tc.Cache.RedisAddr)
		}
	}
	s.Resolver = resolver.New(s.Deps, s.Directory, s.Hostnames, resolverOpts...)

	s.Isolation = isolation.New(s.Deps, s.Directory,
		isolation.WithMaxConcurrency(tc.Isolation.MaxConcurrency),
	)
	return s, nil
}

func openStore(gc config.GraphConfig) (graph.Store, error) {
	switch gc.Driver {
	case config.GraphDriverMemory:
		logging.Info("Bootstrap", "Using in-memory graph store")
		return graph.NewMemoryStore(), nil
	case config.GraphDriverBadger:
		bc := graph.DefaultBadgerConfig(gc.Path)
		bc.SyncWrites = gc.SyncWrites
		bc.Logger = logging.Logger()
		store, err := graph.OpenBadger(bc)
		if err != nil {
			return nil, fmt.Errorf("failed to open graph store: %w", err)
		}
		logging.Info("Bootstrap", "Opened badger graph store at %s", gc.Path)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown graph driver %q", gc.Driver)
	}
}

func (s *Services) openDirectory(ctx context.Context, dc config.DirectoryConfig) (instance.Directory, error) {
	switch dc.Driver {
	case config.DirectoryDriverYAML:
		dir, err := instance.LoadTopology(dc.Path, s.Hostnames)
		if errors.Is(err, os.ErrNotExist) {
			logging.Warn("Bootstrap", "No topology at %s, starting with an empty directory", dc.Path)
			return instance.NewMemoryDirectory(), nil
		}
		return dir, err
	case config.DirectoryDriverPostgres:
		db, err := instance.OpenPostgres(dc.DSN)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.WithContext(ctx).DB()
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, sqlDB.Close)
		logging.Info("Bootstrap", "Reading instances from postgres")
		return instance.NewGormDirectory(db), nil
	default:
		return nil, fmt.Errorf("unknown directory driver %q", dc.Driver)
	}
}

// Close releases every opened backend in reverse order.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
