package dependency

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tether/internal/api"
	"tether/internal/events"
	"tether/internal/graph"
	"tether/pkg/logging"
)

// DefaultTimeout bounds each store call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// Service is the dependency graph API used by the resolver, the isolation
// engine and read paths.
type Service struct {
	store     graph.Store
	timeout   time.Duration
	publisher events.Publisher
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout sets the per store call timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithPublisher sets the destination for graph change events.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// New returns a Service over store.
func New(store graph.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		timeout:   DefaultTimeout,
		publisher: events.NopPublisher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOptions selects the shape of a dependency read.
type GetOptions struct {
	// Recurse returns the transitive closure instead of direct dependencies.
	Recurse bool

	// Flatten returns the closure as a deduplicated list. Only meaningful
	// together with Recurse.
	Flatten bool
}

// call runs fn under the request timeout.
func (s *Service) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if err := s.publisher.Publish(ctx, evt); err != nil {
		logging.Warn("DependencyService", "Failed to publish %s event for %s: %v", evt.Type, evt.From, err)
	}
}

// UpsertNode creates or refreshes the graph node of inst. Edges are untouched.
func (s *Service) UpsertNode(ctx context.Context, inst *api.Instance) error {
	if inst == nil || inst.ID == "" {
		return fmt.Errorf("instance id is required")
	}
	err := s.call(ctx, func(ctx context.Context) error {
		return s.store.UpsertNode(ctx, inst.Node())
	})
	if err != nil {
		return fmt.Errorf("failed to upsert node %s: %w", inst.ID, err)
	}
	s.publish(ctx, events.NodeUpserted(inst.ID, inst.ElasticHostname))
	return nil
}

// Node returns the graph node with id or a *api.NotFoundError.
func (s *Service) Node(ctx context.Context, id string) (*api.Node, error) {
	var node *api.Node
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		node, err = s.store.GetNode(ctx, id)
		return err
	})
	return node, err
}

// NodeIDs lists every node in the graph, sorted by id.
func (s *Service) NodeIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		ids, err = s.store.NodeIDs(ctx)
		return err
	})
	return ids, err
}

// AddEdge creates or replaces the edge from -> to. It fails with a
// *api.NotFoundError if either node is missing.
func (s *Service) AddEdge(ctx context.Context, from, to, hostname string) error {
	err := s.call(ctx, func(ctx context.Context) error {
		return s.store.PutEdge(ctx, from, to, hostname)
	})
	if err != nil {
		return fmt.Errorf("failed to add edge %s -> %s: %w", from, to, err)
	}
	logging.Debug("DependencyService", "Added edge %s -> %s (%s)", from, to, hostname)
	s.publish(ctx, events.EdgeAdded(from, to, hostname))
	return nil
}

// RemoveEdge deletes the edge from -> to. A missing edge is not an error.
func (s *Service) RemoveEdge(ctx context.Context, from, to string) error {
	err := s.call(ctx, func(ctx context.Context) error {
		return s.store.DeleteEdge(ctx, from, to)
	})
	if err != nil {
		return fmt.Errorf("failed to remove edge %s -> %s: %w", from, to, err)
	}
	logging.Debug("DependencyService", "Removed edge %s -> %s", from, to)
	s.publish(ctx, events.EdgeRemoved(from, to))
	return nil
}

// GetDependents returns the nodes that directly depend on id, ordered by
// lower-cased name then id. Each entry's Hostname is the hostname the
// dependent used for id.
func (s *Service) GetDependents(ctx context.Context, id string) ([]*api.Dependency, error) {
	if _, err := s.Node(ctx, id); err != nil {
		return nil, err
	}

	var edges []api.Edge
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		edges, err = s.store.InEdges(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read dependents of %s: %w", id, err)
	}

	out := make([]*api.Dependency, 0, len(edges))
	for _, e := range edges {
		dep, err := s.snapshot(ctx, e.From, e.Hostname)
		if err != nil {
			return nil, err
		}
		if dep != nil {
			out = append(out, dep)
		}
	}
	sortDependencies(out)
	return out, nil
}

// RemoveAllEdgesForNode removes every edge into and out of id. The node
// itself is kept.
func (s *Service) RemoveAllEdgesForNode(ctx context.Context, id string) error {
	touching := s.touchingEdges(ctx, id)
	err := s.call(ctx, func(ctx context.Context) error {
		return s.store.DeleteEdgesForNode(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to remove edges of %s: %w", id, err)
	}
	for _, e := range touching {
		s.publish(ctx, events.EdgeRemoved(e.From, e.To))
	}
	return nil
}

// DeleteNode removes the node of a destroyed instance together with every
// edge touching it.
func (s *Service) DeleteNode(ctx context.Context, id string) error {
	touching := s.touchingEdges(ctx, id)
	err := s.call(ctx, func(ctx context.Context) error {
		return s.store.DeleteNode(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete node %s: %w", id, err)
	}
	logging.Info("DependencyService", "Deleted node %s and %d edges", id, len(touching))
	for _, e := range touching {
		s.publish(ctx, events.EdgeRemoved(e.From, e.To))
	}
	s.publish(ctx, events.NodeDeleted(id))
	return nil
}

// touchingEdges lists the edges of id for event publishing. Read errors only
// cost the events, so they are logged.
func (s *Service) touchingEdges(ctx context.Context, id string) []api.Edge {
	var out, in []api.Edge
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		if out, err = s.store.OutEdges(ctx, id); err != nil {
			return err
		}
		in, err = s.store.InEdges(ctx, id)
		return err
	})
	if err != nil {
		logging.Debug("DependencyService", "Could not list edges of %s before removal: %v", id, err)
		return nil
	}
	edges := append(out, in...)
	// A self edge shows up in both directions.
	seen := make(map[api.Edge]bool, len(edges))
	uniq := edges[:0]
	for _, e := range edges {
		k := api.Edge{From: e.From, To: e.To}
		if seen[k] {
			continue
		}
		seen[k] = true
		uniq = append(uniq, e)
	}
	return uniq
}

// snapshot builds the dependency view of node id. It returns nil when the node
// disappeared between the edge read and the node read.
func (s *Service) snapshot(ctx context.Context, id, hostname string) (*api.Dependency, error) {
	node, err := s.Node(ctx, id)
	if api.IsNotFound(err) {
		logging.Debug("DependencyService", "Skipping edge to vanished node %s", id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read node %s: %w", id, err)
	}
	return api.NewDependency(node, hostname), nil
}

func sortDependencies(deps []*api.Dependency) {
	sort.Slice(deps, func(i, j int) bool {
		if deps[i].LowerName != deps[j].LowerName {
			return deps[i].LowerName < deps[j].LowerName
		}
		return deps[i].ID < deps[j].ID
	})
}
