package dependency

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"tether/internal/api"
	"tether/internal/telemetry"
)

// GetDependencies returns the dependencies of id shaped by opts. It fails with
// a *api.NotFoundError if id has no node.
//
// Direct dependencies are ordered by lower-cased name then id, at every level.
func (s *Service) GetDependencies(ctx context.Context, id string, opts GetOptions) ([]*api.Dependency, error) {
	if _, err := s.Node(ctx, id); err != nil {
		return nil, err
	}
	if !opts.Recurse {
		return s.direct(ctx, id)
	}

	ctx, span := telemetry.StartSpan(ctx, "dependency.GetDependencies",
		attribute.String("instance.id", id),
		attribute.Bool("flatten", opts.Flatten),
	)
	w := &walk{svc: s, root: id, visited: map[string]bool{id: true}}
	tree, _, err := w.descend(ctx, id)
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	telemetry.RecordTraversal(ctx, len(w.flat), opts.Flatten)

	if opts.Flatten {
		return w.flat, nil
	}
	return tree, nil
}

// direct returns the sorted direct dependencies of id without nesting.
func (s *Service) direct(ctx context.Context, id string) ([]*api.Dependency, error) {
	var edges []api.Edge
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		edges, err = s.store.OutEdges(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read dependencies of %s: %w", id, err)
	}

	out := make([]*api.Dependency, 0, len(edges))
	for _, e := range edges {
		dep, err := s.snapshot(ctx, e.To, e.Hostname)
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

// walk is the state of one recursive read. visited is keyed by node id and
// starts with the root, so the root is never descended into again.
type walk struct {
	svc     *Service
	root    string
	visited map[string]bool

	// flat collects every reached node once, in pre-order, each with its raw
	// direct dependencies attached.
	flat []*api.Dependency
}

// descend returns the tree below id and id's raw direct dependencies.
//
// In the tree, edges back to the root are omitted and nodes already visited
// elsewhere appear as leaves.
func (w *walk) descend(ctx context.Context, id string) ([]*api.Dependency, []*api.Dependency, error) {
	children, err := w.svc.direct(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	tree := make([]*api.Dependency, 0, len(children))
	for _, child := range children {
		if child.ID == w.root {
			continue
		}
		node := child.Shallow()
		if !w.visited[child.ID] {
			w.visited[child.ID] = true

			entry := child.Shallow()
			w.flat = append(w.flat, entry)

			sub, raw, err := w.descend(ctx, child.ID)
			if err != nil {
				return nil, nil, err
			}
			node.Dependencies = sub
			entry.Dependencies = shallowAll(raw)
		}
		tree = append(tree, node)
	}
	return tree, children, nil
}

func shallowAll(deps []*api.Dependency) []*api.Dependency {
	out := make([]*api.Dependency, len(deps))
	for i, d := range deps {
		out[i] = d.Shallow()
	}
	return out
}
