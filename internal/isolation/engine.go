package isolation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"tether/internal/api"
	"tether/internal/dependency"
	"tether/internal/instance"
	"tether/internal/telemetry"
	"tether/pkg/logging"
)

// DefaultMaxConcurrency bounds concurrent member rewrites.
const DefaultMaxConcurrency = 8

// Engine rewires isolation groups.
type Engine struct {
	deps           *dependency.Service
	dir            instance.Directory
	maxConcurrency int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxConcurrency bounds the number of members rewritten at once.
// Non-positive values are ignored.
func WithMaxConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxConcurrency = n
		}
	}
}

// New returns an Engine.
func New(deps *dependency.Service, dir instance.Directory, opts ...Option) *Engine {
	e := &Engine{deps: deps, dir: dir, maxConcurrency: DefaultMaxConcurrency}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UpdateDependenciesForIsolation rewires every member of the group formed by
// master and children. It is called once, after the forked instance records
// have been persisted.
//
// Edges between members are redirected, never created from nothing. The one
// exception to preserving relationships: a member edge pointing at a fork of a
// different isolation group is redirected to that fork's canonical instance,
// and removed when no canonical instance exists, because a group must never
// depend on another group's forks.
//
// It returns a *api.NotFoundError if master has no graph node and a
// *RewireError naming each member whose rewrite failed.
func (e *Engine) UpdateDependenciesForIsolation(ctx context.Context, master *api.Instance, children []*api.Instance) error {
	if master == nil {
		return fmt.Errorf("isolation master is required")
	}
	if _, err := e.deps.Node(ctx, master.ID); err != nil {
		return err
	}

	group := groupOf(master, children)

	ctx, span := telemetry.StartSpan(ctx, "isolation.UpdateDependenciesForIsolation",
		attribute.String("isolation.master", master.ID),
		attribute.Int("isolation.members", len(group)),
	)
	start := time.Now()

	var (
		mu       sync.Mutex
		failures []MemberFailure
	)
	g := new(errgroup.Group)
	g.SetLimit(min(len(group), e.maxConcurrency))
	for _, m := range group {
		g.Go(func() error {
			if err := e.RewriteMember(ctx, m, group); err != nil {
				logging.Error("IsolationEngine", err, "Failed to rewire member %s of group %s", m.ID, master.ID)
				mu.Lock()
				failures = append(failures, MemberFailure{InstanceID: m.ID, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	var err error
	if len(failures) > 0 {
		sort.Slice(failures, func(i, j int) bool { return failures[i].InstanceID < failures[j].InstanceID })
		err = &RewireError{MasterID: master.ID, Failures: failures}
	}
	telemetry.RecordRewire(ctx, time.Since(start), len(group), err == nil)
	telemetry.EndSpan(span, err)

	if err == nil {
		logging.Info("IsolationEngine", "Rewired isolation group %s (%d members)", master.ID, len(group))
	}
	return err
}

// RewriteMember redirects inst's own edges towards group members. It can be
// used to retry a single member listed in a RewireError.
func (e *Engine) RewriteMember(ctx context.Context, inst *api.Instance, group []*api.Instance) error {
	ctx, span := telemetry.StartSpan(ctx, "isolation.RewriteMember",
		attribute.String("instance.id", inst.ID),
	)
	err := e.updateDependenciesForInstanceWithChildren(ctx, inst, group)
	telemetry.EndSpan(span, err)
	return err
}

func (e *Engine) updateDependenciesForInstanceWithChildren(ctx context.Context, inst *api.Instance, group []*api.Instance) error {
	current, err := e.deps.GetDependencies(ctx, inst.ID, dependency.GetOptions{})
	if err != nil {
		return fmt.Errorf("failed to read dependencies of %s: %w", inst.ID, err)
	}

	byLogical := make(map[string]*api.Instance, len(group))
	groupIDs := make(map[string]bool)
	for _, m := range group {
		if m.IsolatedID != "" {
			groupIDs[m.IsolatedID] = true
		}
		if m.ID == inst.ID {
			continue
		}
		name := m.LogicalName()
		if prev, ok := byLogical[name]; ok {
			logging.Warn("IsolationEngine", "Members %s and %s share logical name %s, using %s", prev.ID, m.ID, name, prev.ID)
			continue
		}
		byLogical[name] = m
	}

	for _, d := range current {
		if d.ID == inst.ID {
			continue
		}
		logical := d.LogicalName()

		if match, ok := byLogical[logical]; ok {
			if match.ID == d.ID {
				continue
			}
			if err := e.redirect(ctx, inst.ID, d.ID, match.ID, match.ElasticHostname); err != nil {
				return err
			}
			telemetry.RecordRewireEdge(ctx, "redirected")
			logging.Debug("IsolationEngine", "Redirected %s: %s -> %s", inst.ID, d.ID, match.ID)
			continue
		}

		if d.IsolatedID == "" || groupIDs[d.IsolatedID] {
			continue
		}

		// d is a fork from another isolation group.
		canon, err := e.dir.FindByLowerNameAndOwner(ctx, logical, d.Owner.ID)
		if err != nil && !api.IsNotFound(err) {
			return fmt.Errorf("failed to look up canonical %s: %w", logical, err)
		}
		if err == nil && !canon.IsIsolated() && canon.ID != inst.ID {
			if err := e.redirect(ctx, inst.ID, d.ID, canon.ID, canon.ElasticHostname); err != nil {
				return err
			}
			telemetry.RecordRewireEdge(ctx, "canonicalized")
			logging.Warn("IsolationEngine", "Instance %s referenced %s from isolation group %s, pointed it at canonical %s",
				inst.ID, d.ID, d.IsolatedID, canon.ID)
			continue
		}

		if err := e.deps.RemoveEdge(ctx, inst.ID, d.ID); err != nil {
			return err
		}
		telemetry.RecordRewireEdge(ctx, "dropped")
		logging.Warn("IsolationEngine", "Instance %s referenced %s from isolation group %s with no canonical counterpart, edge removed",
			inst.ID, d.ID, d.IsolatedID)
	}
	return nil
}

// redirect adds from -> to before removing from -> old so that a failed add
// leaves the original edge in place.
func (e *Engine) redirect(ctx context.Context, from, old, to, hostname string) error {
	if err := e.deps.AddEdge(ctx, from, to, hostname); err != nil {
		return err
	}
	return e.deps.RemoveEdge(ctx, from, old)
}

// groupOf returns master followed by children, without nils or duplicate ids.
func groupOf(master *api.Instance, children []*api.Instance) []*api.Instance {
	seen := map[string]bool{master.ID: true}
	group := []*api.Instance{master}
	for _, c := range children {
		if c == nil || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		group = append(group, c)
	}
	return group
}
