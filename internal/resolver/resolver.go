// Package resolver derives an instance's dependency edges from the hostnames
// referenced in its environment variables.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"tether/internal/api"
	"tether/internal/cache"
	"tether/internal/dependency"
	"tether/internal/hostname"
	"tether/internal/instance"
	"tether/internal/telemetry"
	"tether/pkg/logging"
)

// Resolver reconciles an instance's outgoing edges with its environment.
type Resolver struct {
	deps     *dependency.Service
	dir      instance.Directory
	patterns *hostname.Generator
	cache    cache.HostnameCache
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache enables a hostname cache for canonical lookups.
func WithCache(c cache.HostnameCache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

// New returns a Resolver.
func New(deps *dependency.Service, dir instance.Directory, patterns *hostname.Generator, opts ...Option) *Resolver {
	r := &Resolver{deps: deps, dir: dir, patterns: patterns}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Result lists the dependency ids touched by one reconciliation.
type Result struct {
	Added     []string
	Removed   []string
	Unchanged []string
}

// target is a resolved dependency and the hostname that referenced it.
type target struct {
	id       string
	hostname string
}

// SetDependenciesFromEnvironment makes inst's outgoing edges match the
// instances referenced by hostnames in its environment.
//
// Hostnames that do not resolve to a live instance are ignored. Edges that
// stay referenced keep their stored hostname. Calling it again with the same
// environment and topology changes nothing.
func (r *Resolver) SetDependenciesFromEnvironment(ctx context.Context, inst *api.Instance, ownerUsername string) (Result, error) {
	var res Result
	if ownerUsername == "" {
		ownerUsername = inst.Owner.Username
	}

	ctx, span := telemetry.StartSpan(ctx, "resolver.SetDependenciesFromEnvironment",
		attribute.String("instance.id", inst.ID),
		attribute.Bool("instance.isolated", inst.IsIsolated()),
	)
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	hosts := r.scan(inst.Env, ownerUsername)

	var targets []target
	targets, err = r.resolveAll(ctx, inst, hosts)
	if err != nil {
		return res, err
	}

	var current []*api.Dependency
	current, err = r.deps.GetDependencies(ctx, inst.ID, dependency.GetOptions{})
	if err != nil {
		return res, fmt.Errorf("failed to read dependencies of %s: %w", inst.ID, err)
	}

	existing := make(map[string]bool, len(current))
	for _, d := range current {
		existing[d.ID] = true
	}
	wanted := make(map[string]bool, len(targets))

	for _, t := range targets {
		wanted[t.id] = true
		if existing[t.id] {
			res.Unchanged = append(res.Unchanged, t.id)
			continue
		}
		if addErr := r.deps.AddEdge(ctx, inst.ID, t.id, t.hostname); addErr != nil {
			if api.IsNotFound(addErr) {
				// The directory knows the target but the graph does not.
				logging.Warn("EnvResolver", "Skipping %s for %s: %v", t.hostname, inst.ID, addErr)
				wanted[t.id] = false
				continue
			}
			err = addErr
			return res, err
		}
		res.Added = append(res.Added, t.id)
	}

	for _, d := range current {
		if wanted[d.ID] {
			continue
		}
		if err = r.deps.RemoveEdge(ctx, inst.ID, d.ID); err != nil {
			return res, err
		}
		res.Removed = append(res.Removed, d.ID)
	}

	if len(res.Added) > 0 || len(res.Removed) > 0 {
		logging.Info("EnvResolver", "Instance %s: %d dependencies added, %d removed, %d unchanged",
			inst.ID, len(res.Added), len(res.Removed), len(res.Unchanged))
	}
	return res, nil
}

// scan returns the distinct hostnames referenced by KEY=VALUE entries, in
// first-seen order.
func (r *Resolver) scan(env []string, ownerUsername string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, entry := range env {
		_, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		for _, h := range r.patterns.FindAll(value, ownerUsername) {
			if !seen[h] {
				seen[h] = true
				out = append(out, h)
			}
		}
	}
	return out
}

func (r *Resolver) resolveAll(ctx context.Context, inst *api.Instance, hosts []string) ([]target, error) {
	if len(hosts) == 0 {
		return nil, nil
	}

	var group []*api.Instance
	if inst.IsIsolated() {
		var err error
		group, err = r.dir.FindByIsolation(ctx, inst.IsolatedID)
		if err != nil {
			return nil, fmt.Errorf("failed to list isolation group %s: %w", inst.IsolatedID, err)
		}
	}

	seen := make(map[string]bool)
	var out []target
	for _, h := range hosts {
		id, outcome, err := r.resolve(ctx, inst, group, h)
		if err != nil {
			return nil, err
		}
		telemetry.RecordResolve(ctx, outcome)
		if id == "" {
			logging.Debug("EnvResolver", "Hostname %s referenced by %s does not resolve", h, inst.ID)
			continue
		}
		if id == inst.ID || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, target{id: id, hostname: h})
	}
	return out, nil
}

// Resolution outcomes, one per scanned hostname.
const (
	outcomeResolved   = "resolved"
	outcomeUnresolved = "unresolved"
	outcomeCacheHit   = "cache_hit"
)

// resolve maps a hostname to an instance id and its outcome. Group-mates of an
// isolated instance win over canonical instances. The id is "" when nothing
// matches.
func (r *Resolver) resolve(ctx context.Context, inst *api.Instance, group []*api.Instance, host string) (string, string, error) {
	for _, m := range group {
		if m.ID != inst.ID && strings.EqualFold(m.ElasticHostname, host) {
			return m.ID, outcomeResolved, nil
		}
	}
	return r.canonical(ctx, host)
}

// canonical returns the lowest id among non-isolated instances answering to
// host.
func (r *Resolver) canonical(ctx context.Context, host string) (string, string, error) {
	if r.cache != nil {
		if ids, ok := r.cache.Get(ctx, host); ok {
			for _, id := range ids {
				if r.verify(ctx, id, host) {
					return id, outcomeCacheHit, nil
				}
			}
			logging.Debug("HostnameCache", "Stale entry for %s", host)
		}
	}

	found, err := r.dir.FindByElasticHostname(ctx, host)
	if err != nil {
		return "", "", fmt.Errorf("failed to look up hostname %s: %w", host, err)
	}

	var ids []string
	best := ""
	for _, inst := range found {
		if inst.IsIsolated() {
			continue
		}
		ids = append(ids, inst.ID)
		if best == "" || inst.ID < best {
			best = inst.ID
		}
	}

	if r.cache != nil {
		var cacheErr error
		if len(ids) == 0 {
			cacheErr = r.cache.Invalidate(ctx, host)
		} else {
			cacheErr = r.cache.Set(ctx, host, ids)
		}
		if cacheErr != nil {
			logging.Warn("HostnameCache", "Failed to update entry for %s: %v", host, cacheErr)
		}
	}
	if best == "" {
		return "", outcomeUnresolved, nil
	}
	return best, outcomeResolved, nil
}

// verify re-checks a cached id against the directory.
func (r *Resolver) verify(ctx context.Context, id, host string) bool {
	inst, err := r.dir.FindByID(ctx, id)
	if err != nil {
		return false
	}
	return !inst.IsIsolated() && strings.EqualFold(inst.ElasticHostname, host)
}
