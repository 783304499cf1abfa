package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"tether/internal/api"
	"tether/internal/dependency"
	"tether/internal/resolver"
	"tether/pkg/logging"
)

// Reconciler applies successive instance sets to the graph.
type Reconciler struct {
	deps     *dependency.Service
	resolver *resolver.Resolver

	mu     sync.Mutex
	known  map[string]bool
	seeded bool
}

// Report summarizes one Reconcile pass.
type Report struct {
	Upserted int
	Deleted  []string
	Added    int
	Removed  int
	Failed   []string
}

// New returns a Reconciler. Its first pass treats every node already in the
// graph as known, so nodes left by an earlier process whose instances are no
// longer listed get deleted.
func New(deps *dependency.Service, res *resolver.Resolver) *Reconciler {
	return &Reconciler{
		deps:     deps,
		resolver: res,
		known:    make(map[string]bool),
	}
}

// Reconcile makes the graph reflect instances. The resolver's directory must
// already return the same set.
//
// Node upserts and deletions abort the pass. Resolution failures are per
// instance: the remaining instances are still resolved and the failures are
// returned joined.
func (r *Reconciler) Reconcile(ctx context.Context, instances []*api.Instance) (Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	var report Report

	if !r.seeded {
		ids, err := r.deps.NodeIDs(ctx)
		if err != nil {
			return report, fmt.Errorf("failed to list graph nodes: %w", err)
		}
		for _, id := range ids {
			r.known[id] = true
		}
		r.seeded = true
	}

	next := make(map[string]bool, len(instances))
	for _, inst := range instances {
		if err := r.deps.UpsertNode(ctx, inst); err != nil {
			return report, fmt.Errorf("failed to upsert %s: %w", inst.ID, err)
		}
		next[inst.ID] = true
		report.Upserted++
	}

	for _, id := range r.gone(next) {
		if err := r.deps.DeleteNode(ctx, id); err != nil {
			return report, fmt.Errorf("failed to delete %s: %w", id, err)
		}
		delete(r.known, id)
		report.Deleted = append(report.Deleted, id)
	}

	var errs []error
	for _, inst := range instances {
		res, err := r.resolver.SetDependenciesFromEnvironment(ctx, inst, "")
		if err != nil {
			logging.Error("Reconciler", err, "Failed to resolve environment of %s", inst.ID)
			report.Failed = append(report.Failed, inst.ID)
			errs = append(errs, fmt.Errorf("%s: %w", inst.ID, err))
			continue
		}
		report.Added += len(res.Added)
		report.Removed += len(res.Removed)
	}
	r.known = next

	logging.Info("Reconciler", "Reconciled %d instances in %s: %d edges added, %d removed, %d nodes deleted",
		report.Upserted, time.Since(start).Round(time.Millisecond), report.Added, report.Removed, len(report.Deleted))
	return report, errors.Join(errs...)
}

// gone lists known ids missing from next, sorted.
func (r *Reconciler) gone(next map[string]bool) []string {
	var out []string
	for id := range r.known {
		if !next[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
