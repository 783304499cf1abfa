// Package dependency maintains the directed "depends-on" graph between
// instances.
//
// An edge A -> B means instance A depends on instance B. Every edge carries the
// hostname A used to reach B when the edge was last written; it is the only
// record of that as-of-resolution hostname and is never recomputed on read.
//
// # Reads
//
// GetDependencies returns direct dependencies by default. With Recurse set it
// walks the transitive closure once, tracking visited node ids, and presents
// the result either as a nested tree or, with Flatten also set, as a list in
// which every reached node appears exactly once with its direct dependencies
// attached:
//
//	deps, err := svc.GetDependencies(ctx, id, dependency.GetOptions{Recurse: true, Flatten: true})
//
// Both presentations come from the same traversal, so they always agree on
// reachability. Cycles are tolerated: the walk never re-enters a visited node
// and never descends back into the node the read started from.
//
// # Writes
//
// Every mutation is a single atomic store operation bounded by the service's
// request timeout. Successful mutations are published as events; publish
// failures are logged and otherwise ignored.
package dependency
