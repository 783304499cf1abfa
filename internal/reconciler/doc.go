// Package reconciler keeps the dependency graph in line with a changing set
// of instances.
//
// A Reconciler takes the desired instance set, upserts every node, deletes
// the nodes of instances that disappeared since the previous pass and
// re-resolves every environment. A Watcher uses fsnotify to trigger a pass
// whenever the topology file changes.
//
// Example usage:
//
//	rec := reconciler.New(svc.Deps, svc.Resolver)
//	w, err := reconciler.NewWatcher(path, reconciler.DefaultDebounce)
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//	return w.Run(ctx, func(ctx context.Context) {
//	    instances, err := instance.ReadTopology(path, gen)
//	    ...
//	    _, _ = rec.Reconcile(ctx, instances)
//	})
package reconciler
