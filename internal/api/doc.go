// Package api holds the types shared by the tether graph packages: instance
// records as seen by the dependency engine, graph nodes and edges, the
// denormalized Dependency view returned by reads, the isolation naming
// convention, and the error taxonomy.
//
// # Errors
//
//   - NotFoundError: an instance id has no graph node or directory record.
//   - ConflictError: a precondition checked before rewiring, never raised by the engine.
//   - StoreUnavailableError: the graph store transport failed or timed out.
//
// All error types support errors.As through the IsX helpers.
package api
