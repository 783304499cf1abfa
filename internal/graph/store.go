package graph

import (
	"context"

	"tether/internal/api"
)

// Store is the persistent directed-graph substrate: one node per instance and
// one hostname-labelled edge per dependency.
//
// Every mutating call is an independent atomic operation. Implementations must
// never leave an edge whose source or target node is missing.
type Store interface {
	// UpsertNode creates the node or replaces its cached attributes. Edges are untouched.
	UpsertNode(ctx context.Context, node api.Node) error

	// GetNode returns the node or a *api.NotFoundError.
	GetNode(ctx context.Context, id string) (*api.Node, error)

	// NodeIDs returns the ids of every node, sorted.
	NodeIDs(ctx context.Context) ([]string, error)

	// DeleteNode removes the node together with every edge touching it.
	// Deleting a missing node is a no-op.
	DeleteNode(ctx context.Context, id string) error

	// PutEdge creates or replaces the edge from -> to. It returns a
	// *api.NotFoundError if either node is absent.
	PutEdge(ctx context.Context, from, to, hostname string) error

	// DeleteEdge removes the edge from -> to. Missing edges are not an error.
	DeleteEdge(ctx context.Context, from, to string) error

	// OutEdges returns the edges leaving id, sorted by target id.
	OutEdges(ctx context.Context, id string) ([]api.Edge, error)

	// InEdges returns the edges entering id, sorted by source id.
	InEdges(ctx context.Context, id string) ([]api.Edge, error)

	// DeleteEdgesForNode removes all incoming and outgoing edges of id,
	// keeping the node itself.
	DeleteEdgesForNode(ctx context.Context, id string) error

	// Close releases the store's resources.
	Close() error
}

// checkContext maps a cancelled or expired context to a StoreUnavailableError.
func checkContext(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return api.NewStoreUnavailableError(op, err)
	}
	return nil
}
