package graph

import (
	"context"
	"sort"
	"sync"

	"tether/internal/api"
)

// MemoryStore is an in-process Store. It backs tests and the "memory" graph
// driver; contents are lost on Close.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes map[string]api.Node
	// out[from][to] and in[to][from] hold the same edge hostname.
	out map[string]map[string]string
	in  map[string]map[string]string
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty graph.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nodes: make(map[string]api.Node),
		out:   make(map[string]map[string]string),
		in:    make(map[string]map[string]string),
	}
}

// UpsertNode adds (or replaces) a node in the graph.
func (m *MemoryStore) UpsertNode(ctx context.Context, node api.Node) error {
	if err := checkContext(ctx, "UpsertNode"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[node.ID] = node
	return nil
}

// GetNode returns a copy of the stored node.
func (m *MemoryStore) GetNode(ctx context.Context, id string) (*api.Node, error) {
	if err := checkContext(ctx, "GetNode"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil, api.NewNodeNotFoundError(id)
	}
	return &n, nil
}

// NodeIDs returns every node id in ascending order.
func (m *MemoryStore) NodeIDs(ctx context.Context) ([]string, error) {
	if err := checkContext(ctx, "NodeIDs"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteNode removes the node and its edges.
func (m *MemoryStore) DeleteNode(ctx context.Context, id string) error {
	if err := checkContext(ctx, "DeleteNode"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteEdgesLocked(id)
	delete(m.nodes, id)
	return nil
}

// PutEdge creates or replaces the edge from -> to.
func (m *MemoryStore) PutEdge(ctx context.Context, from, to, hostname string) error {
	if err := checkContext(ctx, "PutEdge"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.nodes[from]; !ok {
		return api.NewNodeNotFoundError(from)
	}
	if _, ok := m.nodes[to]; !ok {
		return api.NewNodeNotFoundError(to)
	}
	if m.out[from] == nil {
		m.out[from] = make(map[string]string)
	}
	if m.in[to] == nil {
		m.in[to] = make(map[string]string)
	}
	m.out[from][to] = hostname
	m.in[to][from] = hostname
	return nil
}

// DeleteEdge removes the edge from -> to if present.
func (m *MemoryStore) DeleteEdge(ctx context.Context, from, to string) error {
	if err := checkContext(ctx, "DeleteEdge"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.out[from], to)
	delete(m.in[to], from)
	return nil
}

// OutEdges returns the edges leaving id.
func (m *MemoryStore) OutEdges(ctx context.Context, id string) ([]api.Edge, error) {
	if err := checkContext(ctx, "OutEdges"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	edges := make([]api.Edge, 0, len(m.out[id]))
	for to, host := range m.out[id] {
		edges = append(edges, api.Edge{From: id, To: to, Hostname: host})
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].To < edges[j].To })
	return edges, nil
}

// InEdges returns the edges entering id.
func (m *MemoryStore) InEdges(ctx context.Context, id string) ([]api.Edge, error) {
	if err := checkContext(ctx, "InEdges"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	edges := make([]api.Edge, 0, len(m.in[id]))
	for from, host := range m.in[id] {
		edges = append(edges, api.Edge{From: from, To: id, Hostname: host})
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].From < edges[j].From })
	return edges, nil
}

// DeleteEdgesForNode removes every edge touching id.
func (m *MemoryStore) DeleteEdgesForNode(ctx context.Context, id string) error {
	if err := checkContext(ctx, "DeleteEdgesForNode"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteEdgesLocked(id)
	return nil
}

// deleteEdgesLocked must be called with m.mu held for writing.
func (m *MemoryStore) deleteEdgesLocked(id string) {
	for to := range m.out[id] {
		delete(m.in[to], id)
	}
	for from := range m.in[id] {
		delete(m.out[from], id)
	}
	delete(m.out, id)
	delete(m.in, id)
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
