// Package instance provides read access to instance records for the
// dependency engine.
//
// The engine never creates or deletes instances. MemoryDirectory and the
// topology loader exist for the CLI and tests; GormDirectory reads the records
// persisted by the instance lifecycle in postgres.
package instance

import (
	"context"
	"sort"
	"strings"
	"sync"

	"tether/internal/api"
)

// Directory looks up instance records.
type Directory interface {
	// FindByID returns the instance or a *api.NotFoundError.
	FindByID(ctx context.Context, id string) (*api.Instance, error)

	// FindByLowerNameAndOwner returns the instance named lowerName owned by
	// ownerID or a *api.NotFoundError.
	FindByLowerNameAndOwner(ctx context.Context, lowerName, ownerID string) (*api.Instance, error)

	// FindByElasticHostname returns every instance with the given hostname,
	// ordered by id. Originals and their forks share hostnames.
	FindByElasticHostname(ctx context.Context, hostname string) ([]*api.Instance, error)

	// FindByIsolation returns the members of an isolation group, ordered by id.
	FindByIsolation(ctx context.Context, isolationID string) ([]*api.Instance, error)

	// List returns every instance ordered by id.
	List(ctx context.Context) ([]*api.Instance, error)
}

// MemoryDirectory is an in-memory Directory.
type MemoryDirectory struct {
	mu        sync.RWMutex
	instances map[string]*api.Instance
}

// NewMemoryDirectory returns a directory holding copies of instances.
func NewMemoryDirectory(instances ...*api.Instance) *MemoryDirectory {
	d := &MemoryDirectory{instances: make(map[string]*api.Instance)}
	for _, inst := range instances {
		d.Save(inst)
	}
	return d
}

// Save stores a copy of inst, replacing any record with the same id.
func (d *MemoryDirectory) Save(inst *api.Instance) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.instances[inst.ID] = clone(inst)
}

// Replace swaps the whole record set for copies of instances.
func (d *MemoryDirectory) Replace(instances ...*api.Instance) {
	next := make(map[string]*api.Instance, len(instances))
	for _, inst := range instances {
		next[inst.ID] = clone(inst)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.instances = next
}

// Delete removes the record with id.
func (d *MemoryDirectory) Delete(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.instances, id)
}

func (d *MemoryDirectory) FindByID(_ context.Context, id string) (*api.Instance, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	inst, ok := d.instances[id]
	if !ok {
		return nil, api.NewInstanceNotFoundError(id)
	}
	return clone(inst), nil
}

func (d *MemoryDirectory) FindByLowerNameAndOwner(_ context.Context, lowerName, ownerID string) (*api.Instance, error) {
	lowerName = strings.ToLower(lowerName)
	matches := d.filter(func(inst *api.Instance) bool {
		return inst.LowerName == lowerName && inst.Owner.ID == ownerID
	})
	if len(matches) == 0 {
		return nil, api.NewInstanceNotFoundError(lowerName)
	}
	return matches[0], nil
}

func (d *MemoryDirectory) FindByElasticHostname(_ context.Context, hostname string) ([]*api.Instance, error) {
	hostname = strings.ToLower(hostname)
	return d.filter(func(inst *api.Instance) bool {
		return strings.ToLower(inst.ElasticHostname) == hostname
	}), nil
}

func (d *MemoryDirectory) FindByIsolation(_ context.Context, isolationID string) ([]*api.Instance, error) {
	if isolationID == "" {
		return nil, nil
	}
	return d.filter(func(inst *api.Instance) bool {
		return inst.IsolatedID == isolationID
	}), nil
}

func (d *MemoryDirectory) List(_ context.Context) ([]*api.Instance, error) {
	return d.filter(func(*api.Instance) bool { return true }), nil
}

func (d *MemoryDirectory) filter(keep func(*api.Instance) bool) []*api.Instance {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*api.Instance
	for _, inst := range d.instances {
		if keep(inst) {
			out = append(out, clone(inst))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func clone(inst *api.Instance) *api.Instance {
	c := *inst
	if inst.Env != nil {
		c.Env = append([]string(nil), inst.Env...)
	}
	return &c
}
