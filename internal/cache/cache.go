// Package cache remembers which instances answer to an elastic hostname.
//
// Entries are hints only. Callers must re-check every cached id against the
// instance directory before trusting it.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// HostnameCache maps a lower-cased elastic hostname to instance ids.
type HostnameCache interface {
	Get(ctx context.Context, hostname string) ([]string, bool)
	Set(ctx context.Context, hostname string, ids []string) error
	Invalidate(ctx context.Context, hostname string) error
}

type memoryEntry struct {
	ids     []string
	expires time.Time
}

// MemoryHostnameCache is a process-local HostnameCache.
type MemoryHostnameCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryHostnameCache returns a cache whose entries expire after ttl.
// A non-positive ttl keeps entries until invalidated.
func NewMemoryHostnameCache(ttl time.Duration) *MemoryHostnameCache {
	return &MemoryHostnameCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryHostnameCache) Get(_ context.Context, hostname string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := strings.ToLower(hostname)
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && c.now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return append([]string(nil), e.ids...), true
}

func (c *MemoryHostnameCache) Set(_ context.Context, hostname string, ids []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := memoryEntry{ids: append([]string(nil), ids...)}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.entries[strings.ToLower(hostname)] = e
	return nil
}

func (c *MemoryHostnameCache) Invalidate(_ context.Context, hostname string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, strings.ToLower(hostname))
	return nil
}
