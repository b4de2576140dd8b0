package catalog

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultTTL bounds how stale a browse read may be.
	DefaultTTL = 60 * time.Second

	// SearchLimit caps a single search response.
	SearchLimit = 20
)

// Snapshot is an immutable point-in-time copy of the catalog. It is replaced
// wholesale on refresh and never mutated, so readers need no locking.
type Snapshot struct {
	Products []Product
	Taken    time.Time
}

// Cache serves browse traffic from a TTL-bounded snapshot of the store.
// It is advisory only: reservation decisions always go to the live store.
type Cache struct {
	store Store
	ttl   time.Duration
	now   func() time.Time

	mu   sync.Mutex
	snap *Snapshot
}

func NewCache(store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, now: time.Now}
}

// Snapshot returns the current snapshot, refreshing from the store when the
// held one is stale or was invalidated.
func (c *Cache) Snapshot(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap != nil && c.now().Sub(c.snap.Taken) < c.ttl {
		return c.snap, nil
	}

	products, err := c.store.List(ctx)
	if err != nil {
		return nil, err
	}

	c.snap = &Snapshot{Products: products, Taken: c.now()}
	return c.snap, nil
}

// Invalidate forces the next Snapshot call to refresh.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = nil
}

// Search matches the query as a case-insensitive substring of product names,
// partitioned by the controlled flag and capped at SearchLimit entries.
func (c *Cache) Search(ctx context.Context, query string, controlledOnly bool) ([]Product, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Product, 0, SearchLimit)

	for _, p := range snap.Products {
		if p.Controlled != controlledOnly {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
			continue
		}
		out = append(out, p)
		if len(out) == SearchLimit {
			break
		}
	}
	return out, nil
}
