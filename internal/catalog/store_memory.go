package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemStore keeps the catalog in process memory. The write lock serializes
// decrements, increments and bulk reloads, which is what makes the
// conditional decrement atomic and fences reloads against in-flight sales.
type MemStore struct {
	mu sync.RWMutex
	m  map[string]Product
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[string]Product{}}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) FindByID(ctx context.Context, id string) (Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.m[id]
	return p, ok, nil
}

func (s *MemStore) FindByNameOrID(ctx context.Context, key string) (Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.m[key]; ok {
		return p, true, nil
	}
	for _, p := range s.m {
		if strings.EqualFold(p.Name, key) {
			return p, true, nil
		}
	}
	return Product{}, false, nil
}

func (s *MemStore) List(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.m))
	for _, p := range s.m {
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) DecrementStock(ctx context.Context, id string, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.m[id]
	if !ok {
		return 0, ErrNotFound
	}
	if p.Stock < qty {
		return 0, &InsufficientStockError{ID: id, Available: p.Stock}
	}

	p.Stock -= qty
	s.m[id] = p
	return p.Stock, nil
}

func (s *MemStore) IncrementStock(ctx context.Context, id string, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.m[id]
	if !ok {
		return 0, ErrNotFound
	}

	p.Stock += qty
	s.m[id] = p
	return p.Stock, nil
}

func (s *MemStore) BulkReplace(ctx context.Context, products []Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[string]Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	s.m = m
	return nil
}
