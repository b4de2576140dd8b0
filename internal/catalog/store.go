package catalog

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("product not found")

	// ErrStoreUnavailable wraps timeouts and connectivity failures of the
	// durable store. Callers may retry; the store itself never does.
	ErrStoreUnavailable = errors.New("product store unavailable")
)

// InsufficientStockError reports a decrement that would take stock below
// zero. Available is the stock level observed at decision time.
type InsufficientStockError struct {
	ID        string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available", e.ID, e.Available)
}

// Store is the durable product record. It owns the single source of truth
// for stock; DecrementStock is the only admission path for a sale.
type Store interface {
	Ping(ctx context.Context) error

	FindByID(ctx context.Context, id string) (Product, bool, error)

	// FindByNameOrID resolves by id first, then by case-insensitive exact
	// name match, for clients that only know the display name.
	FindByNameOrID(ctx context.Context, key string) (Product, bool, error)

	List(ctx context.Context) ([]Product, error)

	// DecrementStock atomically subtracts qty on the condition that
	// stock >= qty, returning the new stock level. Two concurrent
	// decrements never both succeed past the available stock. Failures
	// are ErrNotFound or *InsufficientStockError.
	DecrementStock(ctx context.Context, id string, qty int) (int, error)

	// IncrementStock restores stock released by an aborted reservation.
	IncrementStock(ctx context.Context, id string, qty int) (int, error)

	// BulkReplace swaps the whole catalog. It is mutually exclusive with
	// in-flight decrements on the same records.
	BulkReplace(ctx context.Context, products []Product) error
}
