package ordering

import (
	"encoding/json"
	"errors"

	"PharmaStore/internal/catalog"
)

// CartLine is one client-submitted order line. Quantity stays raw until
// validation so a malformed value rejects that line with a reason instead
// of failing the whole decode.
type CartLine struct {
	Identifier string          `json:"identifier"`
	Quantity   json.RawMessage `json:"quantity"`
}

// Rejection reasons, stable across validation and commit time so clients
// handle both the same way.
const (
	ReasonInvalidQuantity   = "invalid_quantity"
	ReasonProductNotFound   = "product_not_found"
	ReasonInsufficientStock = "insufficient_stock"
)

// Rejection explains why one line (or one product's aggregate demand) was
// refused. Available is set for insufficient stock only.
type Rejection struct {
	Identifier string `json:"identifier"`
	Reason     string `json:"reason"`
	Available  *int   `json:"available,omitempty"`
}

// Demand is a validated, aggregated request for one distinct product.
type Demand struct {
	Product  catalog.Product
	Quantity int
}

// CommittedLine is one reserved line of an accepted order.
type CommittedLine struct {
	Identifier string  `json:"identifier"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	NewStock   int     `json:"new_stock"`
}

// Result is the confirmation for an accepted order.
type Result struct {
	OrderID string          `json:"order_id"`
	Lines   []CommittedLine `json:"lines"`
}

// ErrInternalInconsistency marks a failed rollback: stock released by this
// order could not be restored. It must never be reported as success or as a
// plain stock rejection.
var ErrInternalInconsistency = errors.New("reservation rollback failed")

func intPtr(v int) *int { return &v }
