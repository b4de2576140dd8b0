package ordering

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"PharmaStore/internal/catalog"
	"PharmaStore/pkg/kit"
)

// Engine commits validated orders against the store. It is the only writer
// of product stock: one atomic decrement per distinct product, and a full
// rollback of already-applied decrements if any later one loses a race.
type Engine struct {
	Store   catalog.Store
	Cache   *catalog.Cache
	Log     *zap.Logger
	Metrics *kit.Metrics
}

// Reserve turns an admissible demand set into a committed order.
//
// Validation ran against live stock, but another order may consume it
// between validation and here. That race is benign: the losing order aborts
// whole, restores whatever it already took, and reports the same
// insufficient-stock shape validation would have.
func (e *Engine) Reserve(ctx context.Context, demands []Demand) (Result, error) {
	committed := make([]CommittedLine, 0, len(demands))

	for i, d := range demands {
		newStock, err := e.Store.DecrementStock(ctx, d.Product.ID, d.Quantity)
		if err != nil {
			if rbErr := e.rollback(ctx, demands[:i]); rbErr != nil {
				return Result{}, rbErr
			}
			if e.Metrics != nil {
				e.Metrics.Rollbacks.Inc()
			}
			return Result{}, err
		}

		committed = append(committed, CommittedLine{
			Identifier: d.Product.ID,
			Name:       d.Product.Name,
			Quantity:   d.Quantity,
			Price:      d.Product.Price,
			NewStock:   newStock,
		})
	}

	if e.Cache != nil {
		e.Cache.Invalidate()
	}

	res := Result{OrderID: newOrderID(), Lines: committed}
	if e.Log != nil {
		e.Log.Info("order committed",
			zap.String("order_id", res.OrderID),
			zap.Int("lines", len(committed)),
		)
	}
	return res, nil
}

// rollback restores every decrement applied so far. A failure here means
// stock is durably wrong, which outranks the original rejection.
func (e *Engine) rollback(ctx context.Context, applied []Demand) error {
	for _, d := range applied {
		if _, err := e.Store.IncrementStock(ctx, d.Product.ID, d.Quantity); err != nil {
			if e.Log != nil {
				e.Log.Error("rollback failed, stock inconsistent",
					zap.String("product_id", d.Product.ID),
					zap.Int("quantity", d.Quantity),
					zap.Error(err),
				)
			}
			return fmt.Errorf("%w: product %s qty %d: %v",
				ErrInternalInconsistency, d.Product.ID, d.Quantity, err)
		}
	}
	return nil
}

// newOrderID is unique per order and sorts roughly by submission time:
// a fixed tag, unix milliseconds, and a uuid fragment for same-millisecond
// bursts.
func newOrderID() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("RX-%d-%s", time.Now().UnixMilli(), suffix)
}

// IsStockRejection reports whether err should surface to the client as an
// ordinary insufficient-stock rejection rather than a server error.
func IsStockRejection(err error) (*catalog.InsufficientStockError, bool) {
	var ise *catalog.InsufficientStockError
	if errors.As(err, &ise) {
		return ise, true
	}
	return nil, false
}
