package ordering

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Facade is the single entry point the routing layer talks to: validate,
// reserve, shape the response. It never reports a reservation failure as
// success.
type Facade struct {
	Validator *Validator
	Engine    *Engine
	Log       *zap.Logger
}

// ErrEmptyOrder rejects submissions with no lines at all.
var ErrEmptyOrder = errors.New("order has no lines")

// SubmitOrder runs the full pipeline for one order. A non-empty rejection
// list means the order was refused with no stock changed; the list is
// complete, not first-failure-only, so the client can fix everything in one
// round trip. Commit-time races come back through the same rejection shape.
func (f *Facade) SubmitOrder(ctx context.Context, sessionID string, lines []CartLine) (Result, []Rejection, error) {
	if len(lines) == 0 {
		return Result{}, nil, ErrEmptyOrder
	}

	demands, rejections, err := f.Validator.Validate(ctx, lines)
	if err != nil {
		return Result{}, nil, err
	}
	if len(rejections) > 0 {
		if f.Log != nil {
			f.Log.Info("order rejected at validation",
				zap.String("session_id", sessionID),
				zap.Int("rejections", len(rejections)),
			)
		}
		return Result{}, rejections, nil
	}

	res, err := f.Engine.Reserve(ctx, demands)
	if err != nil {
		if ise, ok := IsStockRejection(err); ok {
			return Result{}, []Rejection{{
				Identifier: ise.ID,
				Reason:     ReasonInsufficientStock,
				Available:  intPtr(ise.Available),
			}}, nil
		}
		return Result{}, nil, err
	}

	if f.Log != nil {
		f.Log.Info("order accepted",
			zap.String("session_id", sessionID),
			zap.String("order_id", res.OrderID),
		)
	}
	return res, nil, nil
}
