package ordering

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"PharmaStore/internal/catalog"
)

// Validator classifies a proposed order line set against live stock. It has
// no side effects: store reads only, no writes.
type Validator struct {
	Store catalog.Store
}

// Validate resolves every line, sums duplicate identifiers into one demand
// per product, and checks each aggregate against the product's live stock.
// Every failure is collected; the order is admissible only when the
// rejection list comes back empty.
//
// The aggregate check is what stops a client from splitting one oversized
// request into several lines that individually fit.
func (v *Validator) Validate(ctx context.Context, lines []CartLine) ([]Demand, []Rejection, error) {
	var rejections []Rejection

	type aggregate struct {
		product catalog.Product
		qty     int
	}
	byProduct := make(map[string]*aggregate, len(lines))
	var sequence []string

	for _, line := range lines {
		qty, ok := coerceQuantity(line.Quantity)
		if !ok {
			rejections = append(rejections, Rejection{
				Identifier: line.Identifier,
				Reason:     ReasonInvalidQuantity,
			})
			continue
		}

		p, found, err := v.Store.FindByNameOrID(ctx, line.Identifier)
		if err != nil {
			return nil, nil, err
		}
		if !found {
			rejections = append(rejections, Rejection{
				Identifier: line.Identifier,
				Reason:     ReasonProductNotFound,
			})
			continue
		}

		if agg, ok := byProduct[p.ID]; ok {
			agg.qty += qty
			continue
		}
		byProduct[p.ID] = &aggregate{product: p, qty: qty}
		sequence = append(sequence, p.ID)
	}

	demands := make([]Demand, 0, len(sequence))
	for _, id := range sequence {
		agg := byProduct[id]
		if agg.qty > agg.product.Stock {
			rejections = append(rejections, Rejection{
				Identifier: agg.product.ID,
				Reason:     ReasonInsufficientStock,
				Available:  intPtr(agg.product.Stock),
			})
			continue
		}
		demands = append(demands, Demand{Product: agg.product, Quantity: agg.qty})
	}

	if len(rejections) > 0 {
		return nil, rejections, nil
	}
	return demands, nil, nil
}

// coerceQuantity accepts integers and integral strings; fractional,
// non-numeric or non-positive values are invalid.
func coerceQuantity(raw json.RawMessage) (int, bool) {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Tolerate "3.0" but not "3.5".
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != math.Trunc(f) {
			return 0, false
		}
		i = int64(f)
	}

	if i <= 0 {
		return 0, false
	}
	return int(i), true
}
