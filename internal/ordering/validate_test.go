package ordering

import (
	"context"
	"encoding/json"
	"testing"

	"PharmaStore/internal/catalog"
)

func qty(s string) json.RawMessage { return json.RawMessage(s) }

func seedStore(t *testing.T, products ...catalog.Product) *catalog.MemStore {
	t.Helper()

	s := catalog.NewMemStore()
	if err := s.BulkReplace(context.Background(), products); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func TestValidator_QuantityCoercion(t *testing.T) {
	ctx := context.Background()
	v := &Validator{Store: seedStore(t, catalog.Product{ID: "p1", Name: "Paracetamol 500mg", Stock: 10})}

	tests := []struct {
		quantity string
		ok       bool
	}{
		{`2`, true},
		{`"2"`, true},
		{`3.0`, true},
		{`0`, false},
		{`-1`, false},
		{`2.5`, false},
		{`"dos"`, false},
		{`null`, false},
	}

	for _, tc := range tests {
		demands, rejections, err := v.Validate(ctx, []CartLine{{Identifier: "p1", Quantity: qty(tc.quantity)}})
		if err != nil {
			t.Fatalf("%s: %v", tc.quantity, err)
		}
		if tc.ok {
			if len(rejections) != 0 || len(demands) != 1 {
				t.Fatalf("%s: demands=%d rejections=%v", tc.quantity, len(demands), rejections)
			}
			continue
		}
		if len(rejections) != 1 || rejections[0].Reason != ReasonInvalidQuantity {
			t.Fatalf("%s: rejections=%v want invalid_quantity", tc.quantity, rejections)
		}
	}
}

func TestValidator_ProductResolution(t *testing.T) {
	ctx := context.Background()
	v := &Validator{Store: seedStore(t, catalog.Product{ID: "p1", Name: "Paracetamol 500mg", Stock: 10})}

	demands, rejections, err := v.Validate(ctx, []CartLine{
		{Identifier: "Paracetamol 500mg", Quantity: qty(`1`)},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(rejections) != 0 || len(demands) != 1 || demands[0].Product.ID != "p1" {
		t.Fatalf("name fallback failed: demands=%v rejections=%v", demands, rejections)
	}

	_, rejections, err = v.Validate(ctx, []CartLine{{Identifier: "p9", Quantity: qty(`1`)}})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(rejections) != 1 || rejections[0].Reason != ReasonProductNotFound {
		t.Fatalf("rejections=%v want product_not_found", rejections)
	}
}

func TestValidator_AggregateDemand(t *testing.T) {
	ctx := context.Background()
	v := &Validator{Store: seedStore(t, catalog.Product{ID: "A", Name: "Amoxicilina 250mg", Stock: 3})}

	// Each line alone fits, the sum does not.
	_, rejections, err := v.Validate(ctx, []CartLine{
		{Identifier: "A", Quantity: qty(`2`)},
		{Identifier: "A", Quantity: qty(`2`)},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(rejections) != 1 {
		t.Fatalf("rejections=%v want exactly one", rejections)
	}
	r := rejections[0]
	if r.Reason != ReasonInsufficientStock || r.Available == nil || *r.Available != 3 {
		t.Fatalf("rejection=%+v want insufficient_stock available=3", r)
	}

	// Within stock, duplicates merge into one demand.
	demands, rejections, err := v.Validate(ctx, []CartLine{
		{Identifier: "A", Quantity: qty(`1`)},
		{Identifier: "A", Quantity: qty(`2`)},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(rejections) != 0 || len(demands) != 1 || demands[0].Quantity != 3 {
		t.Fatalf("demands=%v rejections=%v", demands, rejections)
	}
}

func TestValidator_CollectsAllRejections(t *testing.T) {
	ctx := context.Background()
	v := &Validator{Store: seedStore(t,
		catalog.Product{ID: "p1", Name: "Paracetamol 500mg", Stock: 1},
	)}

	_, rejections, err := v.Validate(ctx, []CartLine{
		{Identifier: "p1", Quantity: qty(`5`)},
		{Identifier: "p9", Quantity: qty(`1`)},
		{Identifier: "p1", Quantity: qty(`0`)},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(rejections) != 3 {
		t.Fatalf("rejections=%v want all three", rejections)
	}
}
