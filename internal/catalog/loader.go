package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// SourceRecord is one entry of the externally supplied catalog file. The
// historical files use Spanish field names and are not always well formed,
// so numeric fields tolerate strings and garbage (coerced to zero) and both
// naming schemes are accepted.
type SourceRecord struct {
	ID         string
	Name       string
	Price      float64
	Stock      int
	Controlled bool
}

func (r *SourceRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.ID = rawString(raw, "id")
	r.Name = rawString(raw, "name", "nombre")
	r.Price = rawNumber(raw, "price", "precio")
	r.Stock = int(rawNumber(raw, "stock"))
	if r.Stock < 0 {
		r.Stock = 0
	}
	if r.Price < 0 {
		r.Price = 0
	}
	r.Controlled = rawBool(raw, "controlled", "controlado")
	return nil
}

func rawString(raw map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
	}
	return ""
}

// rawNumber accepts numbers and numeric strings; anything else is zero.
func rawNumber(raw map[string]json.RawMessage, keys ...string) float64 {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}

		var f float64
		if err := json.Unmarshal(v, &f); err == nil {
			return f
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return f
			}
		}
		return 0
	}
	return 0
}

func rawBool(raw map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		var b bool
		if err := json.Unmarshal(v, &b); err == nil {
			return b
		}
		return false
	}
	return false
}

// ParseSource decodes a catalog file into products. Records without an id
// get positional ids so reloading the same file is idempotent; records
// without a name are dropped.
func ParseSource(data []byte) ([]Product, error) {
	var records []SourceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse catalog source: %w", err)
	}

	out := make([]Product, 0, len(records))
	for i, rec := range records {
		if strings.TrimSpace(rec.Name) == "" {
			continue
		}

		id := rec.ID
		if id == "" {
			id = "p" + strconv.Itoa(i+1)
		}

		out = append(out, Product{
			ID:         id,
			Name:       rec.Name,
			Price:      rec.Price,
			Stock:      rec.Stock,
			Controlled: rec.Controlled,
		})
	}
	return out, nil
}

// LoadFile parses path and replaces the store's catalog with its contents.
func LoadFile(ctx context.Context, store Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read catalog source: %w", err)
	}

	products, err := ParseSource(data)
	if err != nil {
		return 0, err
	}

	if err := store.BulkReplace(ctx, products); err != nil {
		return 0, err
	}
	return len(products), nil
}
