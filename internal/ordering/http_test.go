package ordering_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"PharmaStore/internal/catalog"
	"PharmaStore/internal/ordering"
)

func newTS(t *testing.T, products ...catalog.Product) (*httptest.Server, *catalog.MemStore) {
	t.Helper()

	store := catalog.NewMemStore()
	if err := store.BulkReplace(context.Background(), products); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cache := catalog.NewCache(store, time.Hour)

	s := &ordering.Server{
		Facade: &ordering.Facade{
			Validator: &ordering.Validator{Store: store},
			Engine:    &ordering.Engine{Store: store, Cache: cache},
		},
		Store: store,
		Cache: cache,
		Log:   zap.NewNop(),
	}

	h := ordering.NewHandler(s, ordering.HTTPDeps{
		Log:     zap.NewNop(),
		Service: "pharmacy",
	})

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts, store
}

func postJSON(t *testing.T, url string, body any) (*http.Response, []byte) {
	t.Helper()

	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func TestSubmitOrder_HappyPath(t *testing.T) {
	ts, store := newTS(t,
		catalog.Product{ID: "p1", Name: "Paracetamol 500mg", Price: 3.5, Stock: 5},
		catalog.Product{ID: "p2", Name: "Amoxicilina 250mg", Price: 8.2, Stock: 3},
	)

	resp, raw := postJSON(t, ts.URL+"/orders", map[string]any{
		"session_id": "s1",
		"lines": []map[string]any{
			{"identifier": "p1", "quantity": 2},
			{"identifier": "Amoxicilina 250mg", "quantity": 1},
		},
	})

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status=%d body=%s", resp.StatusCode, raw)
	}

	var res ordering.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		t.Fatalf("decode: %v body=%s", err, raw)
	}
	if res.OrderID == "" {
		t.Fatalf("empty order_id")
	}
	if len(res.Lines) != 2 {
		t.Fatalf("lines=%d want=2", len(res.Lines))
	}
	if res.Lines[0].NewStock != 3 || res.Lines[1].NewStock != 2 {
		t.Fatalf("new stocks=%d,%d want=3,2", res.Lines[0].NewStock, res.Lines[1].NewStock)
	}

	p, _, _ := store.FindByID(context.Background(), "p1")
	if p.Stock != 3 {
		t.Fatalf("stock=%d want=3", p.Stock)
	}
}

func TestSubmitOrder_FullRejectionList(t *testing.T) {
	ts, store := newTS(t, catalog.Product{ID: "p1", Name: "Paracetamol 500mg", Stock: 2})

	resp, raw := postJSON(t, ts.URL+"/orders", map[string]any{
		"session_id": "s1",
		"lines": []map[string]any{
			{"identifier": "p1", "quantity": 5},
			{"identifier": "p9", "quantity": 1},
			{"identifier": "p1", "quantity": "muchos"},
		},
	})

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d body=%s", resp.StatusCode, raw)
	}

	var body struct {
		Errors []ordering.Rejection `json:"errors"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v body=%s", err, raw)
	}
	if len(body.Errors) != 3 {
		t.Fatalf("errors=%v want all three", body.Errors)
	}

	// Nothing was reserved.
	p, _, _ := store.FindByID(context.Background(), "p1")
	if p.Stock != 2 {
		t.Fatalf("stock=%d want=2", p.Stock)
	}
}

func TestSubmitOrder_BadInput(t *testing.T) {
	ts, _ := newTS(t, catalog.Product{ID: "p1", Name: "Paracetamol 500mg", Stock: 2})

	resp, _ := postJSON(t, ts.URL+"/orders", map[string]any{
		"session_id": "s1",
		"lines":      []map[string]any{},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty lines: status=%d", resp.StatusCode)
	}

	raw, err := http.Post(ts.URL+"/orders", "application/json", bytes.NewReader([]byte(`{not json`)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer raw.Body.Close()
	if raw.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad json: status=%d", raw.StatusCode)
	}
}

func TestCatalogSearch(t *testing.T) {
	ts, _ := newTS(t,
		catalog.Product{ID: "p1", Name: "Paracetamol 500mg", Stock: 5},
		catalog.Product{ID: "p2", Name: "Diazepam 5mg", Stock: 2, Controlled: true},
	)

	resp, err := http.Get(ts.URL + "/catalog/search?q=paracetamol")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}

	var got []catalog.Product
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].ID != "p1" {
		t.Fatalf("got=%v", got)
	}

	resp2, err := http.Get(ts.URL + "/catalog/search?controlled=true")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp2.Body.Close()

	var controlled []catalog.Product
	if err := json.NewDecoder(resp2.Body).Decode(&controlled); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(controlled) != 1 || controlled[0].ID != "p2" {
		t.Fatalf("controlled=%v", controlled)
	}
}

func TestCatalogReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	src := `[{"nombre": "Paracetamol 500mg", "precio": 3.5, "stock": 7}]`
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := catalog.NewMemStore()
	cache := catalog.NewCache(store, time.Hour)
	s := &ordering.Server{
		Facade: &ordering.Facade{
			Validator: &ordering.Validator{Store: store},
			Engine:    &ordering.Engine{Store: store, Cache: cache},
		},
		Store:       store,
		Cache:       cache,
		CatalogPath: path,
		Log:         zap.NewNop(),
	}
	ts := httptest.NewServer(ordering.NewHandler(s, ordering.HTTPDeps{Log: zap.NewNop(), Service: "pharmacy"}))
	t.Cleanup(ts.Close)

	resp, raw := postJSON(t, ts.URL+"/catalog/reload", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.StatusCode, raw)
	}

	p, found, _ := store.FindByID(context.Background(), "p1")
	if !found || p.Stock != 7 {
		t.Fatalf("p=%+v found=%v", p, found)
	}
}
