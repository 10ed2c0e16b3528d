package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/medlinka/go-cip/internal/inventory"
)

type fakeInventoryGetter struct {
	records map[string]inventory.DrugRecord
}

func (f *fakeInventoryGetter) Get(ctx context.Context, id string) (*inventory.DrugRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, errors.New("no rows in result set")
	}
	return &rec, nil
}

func inventoryRouter(h *InventoryHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/inventory/{id}", h.Get)
	return r
}

func TestInventoryGet(t *testing.T) {
	h := NewInventoryHandler(&fakeInventoryGetter{records: map[string]inventory.DrugRecord{
		"inv-1": {ID: "inv-1", Name: "Ibuprofen 400mg", StockQuantity: 12},
	}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/inventory/inv-1", nil)
	rr := httptest.NewRecorder()
	inventoryRouter(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var rec inventory.DrugRecord
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rec.ID != "inv-1" || rec.StockQuantity != 12 {
		t.Errorf("record = %+v", rec)
	}
}

func TestInventoryGetNotFound(t *testing.T) {
	h := NewInventoryHandler(&fakeInventoryGetter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/inventory/missing", nil)
	rr := httptest.NewRecorder()
	inventoryRouter(h).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNotFound)
	}
}
