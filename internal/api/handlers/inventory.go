package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/medlinka/go-cip/internal/inventory"
)

// InventoryGetter loads a single inventory record.
type InventoryGetter interface {
	Get(ctx context.Context, id string) (*inventory.DrugRecord, error)
}

// InventoryHandler serves inventory lookups so clients can resolve the
// inventory references carried on dispensing records.
type InventoryHandler struct {
	repo   InventoryGetter
	logger *zap.Logger
}

// NewInventoryHandler creates the handler.
func NewInventoryHandler(repo InventoryGetter, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{repo: repo, logger: logger}
}

// Get handles GET /api/v1/inventory/{id}.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.repo.Get(r.Context(), id)
	if err != nil {
		jsonError(w, "inventory record not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}
