package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/medlinka/go-cip/internal/diagnosis"
	"github.com/medlinka/go-cip/internal/dispense"
	"github.com/medlinka/go-cip/internal/inventory"
	"github.com/medlinka/go-cip/internal/observability/metrics"
	"github.com/medlinka/go-cip/internal/reconcile"
	"github.com/medlinka/go-cip/pkg/idempotency"
)

// DispenseHandler reconciles a diagnosis against current inventory and
// records dispensing, once per diagnosis.
type DispenseHandler struct {
	diagnosisRepo *diagnosis.Repository
	inventoryRepo *inventory.Repository
	dispenseRepo  *dispense.Repository
	reconciler    *reconcile.Reconciler
	recorder      *dispense.Recorder
	inbox         *idempotency.Inbox
	metrics       *metrics.Metrics
	logger        *zap.Logger
	tracer        trace.Tracer
}

// NewDispenseHandler creates the handler.
func NewDispenseHandler(
	diagnosisRepo *diagnosis.Repository,
	inventoryRepo *inventory.Repository,
	dispenseRepo *dispense.Repository,
	reconciler *reconcile.Reconciler,
	recorder *dispense.Recorder,
	inbox *idempotency.Inbox,
	m *metrics.Metrics,
	logger *zap.Logger,
) *DispenseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispenseHandler{
		diagnosisRepo: diagnosisRepo,
		inventoryRepo: inventoryRepo,
		dispenseRepo:  dispenseRepo,
		reconciler:    reconciler,
		recorder:      recorder,
		inbox:         inbox,
		metrics:       m,
		logger:        logger,
		tracer:        otel.Tracer("dispense-handler"),
	}
}

// DispenseRequest identifies who is dispensing.
type DispenseRequest struct {
	PractitionerID string `json:"practitioner_id"`
	OrganizationID string `json:"organization_id"`
}

// DispenseResponse wraps the batch result with replay information.
type DispenseResponse struct {
	Replayed bool                  `json:"replayed"`
	Batch    *dispense.BatchResult `json:"batch"`
}

// Dispense handles POST /api/v1/diagnoses/{id}/dispense. A repeated request
// for the same diagnosis replays the stored batch result.
func (h *DispenseHandler) Dispense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	diagnosisID := chi.URLParam(r, "id")

	ctx, span := h.tracer.Start(ctx, "dispense_diagnosis",
		trace.WithAttributes(attribute.String("diagnosis_id", diagnosisID)))
	defer span.End()

	var req DispenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PractitionerID == "" {
		jsonError(w, "practitioner_id is required", http.StatusBadRequest)
		return
	}

	d, err := h.diagnosisRepo.Get(ctx, diagnosisID)
	if err != nil {
		jsonError(w, "diagnosis not found", http.StatusNotFound)
		return
	}

	key := idempotency.Key(req.PractitionerID, diagnosisID)
	outcome, err := h.inbox.Execute(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		snapshot, err := h.inventoryRepo.Snapshot(ctx, req.PractitionerID, req.OrganizationID)
		if err != nil {
			return nil, err
		}

		matches := h.reconciler.Reconcile(d.AllPrescribed(), snapshot)
		h.countMatches(matches)

		result, err := h.recorder.Record(ctx, diagnosisID, req.PractitionerID, req.OrganizationID, matches)
		if err != nil {
			return nil, err
		}
		if h.metrics != nil {
			h.metrics.DispensingsRecorded.Add(float64(result.Succeeded))
			h.metrics.DispensingsFailed.Add(float64(result.Failed))
		}
		return json.Marshal(result)
	})
	if err != nil {
		if errors.Is(err, idempotency.ErrInProgress) {
			jsonError(w, "dispensing already in progress", http.StatusConflict)
			return
		}
		h.logger.Error("dispensing failed",
			zap.String("diagnosis_id", diagnosisID),
			zap.Error(err))
		jsonError(w, "dispensing failed", http.StatusInternalServerError)
		return
	}

	var batch dispense.BatchResult
	if err := json.Unmarshal(outcome.Result, &batch); err != nil {
		h.logger.Error("stored batch result unreadable", zap.Error(err))
		jsonError(w, "dispensing result unavailable", http.StatusInternalServerError)
		return
	}

	span.SetAttributes(attribute.Bool("replayed", outcome.Replayed))
	h.logger.Info("dispensing completed",
		zap.String("diagnosis_id", diagnosisID),
		zap.Bool("replayed", outcome.Replayed),
		zap.Int("succeeded", batch.Succeeded),
		zap.Int("failed", batch.Failed))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DispenseResponse{Replayed: outcome.Replayed, Batch: &batch})
}

// List handles GET /api/v1/diagnoses/{id}/dispensings.
func (h *DispenseHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	diagnosisID := chi.URLParam(r, "id")

	records, err := h.dispenseRepo.ListByDiagnosis(ctx, diagnosisID)
	if err != nil {
		jsonError(w, "failed to load dispensing records", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (h *DispenseHandler) countMatches(matches []reconcile.MatchResult) {
	if h.metrics == nil {
		return
	}
	for _, m := range matches {
		h.metrics.DrugsMatched.WithLabelValues(m.Tier.String()).Inc()
	}
}
