// Package handlers provides HTTP handlers for the clinic API.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/medlinka/go-cip/internal/api/middleware"
	"github.com/medlinka/go-cip/internal/diagnosis"
	"github.com/medlinka/go-cip/internal/ingest"
	"github.com/medlinka/go-cip/internal/inventory"
	"github.com/medlinka/go-cip/internal/observability/metrics"
	"github.com/medlinka/go-cip/internal/provider"
	"github.com/medlinka/go-cip/pkg/circuitbreaker"
)

// DiagnosisHandler runs the inbound pipeline: inventory selection, provider
// call, response ingestion, persistence.
type DiagnosisHandler struct {
	inventoryRepo *inventory.Repository
	diagnosisRepo *diagnosis.Repository
	selector      *inventory.Selector
	client        *provider.Client
	pipeline      *ingest.Pipeline
	metrics       *metrics.Metrics
	logger        *zap.Logger
	tracer        trace.Tracer
}

// NewDiagnosisHandler creates the handler.
func NewDiagnosisHandler(
	inventoryRepo *inventory.Repository,
	diagnosisRepo *diagnosis.Repository,
	selector *inventory.Selector,
	client *provider.Client,
	pipeline *ingest.Pipeline,
	m *metrics.Metrics,
	logger *zap.Logger,
) *DiagnosisHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiagnosisHandler{
		inventoryRepo: inventoryRepo,
		diagnosisRepo: diagnosisRepo,
		selector:      selector,
		client:        client,
		pipeline:      pipeline,
		metrics:       m,
		logger:        logger,
		tracer:        otel.Tracer("diagnosis-handler"),
	}
}

// CreateRequest is the intake payload for a new diagnosis.
type CreateRequest struct {
	PatientID      string           `json:"patient_id"`
	PractitionerID string           `json:"practitioner_id"`
	OrganizationID string           `json:"organization_id"`
	Complaint      string           `json:"complaint"`
	Age            int              `json:"age,omitempty"`
	Gender         string           `json:"gender,omitempty"`
	Symptoms       []string         `json:"symptoms,omitempty"`
	Vitals         *provider.Vitals `json:"vitals,omitempty"`
}

// CreateResponse is returned after a successful ingestion.
type CreateResponse struct {
	ID               string             `json:"id"`
	PrimaryDiagnosis string             `json:"primary_diagnosis"`
	SeverityLevel    diagnosis.Severity `json:"severity_level"`
	ConfidenceScore  float64            `json:"confidence_score"`
	DrugsSuggested   int                `json:"drugs_suggested"`
	CreatedAt        time.Time          `json:"created_at"`
}

// Create handles POST /api/v1/diagnoses.
func (h *DiagnosisHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx, span := h.tracer.Start(ctx, "create_diagnosis")
	defer span.End()

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Complaint == "" {
		jsonError(w, "complaint is required", http.StatusBadRequest)
		return
	}
	if req.PractitionerID == "" {
		jsonError(w, "practitioner_id is required", http.StatusBadRequest)
		return
	}

	snapshot, err := h.inventoryRepo.Snapshot(ctx, req.PractitionerID, req.OrganizationID)
	if err != nil {
		h.logger.Error("inventory snapshot failed", zap.Error(err))
		jsonError(w, "failed to load inventory", http.StatusInternalServerError)
		return
	}

	selected := h.selector.Select(snapshot, req.Complaint)
	span.SetAttributes(
		attribute.Int("inventory_size", len(snapshot)),
		attribute.Int("inventory_selected", len(selected)),
	)

	providerReq := provider.BuildRequest(provider.PatientContext{
		Complaint: req.Complaint,
		Age:       req.Age,
		Gender:    req.Gender,
		Symptoms:  req.Symptoms,
		Vitals:    req.Vitals,
	}, selected)

	start := time.Now()
	raw, err := h.client.Diagnose(ctx, providerReq)
	if h.metrics != nil {
		h.metrics.ProviderDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		h.countFailure()
		if circuitbreaker.IsOpenError(err) {
			jsonError(w, "diagnosis provider unavailable", http.StatusServiceUnavailable)
			return
		}
		h.logger.Error("provider call failed", zap.Error(err))
		jsonError(w, "diagnosis provider call failed", http.StatusBadGateway)
		return
	}

	ingestStart := time.Now()
	d, err := h.pipeline.Ingest(ctx, raw)
	if h.metrics != nil {
		h.metrics.IngestDuration.Observe(time.Since(ingestStart).Seconds())
	}
	if err != nil {
		h.countFailure()
		switch {
		case errors.Is(err, ingest.ErrTransportFormat),
			errors.Is(err, ingest.ErrJSONRecovery),
			errors.Is(err, ingest.ErrMissingPrimaryDiagnosis):
			jsonError(w, "provider response could not be interpreted", http.StatusBadGateway)
		default:
			jsonError(w, "ingestion failed", http.StatusInternalServerError)
		}
		return
	}

	d.ID = uuid.New().String()
	d.PatientID = req.PatientID
	d.PractitionerID = req.PractitionerID
	d.CreatedAt = time.Now().UTC()

	if err := h.diagnosisRepo.Create(ctx, d); err != nil {
		h.countFailure()
		h.logger.Error("diagnosis persist failed", zap.Error(err))
		jsonError(w, "failed to save diagnosis", http.StatusInternalServerError)
		return
	}

	if h.metrics != nil {
		h.metrics.DiagnosesIngested.Inc()
	}
	h.logger.Info("diagnosis created",
		zap.String("id", d.ID),
		zap.String("request_id", middleware.GetRequestID(ctx)),
		zap.String("severity", string(d.SeverityLevel)),
	)

	resp := CreateResponse{
		ID:               d.ID,
		PrimaryDiagnosis: d.PrimaryDiagnosis,
		SeverityLevel:    d.SeverityLevel,
		ConfidenceScore:  d.ConfidenceScore,
		DrugsSuggested:   len(d.AllPrescribed()),
		CreatedAt:        d.CreatedAt,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// Get handles GET /api/v1/diagnoses/{id}.
func (h *DiagnosisHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	d, err := h.diagnosisRepo.Get(ctx, id)
	if err != nil {
		jsonError(w, "diagnosis not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(d)
}

func (h *DiagnosisHandler) countFailure() {
	if h.metrics != nil {
		h.metrics.DiagnosesFailed.Inc()
	}
}

func jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
