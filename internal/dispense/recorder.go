package dispense

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/medlinka/go-cip/internal/reconcile"
	"github.com/medlinka/go-cip/pkg/batch"
)

// unmatchedNote marks records whose prescribed drug was not found in stock.
const unmatchedNote = "prescribed drug not found in practitioner inventory"

// Creator persists a single dispensing record.
type Creator interface {
	Create(ctx context.Context, rec *DispensingRecord) error
}

// ItemOutcome is the persistence result of one record in a batch.
type ItemOutcome struct {
	Record DispensingRecord `json:"record"`
	Err    string           `json:"error,omitempty"`
}

// BatchResult aggregates per-item outcomes for one diagnosis. A partially
// failed batch is reported, never rolled back as a whole.
type BatchResult struct {
	DiagnosisID string        `json:"diagnosis_id"`
	Items       []ItemOutcome `json:"items"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
}

// Recorder turns reconciliation results into dispensing records and writes
// them concurrently.
type Recorder struct {
	repo   Creator
	runner *batch.Runner
	logger *zap.Logger
	tracer trace.Tracer
}

// NewRecorder creates a recorder. A nil runner gets the default worker bound.
func NewRecorder(repo Creator, runner *batch.Runner, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = batch.New(0, logger)
	}
	return &Recorder{
		repo:   repo,
		runner: runner,
		logger: logger,
		tracer: otel.Tracer("dispense-recorder"),
	}
}

// Record creates one dispensing record per reconciliation result, matched or
// not, and returns every item's outcome.
func (r *Recorder) Record(ctx context.Context, diagnosisID, practitionerID, organizationID string, matches []reconcile.MatchResult) (*BatchResult, error) {
	ctx, span := r.tracer.Start(ctx, "record_dispensing",
		trace.WithAttributes(
			attribute.String("diagnosis_id", diagnosisID),
			attribute.Int("entries", len(matches)),
		))
	defer span.End()

	records := make([]DispensingRecord, len(matches))
	for i, m := range matches {
		rec := DispensingRecord{
			ID:             uuid.New().String(),
			DiagnosisID:    diagnosisID,
			PractitionerID: practitionerID,
			OrganizationID: organizationID,
			DrugName:       m.Prescribed.DrugName,
			Dosage:         m.Prescribed.Dosage,
			Duration:       m.Prescribed.Duration,
			Quantity:       QuantityFromDosage(m.Prescribed.Dosage),
			MatchTier:      m.Tier.String(),
		}
		if m.Matched() {
			rec.InventoryDrugID = m.Inventory.ID
		} else {
			rec.Notes = unmatchedNote
		}
		records[i] = rec
	}

	outcomes := r.runner.Run(ctx, len(records), func(ctx context.Context, i int) error {
		return r.repo.Create(ctx, &records[i])
	})

	result := &BatchResult{
		DiagnosisID: diagnosisID,
		Items:       make([]ItemOutcome, len(records)),
	}
	for _, out := range outcomes {
		item := ItemOutcome{Record: records[out.Index]}
		if out.Err != nil {
			item.Err = out.Err.Error()
			result.Failed++
		} else {
			result.Succeeded++
		}
		result.Items[out.Index] = item
	}

	span.SetAttributes(
		attribute.Int("succeeded", result.Succeeded),
		attribute.Int("failed", result.Failed),
	)
	r.logger.Info("dispensing batch recorded",
		zap.String("diagnosis_id", diagnosisID),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed))

	return result, nil
}
