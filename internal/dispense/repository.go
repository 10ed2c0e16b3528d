package dispense

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/medlinka/go-cip/internal/infrastructure/postgres"
	"github.com/medlinka/go-cip/internal/infrastructure/redpanda"
)

// Repository persists dispensing records.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRepository creates a dispensing repository.
func NewRepository(pool *pgxpool.Pool, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, logger: logger}
}

// Create inserts one dispensing record, decrements stock for matched drugs,
// and writes the audit outbox entry, all in one transaction.
func (r *Repository) Create(ctx context.Context, rec *DispensingRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin dispensing tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO dispensing_records
			(id, diagnosis_id, practitioner_id, organization_id, inventory_drug_id,
			 drug_name, dosage, duration, quantity, match_tier, notes)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, query,
		rec.ID, rec.DiagnosisID, rec.PractitionerID, rec.OrganizationID,
		rec.InventoryDrugID, rec.DrugName, rec.Dosage, rec.Duration,
		rec.Quantity, rec.MatchTier, rec.Notes,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert dispensing record: %w", err)
	}

	if rec.Matched() {
		// Stock never goes negative; over-dispensing is visible in the audit
		// trail, not enforced here.
		_, err = tx.Exec(ctx, `
			UPDATE drug_inventory
			SET stock_quantity = GREATEST(stock_quantity - $1, 0), updated_at = NOW()
			WHERE id = $2
		`, rec.Quantity, rec.InventoryDrugID)
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal dispensing event: %w", err)
	}
	entry := &postgres.OutboxEntry{
		AggregateID:   rec.DiagnosisID,
		AggregateType: "diagnosis",
		EventType:     "dispensing.recorded",
		Payload:       payload,
		KafkaTopic:    redpanda.TopicDispenseEvents,
		KafkaKey:      rec.DiagnosisID,
	}
	if err := postgres.WriteEntry(ctx, tx, entry); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit dispensing tx: %w", err)
	}
	return nil
}

// ListByDiagnosis returns all dispensing records for a diagnosis, oldest
// first.
func (r *Repository) ListByDiagnosis(ctx context.Context, diagnosisID string) ([]DispensingRecord, error) {
	query := `
		SELECT id, diagnosis_id, practitioner_id, organization_id,
		       COALESCE(inventory_drug_id, ''), drug_name, dosage, duration,
		       quantity, match_tier, notes, created_at
		FROM dispensing_records
		WHERE diagnosis_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, diagnosisID)
	if err != nil {
		return nil, fmt.Errorf("query dispensing records: %w", err)
	}
	defer rows.Close()

	var records []DispensingRecord
	for rows.Next() {
		var rec DispensingRecord
		err := rows.Scan(
			&rec.ID, &rec.DiagnosisID, &rec.PractitionerID, &rec.OrganizationID,
			&rec.InventoryDrugID, &rec.DrugName, &rec.Dosage, &rec.Duration,
			&rec.Quantity, &rec.MatchTier, &rec.Notes, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan dispensing record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
