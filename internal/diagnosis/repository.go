package diagnosis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Repository persists canonical diagnosis records. A record is written once
// per successful parse; later manual corrections happen outside the pipeline.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRepository creates a diagnosis repository.
func NewRepository(pool *pgxpool.Pool, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, logger: logger}
}

// Create inserts a canonical diagnosis. List fields are stored as JSONB so
// the UI can choose between the split and legacy drug representations.
func (r *Repository) Create(ctx context.Context, d *Canonical) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal diagnosis: %w", err)
	}

	query := `
		INSERT INTO diagnoses
		(id, patient_id, practitioner_id, primary_diagnosis, severity_level,
		 confidence_score, record, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		d.ID, d.PatientID, d.PractitionerID, d.PrimaryDiagnosis,
		string(d.SeverityLevel), d.ConfidenceScore, payload, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert diagnosis: %w", err)
	}

	r.logger.Info("diagnosis persisted",
		zap.String("id", d.ID),
		zap.String("severity", string(d.SeverityLevel)))
	return nil
}

// Get loads a canonical diagnosis by ID.
func (r *Repository) Get(ctx context.Context, id string) (*Canonical, error) {
	var payload []byte
	var createdAt time.Time

	query := `SELECT record, created_at FROM diagnoses WHERE id = $1`
	if err := r.pool.QueryRow(ctx, query, id).Scan(&payload, &createdAt); err != nil {
		return nil, fmt.Errorf("diagnosis %s: %w", id, err)
	}

	var d Canonical
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, fmt.Errorf("unmarshal diagnosis %s: %w", id, err)
	}
	d.CreatedAt = createdAt
	return &d, nil
}
