package inventory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Repository reads inventory snapshots from PostgreSQL. The pipeline only
// ever reads: quantity changes happen in the persistence layer as a side
// effect of dispensing creation and deletion.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRepository creates an inventory repository.
func NewRepository(pool *pgxpool.Pool, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, logger: logger}
}

// Snapshot returns the practitioner's current inventory. Organization-owned
// stock is included when orgID is non-empty.
func (r *Repository) Snapshot(ctx context.Context, practitionerID, orgID string) ([]DrugRecord, error) {
	query := `
		SELECT id, practitioner_id, COALESCE(organization_id, ''), drug_name,
		       COALESCE(generic_name, ''), COALESCE(active_ingredient, ''),
		       COALESCE(strength, ''), COALESCE(dosage_form, ''),
		       COALESCE(category, ''), stock_quantity, updated_at
		FROM drug_inventory
		WHERE practitioner_id = $1
		   OR ($2 <> '' AND organization_id = $2)
		ORDER BY drug_name ASC
	`

	rows, err := r.pool.Query(ctx, query, practitionerID, orgID)
	if err != nil {
		return nil, fmt.Errorf("inventory query: %w", err)
	}
	defer rows.Close()

	var records []DrugRecord
	for rows.Next() {
		var rec DrugRecord
		err := rows.Scan(
			&rec.ID, &rec.PractitionerID, &rec.OrganizationID, &rec.Name,
			&rec.GenericName, &rec.ActiveIngredient, &rec.Strength,
			&rec.Form, &rec.Category, &rec.StockQuantity, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("inventory scan: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns a single inventory record by ID.
func (r *Repository) Get(ctx context.Context, id string) (*DrugRecord, error) {
	query := `
		SELECT id, practitioner_id, COALESCE(organization_id, ''), drug_name,
		       COALESCE(generic_name, ''), COALESCE(active_ingredient, ''),
		       COALESCE(strength, ''), COALESCE(dosage_form, ''),
		       COALESCE(category, ''), stock_quantity, updated_at
		FROM drug_inventory
		WHERE id = $1
	`

	var rec DrugRecord
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.PractitionerID, &rec.OrganizationID, &rec.Name,
		&rec.GenericName, &rec.ActiveIngredient, &rec.Strength,
		&rec.Form, &rec.Category, &rec.StockQuantity, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inventory record %s: %w", id, err)
	}
	return &rec, nil
}
