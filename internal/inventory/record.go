// Package inventory provides practitioner drug inventory records, the drug
// name normalizer, and the relevance selector that bounds outbound payloads.
package inventory

import "time"

// DrugRecord is a single inventory item owned by a practitioner or
// organization. The pipeline reads these records but never mutates them;
// stock adjustments are the persistence layer's concern.
type DrugRecord struct {
	ID               string    `json:"id"`
	PractitionerID   string    `json:"practitioner_id"`
	OrganizationID   string    `json:"organization_id,omitempty"`
	Name             string    `json:"drug_name"`
	GenericName      string    `json:"generic_name,omitempty"`
	ActiveIngredient string    `json:"active_ingredient,omitempty"`
	Strength         string    `json:"strength,omitempty"`
	Form             string    `json:"dosage_form,omitempty"`
	Category         string    `json:"category,omitempty"`
	StockQuantity    int       `json:"stock_quantity"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// InStock reports whether the record has any dispensable stock.
func (r DrugRecord) InStock() bool { return r.StockQuantity > 0 }

// SearchText returns the concatenated text the selector matches drug-class
// keywords against.
func (r DrugRecord) SearchText() string {
	return Fold(r.Name + " " + r.GenericName + " " + r.ActiveIngredient)
}
