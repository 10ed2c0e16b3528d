// Package dispense records the dispensing outcome of a reconciled diagnosis.
// Every prescribed entry produces a record, matched to inventory or not, so
// the audit trail always reflects the full prescription.
package dispense

import (
	"regexp"
	"strconv"
	"time"
)

// DefaultQuantity is used when no quantity can be read from the dosage text.
const DefaultQuantity = 1

// DispensingRecord is one dispensing event for one prescribed drug.
type DispensingRecord struct {
	ID             string `json:"id"`
	DiagnosisID    string `json:"diagnosis_id"`
	PractitionerID string `json:"practitioner_id"`
	OrganizationID string `json:"organization_id"`

	// InventoryDrugID is empty when the prescribed drug could not be matched
	// to stock; the record is still created.
	InventoryDrugID string    `json:"inventory_drug_id,omitempty"`
	DrugName        string    `json:"drug_name"`
	Dosage          string    `json:"dosage,omitempty"`
	Duration        string    `json:"duration,omitempty"`
	Quantity        int       `json:"quantity"`
	MatchTier       string    `json:"match_tier"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Matched reports whether the record is linked to an inventory drug.
func (r DispensingRecord) Matched() bool { return r.InventoryDrugID != "" }

var firstIntRE = regexp.MustCompile(`\d+`)

// QuantityFromDosage reads the dispensing quantity as the first integer in
// the dosage text ("2 tablets twice daily" yields 2). Free-text dosages with
// no number fall back to DefaultQuantity.
func QuantityFromDosage(dosage string) int {
	m := firstIntRE.FindString(dosage)
	if m == "" {
		return DefaultQuantity
	}
	n, err := strconv.Atoi(m)
	if err != nil || n <= 0 {
		return DefaultQuantity
	}
	return n
}
