// Package diagnosis defines the canonical diagnosis record produced by the
// ingestion pipeline and its persistence.
package diagnosis

import "time"

// Severity is the clinical severity of a diagnosis.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityModerate Severity = "moderate"
	SeverityLow      Severity = "low"
)

// Valid reports whether s is one of the known severity levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityModerate, SeverityLow:
		return true
	}
	return false
}

// PrescribedDrugEntry is a drug named by the provider or by a clinician.
// The linkage hints may or may not resolve against current inventory.
type PrescribedDrugEntry struct {
	ID       string `json:"id,omitempty"`
	DrugID   string `json:"drug_id,omitempty"`
	DrugName string `json:"drug_name"`
	Dosage   string `json:"dosage,omitempty"`
	Duration string `json:"duration,omitempty"`
	// Source tags entries coming from the legacy flat drug_suggestions list:
	// "inventory" or "additional".
	Source string `json:"source,omitempty"`
}

// Canonical is the validated, uniformly shaped diagnosis record. All list
// fields are non-nil once parsing succeeds; there is no partially parsed
// canonical record.
type Canonical struct {
	ID                     string                `json:"id"`
	PatientID              string                `json:"patient_id,omitempty"`
	PractitionerID         string                `json:"practitioner_id,omitempty"`
	PrimaryDiagnosis       string                `json:"primary_diagnosis"`
	DifferentialDiagnoses  []string              `json:"differential_diagnoses"`
	RecommendedActions     []string              `json:"recommended_actions"`
	Treatment              []string              `json:"treatment"`
	InventoryDrugs         []PrescribedDrugEntry `json:"inventory_drugs"`
	AdditionalTherapy      []PrescribedDrugEntry `json:"additional_therapy"`
	DrugSuggestions        []PrescribedDrugEntry `json:"drug_suggestions,omitempty"`
	SeverityLevel          Severity              `json:"severity_level"`
	ConfidenceScore        float64               `json:"confidence_score"`
	ImprovedPatientHistory string                `json:"improved_patient_history,omitempty"`
	ClinicalAssessment     string                `json:"clinical_assessment,omitempty"`
	MonitoringPlan         string                `json:"monitoring_plan,omitempty"`
	CreatedAt              time.Time             `json:"created_at"`
}

// AllPrescribed returns every prescribed entry across both representations,
// stock-linked entries first. Legacy drug_suggestions entries are included
// only when the split lists are empty, so entries are never duplicated.
func (c *Canonical) AllPrescribed() []PrescribedDrugEntry {
	if len(c.InventoryDrugs) > 0 || len(c.AdditionalTherapy) > 0 {
		out := make([]PrescribedDrugEntry, 0, len(c.InventoryDrugs)+len(c.AdditionalTherapy))
		out = append(out, c.InventoryDrugs...)
		out = append(out, c.AdditionalTherapy...)
		return out
	}
	return append([]PrescribedDrugEntry(nil), c.DrugSuggestions...)
}
