package ingest

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/medlinka/go-cip/internal/diagnosis"
)

func TestParseDiagnosisRequiresPrimary(t *testing.T) {
	_, err := ParseDiagnosis(json.RawMessage(`{"treatment": ["rest"]}`))
	if !errors.Is(err, ErrMissingPrimaryDiagnosis) {
		t.Errorf("error = %v, want ErrMissingPrimaryDiagnosis", err)
	}
}

func TestParseDiagnosisListOrString(t *testing.T) {
	obj := json.RawMessage(`{
		"primary_diagnosis": "flu",
		"differential_diagnoses": "flu, cold, allergy",
		"recommended_actions": ["rest", "hydration"],
		"treatment": "paracetamol 500mg\nwarm fluids,  "
	}`)

	d, err := ParseDiagnosis(obj)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantDiff := []string{"flu", "cold", "allergy"}
	if len(d.DifferentialDiagnoses) != 3 {
		t.Fatalf("differential = %v", d.DifferentialDiagnoses)
	}
	for i, w := range wantDiff {
		if d.DifferentialDiagnoses[i] != w {
			t.Errorf("differential[%d] = %q, want %q", i, d.DifferentialDiagnoses[i], w)
		}
	}
	if len(d.RecommendedActions) != 2 {
		t.Errorf("recommended_actions = %v", d.RecommendedActions)
	}
	if len(d.Treatment) != 2 || d.Treatment[0] != "paracetamol 500mg" {
		t.Errorf("treatment = %v", d.Treatment)
	}
}

func TestParseDiagnosisListsNeverNil(t *testing.T) {
	d, err := ParseDiagnosis(json.RawMessage(`{"primary_diagnosis": "flu"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.DifferentialDiagnoses == nil || d.RecommendedActions == nil ||
		d.Treatment == nil || d.InventoryDrugs == nil || d.AdditionalTherapy == nil {
		t.Error("list fields must default to empty, never nil")
	}
}

func TestParseDiagnosisConfidence(t *testing.T) {
	tests := []struct {
		name string
		obj  string
		want float64
	}{
		{"percentage", `{"primary_diagnosis": "x", "confidence_score": 87}`, 0.87},
		{"already normalized", `{"primary_diagnosis": "x", "confidence_score": 0.62}`, 0.62},
		{"absent", `{"primary_diagnosis": "x"}`, 0.85},
		{"quoted", `{"primary_diagnosis": "x", "confidence_score": "75"}`, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDiagnosis(json.RawMessage(tt.obj))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.ConfidenceScore != tt.want {
				t.Errorf("confidence = %v, want %v", d.ConfidenceScore, tt.want)
			}
		})
	}
}

func TestParseDiagnosisSeverity(t *testing.T) {
	tests := []struct {
		name string
		obj  string
		want diagnosis.Severity
	}{
		{"explicit", `{"primary_diagnosis": "x", "severity_level": "HIGH"}`, diagnosis.SeverityHigh},
		{"inferred critical", `{"primary_diagnosis": "x", "clinical_assessment": "requires immediate critical care"}`, diagnosis.SeverityCritical},
		{"inferred high", `{"primary_diagnosis": "x", "clinical_assessment": "severe presentation"}`, diagnosis.SeverityHigh},
		{"inferred low", `{"primary_diagnosis": "x", "clinical_assessment": "mild symptoms"}`, diagnosis.SeverityLow},
		{"default moderate", `{"primary_diagnosis": "x"}`, diagnosis.SeverityModerate},
		{"critical beats mild", `{"primary_diagnosis": "x", "clinical_assessment": "mild now but critical if untreated"}`, diagnosis.SeverityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDiagnosis(json.RawMessage(tt.obj))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.SeverityLevel != tt.want {
				t.Errorf("severity = %q, want %q", d.SeverityLevel, tt.want)
			}
		})
	}
}

func TestParseDiagnosisDrugShapes(t *testing.T) {
	split := json.RawMessage(`{
		"primary_diagnosis": "flu",
		"inventory_drugs": [{"drug_name": "Paracetamol", "dosage": "2 tablets"}],
		"additional_therapy": [{"drug_name": "Vitamin C", "dosage": "1 daily"}]
	}`)
	d, err := ParseDiagnosis(split)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.InventoryDrugs) != 1 || len(d.AdditionalTherapy) != 1 {
		t.Fatalf("split shape not preserved: %+v", d)
	}
	if got := d.AllPrescribed(); len(got) != 2 {
		t.Errorf("AllPrescribed = %d entries, want 2", len(got))
	}

	legacy := json.RawMessage(`{
		"primary_diagnosis": "flu",
		"drug_suggestions": [
			{"drug_name": "Paracetamol", "source": "inventory"},
			{"drug_name": "Vitamin C", "source": "additional"}
		]
	}`)
	d, err = ParseDiagnosis(legacy)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.DrugSuggestions) != 2 {
		t.Fatalf("legacy shape not preserved: %+v", d)
	}
	if got := d.AllPrescribed(); len(got) != 2 || got[0].Source != "inventory" {
		t.Errorf("AllPrescribed legacy = %+v", got)
	}
}
