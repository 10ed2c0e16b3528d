package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/medlinka/go-cip/internal/diagnosis"
)

// DefaultConfidence is assumed when the provider omits a confidence score.
const DefaultConfidence = 0.85

// rawDiagnosis mirrors the provider object loosely: fields that arrive in
// more than one encoding stay raw until the helpers unify them.
type rawDiagnosis struct {
	PrimaryDiagnosis       string                          `json:"primary_diagnosis"`
	DifferentialDiagnoses  json.RawMessage                 `json:"differential_diagnoses"`
	RecommendedActions     json.RawMessage                 `json:"recommended_actions"`
	Treatment              json.RawMessage                 `json:"treatment"`
	InventoryDrugs         []diagnosis.PrescribedDrugEntry `json:"inventory_drugs"`
	AdditionalTherapy      []diagnosis.PrescribedDrugEntry `json:"additional_therapy"`
	DrugSuggestions        []diagnosis.PrescribedDrugEntry `json:"drug_suggestions"`
	SeverityLevel          string                          `json:"severity_level"`
	ConfidenceScore        json.RawMessage                 `json:"confidence_score"`
	ImprovedPatientHistory string                          `json:"improved_patient_history"`
	ClinicalAssessment     string                          `json:"clinical_assessment"`
	MonitoringPlan         string                          `json:"monitoring_plan"`
}

// ParseDiagnosis converts a parsed provider object into a canonical
// diagnosis record. Parsing fails as a whole when primary_diagnosis is
// absent; every other field degrades to a sensible default, and list fields
// are never nil on success.
func ParseDiagnosis(obj json.RawMessage) (*diagnosis.Canonical, error) {
	var raw rawDiagnosis
	if err := json.Unmarshal(obj, &raw); err != nil {
		return nil, fmt.Errorf("diagnosis object: %w", ErrJSONRecovery)
	}

	if strings.TrimSpace(raw.PrimaryDiagnosis) == "" {
		return nil, ErrMissingPrimaryDiagnosis
	}

	d := &diagnosis.Canonical{
		PrimaryDiagnosis:       strings.TrimSpace(raw.PrimaryDiagnosis),
		DifferentialDiagnoses:  stringList(raw.DifferentialDiagnoses),
		RecommendedActions:     stringList(raw.RecommendedActions),
		Treatment:              stringList(raw.Treatment),
		InventoryDrugs:         emptyIfNil(raw.InventoryDrugs),
		AdditionalTherapy:      emptyIfNil(raw.AdditionalTherapy),
		DrugSuggestions:        raw.DrugSuggestions,
		SeverityLevel:          resolveSeverity(raw.SeverityLevel, obj),
		ConfidenceScore:        confidence(raw.ConfidenceScore),
		ImprovedPatientHistory: raw.ImprovedPatientHistory,
		ClinicalAssessment:     raw.ClinicalAssessment,
		MonitoringPlan:         raw.MonitoringPlan,
	}
	return d, nil
}

// stringList accepts either a JSON array of strings or a single string split
// on commas and newlines. Empty segments are discarded, each segment trimmed.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}

	var items []string
	if err := json.Unmarshal(raw, &items); err == nil {
		out := make([]string, 0, len(items))
		for _, it := range items {
			if it = strings.TrimSpace(it); it != "" {
				out = append(out, it)
			}
		}
		return out
	}

	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return []string{}
	}

	segments := strings.FieldsFunc(single, func(r rune) bool {
		return r == ',' || r == '\n'
	})
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// confidence normalizes the incoming score: values above 1 are percentages.
func confidence(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return DefaultConfidence
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		// Some models quote the number.
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return DefaultConfidence
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return DefaultConfidence
		}
		v = parsed
	}

	if v > 1 {
		v /= 100
	}
	if v > 1 {
		v = 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

// Keyword groups scanned over the serialized response, in precedence order.
var severityKeywords = []struct {
	level    diagnosis.Severity
	keywords []string
}{
	{diagnosis.SeverityCritical, []string{"critical", "emergency", "immediate"}},
	{diagnosis.SeverityHigh, []string{"severe", "urgent"}},
	{diagnosis.SeverityLow, []string{"mild", "minor"}},
}

// resolveSeverity uses the explicit field when valid; otherwise the full
// serialized response is scanned case-insensitively in fixed precedence.
func resolveSeverity(explicit string, obj json.RawMessage) diagnosis.Severity {
	if s := diagnosis.Severity(strings.ToLower(strings.TrimSpace(explicit))); s.Valid() {
		return s
	}

	text := strings.ToLower(string(obj))
	for _, group := range severityKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(text, kw) {
				return group.level
			}
		}
	}
	return diagnosis.SeverityModerate
}

func emptyIfNil(entries []diagnosis.PrescribedDrugEntry) []diagnosis.PrescribedDrugEntry {
	if entries == nil {
		return []diagnosis.PrescribedDrugEntry{}
	}
	return entries
}
