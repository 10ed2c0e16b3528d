// Package provider calls the external diagnosis service and assembles its
// request payload from the patient complaint and the selected inventory.
package provider

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/medlinka/go-cip/internal/inventory"
)

// maxInventoryLines bounds the inventory summary sent upstream. The selector
// already caps the candidate list; this is a second guard so a misconfigured
// limit cannot blow up the request body.
const maxInventoryLines = 200

// Vitals carries optional measurements taken at intake.
type Vitals struct {
	TemperatureC  float64 `json:"temperature_c,omitempty"`
	HeartRate     int     `json:"heart_rate,omitempty"`
	BloodPressure string  `json:"blood_pressure,omitempty"`
	SpO2          int     `json:"spo2,omitempty"`
}

// DiagnosisRequest is the payload sent to the diagnosis provider.
type DiagnosisRequest struct {
	Complaint        string   `json:"complaint"`
	Age              int      `json:"age,omitempty"`
	Gender           string   `json:"gender,omitempty"`
	Symptoms         []string `json:"symptoms,omitempty"`
	DetectedLanguage string   `json:"detected_language"`
	DrugInventory    string   `json:"drug_inventory,omitempty"`
	HasDrugInventory bool     `json:"has_drug_inventory"`
	Vitals           *Vitals  `json:"vitals,omitempty"`
}

// PatientContext is the caller-supplied intake data.
type PatientContext struct {
	Complaint string
	Age       int
	Gender    string
	Symptoms  []string
	Vitals    *Vitals
}

// BuildRequest assembles the provider payload: detected language from the
// complaint text, plus a newline-delimited summary of the selected drugs.
func BuildRequest(patient PatientContext, selected []inventory.ScoredDrug) DiagnosisRequest {
	req := DiagnosisRequest{
		Complaint:        patient.Complaint,
		Age:              patient.Age,
		Gender:           patient.Gender,
		Symptoms:         patient.Symptoms,
		DetectedLanguage: DetectLanguage(patient.Complaint),
		Vitals:           patient.Vitals,
	}

	if len(selected) > 0 {
		req.DrugInventory = summarizeInventory(selected)
		req.HasDrugInventory = true
	}

	return req
}

// summarizeInventory renders one line per drug so the provider can reference
// stock without a structured schema.
func summarizeInventory(selected []inventory.ScoredDrug) string {
	n := len(selected)
	if n > maxInventoryLines {
		n = maxInventoryLines
	}

	var b strings.Builder
	for i := 0; i < n; i++ {
		rec := selected[i].Record
		b.WriteString(rec.Name)
		if rec.Form != "" {
			b.WriteString(fmt.Sprintf(" (%s)", rec.Form))
		}
		if rec.Category != "" {
			b.WriteString(" - ")
			b.WriteString(rec.Category)
		}
		b.WriteString(fmt.Sprintf(" [stock: %d]", rec.StockQuantity))
		if i < n-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// latvianMarkers are diacritics unique enough to Latvian among the clinic's
// supported languages.
const latvianMarkers = "āčēģīķļņšūž"

// latvianKeywords are stored unaccented and matched against the folded
// complaint, so both "vēders" and the keyboard-lazy "veders" count.
var latvianKeywords = []string{
	"sap", "galva", "drudzis", "klepus", "iesnas", "veders", "temperatura", "slikti",
}

// DetectLanguage classifies the complaint as one of the supported intake
// languages: Cyrillic script means Russian, Latvian diacritics or common
// complaint words mean Latvian, anything else defaults to English.
func DetectLanguage(text string) string {
	lower := strings.ToLower(text)

	for _, r := range lower {
		if unicode.Is(unicode.Cyrillic, r) {
			return "ru"
		}
	}

	if strings.ContainsAny(lower, latvianMarkers) {
		return "lv"
	}
	folded := inventory.Fold(text)
	for _, kw := range latvianKeywords {
		if strings.Contains(folded, kw) {
			return "lv"
		}
	}

	return "en"
}
