package ingest

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestRecoverObjectFencedJSON(t *testing.T) {
	text := "Here is the result:\n```json\n{\"primary_diagnosis\": \"flu\"}\n```\nDone."
	obj, err := RecoverObject(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(obj, &m); err != nil {
		t.Fatalf("result not parseable: %v", err)
	}
	if m["primary_diagnosis"] != "flu" {
		t.Errorf("primary_diagnosis = %v", m["primary_diagnosis"])
	}
}

func TestRecoverObjectPlainFence(t *testing.T) {
	text := "```\n{\"primary_diagnosis\": \"cold\"}\n```"
	obj, err := RecoverObject(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !json.Valid(obj) {
		t.Error("invalid JSON returned")
	}
}

func TestRecoverObjectBareBraces(t *testing.T) {
	text := "The diagnosis follows. {\"primary_diagnosis\": \"angina\"} That is all."
	obj, err := RecoverObject(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(obj, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["primary_diagnosis"] != "angina" {
		t.Errorf("primary_diagnosis = %v", m["primary_diagnosis"])
	}
}

func TestRecoverObjectRepairsTruncatedValue(t *testing.T) {
	// Cut mid-way through the second field's value.
	text := "```json\n{\"primary_diagnosis\": \"pneumonia\", \"clinical_assessment\": \"patient pres"
	obj, err := RecoverObject(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(obj, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["primary_diagnosis"] != "pneumonia" {
		t.Errorf("primary_diagnosis = %v", m["primary_diagnosis"])
	}
	if _, ok := m["clinical_assessment"]; ok {
		t.Error("partial trailing field should have been discarded")
	}
}

func TestRecoverObjectRepairsNestedTruncation(t *testing.T) {
	text := `{"primary_diagnosis": "flu", "treatment": ["rest", "fluids", "ibupro`
	obj, err := RecoverObject(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m struct {
		Primary   string   `json:"primary_diagnosis"`
		Treatment []string `json:"treatment"`
	}
	if err := json.Unmarshal(obj, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Primary != "flu" {
		t.Errorf("primary = %q", m.Primary)
	}
	if len(m.Treatment) != 2 || m.Treatment[1] != "fluids" {
		t.Errorf("treatment = %v, want the two complete elements", m.Treatment)
	}
}

func TestRecoverObjectDanglingKeyDiscarded(t *testing.T) {
	text := `{"primary_diagnosis": "flu", "severity_level`
	obj, err := RecoverObject(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(obj, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(m) != 1 {
		t.Errorf("expected only the complete field, got %v", m)
	}
}

func TestRecoverObjectNoJSON(t *testing.T) {
	if _, err := RecoverObject("no structured content here"); !errors.Is(err, ErrJSONRecovery) {
		t.Errorf("error = %v, want ErrJSONRecovery", err)
	}
}

// Truncating a valid fenced response at any point past its opening must
// either recover to structurally valid JSON or fail cleanly; it must never
// panic or return garbage.
func TestRecoverObjectTruncationSweep(t *testing.T) {
	full := "Result:\n```json\n{\"primary_diagnosis\": \"acute bronchitis\", " +
		"\"differential_diagnoses\": [\"pneumonia\", \"asthma\"], " +
		"\"treatment\": [\"rest\", \"ambroxol 30mg\"], " +
		"\"confidence_score\": 0.9, \"severity_level\": \"moderate\"}\n```"

	for cut := 50; cut < len(full); cut++ {
		obj, err := RecoverObject(full[:cut])
		if err != nil {
			if !errors.Is(err, ErrJSONRecovery) {
				t.Fatalf("cut=%d: unexpected error type: %v", cut, err)
			}
			continue
		}
		if !json.Valid(obj) {
			t.Fatalf("cut=%d: recovered object is not valid JSON: %s", cut, obj)
		}
	}
}
