// Package integration exercises the full response path: raw provider bytes
// through ingestion, reconciliation and dispensing, without external
// services.
package integration

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/medlinka/go-cip/internal/dispense"
	"github.com/medlinka/go-cip/internal/ingest"
	"github.com/medlinka/go-cip/internal/inventory"
	"github.com/medlinka/go-cip/internal/reconcile"
)

type memoryCreator struct {
	mu      sync.Mutex
	records []dispense.DispensingRecord
}

func (m *memoryCreator) Create(ctx context.Context, rec *dispense.DispensingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *rec)
	return nil
}

// textEnvelope wraps provider markdown in the transport shape the service
// actually returns: a JSON object with the prose under a "text" field.
func textEnvelope(t *testing.T, text string) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		t.Fatalf("envelope marshal: %v", err)
	}
	return raw
}

func clinicSnapshot() []inventory.DrugRecord {
	return []inventory.DrugRecord{
		{ID: "inv-1", Name: "Ibuprofen 400mg N20 tabletes", Category: "analgesics", Form: "tabletes", StockQuantity: 20},
		{ID: "inv-2", Name: "Paracetamol 500mg", Category: "analgesics", StockQuantity: 15},
		{ID: "inv-3", Name: "Loratadīns 10mg tabletes", Category: "antihistamines", StockQuantity: 8},
	}
}

func TestResponseToDispensing(t *testing.T) {
	text := "Based on the symptoms, here is my assessment:\n" +
		"```json\n" +
		`{
			"primary_diagnosis": "Migraine with tension component",
			"severity_level": "moderate",
			"confidence_score": 82,
			"differential_diagnoses": "tension headache, cluster headache",
			"inventory_drugs": [
				{"drug_name": "Ibuprofen 400mg", "dosage": "1 tablet every 8 hours", "duration": "5 days"},
				{"drug_name": "Paracetamol 500mg", "dosage": "2 tablets as needed"}
			],
			"additional_therapy": [
				{"drug_name": "Sumatriptan 50mg", "dosage": "1 tablet at onset"}
			]
		}` + "\n```\nLet me know if you need more detail."

	pipeline := ingest.NewPipeline(nil)
	d, err := pipeline.Ingest(context.Background(), textEnvelope(t, text))
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	if d.PrimaryDiagnosis != "Migraine with tension component" {
		t.Errorf("primary = %q", d.PrimaryDiagnosis)
	}
	if d.ConfidenceScore != 0.82 {
		t.Errorf("confidence = %v, want 0.82", d.ConfidenceScore)
	}
	if len(d.DifferentialDiagnoses) != 2 {
		t.Errorf("differential = %v", d.DifferentialDiagnoses)
	}

	prescribed := d.AllPrescribed()
	if len(prescribed) != 3 {
		t.Fatalf("prescribed = %d entries, want 3", len(prescribed))
	}

	snapshot := clinicSnapshot()
	matches := reconcile.New(nil).Reconcile(prescribed, snapshot)

	if !matches[0].Matched() || matches[0].Inventory.ID != "inv-1" {
		t.Errorf("ibuprofen match = %+v", matches[0])
	}
	if !matches[1].Matched() || matches[1].Inventory.ID != "inv-2" {
		t.Errorf("paracetamol match = %+v", matches[1])
	}
	if matches[2].Matched() {
		t.Errorf("sumatriptan must be unmatched: %+v", matches[2])
	}

	creator := &memoryCreator{}
	recorder := dispense.NewRecorder(creator, nil, nil)
	result, err := recorder.Record(context.Background(), "diag-1", "prac-1", "org-1", matches)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}

	if result.Succeeded != 3 || result.Failed != 0 {
		t.Fatalf("batch result = %+v", result)
	}
	if len(creator.records) != 3 {
		t.Fatalf("persisted %d records, want 3", len(creator.records))
	}

	var unmatched int
	for _, rec := range creator.records {
		if !rec.Matched() {
			unmatched++
			if rec.Notes == "" {
				t.Error("unmatched record must carry a note")
			}
		}
	}
	if unmatched != 1 {
		t.Errorf("unmatched records = %d, want 1", unmatched)
	}
}

func TestTruncatedResponseStillDispensable(t *testing.T) {
	// Connection dropped mid-list: the second entry is cut off and must be
	// discarded while the first survives.
	text := "```json\n" +
		`{"primary_diagnosis": "Allergic rhinitis",
		  "inventory_drugs": [
			{"drug_name": "Loratadīns 10mg tabletes", "dosage": "1 tablet daily"},
			{"drug_name": "Ceti`

	pipeline := ingest.NewPipeline(nil)
	d, err := pipeline.Ingest(context.Background(), textEnvelope(t, text))
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}

	prescribed := d.AllPrescribed()
	if len(prescribed) != 1 {
		t.Fatalf("prescribed = %+v, want the one complete entry", prescribed)
	}

	matches := reconcile.New(nil).Reconcile(prescribed, clinicSnapshot())
	if !matches[0].Matched() || matches[0].Inventory.ID != "inv-3" {
		t.Errorf("loratadine match = %+v", matches[0])
	}
}

func TestSelectorFeedsBoundedInventory(t *testing.T) {
	selector := inventory.NewSelector(nil, 2, nil)
	selected := selector.Select(clinicSnapshot(), "stipras galvassāpes")

	if len(selected) != 2 {
		t.Fatalf("selected = %d, want limit 2", len(selected))
	}
	// Analgesics must outrank the antihistamine for a headache complaint.
	for _, s := range selected {
		if s.Record.Category != "analgesics" {
			t.Errorf("unexpected selection: %+v", s.Record.Name)
		}
	}
}
