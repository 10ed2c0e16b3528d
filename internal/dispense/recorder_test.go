package dispense

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/medlinka/go-cip/internal/diagnosis"
	"github.com/medlinka/go-cip/internal/inventory"
	"github.com/medlinka/go-cip/internal/reconcile"
)

type fakeCreator struct {
	mu      sync.Mutex
	created []DispensingRecord
	failOn  string
}

func (f *fakeCreator) Create(ctx context.Context, rec *DispensingRecord) error {
	if f.failOn != "" && rec.DrugName == f.failOn {
		return errors.New("connection reset")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *rec)
	return nil
}

func TestQuantityFromDosage(t *testing.T) {
	tests := []struct {
		dosage string
		want   int
	}{
		{"2 tablets twice daily", 2},
		{"take 1 capsule", 1},
		{"500mg every 8 hours", 500},
		{"as needed", 1},
		{"", 1},
	}
	for _, tt := range tests {
		if got := QuantityFromDosage(tt.dosage); got != tt.want {
			t.Errorf("QuantityFromDosage(%q) = %d, want %d", tt.dosage, got, tt.want)
		}
	}
}

func TestRecordCreatesEntryForEveryMatch(t *testing.T) {
	drug := inventory.DrugRecord{ID: "inv-1", Name: "Paracetamol 500mg"}
	matches := []reconcile.MatchResult{
		{
			Prescribed: diagnosis.PrescribedDrugEntry{DrugName: "Paracetamol 500mg", Dosage: "2 tablets"},
			Inventory:  &drug,
			Tier:       reconcile.TierRawExact,
		},
		{
			Prescribed: diagnosis.PrescribedDrugEntry{DrugName: "Ibuprofen 400mg", Dosage: "1 tablet"},
			Inventory:  &drug,
			Tier:       reconcile.TierNormalizedExact,
		},
		{
			Prescribed: diagnosis.PrescribedDrugEntry{DrugName: "Exotic Remedy", Dosage: "as directed"},
		},
	}

	repo := &fakeCreator{}
	rec := NewRecorder(repo, nil, nil)

	result, err := rec.Record(context.Background(), "diag-1", "prac-1", "org-1", matches)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Items) != 3 || result.Succeeded != 3 || result.Failed != 0 {
		t.Fatalf("result = %+v", result)
	}
	if len(repo.created) != 3 {
		t.Fatalf("created %d records, want 3", len(repo.created))
	}

	unmatched := result.Items[2].Record
	if unmatched.Matched() {
		t.Error("unmatched entry must have no inventory reference")
	}
	if unmatched.Notes == "" {
		t.Error("unmatched entry must carry a note")
	}
	if unmatched.Quantity != 1 {
		t.Errorf("unmatched quantity = %d, want default 1", unmatched.Quantity)
	}

	matched := result.Items[0].Record
	if matched.InventoryDrugID != "inv-1" || matched.Quantity != 2 {
		t.Errorf("matched record = %+v", matched)
	}
	if matched.DiagnosisID != "diag-1" || matched.PractitionerID != "prac-1" {
		t.Errorf("record missing linkage: %+v", matched)
	}
}

func TestRecordPartialFailure(t *testing.T) {
	matches := []reconcile.MatchResult{
		{Prescribed: diagnosis.PrescribedDrugEntry{DrugName: "Good"}},
		{Prescribed: diagnosis.PrescribedDrugEntry{DrugName: "Bad"}},
	}

	repo := &fakeCreator{failOn: "Bad"}
	rec := NewRecorder(repo, nil, nil)

	result, err := rec.Record(context.Background(), "diag-1", "prac-1", "org-1", matches)
	if err != nil {
		t.Fatalf("batch must not fail as a whole: %v", err)
	}
	if result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if result.Items[1].Err == "" {
		t.Error("failed item must carry its error")
	}
	if result.Items[0].Err != "" {
		t.Error("succeeded item must not carry an error")
	}
}

func TestRecordEmptyBatch(t *testing.T) {
	rec := NewRecorder(&fakeCreator{}, nil, nil)
	result, err := rec.Record(context.Background(), "diag-1", "prac-1", "org-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Items) != 0 || result.Succeeded != 0 || result.Failed != 0 {
		t.Errorf("result = %+v", result)
	}
}
