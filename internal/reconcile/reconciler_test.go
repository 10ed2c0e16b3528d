package reconcile

import (
	"testing"

	"github.com/medlinka/go-cip/internal/diagnosis"
	"github.com/medlinka/go-cip/internal/inventory"
)

func snapshot() []inventory.DrugRecord {
	return []inventory.DrugRecord{
		{ID: "inv-1", Name: "Ibuprofen 400mg N20 tabletes", StockQuantity: 20},
		{ID: "inv-2", Name: "Folic Acid 5mg", StockQuantity: 30},
		{ID: "inv-3", Name: "Paracetamol 500mg", StockQuantity: 15},
		{ID: "inv-4", Name: "Amoxicillin/Clavulanic acid 500 mg/125 mg", StockQuantity: 10},
	}
}

func TestTierRawExact(t *testing.T) {
	r := New(nil)
	results := r.Reconcile([]diagnosis.PrescribedDrugEntry{
		{DrugName: "  paracetamol   500MG "},
	}, snapshot())

	if !results[0].Matched() || results[0].Inventory.ID != "inv-3" {
		t.Fatalf("result = %+v", results[0])
	}
	if results[0].Tier != TierRawExact {
		t.Errorf("tier = %v, want raw exact", results[0].Tier)
	}
}

func TestTierNormalizedExact(t *testing.T) {
	r := New(nil)
	results := r.Reconcile([]diagnosis.PrescribedDrugEntry{
		{DrugName: "Ibuprofen 400mg"},
	}, snapshot())

	if !results[0].Matched() || results[0].Inventory.ID != "inv-1" {
		t.Fatalf("result = %+v", results[0])
	}
	if results[0].Tier != TierNormalizedExact {
		t.Errorf("tier = %v, want normalized exact", results[0].Tier)
	}
}

func TestTierContainment(t *testing.T) {
	r := New(nil)
	results := r.Reconcile([]diagnosis.PrescribedDrugEntry{
		{DrugName: "Amoxicillin/Clavulanic"},
	}, snapshot())

	if !results[0].Matched() || results[0].Inventory.ID != "inv-4" {
		t.Fatalf("result = %+v", results[0])
	}
	if results[0].Tier != TierContainment {
		t.Errorf("tier = %v, want containment", results[0].Tier)
	}
}

func TestContainmentGuardBlocksShortNames(t *testing.T) {
	r := New(nil)
	results := r.Reconcile([]diagnosis.PrescribedDrugEntry{
		{DrugName: "Acid"},
	}, snapshot())

	if results[0].Matched() {
		t.Fatalf("short name must not match via containment: %+v", results[0])
	}
}

func TestTierIdentifier(t *testing.T) {
	r := New(nil)
	results := r.Reconcile([]diagnosis.PrescribedDrugEntry{
		{DrugName: "Acid", DrugID: "inv-2"},
	}, snapshot())

	if !results[0].Matched() || results[0].Inventory.ID != "inv-2" {
		t.Fatalf("result = %+v", results[0])
	}
	if results[0].Tier != TierIdentifier {
		t.Errorf("tier = %v, want identifier", results[0].Tier)
	}
}

func TestUnmatchedIsValidOutcome(t *testing.T) {
	r := New(nil)
	results := r.Reconcile([]diagnosis.PrescribedDrugEntry{
		{DrugName: "Something Unstocked 10mg"},
	}, snapshot())

	if results[0].Matched() {
		t.Fatalf("expected no match: %+v", results[0])
	}
	if results[0].Tier != TierNone {
		t.Errorf("tier = %v, want none", results[0].Tier)
	}
}

func TestFirstInventoryOrderWinsWithinTier(t *testing.T) {
	r := New(nil)
	snap := []inventory.DrugRecord{
		{ID: "first", Name: "Paracetamol 500mg"},
		{ID: "second", Name: "Paracetamol 500mg"},
	}
	results := r.Reconcile([]diagnosis.PrescribedDrugEntry{
		{DrugName: "Paracetamol 500mg"},
	}, snap)

	if results[0].Inventory.ID != "first" {
		t.Errorf("expected first record in iteration order, got %s", results[0].Inventory.ID)
	}
}

func TestReconcilePreservesOrder(t *testing.T) {
	r := New(nil)
	entries := []diagnosis.PrescribedDrugEntry{
		{DrugName: "Paracetamol 500mg"},
		{DrugName: "Unknown"},
		{DrugName: "Ibuprofen 400mg"},
	}
	results := r.Reconcile(entries, snapshot())
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if results[1].Matched() {
		t.Error("middle entry should be unmatched")
	}
	if results[0].Inventory.ID != "inv-3" || results[2].Inventory.ID != "inv-1" {
		t.Error("order not preserved")
	}
}
