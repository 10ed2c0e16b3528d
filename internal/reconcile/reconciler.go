// Package reconcile matches prescribed drug entries against a practitioner's
// inventory snapshot.
package reconcile

import (
	"strings"

	"go.uber.org/zap"

	"github.com/medlinka/go-cip/internal/diagnosis"
	"github.com/medlinka/go-cip/internal/inventory"
)

// Tier identifies the matching strategy that produced a result, most precise
// first. Recorded for diagnostics and assertions.
type Tier int

const (
	TierNone Tier = iota
	TierRawExact
	TierNormalizedExact
	TierContainment
	TierIdentifier
)

func (t Tier) String() string {
	switch t {
	case TierRawExact:
		return "raw_exact"
	case TierNormalizedExact:
		return "normalized_exact"
	case TierContainment:
		return "containment"
	case TierIdentifier:
		return "identifier"
	default:
		return "none"
	}
}

// containmentMinLen guards the containment tier against short substrings
// producing false positives ("acid" matching "folic acid").
const containmentMinLen = 5

// MatchResult links one prescribed entry to at most one inventory record.
// A nil Inventory is a valid outcome, not an error.
type MatchResult struct {
	Prescribed diagnosis.PrescribedDrugEntry
	Inventory  *inventory.DrugRecord
	Tier       Tier
}

// Matched reports whether an inventory record was found.
func (m MatchResult) Matched() bool { return m.Inventory != nil }

// Reconciler matches prescribed entries against an immutable inventory
// snapshot. The snapshot is never mutated.
type Reconciler struct {
	logger *zap.Logger
}

// New creates a reconciler.
func New(logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{logger: logger}
}

// Reconcile produces one MatchResult per prescribed entry, preserving input
// order.
func (r *Reconciler) Reconcile(entries []diagnosis.PrescribedDrugEntry, snapshot []inventory.DrugRecord) []MatchResult {
	results := make([]MatchResult, 0, len(entries))
	for _, entry := range entries {
		results = append(results, r.match(entry, snapshot))
	}
	return results
}

// match evaluates the tiers in strict priority order; the first tier that
// produces any match wins, and within a tier the first inventory record in
// iteration order is selected.
func (r *Reconciler) match(entry diagnosis.PrescribedDrugEntry, snapshot []inventory.DrugRecord) MatchResult {
	result := MatchResult{Prescribed: entry}

	rawName := inventory.CollapseSpaces(entry.DrugName)
	if rawName != "" {
		for i := range snapshot {
			if inventory.CollapseSpaces(snapshot[i].Name) == rawName {
				result.Inventory = &snapshot[i]
				result.Tier = TierRawExact
				return result
			}
		}
	}

	normName := inventory.NormalizeName(entry.DrugName)
	if normName != "" {
		for i := range snapshot {
			if inventory.NormalizeName(snapshot[i].Name) == normName {
				result.Inventory = &snapshot[i]
				result.Tier = TierNormalizedExact
				return result
			}
		}

		for i := range snapshot {
			if containsGuarded(inventory.NormalizeName(snapshot[i].Name), normName) {
				result.Inventory = &snapshot[i]
				result.Tier = TierContainment
				return result
			}
		}
	}

	if id := linkageID(entry); id != "" {
		for i := range snapshot {
			if snapshot[i].ID == id {
				result.Inventory = &snapshot[i]
				result.Tier = TierIdentifier
				return result
			}
		}
	}

	r.logger.Debug("no inventory match",
		zap.String("drug_name", entry.DrugName),
		zap.String("normalized", normName))
	return result
}

// containsGuarded accepts containment in either direction, but only when the
// contained string is long enough to be meaningful.
func containsGuarded(a, b string) bool {
	if len(b) > containmentMinLen && strings.Contains(a, b) {
		return true
	}
	if len(a) > containmentMinLen && strings.Contains(b, a) {
		return true
	}
	return false
}

func linkageID(entry diagnosis.PrescribedDrugEntry) string {
	if entry.DrugID != "" {
		return entry.DrugID
	}
	return entry.ID
}
