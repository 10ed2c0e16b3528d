package inventory

import (
	"sort"
	"strings"

	"go.uber.org/zap"
)

// DefaultSelectionLimit caps how many inventory items are serialized into an
// outbound provider request. Unbounded inventories degrade the provider's
// response quality and can exceed transport limits.
const DefaultSelectionLimit = 200

// ScoredDrug pairs an inventory record with its relevance score.
type ScoredDrug struct {
	Record DrugRecord
	Score  float64
	Groups []string
}

// Selector ranks a practitioner's inventory against free-text complaint and
// symptom text so the outbound payload stays bounded. It operates on an
// immutable snapshot of the inventory and keeps no state between calls.
type Selector struct {
	vocab  *Vocabulary
	limit  int
	logger *zap.Logger
}

// NewSelector creates a selector with the given vocabulary. A nil vocabulary
// falls back to the built-in multilingual table.
func NewSelector(vocab *Vocabulary, limit int, logger *zap.Logger) *Selector {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if limit <= 0 {
		limit = DefaultSelectionLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Selector{vocab: vocab, limit: limit, logger: logger}
}

// Select filters the snapshot to in-stock items, scores each against the
// complaint text, and returns the ranked, size-bounded subset.
func (s *Selector) Select(records []DrugRecord, complaint string) []ScoredDrug {
	text := Fold(complaint)

	scored := make([]ScoredDrug, 0, len(records))
	for _, rec := range records {
		if !rec.InStock() {
			continue
		}
		scored = append(scored, s.score(rec, text))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	diversifyNearTies(scored)

	if len(scored) > s.limit {
		scored = scored[:s.limit]
	}

	s.logger.Debug("inventory ranked",
		zap.Int("candidates", len(records)),
		zap.Int("selected", len(scored)))

	return scored
}

// diversifyNearTies reorders windows of near-tied scores (within 2 of the
// window's leading score) by category name, so the payload does not become a
// monoculture of the single best-matching class. Mixing the tie-break into
// the sort comparator itself would not be a consistent ordering across
// chains of near-ties, so this runs as a bounded second pass over the
// score-sorted slice.
func diversifyNearTies(scored []ScoredDrug) {
	for start := 0; start < len(scored); {
		end := start + 1
		for end < len(scored) && scored[start].Score-scored[end].Score < 2 {
			end++
		}
		window := scored[start:end]
		sort.SliceStable(window, func(i, j int) bool {
			if window[i].Record.Category != window[j].Record.Category {
				return window[i].Record.Category < window[j].Record.Category
			}
			return window[i].Score > window[j].Score
		})
		start = end
	}
}

func (s *Selector) score(rec DrugRecord, complaintText string) ScoredDrug {
	drugText := rec.SearchText()

	var score float64
	var groups []string
	for _, rule := range s.vocab.Rules {
		if !rule.Complaint.MatchString(complaintText) {
			continue
		}
		for _, class := range rule.Classes {
			if strings.Contains(drugText, class) {
				score += 10
				groups = append(groups, rule.Group)
				break
			}
		}
	}

	// Every in-stock item stays eligible even when no rule fires.
	if score == 0 {
		score = 1
	}

	for _, name := range s.vocab.Essential {
		if strings.Contains(drugText, name) {
			score += 2
			break
		}
	}

	form := Fold(rec.Form)
	for _, preferred := range s.vocab.PreferredForms {
		if form != "" && strings.Contains(form, preferred) {
			score++
			break
		}
	}

	if rec.Category != "" {
		score += 0.5
	}

	return ScoredDrug{Record: rec, Score: score, Groups: groups}
}
