package inventory

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRE = regexp.MustCompile(`\s+`)

	// Trailing package-size tokens such as "N20" or "N 30".
	packSizeRE = regexp.MustCompile(`(?:^|\s)n\s?\d+$`)

	// Slash-ratio dosage notation: "500 mg/125 mg" collapses to "500mg".
	slashRatioRE = regexp.MustCompile(`(\d+)\s*(mg|mcg|g|ml|iu)\s*/\s*\d+\s*(?:mg|mcg|g|ml|iu)`)
)

// Unit and form words stripped only when they are the trailing qualifier.
var trailingForms = map[string]bool{
	"tablet":   true,
	"tablets":  true,
	"tabletes": true,
	"tablete":  true,
	"tab":      true,
	"tabs":     true,
	"capsule":  true,
	"capsules": true,
	"kapsulas": true,
	"kapsula":  true,
	"caps":     true,
	"mg":       true,
	"mcg":      true,
	"g":        true,
	"ml":       true,
	"pills":    true,
}

// Descriptive phrases removed regardless of position. Checked against the
// diacritic-folded lower-case string, so "apvalkotās" arrives as "apvalkotas".
var descriptivePhrases = []string{
	"apvalkotas tabletes",
	"orally disintegrating",
	"prolonged-release",
	"prolonged release",
	"modified release",
	"film-coated",
	"film coated",
	"enteric coated",
	"coated",
	"apvalkotas",
	"ilgstosas darbibas",
	"skistosas",
	"putojosas",
	"покрытые оболочкой",
	"пролонгированного действия",
}

var foldChain = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lower-cases and strips combining diacritics so that Latvian and other
// accented text compares equal to its plain-ASCII spelling.
func Fold(s string) string {
	folded, _, err := transform.String(foldChain, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}

// NormalizeName converts a raw drug name into a canonical comparison key.
// The transform is idempotent: NormalizeName(NormalizeName(x)) == NormalizeName(x).
// It performs no I/O and keeps no state.
func NormalizeName(raw string) string {
	s := Fold(raw)

	s = slashRatioRE.ReplaceAllString(s, "$1$2")
	s = strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))

	for _, phrase := range descriptivePhrases {
		s = strings.ReplaceAll(s, phrase, " ")
	}

	s = strings.TrimSpace(whitespaceRE.ReplaceAllString(s, " "))

	// Trailing qualifiers can stack ("400mg n20 tabletes"), so strip until
	// the tail is stable.
	for {
		trimmed := stripTrailing(s)
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

func stripTrailing(s string) string {
	if m := packSizeRE.FindStringIndex(s); m != nil {
		return strings.TrimSpace(s[:m[0]])
	}
	if i := strings.LastIndexByte(s, ' '); i > 0 {
		if trailingForms[s[i+1:]] {
			return strings.TrimSpace(s[:i])
		}
	}
	return s
}

// CollapseSpaces lower-cases and collapses whitespace without any further
// normalization. The reconciler's first tier compares names in this raw form.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(strings.ToLower(s), " "))
}
