package ingest

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedJSONRE = regexp.MustCompile("(?s)```json\\s*(.+?)\\s*```")
	fencedAnyRE  = regexp.MustCompile("(?s)```\\s*(.+?)\\s*```")
)

// RecoverObject extracts one JSON object from a text blob, repairing it if
// the blob was truncated mid-stream by an upstream token limit. Returns
// ErrJSONRecovery when neither extraction nor repair yields parseable JSON.
func RecoverObject(text string) (json.RawMessage, error) {
	candidate, ok := extractCandidate(text)
	if !ok {
		return nil, fmt.Errorf("no JSON object found in %q: %w", truncateForLog(text), ErrJSONRecovery)
	}

	if json.Valid([]byte(candidate)) {
		return json.RawMessage(candidate), nil
	}

	repaired, ok := repairTruncated(candidate)
	if !ok || !json.Valid([]byte(repaired)) {
		return nil, fmt.Errorf("unrepairable JSON in %q: %w", truncateForLog(candidate), ErrJSONRecovery)
	}
	return json.RawMessage(repaired), nil
}

// extractCandidate tries, in order: a fenced json block, any fenced block,
// and the widest brace-delimited substring. The first hit wins. A truncated
// response usually loses its closing fence, so the brace fallback also
// accepts an unterminated tail.
func extractCandidate(text string) (string, bool) {
	if m := fencedJSONRE.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	if m := fencedAnyRE.FindStringSubmatch(text); m != nil {
		return m[1], true
	}

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	if end := strings.LastIndexByte(text, '}'); end > start {
		return text[start : end+1], true
	}
	return text[start:], true
}

// repairTruncated assumes the candidate was cut mid-field. It finds the last
// syntactically complete point, drops the partial tail, and closes every
// container still open at that point. Openers are tracked on a structural
// stack during the scan, so closers come out in true nesting order rather
// than brackets-then-braces guesswork.
func repairTruncated(candidate string) (string, bool) {
	cut := findSafeCut(candidate)
	kept := strings.TrimRight(candidate[:cut], " \t\r\n")
	kept = strings.TrimRight(kept, ",")
	if kept == "" {
		return "", false
	}

	stack := openContainers(kept)
	var b strings.Builder
	b.WriteString(kept)
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '[' {
			b.WriteByte(']')
		} else {
			b.WriteByte('}')
		}
	}
	return b.String(), true
}

// findSafeCut returns the byte offset (exclusive) of the last syntactically
// complete point: the later of the last comma following a complete value and
// the end of the last complete quoted value string. Object keys do not count;
// keeping a dangling key would leave the object invalid, so the scan tracks
// container context to tell keys from array-element strings.
func findSafeCut(s string) int {
	inString := false
	escaped := false
	prevSignificant := byte(0)
	var stack []byte

	lastValueEnd := -1 // index just past a closing value-string quote
	lastComma := -1    // index of a comma between complete members

	container := func() byte {
		if len(stack) == 0 {
			return 0
		}
		return stack[len(stack)-1]
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
				// Inside an object only a colon-preceded string is a value;
				// inside an array every string is.
				if prevSignificant == ':' || container() == '[' {
					lastValueEnd = i + 1
				}
				prevSignificant = '"'
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
			prevSignificant = c
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			prevSignificant = c
		case ',':
			lastComma = i
			prevSignificant = c
		case ' ', '\t', '\r', '\n':
			// whitespace never updates prevSignificant
		default:
			prevSignificant = c
		}
	}

	if lastComma > lastValueEnd {
		return lastComma
	}
	if lastValueEnd > 0 {
		return lastValueEnd
	}
	// No complete member at all: keep only the leading opener so the repair
	// degrades to an empty, structurally valid document.
	for i := 0; i < len(s); i++ {
		if s[i] == '{' || s[i] == '[' {
			return i + 1
		}
	}
	return 0
}

// openContainers scans a prefix known to end outside any string and returns
// the still-open container openers in nesting order.
func openContainers(s string) []byte {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return stack
}
