// Package ingest implements the inbound half of the clinical pipeline:
// envelope normalization, JSON recovery, and diagnosis field parsing.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EnvelopeKind discriminates the normalized envelope variants.
type EnvelopeKind int

const (
	// KindEmbeddedText means the payload carries markdown text with an
	// embedded JSON document that still needs extraction.
	KindEmbeddedText EnvelopeKind = iota
	// KindObject means the payload already is the diagnosis object.
	KindObject
)

// Envelope is the tagged union produced by NormalizeEnvelope. Exactly one of
// Text or Object is populated, according to Kind.
type Envelope struct {
	Kind   EnvelopeKind
	Text   string
	Object json.RawMessage
}

// NormalizeEnvelope unwraps whichever transport shape the provider returned:
//
//   - {"text": "...markdown with fenced JSON..."}
//   - [{"text": "..."}, ...] or [{"primary_diagnosis": ...}, ...]
//   - {"primary_diagnosis": ..., ...} directly
//
// Anything else fails with ErrTransportFormat.
func NormalizeEnvelope(raw []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty payload: %w", ErrTransportFormat)
	}

	if trimmed[0] == '[' {
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, fmt.Errorf("malformed array envelope: %w", ErrTransportFormat)
		}
		if len(elems) == 0 {
			return nil, fmt.Errorf("empty array envelope: %w", ErrTransportFormat)
		}
		return normalizeObject(elems[0])
	}

	if trimmed[0] == '{' {
		return normalizeObject(trimmed)
	}

	return nil, fmt.Errorf("payload is neither object nor array: %w", ErrTransportFormat)
}

func normalizeObject(raw json.RawMessage) (*Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("malformed object envelope: %w", ErrTransportFormat)
	}

	if textRaw, ok := fields["text"]; ok {
		var text string
		if err := json.Unmarshal(textRaw, &text); err != nil {
			return nil, fmt.Errorf("text field is not a string: %w", ErrTransportFormat)
		}
		return &Envelope{Kind: KindEmbeddedText, Text: text}, nil
	}

	return &Envelope{Kind: KindObject, Object: raw}, nil
}
