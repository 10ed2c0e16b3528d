package ingest

import (
	"errors"
	"testing"
)

func TestNormalizeEnvelopeTextObject(t *testing.T) {
	env, err := NormalizeEnvelope([]byte(`{"text": "some markdown"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Kind != KindEmbeddedText {
		t.Errorf("kind = %v, want KindEmbeddedText", env.Kind)
	}
	if env.Text != "some markdown" {
		t.Errorf("text = %q", env.Text)
	}
}

func TestNormalizeEnvelopeDirectObject(t *testing.T) {
	env, err := NormalizeEnvelope([]byte(`{"primary_diagnosis": "flu"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Kind != KindObject {
		t.Errorf("kind = %v, want KindObject", env.Kind)
	}
}

func TestNormalizeEnvelopeArrayWithText(t *testing.T) {
	env, err := NormalizeEnvelope([]byte(`[{"text": "payload"}, {"text": "ignored"}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Kind != KindEmbeddedText || env.Text != "payload" {
		t.Errorf("got kind=%v text=%q", env.Kind, env.Text)
	}
}

func TestNormalizeEnvelopeArrayWithDiagnosis(t *testing.T) {
	env, err := NormalizeEnvelope([]byte(`[{"primary_diagnosis": "flu"}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Kind != KindObject {
		t.Errorf("kind = %v, want KindObject", env.Kind)
	}
}

func TestNormalizeEnvelopeRejectsUnknownShapes(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("   "),
		[]byte(`"just a string"`),
		[]byte(`42`),
		[]byte(`[]`),
		[]byte(`[42]`),
		[]byte(`{"text": 42}`),
		[]byte(`{broken`),
	}
	for _, raw := range cases {
		if _, err := NormalizeEnvelope(raw); !errors.Is(err, ErrTransportFormat) {
			t.Errorf("NormalizeEnvelope(%q) error = %v, want ErrTransportFormat", raw, err)
		}
	}
}
