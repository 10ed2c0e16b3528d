package idempotency

import "testing"

func TestKeyDeterministic(t *testing.T) {
	a := Key("prac-1", "diag-1")
	b := Key("prac-1", "diag-1")
	if a != b {
		t.Errorf("same inputs produced different keys: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("key length = %d, want 64 hex chars", len(a))
	}
}

func TestKeyDistinguishesInputs(t *testing.T) {
	base := Key("prac-1", "diag-1")
	cases := map[string]string{
		"different diagnosis":    Key("prac-1", "diag-2"),
		"different practitioner": Key("prac-2", "diag-1"),
		"swapped fields":         Key("diag-1", "prac-1"),
	}
	for name, got := range cases {
		if got == base {
			t.Errorf("%s collided with base key", name)
		}
	}
	// The separator must prevent boundary ambiguity between the two IDs.
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("keys with shifted boundaries must not collide")
	}
}
