package util

import "testing"

func TestFingerprint(t *testing.T) {
	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Fingerprint([]byte("abc")); got != want {
		t.Fatalf("Fingerprint(abc) = %s", got)
	}
}

func TestShortKey(t *testing.T) {
	id := "9b2f6c1e-2c7d-4c55-9d1a-6f1f3f0f5a10"
	got := ShortKey(id)
	if got != ShortKey(id) {
		t.Fatalf("expected stable key, got %s", got)
	}
	if len(got) != 16 {
		t.Fatalf("expected 16 characters, got %d", len(got))
	}
	if got == ShortKey(id+"x") {
		t.Fatalf("expected distinct keys for distinct ids")
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("key contains non-hex character: %c", ch)
		}
	}
}
