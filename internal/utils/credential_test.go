package utils

import "testing"

func TestNewCredential(t *testing.T) {
	t.Parallel()

	c, err := NewCredential()
	if err != nil {
		t.Fatalf("NewCredential: %v", err)
	}
	if len(c.Raw) != CredentialBytes*2 {
		t.Fatalf("raw credential length = %d, want %d", len(c.Raw), CredentialBytes*2)
	}
	if len(c.Hash) != 64 {
		t.Fatalf("hash length = %d, want 64", len(c.Hash))
	}
	for _, r := range c.Raw {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			t.Fatalf("raw credential contains non-hex rune %q", r)
		}
	}
	// hashing the issued raw value must reproduce the stored digest
	if HashCredential(c.Raw) != c.Hash {
		t.Fatalf("HashCredential(raw) does not match issued hash")
	}

	c2, err := NewCredential()
	if err != nil {
		t.Fatalf("NewCredential: %v", err)
	}
	if c2.Raw == c.Raw {
		t.Fatalf("two credentials came out identical")
	}
}
