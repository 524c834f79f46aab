package token

import (
	"encoding/hex"
	"testing"
)

func TestNew(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok := New()
		if len(tok) != 64 {
			t.Fatalf("token length %d, want 64", len(tok))
		}
		if _, err := hex.DecodeString(tok); err != nil {
			t.Fatalf("token not hex: %v", err)
		}
		if seen[tok] {
			t.Fatal("duplicate token generated")
		}
		seen[tok] = true
	}
}
