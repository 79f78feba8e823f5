package types

import (
	"strings"
	"testing"
)

func TestHashBytes(t *testing.T) {
	got := HashBytes([]byte(""))
	// SHA-256 of the empty string is a well-known digest.
	want := "sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Errorf("HashBytes(empty) = %q, want %q", got, want)
	}

	if HashBytes([]byte("a")) == HashBytes([]byte("b")) {
		t.Error("distinct inputs produced the same hash")
	}
}

func TestValidateContentHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
		ok   bool
	}{
		{"canonical", HashBytes([]byte("x")), true},
		{"missing prefix", strings.Repeat("a", 64), false},
		{"short digest", "sha256:abc", false},
		{"non-hex digest", "sha256:" + strings.Repeat("z", 64), false},
		{"uppercase digest", "sha256:" + strings.Repeat("A", 64), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContentHash(tt.hash)
			if tt.ok && err != nil {
				t.Errorf("ValidateContentHash(%q) = %v, want nil", tt.hash, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("ValidateContentHash(%q) = nil, want error", tt.hash)
			}
		})
	}
}

func TestHashMatches(t *testing.T) {
	body := []byte("partida;monto\n50;1000\n")
	h := HashBytes(body)
	if !HashMatches(h, body) {
		t.Error("HashMatches rejected matching bytes")
	}
	if HashMatches(h, append(body, '\n')) {
		t.Error("HashMatches accepted altered bytes")
	}
}
