package auth

import (
	"strings"
	"testing"
)

func TestHashToken_Format(t *testing.T) {
	t.Parallel()

	hash, err := HashToken("site-token-0123456789")
	if err != nil {
		t.Fatalf("HashToken failed: %v", err)
	}

	// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>
	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("Hash should have 6 parts, got: %d", len(parts))
	}
	if parts[1] != "argon2id" {
		t.Errorf("Expected argon2id algorithm, got: %s", parts[1])
	}
	if parts[2] != "v=19" {
		t.Errorf("Expected v=19, got: %s", parts[2])
	}
	if parts[3] != "m=65536,t=3,p=4" {
		t.Errorf("Expected m=65536,t=3,p=4, got: %s", parts[3])
	}
}

func TestHashToken_Salted(t *testing.T) {
	t.Parallel()

	a, err := HashToken("same-token-value")
	if err != nil {
		t.Fatal(err)
	}
	b, err := HashToken("same-token-value")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("Two hashes of the same token should differ by salt")
	}
}

func TestVerifyToken(t *testing.T) {
	t.Parallel()

	hash, err := HashToken("correct-horse-battery")
	if err != nil {
		t.Fatal(err)
	}

	ok, err := VerifyToken("correct-horse-battery", hash)
	if err != nil || !ok {
		t.Errorf("expected match, got ok=%v err=%v", ok, err)
	}

	ok, err = VerifyToken("wrong-horse-battery", hash)
	if err != nil || ok {
		t.Errorf("expected mismatch without error, got ok=%v err=%v", ok, err)
	}
}

func TestVerifyToken_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hash string
		want error
	}{
		{"empty", "", ErrInvalidHash},
		{"not phc", "plaintext", ErrInvalidHash},
		{"wrong algorithm", "$argon2i$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA", ErrInvalidHash},
		{"wrong version", "$argon2id$v=16$m=65536,t=3,p=4$c2FsdA$aGFzaA", ErrIncompatibleVersion},
		{"bad params", "$argon2id$v=19$m=x$c2FsdA$aGFzaA", ErrInvalidHash},
		{"bad salt", "$argon2id$v=19$m=65536,t=3,p=4$!!!$aGFzaA", ErrInvalidHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyToken("anything-long", tt.hash)
			if err != tt.want {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := Fingerprint("token-a-value")
	if a != Fingerprint("token-a-value") {
		t.Error("Fingerprint should be deterministic")
	}
	if len(a) != 32 {
		t.Errorf("expected 32 hex chars, got %d", len(a))
	}
	if a == Fingerprint("token-b-value") {
		t.Error("different inputs should not collide")
	}
}
