package auth

import (
	"strings"
	"testing"
)

func TestArgon2Hasher_RoundTrip(t *testing.T) {
	h := testHasher()

	hash, err := h.Hash("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("hash should start with $argon2id$, got %q", hash)
	}

	ok, err := h.Verify("correct-horse-battery-staple", hash)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !ok {
		t.Error("Verify() should return true for correct password")
	}

	ok, err = h.Verify("wrong-password", hash)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if ok {
		t.Error("Verify() should return false for wrong password")
	}
}

func TestArgon2Hasher_UniqueSalts(t *testing.T) {
	h := testHasher()

	hash1, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	hash2, err := h.Hash("same-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash1 == hash2 {
		t.Error("two hashes of the same password should have different salts")
	}
}

func TestArgon2Hasher_VerifiesWithStoredParams(t *testing.T) {
	cheap := testHasher()
	hash, err := cheap.Hash("pw")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	// A hasher configured differently still verifies older hashes.
	other := NewArgon2Hasher(Argon2Params{Time: 2, Memory: 2048, Threads: 1, KeyLen: 16, SaltLen: 8})
	ok, err := other.Verify("pw", hash)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !ok {
		t.Error("Verify() should use the parameters encoded in the hash")
	}
}

func TestArgon2Hasher_VerifyInvalidFormat(t *testing.T) {
	tests := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not PHC", "plaintext"},
		{"wrong algorithm", "$bcrypt$v=19$m=65536,t=3,p=1$salt$hash"},
		{"too few parts", "$argon2id$v=19$m=65536,t=3,p=1"},
		{"wrong version", "$argon2id$v=16$m=65536,t=3,p=1$c2FsdA$aGFzaA"},
		{"bad salt encoding", "$argon2id$v=19$m=65536,t=3,p=1$!!!$aGFzaA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := testHasher().Verify("password", tt.hash); err == nil {
				t.Error("Verify() should return error for invalid hash format")
			}
		})
	}
}

func TestArgon2Hasher_PHCFormat(t *testing.T) {
	hash, err := NewArgon2Hasher(DefaultArgon2Params).Hash("test")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("PHC format should have 6 $-delimited parts, got %d: %q", len(parts), hash)
	}
	if parts[1] != "argon2id" {
		t.Errorf("algorithm should be argon2id, got %q", parts[1])
	}
	if parts[2] != "v=19" {
		t.Errorf("version should be v=19, got %q", parts[2])
	}
	if parts[3] != "m=65536,t=3,p=1" {
		t.Errorf("params should be m=65536,t=3,p=1, got %q", parts[3])
	}
}
