package application

import (
	"errors"
	"testing"
)

func TestVerificationCodes(t *testing.T) {
	t.Run("generated codes are six digits", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			code, err := GenerateVerificationCode()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(code) != 6 {
				t.Fatalf("expected six digits, got %q", code)
			}
			for _, r := range code {
				if r < '0' || r > '9' {
					t.Fatalf("expected digits only, got %q", code)
				}
			}
		}
	})

	t.Run("hash round trip", func(t *testing.T) {
		hash, err := CreateCodeHash("508213", DefaultArgon2idParams)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := VerifyCodeHash(hash, "508213"); err != nil {
			t.Fatalf("expected match, got %v", err)
		}
	})

	t.Run("wrong code mismatches", func(t *testing.T) {
		hash, err := CreateCodeHash("508213", DefaultArgon2idParams)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := VerifyCodeHash(hash, "508214"); !errors.Is(err, ErrCodeMismatch) {
			t.Fatalf("expected ErrCodeMismatch, got %v", err)
		}
	})

	t.Run("salts make hashes unique", func(t *testing.T) {
		first, err := CreateCodeHash("508213", DefaultArgon2idParams)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := CreateCodeHash("508213", DefaultArgon2idParams)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if first == second {
			t.Fatalf("expected distinct salted hashes")
		}
	})

	t.Run("malformed hash is rejected", func(t *testing.T) {
		if err := VerifyCodeHash("not-a-hash", "508213"); !errors.Is(err, ErrInvalidCodeHash) {
			t.Fatalf("expected ErrInvalidCodeHash, got %v", err)
		}
	})

	t.Run("foreign algorithm is rejected", func(t *testing.T) {
		if err := VerifyCodeHash("$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA", "508213"); !errors.Is(err, ErrInvalidCodeHash) {
			t.Fatalf("expected ErrInvalidCodeHash, got %v", err)
		}
	})
}
