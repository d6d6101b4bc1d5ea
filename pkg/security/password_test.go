package security

import (
	"strings"
	"testing"

	"github.com/bowenSteve/kipsunya-biz/pkg/config"
)

func fastParams() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerify(t *testing.T) {
	encoded, err := HashPassword("correct horse battery staple", fastParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Fatalf("expected argon2id encoding, got %s", encoded)
	}

	ok, err := VerifyPassword("correct horse battery staple", encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected matching password to verify")
	}
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	encoded, err := HashPassword("right password", fastParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ok, err := VerifyPassword("wrong password", encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected mismatch to fail verification")
	}
}

func TestHashesAreSalted(t *testing.T) {
	first, err := HashPassword("same input", fastParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := HashPassword("same input", fastParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Fatal("two hashes of the same password must differ")
	}
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	if _, err := VerifyPassword("anything", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}
