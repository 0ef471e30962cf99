package security

import (
	"strings"
	"testing"

	"github.com/pumplink/pumplink-backend/pkg/config"
)

func testPINConfig() config.PINConfig {
	return config.PINConfig{
		ArgonMemoryKB:    8,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerifyPIN(t *testing.T) {
	hash, err := HashPIN("4821", testPINConfig())
	if err != nil {
		t.Fatalf("HashPIN returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Fatalf("hash has unexpected prefix: %q", hash)
	}

	ok, err := VerifyPIN("4821", hash)
	if err != nil {
		t.Fatalf("VerifyPIN returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected correct PIN to verify")
	}

	ok, err = VerifyPIN("0000", hash)
	if err != nil {
		t.Fatalf("VerifyPIN returned error: %v", err)
	}
	if ok {
		t.Fatal("expected wrong PIN to fail verification")
	}
}

func TestHashPIN_Empty(t *testing.T) {
	if _, err := HashPIN("", testPINConfig()); err == nil {
		t.Fatal("expected error for empty PIN")
	}
}

func TestVerifyPIN_MalformedHash(t *testing.T) {
	if _, err := VerifyPIN("4821", "not-a-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestGeneratePIN(t *testing.T) {
	pin, err := GeneratePIN(6)
	if err != nil {
		t.Fatalf("GeneratePIN returned error: %v", err)
	}
	if len(pin) != 6 {
		t.Fatalf("expected 6 digits, got %q", pin)
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			t.Fatalf("expected digits only, got %q", pin)
		}
	}

	if _, err := GeneratePIN(0); err == nil {
		t.Fatal("expected error for non-positive length")
	}
}
