package keygen

import (
	"errors"
	"strings"
	"testing"

	"github.com/stellar/go/strkey"
)

func TestGenerateProducesStrkeyPair(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !strings.HasPrefix(kp.Public, "G") || len(kp.Public) != 56 {
		t.Fatalf("unexpected public key: %q", kp.Public)
	}
	if !strings.HasPrefix(kp.Seed, "S") || len(kp.Seed) != 56 {
		t.Fatalf("unexpected seed: %q", kp.Seed)
	}
	if !strkey.IsValidEd25519PublicKey(kp.Public) {
		t.Fatalf("public key does not validate: %q", kp.Public)
	}
	if !strkey.IsValidEd25519SecretSeed(kp.Seed) {
		t.Fatalf("seed does not validate: %q", kp.Seed)
	}
}

func TestGenerateIsNotDeterministic(t *testing.T) {
	a, err := Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	b, err := Generate()
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if a.Public == b.Public {
		t.Fatalf("two generations returned the same public key")
	}
}

func TestRecoveryMnemonicRebuildsKeypair(t *testing.T) {
	kp, mnemonic, err := GenerateWithRecovery()
	if err != nil {
		t.Fatalf("generate with recovery failed: %v", err)
	}
	if len(strings.Fields(mnemonic)) != 24 {
		t.Fatalf("expected 24-word mnemonic, got %d words", len(strings.Fields(mnemonic)))
	}
	rebuilt, err := FromMnemonic(mnemonic)
	if err != nil {
		t.Fatalf("from mnemonic failed: %v", err)
	}
	if rebuilt.Public != kp.Public || rebuilt.Seed != kp.Seed {
		t.Fatalf("recovered keypair does not match original")
	}
}

func TestFromMnemonicRejectsGarbage(t *testing.T) {
	if _, err := FromMnemonic("definitely not a valid phrase"); !errors.Is(err, ErrInvalidMnemonic) {
		t.Fatalf("expected ErrInvalidMnemonic, got %v", err)
	}
}
