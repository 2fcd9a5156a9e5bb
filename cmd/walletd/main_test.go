package main

import (
	"bytes"
	"strings"
	"testing"

	"daogov/wallet-backend/internal/keygen"
)

func TestPrintOperatorBootstrap(t *testing.T) {
	var buf bytes.Buffer
	if err := printOperatorBootstrap(&buf); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	out := buf.String()

	var address, seed, phrase string
	for _, line := range strings.Split(out, "\n") {
		_, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch {
		case strings.HasPrefix(line, "operator address"):
			address = value
		case strings.HasPrefix(line, "operator seed"):
			seed = value
		case strings.HasPrefix(line, "recovery phrase"):
			phrase = value
		}
	}
	if !strings.HasPrefix(address, "G") || !strings.HasPrefix(seed, "S") {
		t.Fatalf("keypair not printed: %q / %q", address, seed)
	}
	if words := strings.Fields(phrase); len(words) != 24 {
		t.Fatalf("expected a 24-word phrase, got %d words", len(words))
	}

	// The phrase must rebuild exactly the printed keypair.
	kp, err := keygen.FromMnemonic(phrase)
	if err != nil {
		t.Fatalf("rebuild from phrase: %v", err)
	}
	if kp.Public != address || kp.Seed != seed {
		t.Fatal("recovery phrase does not rebuild the printed keypair")
	}
}
