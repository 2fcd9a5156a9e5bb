package privacylog

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSanitizingHandlerRedactsAndFingerprints(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(WrapHandler(slog.NewJSONHandler(&buf, nil)))
	logger.Info("wallet created",
		"identity_id", int64(42),
		"public_key", "GB6MXQ5262ZJGDQNA6BL4TWE5GYEBB6PBOXFLQFN4A5E4GUYVLCGQMLS",
		"jwt_secret", "hunter2",
		"status", "ok",
	)

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log json: %v", err)
	}
	for _, raw := range []string{"identity_id", "public_key"} {
		if _, ok := payload[raw]; ok {
			t.Fatalf("%s must not appear in plain form", raw)
		}
		fp, ok := payload[raw+"_fp"].(string)
		if !ok || !strings.HasPrefix(fp, "fp_") {
			t.Fatalf("%s_fp missing or malformed: %v", raw, payload[raw+"_fp"])
		}
	}
	if got, _ := payload["jwt_secret"].(string); got != redactedValue {
		t.Fatalf("expected redacted secret, got %q", got)
	}
	if got, _ := payload["status"].(string); got != "ok" {
		t.Fatalf("neutral attr was altered: %q", got)
	}
}

func TestSanitizeAttrDropsKeyMaterial(t *testing.T) {
	for _, key := range []string{"private_key", "recovery_mnemonic", "account_seed", "envelope", "bearer_token", "passphrase"} {
		attr := SanitizeAttr(slog.String(key, "SB..."))
		if attr.Value.String() != redactedValue {
			t.Fatalf("key %q leaked: %v", key, attr.Value)
		}
	}
}

func TestFingerprintIsStableWithinBoot(t *testing.T) {
	a := FingerprintID("GABC")
	b := FingerprintID("GABC")
	if a == "" || a != b {
		t.Fatalf("fingerprint not stable: %q vs %q", a, b)
	}
	if a == FingerprintID("GXYZ") {
		t.Fatal("distinct inputs collided")
	}
	if FingerprintID("  ") != "" {
		t.Fatal("blank input should produce no fingerprint")
	}
}

func TestSanitizingHandlerImplementsSlogHandlerContract(t *testing.T) {
	var buf bytes.Buffer
	h := WrapHandler(slog.NewJSONHandler(&buf, nil))
	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected handler enabled for info")
	}
	rec := slog.NewRecord(time.Now().UTC(), slog.LevelInfo, "msg", 0)
	rec.AddAttrs(slog.String("challenge_id", "c1"))
	if err := h.Handle(context.Background(), rec); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if !strings.Contains(buf.String(), "challenge_id_fp") {
		t.Fatalf("expected sanitized challenge_id key, got %s", buf.String())
	}
}
