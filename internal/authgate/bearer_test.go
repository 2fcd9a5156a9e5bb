package authgate

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestBearerIssueVerifyRoundtrip(t *testing.T) {
	b := NewBearer(testSecret)
	token, err := b.Issue(42, "member", time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	claims, err := b.Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.SubjectID != 42 || claims.Role != "member" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestBearerFailuresCollapse(t *testing.T) {
	b := NewBearer(testSecret)
	valid, err := b.Issue(42, "member", time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	other := NewBearer("ffffffffffffffffffffffffffffffff")
	wrongKey, err := other.Issue(42, "member", time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	expired := NewBearer(testSecret)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, err := expired.Issue(42, "member", time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	cases := map[string]string{
		"missing":         "",
		"malformed":       "not.a.jwt",
		"truncated":       valid[:len(valid)-5],
		"wrong signature": wrongKey,
		"expired":         expiredToken,
	}
	for name, token := range cases {
		if _, err := b.Verify(token); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("%s: expected ErrUnauthenticated, got %v", name, err)
		}
	}
}

func TestRequireOwner(t *testing.T) {
	claims := Claims{SubjectID: 42}

	if err := RequireOwner(claims, 42); err != nil {
		t.Fatalf("owner rejected: %v", err)
	}
	if err := RequireOwner(claims, 43); !errors.Is(err, ErrForbidden) {
		t.Fatalf("mismatch: expected ErrForbidden, got %v", err)
	}
	if err := RequireOwner(claims, 0); !errors.Is(err, ErrForbidden) {
		t.Fatalf("absent target: expected ErrForbidden, got %v", err)
	}
}
