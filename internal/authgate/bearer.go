// Package authgate verifies who is asking before any custodial operation
// runs: bearer tokens, ownership of the target identity, and single-use
// strong assertions for registration and other step-up flows.
package authgate

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnauthenticated   = errors.New("authgate: unauthenticated")
	ErrForbidden         = errors.New("authgate: forbidden")
	ErrChallengeNotFound = errors.New("authgate: challenge not found")
	ErrChallengeMismatch = errors.New("authgate: challenge mismatch")
	ErrReplayRejected    = errors.New("authgate: assertion replay rejected")
)

// Claims is what a verified bearer token asserts about the caller.
type Claims struct {
	SubjectID int64
	Role      string
}

type Bearer struct {
	secret []byte
	now    func() time.Time
}

func NewBearer(secret string) *Bearer {
	return &Bearer{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for subjectID. Used by the upstream login flow and by
// tests; this core itself only verifies.
func (b *Bearer) Issue(subjectID int64, role string, ttl time.Duration) (string, error) {
	now := b.now()
	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(subjectID, 10),
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
}

// Verify checks signature and expiry. Missing, malformed, expired and
// wrongly-signed tokens all collapse to ErrUnauthenticated so the caller
// learns nothing about which check failed.
func (b *Bearer) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrUnauthenticated
	}
	parsed, err := jwt.Parse(token,
		func(*jwt.Token) (any, error) { return b.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(b.now),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrUnauthenticated
	}
	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrUnauthenticated
	}
	subject, err := mapClaims.GetSubject()
	if err != nil {
		return Claims{}, ErrUnauthenticated
	}
	subjectID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || subjectID <= 0 {
		return Claims{}, ErrUnauthenticated
	}
	role, _ := mapClaims["role"].(string)
	return Claims{SubjectID: subjectID, Role: role}, nil
}

// RequireOwner checks that the caller targets their own identity. A request
// that names no target at all is a non-match, not an authentication failure.
func RequireOwner(claims Claims, targetID int64) error {
	if targetID <= 0 {
		return ErrForbidden
	}
	if claims.SubjectID != targetID {
		return ErrForbidden
	}
	return nil
}
