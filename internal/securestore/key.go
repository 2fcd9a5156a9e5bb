package securestore

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// ParseKey decodes environment-provided key material. Base64 (standard, URL,
// padded or not) and hex are accepted; anything that does not decode to
// exactly 32 bytes is ErrBadKey. Callers treat that as fatal at startup.
func ParseKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrBadKey
	}

	if len(raw) == hex.EncodedLen(KeySize) {
		if key, err := hex.DecodeString(raw); err == nil {
			return key, nil
		}
	}
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	for _, enc := range encodings {
		key, err := enc.DecodeString(raw)
		if err == nil && len(key) == KeySize {
			return key, nil
		}
	}
	return nil, ErrBadKey
}
