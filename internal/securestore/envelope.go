package securestore

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// KeySize is the required length of the process encryption key.
	KeySize = chacha20poly1305.KeySize

	nonceSize = chacha20poly1305.NonceSize
	tagSize   = chacha20poly1305.Overhead
)

var (
	ErrCorruptPayload       = errors.New("securestore: corrupt envelope")
	ErrAuthenticationFailed = errors.New("securestore: authentication failed")
	ErrBadKey               = errors.New("securestore: key must decode to 32 bytes")
)

// Cipher seals and opens secret envelopes under the process key. The key is
// loaded once at startup and only read afterwards, so a Cipher is safe for
// concurrent use.
type Cipher struct {
	key []byte
}

func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, ErrBadKey
	}
	return &Cipher{key: append([]byte(nil), key...)}, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns the
// three-part envelope base64(nonce):base64(tag):base64(ciphertext).
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	parts := []string{
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}
	return strings.Join(parts, ":"), nil
}

// Decrypt opens an envelope produced by Encrypt. Any shape deviation is
// ErrCorruptPayload; a tag that does not verify is ErrAuthenticationFailed.
// Wrong key and tampered data are indistinguishable on purpose.
func (c *Cipher) Decrypt(envelope string) ([]byte, error) {
	nonce, tag, ciphertext, err := splitEnvelope(envelope)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return nil, err
	}
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

func splitEnvelope(envelope string) (nonce, tag, ciphertext []byte, err error) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 3 {
		return nil, nil, nil, ErrCorruptPayload
	}
	nonce, err = base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSize {
		return nil, nil, nil, ErrCorruptPayload
	}
	tag, err = base64.StdEncoding.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return nil, nil, nil, ErrCorruptPayload
	}
	ciphertext, err = base64.StdEncoding.DecodeString(parts[2])
	if err != nil || len(ciphertext) == 0 {
		return nil, nil, nil, ErrCorruptPayload
	}
	return nonce, tag, ciphertext, nil
}

// ZeroBytes wipes decrypted key material once it leaves scope.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
