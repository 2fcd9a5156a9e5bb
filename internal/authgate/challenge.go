package authgate

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/hkdf"
)

const (
	challengeIDBytes      = 16
	challengePayloadBytes = 32
	replayWindow          = 10 * time.Minute
)

// Grant is handed to the client: sign Payload-bound bytes with the device
// key and present the result before ExpiresAt. Single use.
type Grant struct {
	ID        string    `json:"challenge_id"`
	Payload   []byte    `json:"payload"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Assertion is the challenge-response a platform authenticator produces.
type Assertion struct {
	ChallengeID string
	Signature   []byte
}

// DeviceRegistry maps identities to their registered authenticator keys.
// Registration happens during KYC intake, outside this core.
type DeviceRegistry struct {
	mu   sync.RWMutex
	keys map[int64]ed25519.PublicKey
}

func NewDeviceRegistry() *DeviceRegistry {
	return &DeviceRegistry{keys: make(map[int64]ed25519.PublicKey)}
}

func (r *DeviceRegistry) Register(identityID int64, publicKey ed25519.PublicKey) error {
	if len(publicKey) != ed25519.PublicKeySize {
		return ErrChallengeMismatch
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[identityID] = append(ed25519.PublicKey(nil), publicKey...)
	return nil
}

func (r *DeviceRegistry) lookup(identityID int64) (ed25519.PublicKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.keys[identityID]
	if !ok {
		return nil, false
	}
	return append(ed25519.PublicKey(nil), key...), true
}

type challengeRecord struct {
	identityID int64
	payload    []byte
	mac        []byte
	expiresAt  time.Time
}

type takeResult int

const (
	takeOK takeResult = iota
	takeMissing
	takeReplayed
)

// challengeStore keeps transient single-use records. take is a conditional
// delete under one lock, so two racing consumers cannot both win.
type challengeStore struct {
	mu       sync.Mutex
	live     map[string]challengeRecord
	consumed map[string]time.Time
	ops      uint64
}

func newChallengeStore() *challengeStore {
	return &challengeStore{
		live:     make(map[string]challengeRecord),
		consumed: make(map[string]time.Time),
	}
}

func (s *challengeStore) put(id string, rec challengeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[id] = rec
}

func (s *challengeStore) take(id string, now time.Time) (challengeRecord, takeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops++
	if s.ops%256 == 0 {
		s.sweepLocked(now)
	}
	rec, ok := s.live[id]
	if ok {
		delete(s.live, id)
		if now.After(rec.expiresAt) {
			return challengeRecord{}, takeMissing
		}
		return rec, takeOK
	}
	if until, replayed := s.consumed[id]; replayed && now.Before(until) {
		return challengeRecord{}, takeReplayed
	}
	return challengeRecord{}, takeMissing
}

func (s *challengeStore) markConsumed(id string, until time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumed[id] = until
}

func (s *challengeStore) sweepLocked(now time.Time) {
	for id, rec := range s.live {
		if now.After(rec.expiresAt) {
			delete(s.live, id)
		}
	}
	for id, until := range s.consumed {
		if now.After(until) {
			delete(s.consumed, id)
		}
	}
}

// Challenger issues and verifies single-use, time-boxed challenges bound to
// an identity. The MAC key is derived from the token secret so the two uses
// of that secret stay domain-separated.
type Challenger struct {
	store   *challengeStore
	devices *DeviceRegistry
	macKey  []byte
	ttl     time.Duration
	now     func() time.Time
}

func NewChallenger(tokenSecret string, devices *DeviceRegistry, ttl time.Duration) (*Challenger, error) {
	kdf := hkdf.New(sha256.New, []byte(tokenSecret), nil, []byte("wallet-backend/challenge-mac/v1"))
	macKey := make([]byte, 32)
	if _, err := io.ReadFull(kdf, macKey); err != nil {
		return nil, err
	}
	return &Challenger{
		store:   newChallengeStore(),
		devices: devices,
		macKey:  macKey,
		ttl:     ttl,
		now:     time.Now,
	}, nil
}

func (c *Challenger) Issue(identityID int64) (Grant, error) {
	idRaw := make([]byte, challengeIDBytes)
	if _, err := rand.Read(idRaw); err != nil {
		return Grant{}, err
	}
	payload := make([]byte, challengePayloadBytes)
	if _, err := rand.Read(payload); err != nil {
		return Grant{}, err
	}
	id := base58.Encode(idRaw)
	expiresAt := c.now().Add(c.ttl)

	c.store.put(id, challengeRecord{
		identityID: identityID,
		payload:    payload,
		mac:        c.mac(id, identityID, payload, expiresAt),
		expiresAt:  expiresAt,
	})
	return Grant{ID: id, Payload: append([]byte(nil), payload...), ExpiresAt: expiresAt}, nil
}

// VerifyAssertion consumes the challenge and checks the device signature.
// Consumption is atomic: under concurrent attempts at most one succeeds.
func (c *Challenger) VerifyAssertion(identityID int64, assertion Assertion) error {
	now := c.now()
	rec, result := c.store.take(assertion.ChallengeID, now)
	switch result {
	case takeMissing:
		return ErrChallengeNotFound
	case takeReplayed:
		return ErrReplayRejected
	}
	if rec.identityID != identityID {
		return ErrChallengeMismatch
	}
	expected := c.mac(assertion.ChallengeID, rec.identityID, rec.payload, rec.expiresAt)
	if !hmac.Equal(expected, rec.mac) {
		return ErrChallengeMismatch
	}
	deviceKey, ok := c.devices.lookup(identityID)
	if !ok {
		return ErrChallengeMismatch
	}
	if len(assertion.Signature) != ed25519.SignatureSize {
		return ErrChallengeMismatch
	}
	if !ed25519.Verify(deviceKey, AssertionSigningBytes(assertion.ChallengeID, identityID, rec.payload), assertion.Signature) {
		return ErrChallengeMismatch
	}
	c.store.markConsumed(assertion.ChallengeID, rec.expiresAt.Add(replayWindow))
	return nil
}

func (c *Challenger) mac(id string, identityID int64, payload []byte, expiresAt time.Time) []byte {
	mac := hmac.New(sha256.New, c.macKey)
	mac.Write(AssertionSigningBytes(id, identityID, payload))
	var expiry [8]byte
	binary.BigEndian.PutUint64(expiry[:], uint64(expiresAt.Unix()))
	mac.Write(expiry[:])
	return mac.Sum(nil)
}

// AssertionSigningBytes is the canonical, deterministic byte encoding both
// the device and the gate sign over.
func AssertionSigningBytes(challengeID string, identityID int64, payload []byte) []byte {
	b := make([]byte, 0, len(challengeID)+len(payload)+10)
	b = append(b, []byte(challengeID)...)
	b = append(b, 0)
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], uint64(identityID))
	b = append(b, id[:]...)
	b = append(b, 0)
	b = append(b, payload...)
	return b
}
