package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"daogov/wallet-backend/pkg/models"
)

// Memory stores mirror the Postgres stores for tests and local development.

type MemoryIdentityStore struct {
	mu   sync.RWMutex
	byID map[int64]models.Identity
}

func NewMemoryIdentityStore() *MemoryIdentityStore {
	return &MemoryIdentityStore{byID: make(map[int64]models.Identity)}
}

func (s *MemoryIdentityStore) Put(identity models.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[identity.ID] = identity
}

func (s *MemoryIdentityStore) FindByID(_ context.Context, id int64) (models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.byID[id]
	if !ok {
		return models.Identity{}, ErrNotFound
	}
	return identity, nil
}

type MemoryAccountStore struct {
	mu       sync.RWMutex
	nextID   int64
	byUserID map[int64]models.Account
	byPubKey map[string]int64
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		nextID:   1,
		byUserID: make(map[int64]models.Account),
		byPubKey: make(map[string]int64),
	}
}

func (s *MemoryAccountStore) Insert(_ context.Context, userID int64, publicKey, encryptedPrivateKey string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byPubKey[publicKey]; exists {
		return models.Account{}, ErrConflict
	}
	if _, exists := s.byUserID[userID]; exists {
		return models.Account{}, ErrConflict
	}
	account := models.Account{
		ID:                  s.nextID,
		UserID:              userID,
		PublicKey:           publicKey,
		EncryptedPrivateKey: encryptedPrivateKey,
		CreatedAt:           time.Now().UTC(),
	}
	s.nextID++
	s.byUserID[userID] = account
	s.byPubKey[publicKey] = account.ID
	return account, nil
}

func (s *MemoryAccountStore) FindByUserID(_ context.Context, userID int64) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.byUserID[userID]
	if !ok {
		return models.Account{}, ErrNotFound
	}
	return account, nil
}

type MemoryTransactionStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   []models.Transaction
}

func NewMemoryTransactionStore() *MemoryTransactionStore {
	return &MemoryTransactionStore{nextID: 1}
}

func (s *MemoryTransactionStore) Record(_ context.Context, userID int64, hash string, status models.TransactionStatus) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := models.Transaction{
		ID:        s.nextID,
		UserID:    userID,
		Hash:      hash,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	s.nextID++
	s.rows = append(s.rows, row)
	return row, nil
}

func (s *MemoryTransactionStore) ListByUserID(_ context.Context, userID int64) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Transaction, 0)
	for _, row := range s.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
