// Package storage persists custodial accounts and their audit trail.
// Identities are owned by the KYC intake flow; this package only reads them.
package storage

import (
	"context"
	"errors"

	"daogov/wallet-backend/pkg/models"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a unique constraint is violated.
	ErrConflict = errors.New("storage: conflict")
	// ErrUnknownIdentity is returned when a foreign key does not resolve.
	ErrUnknownIdentity = errors.New("storage: unknown identity")
)

type IdentityStore interface {
	FindByID(ctx context.Context, id int64) (models.Identity, error)
}

// AccountStore owns account rows. There is deliberately no update or delete:
// the encrypted key column is written exactly once at creation.
type AccountStore interface {
	Insert(ctx context.Context, userID int64, publicKey, encryptedPrivateKey string) (models.Account, error)
	FindByUserID(ctx context.Context, userID int64) (models.Account, error)
}

// TransactionStore records every submission attempt, failed ones included.
type TransactionStore interface {
	Record(ctx context.Context, userID int64, hash string, status models.TransactionStatus) (models.Transaction, error)
	ListByUserID(ctx context.Context, userID int64) ([]models.Transaction, error)
}
