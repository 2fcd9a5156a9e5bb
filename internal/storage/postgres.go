package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"daogov/wallet-backend/pkg/models"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// EnsureSchema creates the tables this core touches (idempotent). The
// identities table belongs to the KYC intake service; it is created here only
// so development environments come up without it.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS identities (
  id BIGSERIAL PRIMARY KEY,
  display_name TEXT NOT NULL,
  document_ref TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'pending'
);
CREATE TABLE IF NOT EXISTS accounts (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES identities(id),
  public_key TEXT NOT NULL UNIQUE,
  private_key TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id);
CREATE TABLE IF NOT EXISTS transactions (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES identities(id),
  transaction_hash TEXT NOT NULL,
  status TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_hash
  ON transactions(transaction_hash) WHERE transaction_hash <> 'unknown';
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id);
`
	_, err := db.ExecContext(ctx, ddl)
	return err
}

type PGIdentityStore struct {
	db *sqlx.DB
}

func NewPGIdentityStore(db *sqlx.DB) *PGIdentityStore { return &PGIdentityStore{db: db} }

func (s *PGIdentityStore) FindByID(ctx context.Context, id int64) (models.Identity, error) {
	const q = `SELECT id, display_name, document_ref, status FROM identities WHERE id=$1`
	var row models.Identity
	if err := s.db.GetContext(ctx, &row, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Identity{}, ErrNotFound
		}
		return models.Identity{}, err
	}
	return row, nil
}

type PGAccountStore struct {
	db *sqlx.DB
}

func NewPGAccountStore(db *sqlx.DB) *PGAccountStore { return &PGAccountStore{db: db} }

func (s *PGAccountStore) Insert(ctx context.Context, userID int64, publicKey, encryptedPrivateKey string) (models.Account, error) {
	const q = `INSERT INTO accounts (user_id, public_key, private_key)
	           VALUES ($1, $2, $3)
	           RETURNING id, user_id, public_key, private_key, created_at`
	var row models.Account
	if err := s.db.GetContext(ctx, &row, q, userID, publicKey, encryptedPrivateKey); err != nil {
		return models.Account{}, mapConstraintError(err)
	}
	return row, nil
}

func (s *PGAccountStore) FindByUserID(ctx context.Context, userID int64) (models.Account, error) {
	const q = `SELECT id, user_id, public_key, private_key, created_at
	             FROM accounts WHERE user_id=$1`
	var row models.Account
	if err := s.db.GetContext(ctx, &row, q, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, ErrNotFound
		}
		return models.Account{}, err
	}
	return row, nil
}

type PGTransactionStore struct {
	db *sqlx.DB
}

func NewPGTransactionStore(db *sqlx.DB) *PGTransactionStore { return &PGTransactionStore{db: db} }

func (s *PGTransactionStore) Record(ctx context.Context, userID int64, hash string, status models.TransactionStatus) (models.Transaction, error) {
	const q = `INSERT INTO transactions (user_id, transaction_hash, status)
	           VALUES ($1, $2, $3)
	           RETURNING id, user_id, transaction_hash, status, created_at`
	var row models.Transaction
	if err := s.db.GetContext(ctx, &row, q, userID, hash, status); err != nil {
		return models.Transaction{}, mapConstraintError(err)
	}
	return row, nil
}

func (s *PGTransactionStore) ListByUserID(ctx context.Context, userID int64) ([]models.Transaction, error) {
	const q = `SELECT id, user_id, transaction_hash, status, created_at
	             FROM transactions WHERE user_id=$1 ORDER BY created_at DESC, id DESC`
	rows := []models.Transaction{}
	if err := s.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, err
	}
	return rows, nil
}

func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return ErrConflict
		case pqForeignKeyViolation:
			return ErrUnknownIdentity
		}
	}
	return err
}
