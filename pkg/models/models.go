package models

import "time"

// UnknownTxHash is recorded when the network rejected a transaction without
// reporting the hash it assigned.
const UnknownTxHash = "unknown"

const (
	IdentityStatusPending  = "pending"
	IdentityStatusApproved = "approved"
)

// Identity is a KYC-approved person. Rows are created by the intake flow;
// this service only reads them.
type Identity struct {
	ID          int64  `json:"id" db:"id"`
	DisplayName string `json:"display_name" db:"display_name"`
	DocumentRef string `json:"document_ref" db:"document_ref"`
	Status      string `json:"status" db:"status"`
}

func (i Identity) Approved() bool {
	return i.Status == IdentityStatusApproved
}

// Account is a custodial wallet: one per identity, written once, never
// updated. EncryptedPrivateKey holds the securestore envelope.
type Account struct {
	ID                  int64     `json:"id" db:"id"`
	UserID              int64     `json:"user_id" db:"user_id"`
	PublicKey           string    `json:"public_key" db:"public_key"`
	EncryptedPrivateKey string    `json:"-" db:"private_key"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
}

type TransactionStatus string

const (
	TransactionSuccess TransactionStatus = "success"
	TransactionFailed  TransactionStatus = "failed"
)

// Transaction is the durable audit entry for a custodial action, written for
// attempted submissions as well as successful ones.
type Transaction struct {
	ID        int64             `json:"id" db:"id"`
	UserID    int64             `json:"user_id" db:"user_id"`
	Hash      string            `json:"transaction_hash" db:"transaction_hash"`
	Status    TransactionStatus `json:"status" db:"status"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}

// PaymentIntent is request-scoped and never persisted. Amount stays a string
// until validation parses it.
type PaymentIntent struct {
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	Asset       string `json:"asset,omitempty"`
	Memo        string `json:"memo,omitempty"`
}

// TransactionView is an audit entry enriched with what the public ledger
// still reports for the recorded hash.
type TransactionView struct {
	Hash        string            `json:"transaction_hash"`
	Amount      string            `json:"amount,omitempty"`
	Destination string            `json:"destination,omitempty"`
	Status      TransactionStatus `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
}
