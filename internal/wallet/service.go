// Package wallet is the orchestration layer: it composes the key generator,
// the secure store, the signer, and the ledger client into the custodial
// flows the API exposes. It owns ordering and audit semantics; the pieces it
// calls own their own rules.
package wallet

import (
	"context"
	"errors"
	"log/slog"

	"github.com/stellar/go/keypair"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/txnbuild"

	"daogov/wallet-backend/internal/keygen"
	"daogov/wallet-backend/internal/ledger"
	"daogov/wallet-backend/internal/platform/metrics"
	"daogov/wallet-backend/internal/securestore"
	"daogov/wallet-backend/internal/storage"
	"daogov/wallet-backend/pkg/models"
)

var (
	// ErrInvalidIdentity covers both an unknown identity and one that has
	// not cleared approval; the two are not distinguished externally.
	ErrInvalidIdentity = errors.New("wallet: identity missing or not approved")
	// ErrNoOperator is returned by attestation flows when the service was
	// started without an operator account.
	ErrNoOperator = errors.New("wallet: no operator account configured")
)

// TxSigner produces a signed payment for a custodial account.
type TxSigner interface {
	Sign(ctx context.Context, identityID int64, intent models.PaymentIntent) (*txnbuild.Transaction, error)
}

// LedgerClient is the slice of the network client the orchestrator uses.
type LedgerClient interface {
	Fund(ctx context.Context, publicKey string) error
	Submit(tx *txnbuild.Transaction) (string, error)
	Confirm(ctx context.Context, hash string) error
	LookupPayment(hash string) (ledger.PaymentDetail, bool)
	SourceAccount(address string) (hProtocol.Account, error)
	BaseFee() (int64, error)
}

type Deps struct {
	Identities        storage.IdentityStore
	Accounts          storage.AccountStore
	Transactions      storage.TransactionStore
	Cipher            *securestore.Cipher
	Signer            TxSigner
	Ledger            LedgerClient
	Log               *slog.Logger
	Metrics           *metrics.Set
	NetworkPassphrase string
	// Operator signs service-level attestation transactions. Optional;
	// attestation endpoints fail with ErrNoOperator without it.
	Operator *keypair.Full
}

type Service struct {
	deps Deps
}

func NewService(deps Deps) *Service {
	return &Service{deps: deps}
}

// CreateWallet provisions a custodial account for an approved identity:
// generate, fund, encrypt, persist, in that order. Funding runs before the
// row exists so a funding failure leaves no trace; the reverse gap (funded
// but not persisted) is logged and accepted, since the generated key never
// left this process.
func (s *Service) CreateWallet(ctx context.Context, identityID int64) (string, error) {
	identity, err := s.deps.Identities.FindByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrInvalidIdentity
		}
		return "", err
	}
	if !identity.Approved() {
		return "", ErrInvalidIdentity
	}

	kp, err := keygen.Generate()
	if err != nil {
		return "", err
	}

	if err := s.deps.Ledger.Fund(ctx, kp.Public); err != nil {
		return "", err
	}

	seed := []byte(kp.Seed)
	envelope, err := s.deps.Cipher.Encrypt(seed)
	securestore.ZeroBytes(seed)
	if err != nil {
		return "", err
	}

	if _, err := s.deps.Accounts.Insert(ctx, identityID, kp.Public, envelope); err != nil {
		s.deps.Log.Error("account persist failed after funding",
			"identity_id", identityID, "public_key", kp.Public, "err", err)
		return "", err
	}

	s.deps.Metrics.WalletsCreated.Inc()
	s.deps.Log.Info("wallet created", "identity_id", identityID, "public_key", kp.Public)
	return kp.Public, nil
}

// SendPayment signs and submits a payment. Every attempt that reaches
// submission is recorded, rejected ones included; a rejection that reported
// no hash is recorded under the "unknown" sentinel.
func (s *Service) SendPayment(ctx context.Context, identityID int64, intent models.PaymentIntent) (string, error) {
	tx, err := s.deps.Signer.Sign(ctx, identityID, intent)
	if err != nil {
		return "", err
	}

	hash, submitErr := s.deps.Ledger.Submit(tx)
	status := models.TransactionSuccess
	recordHash := hash
	if submitErr != nil {
		status = models.TransactionFailed
		recordHash = models.UnknownTxHash
		var rejected *ledger.SubmissionRejectedError
		if errors.As(submitErr, &rejected) && rejected.Hash != "" {
			recordHash = rejected.Hash
		}
	}

	if _, recErr := s.deps.Transactions.Record(ctx, identityID, recordHash, status); recErr != nil {
		// The submission outcome still wins; a lost audit row is logged,
		// not silently traded for the real error.
		s.deps.Log.Error("audit record failed",
			"identity_id", identityID, "transaction_hash", recordHash, "err", recErr)
		if submitErr == nil {
			return "", recErr
		}
	}

	s.deps.Metrics.Payments.WithLabelValues(string(status)).Inc()
	if submitErr != nil {
		s.deps.Log.Warn("payment rejected",
			"identity_id", identityID, "transaction_hash", recordHash)
		return "", submitErr
	}
	s.deps.Log.Info("payment submitted",
		"identity_id", identityID, "transaction_hash", hash)
	return hash, nil
}

// ListTransactions returns the identity's audit trail, newest first, with
// amounts and destinations filled in from what the public history still
// reports. Entries whose hash no longer resolves keep the recorded fields.
func (s *Service) ListTransactions(ctx context.Context, identityID int64) ([]models.TransactionView, error) {
	rows, err := s.deps.Transactions.ListByUserID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	views := make([]models.TransactionView, 0, len(rows))
	for _, row := range rows {
		view := models.TransactionView{
			Hash:      row.Hash,
			Status:    row.Status,
			Timestamp: row.CreatedAt,
		}
		if row.Hash != models.UnknownTxHash {
			if detail, ok := s.deps.Ledger.LookupPayment(row.Hash); ok {
				view.Amount = detail.Amount
				view.Destination = detail.Destination
				if !detail.Timestamp.IsZero() {
					view.Timestamp = detail.Timestamp
				}
			}
		}
		views = append(views, view)
	}
	return views, nil
}
