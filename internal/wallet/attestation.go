package wallet

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/stellar/go/txnbuild"

	"daogov/wallet-backend/internal/storage"
)

const attestationTimeoutSeconds = 300

// AnchorKYCApproval writes an on-ledger attestation for an approved identity:
// a ManageData entry on the operator account whose value is the digest of the
// identity's document reference. The document itself never leaves the
// database. The call blocks until the attestation reaches a terminal status.
func (s *Service) AnchorKYCApproval(ctx context.Context, identityID int64) (string, error) {
	if s.deps.Operator == nil {
		return "", ErrNoOperator
	}

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

	source, err := s.deps.Ledger.SourceAccount(s.deps.Operator.Address())
	if err != nil {
		return "", err
	}
	baseFee, err := s.deps.Ledger.BaseFee()
	if err != nil {
		return "", err
	}

	digest := sha256.Sum256([]byte(identity.DocumentRef))
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &source,
		IncrementSequenceNum: true,
		Operations: []txnbuild.Operation{&txnbuild.ManageData{
			Name:  fmt.Sprintf("kyc:%d", identityID),
			Value: digest[:],
		}},
		BaseFee:       baseFee,
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(attestationTimeoutSeconds)},
	})
	if err != nil {
		return "", err
	}
	signed, err := tx.Sign(s.deps.NetworkPassphrase, s.deps.Operator)
	if err != nil {
		return "", err
	}

	hash, err := s.deps.Ledger.Submit(signed)
	if err != nil {
		return "", err
	}
	if err := s.deps.Ledger.Confirm(ctx, hash); err != nil {
		return "", err
	}
	s.deps.Log.Info("kyc attestation anchored", "identity_id", identityID, "transaction_hash", hash)
	return hash, nil
}
