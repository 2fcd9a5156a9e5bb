// Package signing turns a validated payment intent into a signed ledger
// transaction. The decrypted seed and the reconstructed keypair live only
// inside Sign; nothing caches them across requests.
package signing

import (
	"context"
	"errors"
	"fmt"

	"github.com/stellar/go/keypair"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/txnbuild"

	"daogov/wallet-backend/internal/securestore"
	"daogov/wallet-backend/internal/storage"
	"daogov/wallet-backend/pkg/models"
)

// txTimeoutSeconds bounds how long a signed transaction stays valid.
const txTimeoutSeconds = 300

var (
	ErrAccountNotFound = errors.New("signing: account not found")
	// ErrDecryptionFailed covers both corrupt envelopes and failed
	// authentication; the distinction stops at this boundary so callers
	// cannot be used as an oracle.
	ErrDecryptionFailed = errors.New("signing: decryption failed")
)

// HorizonSource is the slice of the network client the signer needs.
type HorizonSource interface {
	SourceAccount(address string) (hProtocol.Account, error)
	BaseFee() (int64, error)
}

type Signer struct {
	accounts          storage.AccountStore
	cipher            *securestore.Cipher
	horizon           HorizonSource
	networkPassphrase string
}

func NewSigner(accounts storage.AccountStore, cipher *securestore.Cipher, horizon HorizonSource, networkPassphrase string) *Signer {
	return &Signer{
		accounts:          accounts,
		cipher:            cipher,
		horizon:           horizon,
		networkPassphrase: networkPassphrase,
	}
}

func (s *Signer) Sign(ctx context.Context, identityID int64, intent models.PaymentIntent) (*txnbuild.Transaction, error) {
	// Pure checks run before any store, crypto, or network work.
	amount, err := ValidateIntent(intent)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByUserID(ctx, identityID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	seed, err := s.cipher.Decrypt(account.EncryptedPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}
	defer securestore.ZeroBytes(seed)

	kp, err := keypair.ParseFull(string(seed))
	if err != nil {
		return nil, fmt.Errorf("%w: decrypted seed does not parse", ErrDecryptionFailed)
	}

	sourceAccount, err := s.horizon.SourceAccount(account.PublicKey)
	if err != nil {
		return nil, err
	}
	baseFee, err := s.horizon.BaseFee()
	if err != nil {
		return nil, err
	}

	params := txnbuild.TransactionParams{
		SourceAccount:        &sourceAccount,
		IncrementSequenceNum: true,
		Operations: []txnbuild.Operation{&txnbuild.Payment{
			Destination: intent.Destination,
			Amount:      amount,
			Asset:       txnbuild.NativeAsset{},
		}},
		BaseFee:       baseFee,
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(txTimeoutSeconds)},
	}
	if intent.Memo != "" {
		params.Memo = txnbuild.MemoText(intent.Memo)
	}

	tx, err := txnbuild.NewTransaction(params)
	if err != nil {
		return nil, err
	}
	return tx.Sign(s.networkPassphrase, kp)
}
