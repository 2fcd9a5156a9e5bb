// Package keygen produces ledger-native keypairs for custodial accounts.
// It never logs or persists the secret seed; encrypting and storing it is
// the caller's job.
package keygen

import (
	"errors"
	"strings"

	"github.com/stellar/go/keypair"
	"github.com/tyler-smith/go-bip39"
)

var ErrInvalidMnemonic = errors.New("keygen: invalid mnemonic")

// Keypair carries the strkey-encoded pair: a G… address and an S… seed.
type Keypair struct {
	Public string
	Seed   string
}

// Generate draws a fresh random keypair from a secure source.
func Generate() (Keypair, error) {
	kp, err := keypair.Random()
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Public: kp.Address(), Seed: kp.Seed()}, nil
}

// GenerateWithRecovery derives the keypair from fresh bip39 entropy and
// returns the mnemonic alongside it so an operator can take a cold backup.
// The mnemonic is never stored anywhere by this service.
func GenerateWithRecovery() (Keypair, string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return Keypair{}, "", err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return Keypair{}, "", err
	}
	kp, err := FromMnemonic(mnemonic)
	if err != nil {
		return Keypair{}, "", err
	}
	return kp, mnemonic, nil
}

// FromMnemonic rebuilds the keypair a recovery phrase encodes.
func FromMnemonic(mnemonic string) (Keypair, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return Keypair{}, ErrInvalidMnemonic
	}
	seedBytes := bip39.NewSeed(mnemonic, "")
	var raw [32]byte
	copy(raw[:], seedBytes[:32])
	kp, err := keypair.FromRawSeed(raw)
	if err != nil {
		return Keypair{}, err
	}
	return Keypair{Public: kp.Address(), Seed: kp.Seed()}, nil
}
