package signing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/strkey"

	"daogov/wallet-backend/pkg/models"
)

const (
	maxFractionDigits = 7
	maxMemoBytes      = 28
)

var maxAmount = decimal.NewFromInt(1000)

var (
	ErrInvalidAmount      = errors.New("signing: invalid amount")
	ErrInvalidDestination = errors.New("signing: invalid destination address")
	ErrUnsupportedAsset   = errors.New("signing: unsupported asset")
	ErrMemoTooLong        = errors.New("signing: memo too long")
)

// AmountError distinguishes which amount rule failed while still matching
// ErrInvalidAmount under errors.Is.
type AmountError struct {
	Reason string
}

func (e *AmountError) Error() string { return fmt.Sprintf("signing: invalid amount: %s", e.Reason) }

func (e *AmountError) Unwrap() error { return ErrInvalidAmount }

// ValidateIntent runs the ordered business rules over a payment intent and
// returns the amount normalized to 7 decimal places. Checks are pure; the
// first violated rule is reported and nothing else runs.
func ValidateIntent(intent models.PaymentIntent) (string, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(intent.Amount))
	if err != nil {
		return "", &AmountError{Reason: "not a decimal number"}
	}
	if amount.Exponent() < -maxFractionDigits {
		return "", &AmountError{Reason: fmt.Sprintf("more than %d decimal places", maxFractionDigits)}
	}
	if !amount.IsPositive() {
		return "", &AmountError{Reason: "must be greater than 0"}
	}
	if amount.GreaterThan(maxAmount) {
		return "", &AmountError{Reason: "must not exceed 1000"}
	}
	if !strkey.IsValidEd25519PublicKey(intent.Destination) {
		return "", ErrInvalidDestination
	}
	if !nativeAsset(intent.Asset) {
		return "", ErrUnsupportedAsset
	}
	if len([]byte(intent.Memo)) > maxMemoBytes {
		return "", ErrMemoTooLong
	}
	return amount.StringFixed(maxFractionDigits), nil
}

func nativeAsset(asset string) bool {
	asset = strings.TrimSpace(asset)
	return asset == "" || strings.EqualFold(asset, "native") || strings.EqualFold(asset, "XLM")
}
