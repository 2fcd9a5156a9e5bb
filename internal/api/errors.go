package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"daogov/wallet-backend/internal/authgate"
	"daogov/wallet-backend/internal/ledger"
	"daogov/wallet-backend/internal/signing"
	"daogov/wallet-backend/internal/storage"
	"daogov/wallet-backend/internal/wallet"
)

// errorBody is the single error shape the API speaks. Reason carries a
// machine-readable rule identifier for 422s; everything else is just a code.
type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// writeError flattens internal errors to their external category. Anything
// authentication-shaped collapses to a bare 401 so the response cannot be
// used to probe which check failed; decryption failures collapse to a bare
// 500 for the same reason.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	var amountErr *signing.AmountError
	var fundingErr *ledger.FundingFailedError
	var rejectedErr *ledger.SubmissionRejectedError
	var failedErr *ledger.TransactionFailedError

	switch {
	case errors.Is(err, authgate.ErrUnauthenticated),
		errors.Is(err, authgate.ErrChallengeNotFound),
		errors.Is(err, authgate.ErrChallengeMismatch),
		errors.Is(err, authgate.ErrReplayRejected):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthenticated"})
	case errors.Is(err, authgate.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "forbidden"})
	case errors.Is(err, wallet.ErrInvalidIdentity):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid_identity"})
	case errors.As(err, &amountErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid_amount", Reason: amountErr.Reason})
	case errors.Is(err, signing.ErrInvalidAmount):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid_amount"})
	case errors.Is(err, signing.ErrInvalidDestination):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid_destination"})
	case errors.Is(err, signing.ErrUnsupportedAsset):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "unsupported_asset"})
	case errors.Is(err, signing.ErrMemoTooLong):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "memo_too_long"})
	case errors.Is(err, storage.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: "wallet_exists"})
	case errors.Is(err, signing.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "account_not_found"})
	case errors.Is(err, signing.ErrDecryptionFailed):
		// Which decryption check failed stays internal.
		log.Error("decryption failed")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "decryption_failed"})
	case errors.Is(err, wallet.ErrNoOperator):
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "attestation_disabled"})
	// Dependency failures carry partial info only: the upstream status or
	// the hash, never the raw body.
	case errors.As(err, &fundingErr):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "funding_unavailable", Reason: fmt.Sprintf("upstream status %d", fundingErr.StatusCode)})
	case errors.As(err, &rejectedErr):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "submission_rejected", Reason: rejectedErr.Hash})
	case errors.As(err, &failedErr):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "transaction_failed", Reason: failedErr.Status})
	default:
		log.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeBadRequest(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Reason: reason})
}
