package ledger

import (
	"errors"
	"fmt"
)

var ErrInvalidAddress = errors.New("ledger: invalid address")

// FundingFailedError reports a non-success response from the funding
// endpoint, carrying whatever the dependency said.
type FundingFailedError struct {
	StatusCode int
	Body       string
}

func (e *FundingFailedError) Error() string {
	return fmt.Sprintf("ledger: funding failed with status %d: %s", e.StatusCode, e.Body)
}

// SubmissionRejectedError is a synchronous rejection by the network. Hash is
// whatever the error carried, or the "unknown" sentinel.
type SubmissionRejectedError struct {
	Hash  string
	cause error
}

func NewSubmissionRejected(hash string, cause error) *SubmissionRejectedError {
	return &SubmissionRejectedError{Hash: hash, cause: cause}
}

func (e *SubmissionRejectedError) Error() string {
	return fmt.Sprintf("ledger: submission rejected (hash %s): %v", e.Hash, e.cause)
}

func (e *SubmissionRejectedError) Unwrap() error { return e.cause }

// TransactionFailedError is a terminal non-success status observed while
// confirming a submitted transaction.
type TransactionFailedError struct {
	Hash   string
	Status string
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("ledger: transaction %s terminal with status %s", e.Hash, e.Status)
}
