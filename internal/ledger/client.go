// Package ledger talks to the public network: one-time account funding,
// transaction submission, and status confirmation. It is constructed once at
// composition and injected; nothing here is a global.
package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stellar/go/clients/horizonclient"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/protocols/horizon/operations"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/txnbuild"
	"golang.org/x/time/rate"

	"daogov/wallet-backend/pkg/models"
)

const (
	maxFundingBodyBytes = 4 * 1024
	defaultPollAttempts = 30
	defaultPollInterval = 2 * time.Second
)

type Client struct {
	horizon      *horizonclient.Client
	friendbotURL string
	httpClient   *http.Client
	log          *slog.Logger
	poll         *rate.Limiter
	pollAttempts int
}

func New(horizonURL, friendbotURL string, httpClient *http.Client, log *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		horizon:      &horizonclient.Client{HorizonURL: horizonURL, HTTP: httpClient},
		friendbotURL: friendbotURL,
		httpClient:   httpClient,
		log:          log,
		poll:         rate.NewLimiter(rate.Every(defaultPollInterval), 1),
		pollAttempts: defaultPollAttempts,
	}
}

// Fund performs the one-time bootstrap funding of a new account. The address
// is validated before any network call; a non-success response surfaces the
// status and body the endpoint returned.
func (c *Client) Fund(ctx context.Context, publicKey string) error {
	if !strkey.IsValidEd25519PublicKey(publicKey) {
		return ErrInvalidAddress
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.friendbotURL+"?addr="+url.QueryEscape(publicKey), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &FundingFailedError{StatusCode: 0, Body: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxFundingBodyBytes))
		return &FundingFailedError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxFundingBodyBytes))
	return nil
}

// Submit sends a signed transaction and returns the network hash. On
// synchronous rejection it still extracts whatever hash the error carried,
// falling back to the "unknown" sentinel so the audit trail records the
// attempt either way.
func (c *Client) Submit(tx *txnbuild.Transaction) (string, error) {
	resp, err := c.horizon.SubmitTransactionWithOptions(tx, horizonclient.SubmitTxOpts{SkipMemoRequiredCheck: true})
	if err != nil {
		return "", NewSubmissionRejected(rejectionHash(err), err)
	}
	return resp.Hash, nil
}

func rejectionHash(err error) string {
	if herr := horizonclient.GetError(err); herr != nil {
		if v, ok := herr.Problem.Extras["hash"].(string); ok && v != "" {
			return v
		}
	}
	return models.UnknownTxHash
}

// Confirm polls the transaction until it reaches a terminal status. A "not
// yet observed" response is transient and retried under the poll pacer; any
// other transport failure is returned as-is for the caller to decide on.
func (c *Client) Confirm(ctx context.Context, hash string) error {
	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		if err := c.poll.Wait(ctx); err != nil {
			return err
		}
		tx, err := c.horizon.TransactionDetail(hash)
		if err != nil {
			if herr := horizonclient.GetError(err); herr != nil && herr.Problem.Status == http.StatusNotFound {
				continue
			}
			return err
		}
		if tx.Successful {
			return nil
		}
		return &TransactionFailedError{Hash: hash, Status: "failed"}
	}
	return fmt.Errorf("ledger: transaction %s not observed after %d polls", hash, c.pollAttempts)
}

// SourceAccount fetches current sequence state for a transaction source.
func (c *Client) SourceAccount(address string) (hProtocol.Account, error) {
	return c.horizon.AccountDetail(horizonclient.AccountRequest{AccountID: address})
}

// BaseFee returns the network's current base fee, floored at the protocol
// minimum.
func (c *Client) BaseFee() (int64, error) {
	stats, err := c.horizon.FeeStats()
	if err != nil {
		return 0, err
	}
	fee := int64(txnbuild.MinBaseFee)
	if stats.LastLedgerBaseFee > fee {
		fee = stats.LastLedgerBaseFee
	}
	return fee, nil
}

// PaymentDetail is what the public operation history still reports for a
// recorded hash.
type PaymentDetail struct {
	Amount      string
	Destination string
	Timestamp   time.Time
}

// LookupPayment enriches an audit entry from the network's history. A hash
// the network no longer resolves is not an error; callers fall back to the
// recorded fields.
func (c *Client) LookupPayment(hash string) (PaymentDetail, bool) {
	page, err := c.horizon.Payments(horizonclient.OperationRequest{ForTransaction: hash})
	if err != nil {
		c.log.Debug("history lookup failed", "transaction_hash", hash, "err", err)
		return PaymentDetail{}, false
	}
	for _, record := range page.Embedded.Records {
		if payment, ok := record.(operations.Payment); ok {
			return PaymentDetail{
				Amount:      payment.Amount,
				Destination: payment.To,
				Timestamp:   payment.LedgerCloseTime,
			}, true
		}
	}
	return PaymentDetail{}, false
}
