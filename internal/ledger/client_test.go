package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"golang.org/x/time/rate"

	"daogov/wallet-backend/pkg/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL+"/", srv.URL+"/friendbot", srv.Client(), discardLogger())
	c.poll = rate.NewLimiter(rate.Inf, 1)
	return c
}

func signedPaymentTx(t *testing.T) *txnbuild.Transaction {
	t.Helper()
	kp := keypair.MustRandom()
	source := txnbuild.NewSimpleAccount(kp.Address(), 1)
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &source,
		IncrementSequenceNum: true,
		Operations: []txnbuild.Operation{&txnbuild.Payment{
			Destination: keypair.MustRandom().Address(),
			Amount:      "1.0000000",
			Asset:       txnbuild.NativeAsset{},
		}},
		BaseFee:       txnbuild.MinBaseFee,
		Preconditions: txnbuild.Preconditions{TimeBounds: txnbuild.NewTimeout(300)},
	})
	if err != nil {
		t.Fatalf("build tx: %v", err)
	}
	signed, err := tx.Sign(network.TestNetworkPassphrase, kp)
	if err != nil {
		t.Fatalf("sign tx: %v", err)
	}
	return signed
}

func TestFundRejectsBadAddressBeforeNetwork(t *testing.T) {
	var calls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	err := c.Fund(context.Background(), "not-an-address")
	if !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("funding endpoint was called for an invalid address")
	}
}

func TestFundSuccess(t *testing.T) {
	addr := keypair.MustRandom().Address()
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/friendbot" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("addr"); got != addr {
			t.Errorf("unexpected addr %q", got)
		}
		fmt.Fprint(w, `{"hash":"funded"}`)
	}))
	if err := c.Fund(context.Background(), addr); err != nil {
		t.Fatalf("fund failed: %v", err)
	}
}

func TestFundFailureCarriesStatusAndBody(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"detail":"account already funded"}`)
	}))
	err := c.Fund(context.Background(), keypair.MustRandom().Address())
	var ferr *FundingFailedError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FundingFailedError, got %v", err)
	}
	if ferr.StatusCode != http.StatusBadRequest || !strings.Contains(ferr.Body, "already funded") {
		t.Fatalf("unexpected failure detail: %+v", ferr)
	}
}

func TestSubmitSuccessReturnsHash(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/transactions") {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		fmt.Fprint(w, `{"hash":"abcdef1234","ledger":123,"successful":true}`)
	}))
	hash, err := c.Submit(signedPaymentTx(t))
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if hash != "abcdef1234" {
		t.Fatalf("unexpected hash %q", hash)
	}
}

func TestSubmitRejectionExtractsHash(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"type":"https://stellar.org/horizon-errors/transaction_failed",
			"title":"Transaction Failed","status":400,
			"extras":{"hash":"deadbeef","result_codes":{"transaction":"tx_failed"}}}`)
	}))
	_, err := c.Submit(signedPaymentTx(t))
	var rejected *SubmissionRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected SubmissionRejectedError, got %v", err)
	}
	if rejected.Hash != "deadbeef" {
		t.Fatalf("expected extracted hash, got %q", rejected.Hash)
	}
}

func TestSubmitRejectionWithoutHashUsesSentinel(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"type":"https://stellar.org/horizon-errors/transaction_failed",
			"title":"Transaction Failed","status":400,"extras":{}}`)
	}))
	_, err := c.Submit(signedPaymentTx(t))
	var rejected *SubmissionRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected SubmissionRejectedError, got %v", err)
	}
	if rejected.Hash != models.UnknownTxHash {
		t.Fatalf("expected %q sentinel, got %q", models.UnknownTxHash, rejected.Hash)
	}
}

func TestConfirmRetriesNotFoundThenSucceeds(t *testing.T) {
	var polls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&polls, 1) < 3 {
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"type":"https://stellar.org/horizon-errors/not_found","title":"Resource Missing","status":404}`)
			return
		}
		fmt.Fprint(w, `{"hash":"abc","successful":true}`)
	}))
	if err := c.Confirm(context.Background(), "abc"); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if atomic.LoadInt32(&polls) != 3 {
		t.Fatalf("expected 3 polls, got %d", polls)
	}
}

func TestConfirmTerminalFailure(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"hash":"abc","successful":false}`)
	}))
	err := c.Confirm(context.Background(), "abc")
	var failed *TransactionFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected TransactionFailedError, got %v", err)
	}
	if failed.Hash != "abc" {
		t.Fatalf("unexpected hash in failure: %+v", failed)
	}
}

func TestConfirmGivesUpAfterMaxPolls(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"type":"https://stellar.org/horizon-errors/not_found","title":"Resource Missing","status":404}`)
	}))
	c.pollAttempts = 4
	if err := c.Confirm(context.Background(), "abc"); err == nil {
		t.Fatalf("expected error after exhausting polls")
	}
}

func TestLookupPayment(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/transactions/abc/payments") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"_embedded":{"records":[
			{"id":"1","type":"payment","type_i":1,"transaction_hash":"abc",
			 "created_at":"2025-05-01T10:00:00Z","asset_type":"native",
			 "from":"GAAA","to":"GBBB","amount":"12.3456000"}
		]}}`)
	}))
	detail, ok := c.LookupPayment("abc")
	if !ok {
		t.Fatalf("expected payment detail")
	}
	if detail.Amount != "12.3456000" || detail.Destination != "GBBB" {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if detail.Timestamp.IsZero() {
		t.Fatalf("timestamp not parsed")
	}
}

func TestLookupPaymentMissingHash(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"type":"https://stellar.org/horizon-errors/not_found","title":"Resource Missing","status":404}`)
	}))
	if _, ok := c.LookupPayment("missing"); ok {
		t.Fatalf("expected lookup miss")
	}
}
