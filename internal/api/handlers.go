// Package api is the HTTP surface of the custodial core. Handlers do wire
// concerns only: decode, authenticate, authorize, call the service, map the
// error. All business rules live below this package.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"daogov/wallet-backend/internal/authgate"
	"daogov/wallet-backend/internal/platform/metrics"
	"daogov/wallet-backend/internal/platform/ratelimiter"
	"daogov/wallet-backend/pkg/models"
)

const maxBodyBytes = 64 * 1024

// WalletService is the orchestration surface the handlers call into.
type WalletService interface {
	CreateWallet(ctx context.Context, identityID int64) (string, error)
	SendPayment(ctx context.Context, identityID int64, intent models.PaymentIntent) (string, error)
	ListTransactions(ctx context.Context, identityID int64) ([]models.TransactionView, error)
	AnchorKYCApproval(ctx context.Context, identityID int64) (string, error)
}

const adminRole = "admin"

type Config struct {
	Log              *slog.Logger
	Bearer           *authgate.Bearer
	Challenger       *authgate.Challenger
	Wallets          WalletService
	ChallengeLimiter *ratelimiter.SubjectLimiter
	Metrics          *metrics.Set
	Registry         *prometheus.Registry
}

type Handler struct {
	log        *slog.Logger
	bearer     *authgate.Bearer
	challenger *authgate.Challenger
	wallets    WalletService
	limiter    *ratelimiter.SubjectLimiter
	metrics    *metrics.Set
	now        func() time.Time
}

// NewHandler builds the routed HTTP handler for the service.
func NewHandler(cfg Config) http.Handler {
	h := &Handler{
		log:        cfg.Log,
		bearer:     cfg.Bearer,
		challenger: cfg.Challenger,
		wallets:    cfg.Wallets,
		limiter:    cfg.ChallengeLimiter,
		metrics:    cfg.Metrics,
		now:        time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/challenge", h.requireBearer(h.handleChallenge))
	mux.HandleFunc("POST /api/wallet", h.requireBearer(h.handleCreateWallet))
	mux.HandleFunc("POST /api/wallet/pay", h.requireBearer(h.handlePay))
	mux.HandleFunc("GET /api/wallet/transactions", h.requireBearer(h.handleListTransactions))
	mux.HandleFunc("POST /api/identity/anchor", h.requireBearer(h.handleAnchor))
	mux.HandleFunc("GET /healthz", h.handleHealth)
	if cfg.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}
	return withRequestID(mux)
}

func (h *Handler) handleChallenge(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFrom(r.Context())
	if !ok {
		writeError(w, h.logger(r), authgate.ErrUnauthenticated)
		return
	}
	if !h.limiter.Allow(claims.SubjectID, h.now()) {
		h.metrics.Challenges.WithLabelValues("throttled").Inc()
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate_limited"})
		return
	}
	grant, err := h.challenger.Issue(claims.SubjectID)
	if err != nil {
		writeError(w, h.logger(r), err)
		return
	}
	h.metrics.Challenges.WithLabelValues("issued").Inc()
	writeJSON(w, http.StatusCreated, grant)
}

type createWalletRequest struct {
	IdentityID int64 `json:"identity_id"`
	Assertion  struct {
		ChallengeID string `json:"challenge_id"`
		Signature   []byte `json:"signature"`
	} `json:"assertion"`
}

func (h *Handler) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	var req createWalletRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "malformed body")
		return
	}
	if err := authgate.RequireOwner(claims, req.IdentityID); err != nil {
		writeError(w, h.logger(r), err)
		return
	}
	if err := h.challenger.VerifyAssertion(req.IdentityID, authgate.Assertion{
		ChallengeID: req.Assertion.ChallengeID,
		Signature:   req.Assertion.Signature,
	}); err != nil {
		h.metrics.Challenges.WithLabelValues("rejected").Inc()
		writeError(w, h.logger(r), err)
		return
	}
	h.metrics.Challenges.WithLabelValues("verified").Inc()

	publicKey, err := h.wallets.CreateWallet(r.Context(), req.IdentityID)
	if err != nil {
		writeError(w, h.logger(r), err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"identity_id": req.IdentityID,
		"public_key":  publicKey,
	})
}

type payRequest struct {
	IdentityID  int64  `json:"identity_id"`
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	Asset       string `json:"asset"`
	Memo        string `json:"memo"`
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	var req payRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "malformed body")
		return
	}
	if err := authgate.RequireOwner(claims, req.IdentityID); err != nil {
		writeError(w, h.logger(r), err)
		return
	}
	hash, err := h.wallets.SendPayment(r.Context(), req.IdentityID, models.PaymentIntent{
		Destination: req.Destination,
		Amount:      req.Amount,
		Asset:       req.Asset,
		Memo:        req.Memo,
	})
	if err != nil {
		writeError(w, h.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"identity_id":      req.IdentityID,
		"transaction_hash": hash,
		"status":           models.TransactionSuccess,
	})
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	// An absent target is a zero target: the ownership check rejects it the
	// same way the body-carrying endpoints do.
	var identityID int64
	if raw := r.URL.Query().Get("identity_id"); raw != "" {
		var err error
		identityID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeBadRequest(w, "identity_id must be an integer")
			return
		}
	}
	if err := authgate.RequireOwner(claims, identityID); err != nil {
		writeError(w, h.logger(r), err)
		return
	}
	views, err := h.wallets.ListTransactions(r.Context(), identityID)
	if err != nil {
		writeError(w, h.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": views})
}

type anchorRequest struct {
	IdentityID int64 `json:"identity_id"`
}

// handleAnchor is operator-only: it acts on any identity, so the gate is the
// role, not ownership.
func (h *Handler) handleAnchor(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFrom(r.Context())
	if claims.Role != adminRole {
		writeError(w, h.logger(r), authgate.ErrForbidden)
		return
	}
	var req anchorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, "malformed body")
		return
	}
	hash, err := h.wallets.AnchorKYCApproval(r.Context(), req.IdentityID)
	if err != nil {
		writeError(w, h.logger(r), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"identity_id":      req.IdentityID,
		"transaction_hash": hash,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
