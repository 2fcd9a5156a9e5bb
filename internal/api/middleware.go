package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"daogov/wallet-backend/internal/authgate"
)

type contextKey int

const (
	claimsKey contextKey = iota
	requestIDKey
)

// withRequestID tags every request with a correlation ID, honoring one the
// caller already set.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requireBearer verifies the Authorization header and stores the claims in
// the request context. All failures are the same 401.
func (h *Handler) requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(strings.TrimSpace(scheme), "Bearer") {
			writeError(w, h.logger(r), authgate.ErrUnauthenticated)
			return
		}
		claims, err := h.bearer.Verify(strings.TrimSpace(token))
		if err != nil {
			writeError(w, h.logger(r), err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
	}
}

// logger returns the handler logger tagged with the request's correlation ID.
func (h *Handler) logger(r *http.Request) *slog.Logger {
	return h.log.With("request_id", requestID(r.Context()))
}

func claimsFrom(ctx context.Context) (authgate.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(authgate.Claims)
	return claims, ok
}
