package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/isdelr/carshelf/internal/common"
	"github.com/isdelr/carshelf/internal/metrics"
	"github.com/isdelr/carshelf/internal/models"
	"github.com/isdelr/carshelf/internal/session"
	"github.com/rs/zerolog/log"
)

// AccountLookup resolves the account bound to a session.
type AccountLookup interface {
	GetAccount(ctx context.Context, id string) (models.Account, error)
}

// FailureHandler writes the response for a request rejected by the gate.
// err is common.ErrUnauthenticated or common.ErrForbidden.
type FailureHandler func(w http.ResponseWriter, r *http.Request, err error)

// RedirectOnFailure sends unauthenticated clients to login and forbidden ones to landing.
func RedirectOnFailure(login, landing string) FailureHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		target := login
		if errors.Is(err, common.ErrForbidden) {
			target = landing
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// StatusOnFailure answers with 401 or 403 and a JSON error body.
func StatusOnFailure() FailureHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		status := http.StatusUnauthorized
		if errors.Is(err, common.ErrForbidden) {
			status = http.StatusForbidden
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
	}
}

// Gate enforces authentication and the admin role in front of handlers.
type Gate struct {
	accounts  AccountLookup
	onFailure FailureHandler
	metrics   *metrics.Metrics
}

// NewGate creates a Gate. m may be nil.
func NewGate(accounts AccountLookup, onFailure FailureHandler, m *metrics.Metrics) *Gate {
	return &Gate{accounts: accounts, onFailure: onFailure, metrics: m}
}

// RequireAuth passes only requests whose session carries a user id.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := g.authenticated(r); !ok {
			g.deny(w, r, common.ErrUnauthenticated, "unauthenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin passes only requests from an authenticated admin. The account is
// looked up on every request; any lookup failure is treated as forbidden.
func (g *Gate) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := g.authenticated(r)
		if !ok {
			g.deny(w, r, common.ErrUnauthenticated, "unauthenticated")
			return
		}

		account, err := g.accounts.GetAccount(r.Context(), userID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Account lookup failed in admin gate")
			g.deny(w, r, common.ErrForbidden, "lookup_failed")
			return
		}
		if !account.IsAdmin() {
			g.deny(w, r, common.ErrForbidden, "forbidden")
			return
		}

		next.ServeHTTP(w, r.WithContext(NewAccountContext(r.Context(), account)))
	})
}

func (g *Gate) authenticated(r *http.Request) (string, bool) {
	s, ok := session.FromContext(r.Context())
	if !ok || !s.Authenticated() {
		return "", false
	}
	return s.UserID(), true
}

func (g *Gate) deny(w http.ResponseWriter, r *http.Request, err error, reason string) {
	if g.metrics != nil {
		g.metrics.GateDenials.WithLabelValues(reason).Inc()
	}
	log.Debug().Str("path", r.URL.Path).Str("reason", reason).Msg("Request rejected by auth gate")
	g.onFailure(w, r, err)
}

type accountKey struct{}

// NewAccountContext returns a copy of ctx carrying the resolved account.
func NewAccountContext(ctx context.Context, account models.Account) context.Context {
	return context.WithValue(ctx, accountKey{}, account)
}

// AccountFromContext returns the account resolved by RequireAdmin, if any.
func AccountFromContext(ctx context.Context) (models.Account, bool) {
	a, ok := ctx.Value(accountKey{}).(models.Account)
	return a, ok
}
