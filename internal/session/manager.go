// Package session resolves the server-side session for each request and carries it
// through the request context.
package session

import (
	"context"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/isdelr/carshelf/internal/models"
	"github.com/rs/zerolog/log"
)

// CookieName is the name of the cookie carrying the session id.
const CookieName = "carshelf_session"

const (
	keyUserID   = "user_id"
	keyLanguage = "language"
)

// Session is the per-request view of a stored session.
type Session struct {
	raw *sessions.Session
}

// ID returns the opaque session identifier.
func (s *Session) ID() string { return s.raw.ID }

// UserID returns the authenticated account id, or "" when unauthenticated.
func (s *Session) UserID() string {
	id, _ := s.raw.Values[keyUserID].(string)
	return id
}

// Authenticated reports whether a user id is bound to the session.
func (s *Session) Authenticated() bool { return s.UserID() != "" }

// Language returns the session locale, defaulting to English.
func (s *Session) Language() models.Language {
	if v, ok := s.raw.Values[keyLanguage].(string); ok {
		if lang, ok := models.ParseLanguage(v); ok {
			return lang
		}
	}
	return models.DefaultLanguage
}

// Manager resolves and mutates sessions backed by a Store.
type Manager struct {
	store *Store
	name  string
}

// NewManager creates a Manager using the default cookie name.
func NewManager(store *Store) *Manager {
	return &Manager{store: store, name: CookieName}
}

// Resolve returns the session for the request, creating an empty one with the
// default language when the client has none.
func (m *Manager) Resolve(w http.ResponseWriter, r *http.Request) (*Session, error) {
	raw, err := m.store.Get(r, m.name)
	if err != nil {
		// tampered, expired or signed with a rotated key; start over
		log.Debug().Err(err).Msg("Discarding unreadable session cookie")
	}
	if raw == nil {
		return nil, err
	}

	if _, ok := raw.Values[keyLanguage]; raw.IsNew || !ok {
		raw.Values[keyLanguage] = string(models.DefaultLanguage)
		if err := m.store.Save(r, w, raw); err != nil {
			return nil, err
		}
	}
	return &Session{raw: raw}, nil
}

// SetIdentity binds userID to the session. The session id is rotated so an id
// issued before login cannot be reused after it.
func (m *Manager) SetIdentity(w http.ResponseWriter, r *http.Request, s *Session, userID string) error {
	m.store.Rotate(s.raw)
	s.raw.Values[keyUserID] = userID
	return m.store.Save(r, w, s.raw)
}

// SetLanguage stores the locale preference.
func (m *Manager) SetLanguage(w http.ResponseWriter, r *http.Request, s *Session, lang models.Language) error {
	s.raw.Values[keyLanguage] = string(lang)
	return m.store.Save(r, w, s.raw)
}

// Middleware resolves the session for every request and places it in the context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Resolve(w, r)
		if err != nil {
			log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to resolve session")
			http.Error(w, "Failed to establish session", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
	})
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored in ctx, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok
}
