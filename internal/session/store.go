package session

import (
	"encoding/base32"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

type record struct {
	values   map[interface{}]interface{}
	lastSeen time.Time
}

// Store is a sessions.Store that keeps session values in a server-side table.
// The cookie only carries the signed session id.
type Store struct {
	Codecs  []securecookie.Codec
	Options *sessions.Options

	idle time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	table map[string]record
}

// NewStore returns a Store whose cookies are signed (and optionally encrypted) with keyPairs.
// Sessions untouched for longer than idle are dropped; zero disables the idle limit.
func NewStore(idle time.Duration, keyPairs ...[]byte) *Store {
	s := &Store{
		Codecs: securecookie.CodecsFromPairs(keyPairs...),
		Options: &sessions.Options{
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
		idle:  idle,
		now:   time.Now,
		table: make(map[string]record),
	}
	return s
}

// Get returns the session for name, reusing the one already loaded for this request.
func (s *Store) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session referenced by the request cookie, or returns a fresh one.
// A cookie that fails to decode yields a fresh session together with the decode error.
func (s *Store) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}
	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.Codecs...); err != nil {
		return session, err
	}
	if values, ok := s.load(id); ok {
		session.ID = id
		session.Values = values
		session.IsNew = false
	}
	return session, nil
}

// Save writes the session values to the table and sets the id cookie.
// A negative MaxAge removes the session.
func (s *Store) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	if session.Options.MaxAge < 0 {
		s.Delete(session.ID)
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}
	if session.ID == "" {
		session.ID = newID()
	}
	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return err
	}
	s.store(session.ID, session.Values)
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

// Rotate drops the current table entry and clears the id so the next Save issues a new one.
func (s *Store) Rotate(session *sessions.Session) {
	s.Delete(session.ID)
	session.ID = ""
}

// Delete removes a session from the table.
func (s *Store) Delete(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	delete(s.table, id)
	s.mu.Unlock()
}

// Sweep removes every session idle since before now minus the idle limit and
// returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	if s.idle <= 0 {
		return 0
	}
	cutoff := now.Add(-s.idle)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, rec := range s.table {
		if rec.lastSeen.Before(cutoff) {
			delete(s.table, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.table)
}

func (s *Store) load(id string) (map[interface{}]interface{}, bool) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.table[id]
	if !ok {
		return nil, false
	}
	if s.idle > 0 && rec.lastSeen.Before(now.Add(-s.idle)) {
		delete(s.table, id)
		return nil, false
	}
	rec.lastSeen = now
	s.table[id] = rec
	return copyValues(rec.values), true
}

func (s *Store) store(id string, values map[interface{}]interface{}) {
	rec := record{values: copyValues(values), lastSeen: s.now()}
	s.mu.Lock()
	s.table[id] = rec
	s.mu.Unlock()
}

func copyValues(src map[interface{}]interface{}) map[interface{}]interface{} {
	dst := make(map[interface{}]interface{}, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func newID() string {
	return strings.TrimRight(base32.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)), "=")
}
