package session

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/carshelf/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestManager(t *testing.T, idle time.Duration) (*Manager, *Store) {
	t.Helper()
	store := NewStore(idle, testKey)
	return NewManager(store), store
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", CookieName)
	return nil
}

func TestResolve_CreatesSessionWithDefaultLanguage(t *testing.T) {
	m, store := newTestManager(t, 0)

	rec := httptest.NewRecorder()
	s, err := m.Resolve(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID())
	assert.False(t, s.Authenticated())
	assert.Equal(t, models.LanguageEnglish, s.Language())
	assert.Equal(t, 1, store.Len())

	c := sessionCookie(t, rec)
	assert.True(t, c.HttpOnly)
	assert.NotContains(t, c.Value, s.ID(), "cookie carries the signed id, not the raw one")
}

func TestResolve_ReusesExistingSession(t *testing.T) {
	m, store := newTestManager(t, 0)

	rec := httptest.NewRecorder()
	first, err := m.Resolve(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, rec))
	rec2 := httptest.NewRecorder()
	second, err := m.Resolve(rec2, req)
	require.NoError(t, err)

	assert.Equal(t, first.ID(), second.ID())
	assert.Empty(t, rec2.Result().Cookies(), "no cookie is reissued for a known session")
	assert.Equal(t, 1, store.Len())
}

func TestResolve_TamperedCookieStartsFresh(t *testing.T) {
	m, _ := newTestManager(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "forged"})
	rec := httptest.NewRecorder()

	s, err := m.Resolve(rec, req)
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
	assert.NotEmpty(t, s.ID())
	sessionCookie(t, rec)
}

func TestResolve_CookieFromOtherKeyStartsFresh(t *testing.T) {
	other := NewManager(NewStore(0, []byte("ffffffffffffffffffffffffffffffff")))
	rec := httptest.NewRecorder()
	_, err := other.Resolve(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)

	m, _ := newTestManager(t, 0)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie(t, rec))
	s, err := m.Resolve(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
}

func TestSetIdentity_RotatesIDAndPersists(t *testing.T) {
	m, store := newTestManager(t, 0)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	s, err := m.Resolve(rec, req)
	require.NoError(t, err)
	before := s.ID()

	require.NoError(t, m.SetIdentity(rec, req, s, "user-1"))
	assert.NotEqual(t, before, s.ID())
	assert.Equal(t, "user-1", s.UserID())
	assert.Equal(t, 1, store.Len())

	// the latest cookie resolves to the authenticated session
	cookies := rec.Result().Cookies()
	next := httptest.NewRequest(http.MethodGet, "/main", nil)
	next.AddCookie(cookies[len(cookies)-1])
	resolved, err := m.Resolve(httptest.NewRecorder(), next)
	require.NoError(t, err)
	assert.Equal(t, "user-1", resolved.UserID())
	assert.Equal(t, models.LanguageEnglish, resolved.Language())
}

func TestSetLanguage(t *testing.T) {
	m, _ := newTestManager(t, 0)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/setLanguage", nil)
	s, err := m.Resolve(rec, req)
	require.NoError(t, err)

	require.NoError(t, m.SetLanguage(rec, req, s, models.LanguageKazakh))

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	cookies := rec.Result().Cookies()
	next.AddCookie(cookies[len(cookies)-1])
	resolved, err := m.Resolve(httptest.NewRecorder(), next)
	require.NoError(t, err)
	assert.Equal(t, models.LanguageKazakh, resolved.Language())
}

func TestMiddleware_PutsSessionInContext(t *testing.T) {
	m, _ := newTestManager(t, 0)

	var got *Session
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, got)
	assert.Equal(t, models.LanguageEnglish, got.Language())
}

func TestFromContext_Missing(t *testing.T) {
	_, ok := FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}

func TestStore_IdleSessionsExpire(t *testing.T) {
	m, store := newTestManager(t, time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	_, err := m.Resolve(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	cookie := sessionCookie(t, rec)

	assert.Equal(t, 0, store.Sweep(now.Add(30*time.Minute)))
	assert.Equal(t, 1, store.Sweep(now.Add(2*time.Hour)))
	assert.Equal(t, 0, store.Len())

	// a swept session id is not resurrected
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	s, err := m.Resolve(httptest.NewRecorder(), req)
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
}

func TestStore_LoadExpiresLazily(t *testing.T) {
	m, store := newTestManager(t, time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	s, err := m.Resolve(rec, req)
	require.NoError(t, err)
	require.NoError(t, m.SetIdentity(rec, req, s, "user-1"))

	now = now.Add(90 * time.Minute)
	next := httptest.NewRequest(http.MethodGet, "/", nil)
	cookies := rec.Result().Cookies()
	next.AddCookie(cookies[len(cookies)-1])
	resolved, err := m.Resolve(httptest.NewRecorder(), next)
	require.NoError(t, err)
	assert.False(t, resolved.Authenticated())
}

func TestStore_SweepDisabled(t *testing.T) {
	_, store := newTestManager(t, 0)
	store.store("a", map[interface{}]interface{}{})
	assert.Equal(t, 0, store.Sweep(time.Now().Add(1000*time.Hour)))
}

func TestStore_ConcurrentSessionsDoNotInterfere(t *testing.T) {
	m, store := newTestManager(t, 0)

	const n = 32
	var wg sync.WaitGroup
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			s, err := m.Resolve(rec, req)
			if !assert.NoError(t, err) {
				return
			}
			assert.NoError(t, m.SetIdentity(rec, req, s, string(rune('a'+i%26))+"-user"))
			ids[i] = s.ID()
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate session id")
		seen[id] = true
	}
	assert.Equal(t, n, store.Len())
}
