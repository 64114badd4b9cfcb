package handlers

import (
	"net/http"
	"net/url"

	"github.com/isdelr/carshelf/internal/models"
	"github.com/isdelr/carshelf/internal/services"
	"github.com/isdelr/carshelf/internal/session"
	"github.com/rs/zerolog/log"
)

// AccountHandler handles signup, login and session preferences.
type AccountHandler struct {
	accounts  services.AccountServiceProvider
	sessions  *session.Manager
	allowRole bool
}

// NewAccountHandler creates a new AccountHandler. When allowRole is false the
// role field of a signup request is ignored and every account starts as a user.
func NewAccountHandler(accounts services.AccountServiceProvider, sessions *session.Manager, allowRole bool) *AccountHandler {
	return &AccountHandler{accounts: accounts, sessions: sessions, allowRole: allowRole}
}

// SignupPayload defines the structure for signup requests.
type SignupPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (p *SignupPayload) fromForm(v url.Values) {
	p.Username, p.Email, p.Password, p.Role = v.Get("username"), v.Get("email"), v.Get("password"), v.Get("role")
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Language string `json:"language"`
}

func (p *LoginPayload) fromForm(v url.Values) {
	p.Email, p.Password, p.Language = v.Get("email"), v.Get("password"), v.Get("language")
}

// LanguagePayload defines the structure for language change requests.
type LanguagePayload struct {
	Language string `json:"language"`
}

func (p *LanguagePayload) fromForm(v url.Values) {
	p.Language = v.Get("language")
}

// Page serves the view model of an unauthenticated page such as the login form.
func (h *AccountHandler) Page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lang := models.DefaultLanguage
		if s, ok := session.FromContext(r.Context()); ok {
			lang = s.Language()
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"page": name, "language": lang})
	}
}

// Signup registers a new account from a form post or JSON body.
func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	asJSON := wantsJSON(r)
	account, err := h.signup(r)
	if err != nil {
		writeError(w, r, err, "Account", asJSON)
		return
	}
	if asJSON {
		writeJSON(w, http.StatusCreated, account)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte("Registration successful!"))
}

// APISignup registers a new account and answers with its JSON representation.
func (h *AccountHandler) APISignup(w http.ResponseWriter, r *http.Request) {
	account, err := h.signup(r)
	if err != nil {
		writeError(w, r, err, "Account", true)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) signup(r *http.Request) (models.Account, error) {
	var payload SignupPayload
	if err := decodeBody(r, &payload); err != nil {
		return models.Account{}, err
	}
	if !h.allowRole {
		payload.Role = ""
	}
	account, err := h.accounts.Signup(r.Context(), services.SignupInput{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
		Role:     payload.Role,
	})
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed to register user")
		return models.Account{}, err
	}
	return account, nil
}

// Login authenticates a form post and redirects admins to /admin and everyone else to /main.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	account, err := h.login(w, r)
	if err != nil {
		writeError(w, r, err, "Account", false)
		return
	}
	target := "/main"
	if account.IsAdmin() {
		target = "/admin"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// APILogin authenticates a JSON request and answers with the account.
func (h *AccountHandler) APILogin(w http.ResponseWriter, r *http.Request) {
	account, err := h.login(w, r)
	if err != nil {
		writeError(w, r, err, "Account", true)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": account})
}

func (h *AccountHandler) login(w http.ResponseWriter, r *http.Request) (models.Account, error) {
	var payload LoginPayload
	if err := decodeBody(r, &payload); err != nil {
		return models.Account{}, err
	}

	update, err := h.accounts.Login(r.Context(), payload.Email, payload.Password, payload.Language)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed authentication attempt")
		return models.Account{}, err
	}

	s, ok := session.FromContext(r.Context())
	if !ok {
		return models.Account{}, errNoSession
	}
	if err := h.sessions.SetIdentity(w, r, s, update.UserID); err != nil {
		return models.Account{}, err
	}
	if update.Language != nil {
		if err := h.sessions.SetLanguage(w, r, s, *update.Language); err != nil {
			return models.Account{}, err
		}
	}
	return update.Account, nil
}

// SetLanguage stores the language preference and redirects to the login page.
func (h *AccountHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	if err := h.setLanguage(w, r); err != nil {
		writeError(w, r, err, "Session", false)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// APISetLanguage stores the language preference.
func (h *AccountHandler) APISetLanguage(w http.ResponseWriter, r *http.Request) {
	if err := h.setLanguage(w, r); err != nil {
		writeError(w, r, err, "Session", true)
		return
	}
	s, _ := session.FromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{"language": s.Language()})
}

func (h *AccountHandler) setLanguage(w http.ResponseWriter, r *http.Request) error {
	var payload LanguagePayload
	if err := decodeBody(r, &payload); err != nil {
		return err
	}
	lang, ok := models.ParseLanguage(payload.Language)
	if !ok {
		return errUnsupportedLanguage
	}
	s, ok := session.FromContext(r.Context())
	if !ok {
		return errNoSession
	}
	return h.sessions.SetLanguage(w, r, s, lang)
}

// Me returns the account bound to the current session.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, r, errNoSession, "Account", true)
		return
	}
	account, err := h.accounts.GetAccount(r.Context(), s.UserID())
	if err != nil {
		writeError(w, r, err, "Account", true)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": account, "language": s.Language()})
}
