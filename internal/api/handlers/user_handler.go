package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/carshelf/internal/services"
	"github.com/rs/zerolog/log"
)

// UserHandler handles admin requests for account management.
type UserHandler struct {
	accounts services.AccountServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(accounts services.AccountServiceProvider) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// GetAll returns every non-admin account.
func (h *UserHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.ListNonAdmins(r.Context())
	if err != nil {
		writeError(w, r, err, "User", true)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Delete removes an account and redirects back to the dashboard.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.remove(r); err != nil {
		writeError(w, r, err, "User", false)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusFound)
}

// APIDelete removes an account.
func (h *UserHandler) APIDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.remove(r); err != nil {
		writeError(w, r, err, "User", true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandler) remove(r *http.Request) error {
	id := chi.URLParam(r, "id")
	if err := h.accounts.RemoveAccount(r.Context(), id); err != nil {
		log.Warn().Err(err).Str("user_id", id).Msg("Failed to delete user")
		return err
	}
	log.Info().Str("user_id", id).Msg("User deleted")
	return nil
}
