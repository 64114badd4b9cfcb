package handlers

import (
	"errors"
	"net/http"

	"github.com/isdelr/carshelf/internal/auth"
	"github.com/isdelr/carshelf/internal/common"
	"github.com/isdelr/carshelf/internal/enrichment"
	"github.com/isdelr/carshelf/internal/models"
	"github.com/isdelr/carshelf/internal/services"
	"github.com/isdelr/carshelf/internal/session"
)

// PageHandler serves the view models of the authenticated landing pages.
type PageHandler struct {
	accounts services.AccountServiceProvider
	items    services.ItemServiceProvider
	enricher enrichment.Enricher
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(accounts services.AccountServiceProvider, items services.ItemServiceProvider, enricher enrichment.Enricher) *PageHandler {
	return &PageHandler{accounts: accounts, items: items, enricher: enricher}
}

// MainView is the view model of the user landing page.
type MainView struct {
	Username   string            `json:"username"`
	Language   models.Language   `json:"language"`
	Items      []models.Item     `json:"items"`
	Enrichment enrichment.Result `json:"enrichment"`
}

// AdminView is the view model of the admin dashboard.
type AdminView struct {
	Username string           `json:"username"`
	Language models.Language  `json:"language"`
	Users    []models.Account `json:"users"`
	Items    []models.Item    `json:"items"`
}

// Main renders the landing page. Enrichment failures only degrade the page.
func (h *PageHandler) Main(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, r, errNoSession, "Page", false)
		return
	}
	account, err := h.accounts.GetAccount(r.Context(), s.UserID())
	if errors.Is(err, common.ErrNotFound) {
		// the account was removed while the session was still live
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err != nil {
		writeError(w, r, err, "Account", false)
		return
	}

	items, err := h.items.GetAllItems(r.Context())
	if err != nil {
		writeError(w, r, err, "Item", false)
		return
	}

	writeJSON(w, http.StatusOK, MainView{
		Username:   account.Username,
		Language:   s.Language(),
		Items:      items,
		Enrichment: h.enricher.Enrich(r.Context()),
	})
}

// Admin renders the dashboard with every non-admin account and item.
func (h *PageHandler) Admin(w http.ResponseWriter, r *http.Request) {
	account, ok := auth.AccountFromContext(r.Context())
	if !ok {
		writeError(w, r, common.ErrForbidden, "Page", false)
		return
	}
	users, err := h.accounts.ListNonAdmins(r.Context())
	if err != nil {
		writeError(w, r, err, "User", false)
		return
	}
	items, err := h.items.GetAllItems(r.Context())
	if err != nil {
		writeError(w, r, err, "Item", false)
		return
	}

	writeJSON(w, http.StatusOK, AdminView{
		Username: account.Username,
		Language: requestLanguage(r),
		Users:    users,
		Items:    items,
	})
}
