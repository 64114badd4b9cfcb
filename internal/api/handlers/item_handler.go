package handlers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/carshelf/internal/models"
	"github.com/isdelr/carshelf/internal/services"
)

// ItemHandler handles HTTP requests for inventory items.
type ItemHandler struct {
	service services.ItemServiceProvider
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(service services.ItemServiceProvider) *ItemHandler {
	return &ItemHandler{service: service}
}

// ItemPayload defines the structure for item create and update requests.
type ItemPayload struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Genre  string `json:"genre"`
}

func (p *ItemPayload) fromForm(v url.Values) {
	p.Title, p.Author, p.Genre = v.Get("title"), v.Get("author"), v.Get("genre")
}

// GetAll returns every item.
func (h *ItemHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.GetAllItems(r.Context())
	if err != nil {
		writeError(w, r, err, "Item", true)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Get returns a single item as JSON.
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItemByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Item", true)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Create adds an item from the admin form and redirects back to the dashboard.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, err := h.create(r); err != nil {
		writeError(w, r, err, "Item", false)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusFound)
}

// APICreate adds an item and answers with it.
func (h *ItemHandler) APICreate(w http.ResponseWriter, r *http.Request) {
	item, err := h.create(r)
	if err != nil {
		writeError(w, r, err, "Item", true)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) create(r *http.Request) (models.Item, error) {
	var payload ItemPayload
	if err := decodeBody(r, &payload); err != nil {
		return models.Item{}, err
	}
	return h.service.CreateItem(r.Context(), payload.Title, payload.Author, payload.Genre)
}

// Update overwrites an item from the admin form and redirects back to the dashboard.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	if _, err := h.update(r); err != nil {
		writeError(w, r, err, "Item", false)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusFound)
}

// APIUpdate overwrites an item and answers with the stored result.
func (h *ItemHandler) APIUpdate(w http.ResponseWriter, r *http.Request) {
	item, err := h.update(r)
	if err != nil {
		writeError(w, r, err, "Item", true)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) update(r *http.Request) (models.Item, error) {
	var payload ItemPayload
	if err := decodeBody(r, &payload); err != nil {
		return models.Item{}, err
	}
	return h.service.UpdateItem(r.Context(), chi.URLParam(r, "id"), payload.Title, payload.Author, payload.Genre)
}

// Delete removes an item and redirects back to the dashboard.
func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "Item", false)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusFound)
}

// APIDelete removes an item.
func (h *ItemHandler) APIDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "Item", true)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
