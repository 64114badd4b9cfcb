package handlers

import (
	"net/http"

	"github.com/isdelr/carshelf/internal/enrichment"
	"github.com/isdelr/carshelf/internal/models"
	"github.com/isdelr/carshelf/internal/session"
)

// FeedHandler serves the public joke and picture pages.
type FeedHandler struct {
	feeds enrichment.Feeds
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(feeds enrichment.Feeds) *FeedHandler {
	return &FeedHandler{feeds: feeds}
}

// JokeView is the view model of the joke page.
type JokeView struct {
	Language models.Language `json:"language"`
	enrichment.JokeResult
}

// PictureView is the view model of the picture-of-the-day page.
type PictureView struct {
	Language models.Language `json:"language"`
	enrichment.PictureResult
}

// Joke renders a random joke. Upstream failures only degrade the page.
func (h *FeedHandler) Joke(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, JokeView{
		Language:   requestLanguage(r),
		JokeResult: h.feeds.RandomJoke(r.Context()),
	})
}

// Picture renders the astronomy picture of the day.
func (h *FeedHandler) Picture(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PictureView{
		Language:      requestLanguage(r),
		PictureResult: h.feeds.PictureOfTheDay(r.Context()),
	})
}

func requestLanguage(r *http.Request) models.Language {
	if s, ok := session.FromContext(r.Context()); ok {
		return s.Language()
	}
	return models.DefaultLanguage
}
