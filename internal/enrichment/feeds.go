package enrichment

import (
	"context"
	"net/http"
	"time"

	"github.com/isdelr/carshelf/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Joke is a random joke from a chucknorris.io compatible endpoint.
type Joke struct {
	ID      string `json:"id"`
	Value   string `json:"value"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

// JokeResult is the outcome of a joke lookup. Joke is nil when Degraded.
type JokeResult struct {
	Joke     *Joke `json:"joke"`
	Degraded bool  `json:"degraded"`
}

// Picture is NASA's astronomy picture of the day.
type Picture struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	Explanation string `json:"explanation"`
	URL         string `json:"url"`
	HDURL       string `json:"hdurl,omitempty"`
	MediaType   string `json:"media_type"`
	Copyright   string `json:"copyright,omitempty"`
}

// PictureResult is the outcome of a picture lookup. Picture is nil when Degraded.
type PictureResult struct {
	Picture  *Picture `json:"picture"`
	Degraded bool     `json:"degraded"`
}

// Feeds serves the standalone third-party pages.
type Feeds interface {
	RandomJoke(ctx context.Context) JokeResult
	PictureOfTheDay(ctx context.Context) PictureResult
}

// FeedConfig points a FeedClient at its upstreams.
type FeedConfig struct {
	JokeURL    string
	PictureURL string
	PictureKey string
	Timeout    time.Duration
}

// FeedClient fetches the joke and picture feeds.
type FeedClient struct {
	httpClient *http.Client
	cfg        FeedConfig
	metrics    *metrics.Metrics
}

// NewFeedClient creates a FeedClient. m may be nil.
func NewFeedClient(cfg FeedConfig, m *metrics.Metrics) *FeedClient {
	return &FeedClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		metrics:    m,
	}
}

// RandomJoke returns a random joke, or a degraded result when the upstream fails.
func (c *FeedClient) RandomJoke(ctx context.Context) JokeResult {
	var joke Joke
	if err := getJSON(ctx, c.httpClient, c.cfg.JokeURL, nil, &joke); err != nil {
		log.Warn().Err(err).Str("feed", "joke").Msg("Feed unavailable, serving degraded page")
		c.count("joke", "degraded")
		return JokeResult{Degraded: true}
	}
	c.count("joke", "success")
	return JokeResult{Joke: &joke}
}

// PictureOfTheDay returns today's picture, or a degraded result when the upstream fails.
func (c *FeedClient) PictureOfTheDay(ctx context.Context) PictureResult {
	header := http.Header{}
	header.Set("X-Api-Key", c.cfg.PictureKey)

	var pic Picture
	if err := getJSON(ctx, c.httpClient, c.cfg.PictureURL, header, &pic); err != nil {
		log.Warn().Err(err).Str("feed", "picture").Msg("Feed unavailable, serving degraded page")
		c.count("picture", "degraded")
		return PictureResult{Degraded: true}
	}
	c.count("picture", "success")
	return PictureResult{Picture: &pic}
}

func (c *FeedClient) count(feed, outcome string) {
	if c.metrics != nil {
		c.metrics.Feeds.WithLabelValues(feed, outcome).Inc()
	}
}
