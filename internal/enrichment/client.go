// Package enrichment fetches supplementary catalog data from a third-party
// volumes API. Lookups are best effort: callers get a degraded result instead
// of an error when the upstream misbehaves.
package enrichment

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/isdelr/carshelf/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Volume is the subset of an upstream volume the listing view needs.
type Volume struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Authors   []string `json:"authors,omitempty"`
	Publisher string   `json:"publisher,omitempty"`
	Thumbnail string   `json:"thumbnail,omitempty"`
}

// Result is the outcome of an enrichment lookup.
type Result struct {
	Items    []Volume `json:"items"`
	Degraded bool     `json:"degraded"`
}

// Enricher augments a listing with third-party data.
type Enricher interface {
	Enrich(ctx context.Context) Result
}

// Client queries a Google Books compatible volumes endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	query      string
	metrics    *metrics.Metrics
}

// NewClient creates a Client. m may be nil.
func NewClient(baseURL, query string, timeout time.Duration, m *metrics.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		query:      query,
		metrics:    m,
	}
}

type volumesResponse struct {
	Items []struct {
		ID         string `json:"id"`
		VolumeInfo struct {
			Title      string   `json:"title"`
			Authors    []string `json:"authors"`
			Publisher  string   `json:"publisher"`
			ImageLinks struct {
				Thumbnail string `json:"thumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// Search returns the volumes matching query. Every failure wraps
// common.ErrUpstreamUnavailable.
func (c *Client) Search(ctx context.Context, query string) ([]Volume, error) {
	endpoint := c.baseURL + "/volumes?" + url.Values{"q": {query}}.Encode()
	var body volumesResponse
	if err := getJSON(ctx, c.httpClient, endpoint, nil, &body); err != nil {
		return nil, err
	}

	volumes := make([]Volume, 0, len(body.Items))
	for _, it := range body.Items {
		volumes = append(volumes, Volume{
			ID:        it.ID,
			Title:     it.VolumeInfo.Title,
			Authors:   it.VolumeInfo.Authors,
			Publisher: it.VolumeInfo.Publisher,
			Thumbnail: it.VolumeInfo.ImageLinks.Thumbnail,
		})
	}
	return volumes, nil
}

// Enrich runs the configured query. Upstream failures are logged and yield an
// empty, degraded result.
func (c *Client) Enrich(ctx context.Context) Result {
	volumes, err := c.Search(ctx, c.query)
	if err != nil {
		log.Warn().Err(err).Str("query", c.query).Msg("Enrichment unavailable, serving degraded listing")
		c.count("degraded")
		return Result{Items: []Volume{}, Degraded: true}
	}
	c.count("success")
	return Result{Items: volumes}
}

func (c *Client) count(outcome string) {
	if c.metrics != nil {
		c.metrics.Enrichment.WithLabelValues(outcome).Inc()
	}
}
