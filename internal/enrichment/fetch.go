package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/isdelr/carshelf/internal/common"
)

// getJSON fetches endpoint with the extra header, which may be nil, and decodes
// the body into dst. Every failure wraps common.ErrUpstreamUnavailable.
func getJSON(ctx context.Context, client *http.Client, endpoint string, header http.Header, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUpstreamUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", common.ErrUpstreamUnavailable, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode response: %v", common.ErrUpstreamUnavailable, err)
	}
	return nil
}
