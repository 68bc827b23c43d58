// Package navfeed downloads the daily NAV flat file.
package navfeed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// maxFeedBytes bounds a single download; the full feed is a few MB
const maxFeedBytes = 64 << 20

// Client fetches the feed from one configured URL
type Client struct {
	url      string
	client   *http.Client
	log      zerolog.Logger
	maxBytes int64
}

// NewClient creates a feed client bounded by timeout
func NewClient(url string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		url:      url,
		client:   &http.Client{Timeout: timeout},
		log:      log.With().Str("client", "navfeed").Logger(),
		maxBytes: maxFeedBytes,
	}
}

// Fetch performs one GET and returns the body as text. Any non-200 status
// or a body over the size limit is an error; there is no retry.
func (c *Client) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create feed request: %w", err)
	}

	start := time.Now()
	c.log.Info().Str("url", c.url).Msg("Fetching NAV feed")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	// One byte past the limit tells an oversized feed from one that fits exactly
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read feed body: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return "", fmt.Errorf("feed body exceeds %d bytes", c.maxBytes)
	}

	c.log.Info().
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("Fetched NAV feed")

	return string(body), nil
}
