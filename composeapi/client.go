// Package composeapi fetches the desired compose config from the platform
// API. The updater polls this endpoint every cycle and never caches: the
// response is the single source of truth for what should be running.
package composeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dstack-validator/updater/types"
)

// HTTPTimeout bounds one fetch.
const HTTPTimeout = 10 * time.Second

// Client fetches compose configs from a fixed URL.
type Client struct {
	url string
	hc  *http.Client
}

// New creates a Client for the given compose endpoint URL.
func New(url string) *Client {
	return &Client{url: url, hc: &http.Client{Timeout: HTTPTimeout}}
}

// Fetch retrieves the current desired compose config. A non-2xx status or
// an unparsable body fails the fetch; the body is included in the error so
// operators can see what the API actually said.
func (c *Client) Fetch(ctx context.Context) (*types.ComposeConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build compose config request: %w", err)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch compose config: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read compose config response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("compose API status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var cfg types.ComposeConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse compose config (body: %s): %w", strings.TrimSpace(string(raw)), err)
	}
	return &cfg, nil
}
