// Package vmm is the typed client for the dstack VMM's prpc surface. Every
// method is a single POST to <base>/prpc/<Method>?json; retry decisions
// belong to the caller (the engine retries RemoveVm, nothing else).
package vmm

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/projecteru2/core/log"
)

// HTTPTimeout is the per-request timeout for all VMM calls. The engine
// wraps StopVm in a longer context deadline of its own.
const HTTPTimeout = 10 * time.Second

// ErrMalformedResponse is wrapped into errors reported when a VMM response
// parses as JSON but lacks a field this client depends on.
var ErrMalformedResponse = errors.New("malformed VMM response")

// RPCError is a non-2xx response from the VMM, carrying the method, the
// HTTP status, and the response body as the error detail.
type RPCError struct {
	Method string
	Code   int
	Body   string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("VMM %s: status %d: %s", e.Method, e.Code, e.Body)
}

// Client talks to one VMM instance.
type Client struct {
	baseURL string
	hc      *http.Client
}

// New creates a Client for the VMM at baseURL. TLS verification is
// disabled: the VMM serves a self-signed certificate on a local address.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc: &http.Client{
			Timeout: HTTPTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
		},
	}
}

// call POSTs params as JSON to /prpc/<method>?json and decodes the response
// body into result (which may be nil when the caller ignores the body).
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	url := fmt.Sprintf("%s/prpc/%s?json", c.baseURL, method)
	log.WithFunc("vmm.call").Infof(ctx, "RPC %s → %s", method, url)

	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("VMM %s: %w", method, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RPCError{Method: method, Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("parse %s response: %w", method, err)
	}
	return nil
}
