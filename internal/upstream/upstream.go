// Package upstream is the control-plane client the Synchroniser polls.
// It is deliberately built on net/http alone: no HTTP client library
// appears anywhere in the example pack, and the request shape here is a
// single idempotent GET with three static headers, which stdlib expresses
// in fewer lines than any client wrapper would.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Record is one row of the upstream domain list, modeled on the
// control-plane's REST representation (id, domain, active flag, and the
// per-domain flags the catalogue cares about).
type Record struct {
	ID      string `json:"id"`
	Domain  string `json:"domain"`
	Active  bool   `json:"active"`
	Discord bool   `json:"discord"`
}

// Client fetches the upstream domain set over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New returns a Client reading from baseURL, authenticating with apiKey as
// a bearer token, bounding every request to timeout.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the client has usable credentials; an
// unconfigured client's Fetch is a no-op returning an empty set, mirroring
// the "is_configured" guard in the original control-plane client.
func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// Fetch retrieves the full upstream domain list. It tolerates no partial
// responses: a failed fetch returns an error and the caller must make no
// local mutations, per the Synchroniser's reconciliation contract.
func (c *Client) Fetch(ctx context.Context) ([]Record, error) {
	if !c.Configured() {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rest/v1/domains", nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("upstream: unexpected status %d: %s", resp.StatusCode, body)
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("upstream: decode response: %w", err)
	}
	return records, nil
}
