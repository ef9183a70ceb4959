// Package speedlimit implements the external speed-limit lookup over HTTP.
package speedlimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fleetpulse/fleet-alerting/internal/core/domain"
)

const clientTimeout = 5 * time.Second

// Client queries a road-data HTTP API for the posted limit near a coordinate.
// The caller (the resolver) owns caching, per-call deadlines, and fallbacks;
// this client only speaks the wire protocol.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type lookupResponse struct {
	SpeedLimitMph float64 `json:"speed_limit_mph"`
}

// NewClient constructs a lookup client for the given API endpoint.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: clientTimeout},
	}
}

// Lookup returns the posted speed limit in mph for the coordinate.
func (c *Client) Lookup(ctx context.Context, lat, lng float64) (float64, error) {
	url := fmt.Sprintf("%s/v1/speed-limit?lat=%f&lng=%f", c.baseURL, lat, lng)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, fmt.Errorf("speed limit lookup: %w", domain.ErrLookupTimeout)
		}
		return 0, fmt.Errorf("speed limit lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("speed limit lookup: unexpected status %d", resp.StatusCode)
	}

	var out lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("speed limit lookup: decode: %w", err)
	}
	return out.SpeedLimitMph, nil
}
