// Package geocode turns street addresses into coordinates using the Google
// Geocoding API. Results are cached for the life of the process.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultEndpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// ErrNotFound is returned when the address resolves to nothing.
var ErrNotFound = errors.New("address not found")

// Location is a resolved point in degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type response struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location Location `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type Client struct {
	apiKey   string
	endpoint string
	http     *http.Client

	mu    sync.Mutex
	cache map[string]Location
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
		cache:    make(map[string]Location),
	}
}

// Lookup resolves address, restricted to the US region.
func (c *Client) Lookup(ctx context.Context, address string) (Location, error) {
	key := strings.ToLower(strings.TrimSpace(address))
	if key == "" {
		return Location{}, ErrNotFound
	}

	c.mu.Lock()
	loc, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return loc, nil
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("region", "us")
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Location{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("geocode request: status %d", resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("decode geocode response: %w", err)
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return Location{}, ErrNotFound
	default:
		return Location{}, fmt.Errorf("geocode: %s %s", body.Status, body.ErrorMessage)
	}
	if len(body.Results) == 0 {
		return Location{}, ErrNotFound
	}

	loc = body.Results[0].Geometry.Location
	c.mu.Lock()
	c.cache[key] = loc
	c.mu.Unlock()
	return loc, nil
}
