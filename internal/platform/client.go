// Package platform is a small HTTP client for the listings API.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/easylease/sublease/internal/data"
	"github.com/easylease/sublease/internal/listing"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// New returns a client for the API rooted at baseURL. token may be empty for
// the public routes.
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Listings fetches every listing with the owner profile joined.
func (c *Client) Listings(ctx context.Context) ([]listing.Listing, error) {
	var out []listing.Listing
	if err := c.do(ctx, http.MethodGet, "/v1/listings", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Listing fetches one listing.
func (c *Client) Listing(ctx context.Context, id string) (*listing.Listing, error) {
	var out listing.Listing
	if err := c.do(ctx, http.MethodGet, "/v1/listings/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Universities fetches the reference universities.
func (c *Client) Universities(ctx context.Context) ([]listing.University, error) {
	var out []listing.University
	if err := c.do(ctx, http.MethodGet, "/v1/universities", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Favorites fetches the caller's saved listings.
func (c *Client) Favorites(ctx context.Context) ([]listing.Listing, error) {
	var out []listing.Listing
	if err := c.do(ctx, http.MethodGet, "/v1/favorites", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddFavorite saves a listing for the caller.
func (c *Client) AddFavorite(ctx context.Context, listingID string) error {
	return c.do(ctx, http.MethodPut, "/v1/favorites/"+url.PathEscape(listingID), nil)
}

// RemoveFavorite forgets a saved listing.
func (c *Client) RemoveFavorite(ctx context.Context, listingID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/favorites/"+url.PathEscape(listingID), nil)
}

// NearUniversity calls the legacy route returning listings within the
// legacy radius of the named university.
func (c *Client) NearUniversity(ctx context.Context, university string) ([]data.LegacyListing, error) {
	path := "/api/listings"
	if university != "" {
		path += "?" + url.Values{"university": {university}}.Encode()
	}
	var out []data.LegacyListing
	if err := c.do(ctx, http.MethodGet, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
