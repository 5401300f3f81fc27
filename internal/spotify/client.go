// Package spotify implements the catalog client for the Spotify Web API:
// token lifecycle, bounded-timeout calls with uniform error classification,
// track search, and playlist creation.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"flowbeat/internal/shared"
	"github.com/charmbracelet/log"
)

const (
	authURL  = "https://accounts.spotify.com/authorize"
	tokenURL = "https://accounts.spotify.com/api/token"
	baseURL  = "https://api.spotify.com/v1"

	// defaultTimeout bounds every catalog API call.
	defaultTimeout = 8 * time.Second
)

// Client performs authenticated calls against the Spotify Web API.
//
// Every call is bounded by a hard timeout and classified into the shared
// error taxonomy. The client never retries: retry policy belongs to callers.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *log.Logger
}

// ClientOpts configures a [Client].
type ClientOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *log.Logger
}

// NewClient creates a Spotify API client.
func NewClient(opts ClientOpts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = baseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		timeout:    opts.Timeout,
		logger:     opts.Logger,
	}
}

// call performs a bounded, authenticated request and decodes the JSON body into result.
//
// Non-2xx responses are classified: 401 → [shared.ErrAuthExpired],
// 403 → [shared.ErrForbidden], 429 → [shared.ErrRateLimited], anything else →
// [shared.ErrUpstream] carrying status and body text. A deadline hit surfaces
// as [shared.ErrUpstreamTimeout].
func (c *Client) call(ctx context.Context, method, endpoint, token string, body, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s %s", shared.ErrUpstreamTimeout, method, endpoint)
		}
		return fmt.Errorf("%w: %v", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.classify(resp)
	}

	// Player endpoints answer 204 when there is nothing to report.
	if result != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// classify maps a non-2xx response onto the shared error taxonomy.
func (c *Client) classify(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return shared.ErrAuthExpired
	case http.StatusForbidden:
		return shared.ErrForbidden
	case http.StatusTooManyRequests:
		return shared.ErrRateLimited
	default:
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: status %d: %s", shared.ErrUpstream, resp.StatusCode, string(text))
	}
}

// SearchTracks performs a free-text track search, returning at most limit results.
func (c *Client) SearchTracks(ctx context.Context, token, query string, limit int) ([]Track, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := "/search?q=" + url.QueryEscape(query) + "&type=track&limit=" + strconv.Itoa(limit)

	var result SearchResult
	if err := c.call(ctx, http.MethodGet, endpoint, token, nil, &result); err != nil {
		return nil, err
	}

	return result.Tracks.Items, nil
}

// Profile retrieves the authenticated user's profile.
func (c *Client) Profile(ctx context.Context, token string) (*Profile, error) {
	var profile Profile
	if err := c.call(ctx, http.MethodGet, "/me", token, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// TopTracks retrieves the user's most-played tracks.
func (c *Client) TopTracks(ctx context.Context, token string, limit int) (*PagedTracks, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := "/me/top/tracks?limit=" + strconv.Itoa(limit)

	var result PagedTracks
	if err := c.call(ctx, http.MethodGet, endpoint, token, nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}
