// Package trakt is a thin HTTP client for the tracking service holding the
// user's canonical watch history and watchlist. Credentials are optional:
// an unconfigured client fails fast with ErrNotConfigured and callers
// degrade to memory-only operation.
package trakt

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
)

// ErrNotConfigured indicates the tracking service credentials are absent.
var ErrNotConfigured = errors.New("trakt: client not configured")

// maxResponseBytes bounds reads of API responses.
const maxResponseBytes = 10 << 20 // 10 MiB

// allowedMethods lists the HTTP methods the generic Call surface accepts.
var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
}

// Config holds client settings.
type Config struct {
	ClientID    string
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
}

// Client is a thin wrapper around the tracking service's REST API.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a Client. A client built from empty credentials is
// valid but reports IsConfigured() == false.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.trakt.tv"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// IsConfigured reports whether both credentials are present.
func (c *Client) IsConfigured() bool {
	return c.cfg.ClientID != "" && c.cfg.AccessToken != ""
}

// APIError is a non-2xx response from the tracking service.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("trakt API status %d: %s", e.Status, e.Body)
}

// Response is the passthrough result of a generic Call.
type Response struct {
	Status  int               `json:"status"`
	OK      bool              `json:"ok"`
	Headers map[string]string `json:"headers"`
	Data    json.RawMessage   `json:"data"`
}

// History fetches up to limit movie entries from the user's watch history.
func (c *Client) History(ctx context.Context, limit int) ([]HistoryItem, error) {
	if limit <= 0 {
		limit = 100
	}
	var items []HistoryItem
	err := c.doJSON(ctx, http.MethodGet, "/sync/history/movies?limit="+strconv.Itoa(limit), nil, &items)
	return items, err
}

// AddToHistory marks the movie as watched.
func (c *Client) AddToHistory(ctx context.Context, m Movie) (SyncResult, error) {
	var res SyncResult
	err := c.doJSON(ctx, http.MethodPost, "/sync/history", syncRequest{Movies: []Movie{m}}, &res)
	return res, err
}

// WatchlistAdd puts the movie on the user's watchlist.
func (c *Client) WatchlistAdd(ctx context.Context, m Movie) (SyncResult, error) {
	var res SyncResult
	err := c.doJSON(ctx, http.MethodPost, "/sync/watchlist", syncRequest{Movies: []Movie{m}}, &res)
	return res, err
}

// WatchlistRemove takes the movie off the user's watchlist.
func (c *Client) WatchlistRemove(ctx context.Context, m Movie) (SyncResult, error) {
	var res SyncResult
	err := c.doJSON(ctx, http.MethodPost, "/sync/watchlist/remove", syncRequest{Movies: []Movie{m}}, &res)
	return res, err
}

// Call performs a generic request against the tracking service. The path
// must be absolute ("/..."); method must be GET, POST, PUT, or DELETE.
// The full response — status, ok flag, headers, and raw body — is passed
// through so tool callers can inspect vendor diagnostics directly.
func (c *Client) Call(ctx context.Context, method, path string, query map[string]string, body any) (Response, error) {
	if !c.IsConfigured() {
		return Response{}, ErrNotConfigured
	}
	if !allowedMethods[method] {
		return Response{}, fmt.Errorf("trakt: unsupported method %q", method)
	}
	if len(path) == 0 || path[0] != '/' {
		return Response{}, fmt.Errorf("trakt: path %q must start with /", path)
	}

	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		q := url.Values{}
		for k, v := range query {
			q.Set(k, v)
		}
		u += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Response{}, fmt.Errorf("trakt: marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return Response{}, fmt.Errorf("trakt: create %s request: %w", path, err)
	}
	c.setHeaders(req, body != nil)

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("trakt: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Response{}, fmt.Errorf("trakt: read %s response: %w", path, err)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	data := json.RawMessage(raw)
	if !json.Valid(raw) {
		data, _ = json.Marshal(string(raw))
	}

	return Response{
		Status:  resp.StatusCode,
		OK:      resp.StatusCode >= 200 && resp.StatusCode <= 299,
		Headers: headers,
		Data:    data,
	}, nil
}

// doJSON performs a request and decodes a JSON response, mapping non-2xx
// statuses to *APIError with the vendor body embedded. No retries.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("trakt: marshal %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("trakt: create %s request: %w", path, err)
	}
	c.setHeaders(req, body != nil)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("trakt: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("trakt: read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Body: string(raw)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("trakt: decode %s response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, hasBody bool) {
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("trakt-api-version", "2")
	req.Header.Set("trakt-api-key", c.cfg.ClientID)
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
}
