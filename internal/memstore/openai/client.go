// Package openai implements memstore.FileStore against an OpenAI-style
// files and vector-store HTTP API. The collection is used purely as flat
// searchable text storage; no embedding features are touched.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yengalvez/a-movies/internal/memstore"
)

// maxResponseBytes bounds reads of API responses.
const maxResponseBytes = 10 << 20 // 10 MiB

// Config holds client settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Collection string
	Purpose    string
	Timeout    time.Duration
}

// Client is a thin HTTP wrapper around the vendor file-storage API.
type Client struct {
	cfg  Config
	http *http.Client
}

// Compile-time interface guard.
var _ memstore.FileStore = (*Client)(nil)

// NewClient creates a Client for the configured collection.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// APIError is a non-2xx response from the vendor, carrying the status and
// raw body so callers can surface the vendor's own diagnostics.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("store API status %d: %s", e.Status, e.Body)
}

// Upload implements memstore.FileStore via multipart POST /files.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("purpose", c.cfg.Purpose); err != nil {
		return "", fmt.Errorf("store: write purpose field: %w", err)
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("store: create file part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("store: copy file content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("store: finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/files", &buf)
	if err != nil {
		return "", fmt.Errorf("store: create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// Attach implements memstore.FileStore via POST /vector_stores/{id}/files.
func (c *Client) Attach(ctx context.Context, fileID string) error {
	body, err := json.Marshal(map[string]string{"file_id": fileID})
	if err != nil {
		return fmt.Errorf("store: marshal attach request: %w", err)
	}

	u := fmt.Sprintf("%s/vector_stores/%s/files", c.cfg.BaseURL, url.PathEscape(c.cfg.Collection))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("store: create attach request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// The attach identifier the vendor returns is never tracked; only the
	// file ID matters downstream.
	return c.do(req, nil)
}

// List implements memstore.FileStore via GET /vector_stores/{id}/files.
// Only the first page is requested.
func (c *Client) List(ctx context.Context, limit int) ([]memstore.File, error) {
	u := fmt.Sprintf("%s/vector_stores/%s/files?limit=%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.Collection), strconv.Itoa(limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("store: create list request: %w", err)
	}

	var resp struct {
		Data []struct {
			ID        string `json:"id"`
			CreatedAt int64  `json:"created_at"`
		} `json:"data"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}

	files := make([]memstore.File, 0, len(resp.Data))
	for _, d := range resp.Data {
		files = append(files, memstore.File{ID: d.ID, CreatedAt: d.CreatedAt})
	}
	return files, nil
}

// Content implements memstore.FileStore via GET /files/{id}/content.
func (c *Client) Content(ctx context.Context, fileID string) (string, error) {
	u := fmt.Sprintf("%s/files/%s/content", c.cfg.BaseURL, url.PathEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("store: create content request: %w", err)
	}

	raw, err := c.doRaw(req)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Delete implements memstore.FileStore via DELETE /files/{id}.
func (c *Client) Delete(ctx context.Context, fileID string) error {
	u := fmt.Sprintf("%s/files/%s", c.cfg.BaseURL, url.PathEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("store: create delete request: %w", err)
	}
	return c.do(req, nil)
}

// do sends the request and decodes a JSON response into out (when non-nil).
func (c *Client) do(req *http.Request, out any) error {
	raw, err := c.doRaw(req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("store: decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// doRaw sends the request with auth headers and returns the raw body.
// Non-2xx responses become *APIError with the body embedded.
func (c *Client) doRaw(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("store: read %s response: %w", req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
