// Package api is the HTTP client for the remote exam backend. The backend is
// treated as an opaque collaborator: send JSON (one multipart flow), read
// JSON, branch on status. No call is retried automatically; every operation
// is a fire-once request/response pair the caller may re-invoke.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Client talks to one backend base URL. Zero or one student token and zero
// or one admin token may be attached; the two sessions coexist. Token access
// is guarded so a login can land while another request is in flight.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger

	mu           sync.RWMutex
	studentToken string
	adminToken   string
}

// New creates a Client for the given base URL.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "api").Logger(),
	}
}

// SetStudentToken attaches the bearer token returned by StudentLogin.
func (c *Client) SetStudentToken(token string) {
	c.mu.Lock()
	c.studentToken = token
	c.mu.Unlock()
}

// SetAdminToken attaches the bearer token returned by AdminLogin.
func (c *Client) SetAdminToken(token string) {
	c.mu.Lock()
	c.adminToken = token
	c.mu.Unlock()
}

// StudentToken returns the currently attached student token.
func (c *Client) StudentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.studentToken
}

// AdminToken returns the currently attached admin token.
func (c *Client) AdminToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.adminToken
}

// StatusError is a non-2xx backend response. The body is kept raw; only the
// submit path ever inspects it.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned HTTP %d", e.Status)
}

// Detail extracts the backend's {"detail": "..."} message, if any.
func (e *StatusError) Detail() string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(e.Body, &body); err != nil {
		return ""
	}
	return body.Detail
}

// doJSON issues one request. A nil body sends no payload; a non-nil out
// decodes the 2xx response into it. Transport failures come back wrapped so
// callers can distinguish them from *StatusError.
func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.decorate(req, token)

	return c.send(req, out)
}

// decorate attaches auth and tracing headers.
func (c *Client) decorate(req *http.Request, token string) {
	req.Header.Set("X-Request-ID", uuid.New().String())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// send executes the request and maps the outcome onto the error taxonomy.
func (c *Client) send(req *http.Request, out any) error {
	started := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("path", req.URL.Path).Msg("Network error")
		return fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("Request complete")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Body: raw}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// withQuery appends URL query parameters to a path.
func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}
