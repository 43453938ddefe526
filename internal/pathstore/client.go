// Package pathstore is a small client for the pathstore key/value HTTP API.
package pathstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned by GetNode when the key does not exist.
var ErrNotFound = errors.New("pathstore: node not found")

// RetryableError is a transient failure (429 or 5xx).
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	msg := e.Message
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, msg)
}

type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client (30s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NodeRequest is the body for PUT /kv/{key}.
type NodeRequest struct {
	Value     any    `json:"value"`
	Source    string `json:"source,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// NodeResponse is the body of GET /kv/{key}.
type NodeResponse struct {
	Key   string          `json:"key_path"`
	Value json.RawMessage `json:"value"`
}

// PutNode creates or replaces the node at key.
func (c *Client) PutNode(ctx context.Context, key string, req NodeRequest) error {
	_, err := c.roundTrip(ctx, http.MethodPut, c.keyURL(key), req, nil, http.StatusOK, http.StatusCreated)
	if err != nil {
		return fmt.Errorf("put node %s: %w", key, err)
	}
	return nil
}

func (c *Client) GetNode(ctx context.Context, key string) (*NodeResponse, error) {
	var node NodeResponse
	status, err := c.roundTrip(ctx, http.MethodGet, c.keyURL(key), nil, &node, http.StatusOK)
	if status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get node %s: %w", key, err)
	}
	return &node, nil
}

// DeleteNode removes key, and its children when recursive is set. A missing
// key is not an error.
func (c *Client) DeleteNode(ctx context.Context, key string, recursive bool) error {
	u := c.keyURL(key)
	if recursive {
		u += "?children=true"
	}
	status, err := c.roundTrip(ctx, http.MethodDelete, u, nil, nil, http.StatusOK, http.StatusNoContent)
	if err != nil && status != http.StatusNotFound {
		return fmt.Errorf("delete node %s: %w", key, err)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) keyURL(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return c.base + "/kv/" + strings.Join(parts, "/")
}

// roundTrip sends in as JSON (when non-nil), and decodes the response into
// out when the status is one of ok. The status is returned even on error,
// or 0 when no response arrived.
func (c *Client) roundTrip(ctx context.Context, method, u string, in, out any, ok ...int) (int, error) {
	var body io.Reader
	if in != nil {
		js, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("marshal: %w", err)
		}
		body = bytes.NewReader(js)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	for _, code := range ok {
		if resp.StatusCode != code {
			continue
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return resp.StatusCode, fmt.Errorf("decode response: %w", err)
			}
		}
		return resp.StatusCode, nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return resp.StatusCode, &RetryableError{StatusCode: resp.StatusCode, Message: string(msg)}
	}
	return resp.StatusCode, fmt.Errorf("status %d: %s", resp.StatusCode, msg)
}
