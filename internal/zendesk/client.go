// Package zendesk is a small client for the parts of the Zendesk Support API
// the resolver needs: reading a ticket's channel and comments, and updating
// a ticket.
package zendesk

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const maxErrorBody = 4 << 10

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zendesk api error (status %d): %s", e.StatusCode, e.Body)
}

// Client talks to one Zendesk account with API token credentials.
type Client struct {
	client     *http.Client
	baseURL    string
	authHeader string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// WithTimeout bounds every request made by the client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d <= 0 {
			return
		}
		// Copy so an injected client, possibly http.DefaultClient, is left untouched.
		scoped := *cl.client
		scoped.Timeout = d
		cl.client = &scoped
	}
}

// NewClient builds a client for baseURL (e.g. https://acme.zendesk.com).
// Requests authenticate as "{username}/token:{apiKey}" over Basic auth.
func NewClient(baseURL, username, apiKey string, opts ...Option) *Client {
	creds := base64.StdEncoding.EncodeToString([]byte(username + "/token:" + apiKey))
	c := &Client{
		client:     &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		authHeader: "Basic " + creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: string(msg)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
