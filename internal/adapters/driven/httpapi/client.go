// Package httpapi is the JSON-over-HTTP client behind the providers that
// are called without an SDK (Anthropic, Ollama). Non-2xx answers come back
// as *domain.RemoteError so retry and reporting treat every provider alike.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aguiargov/licita/internal/core/domain"
)

// maxErrorBody caps how much of an error response is kept for the message.
const maxErrorBody = 64 << 10

// Client talks to one provider's base URL.
type Client struct {
	provider string
	baseURL  string
	http     *http.Client
	header   http.Header
}

// Option configures a Client.
type Option func(*Client)

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.header.Set(key, value) }
}

// New creates a client for provider rooted at baseURL.
func New(provider, baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		header:   make(http.Header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalised base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PostJSON sends in as JSON to path and decodes a 2xx answer into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", c.provider, err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

// Ping issues a GET to path and succeeds on any 2xx answer.
func (c *Client) Ping(ctx context.Context, path string) error {
	if err := c.do(ctx, http.MethodGet, path, nil, nil); err != nil {
		return fmt.Errorf("%s: ping failed: %w", c.provider, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.provider, err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: send request: %w", domain.ErrRemote, c.provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		code, message := errorFields(raw)
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return domain.NewRemoteErrorFromStatus(c.provider, resp.StatusCode, code, message)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: decode response: %w", domain.ErrRemote, c.provider, err)
	}
	return nil
}

// errorFields pulls the error type and message out of the two envelopes in
// use: {"error": "text"} and {"error": {"type": ..., "message": ...}}.
// Anything else is returned as trimmed text.
func errorFields(body []byte) (code, message string) {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Error) > 0 {
		var text string
		if json.Unmarshal(envelope.Error, &text) == nil {
			return "", text
		}
		var detail struct {
			Type    string `json:"type"`
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(envelope.Error, &detail) == nil && detail.Message != "" {
			if detail.Type != "" {
				return detail.Type, detail.Message
			}
			return detail.Code, detail.Message
		}
	}
	return "", strings.TrimSpace(string(body))
}
