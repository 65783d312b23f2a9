package cosmic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wwfm/internal/services"
)

const (
	defaultBaseURL     = "https://api.cosmicjs.com/v3"
	defaultMediaURL    = "https://workers.cosmicjs.com/v3"
	defaultHTTPTimeout = 20 * time.Second
	maxErrorBody       = 512
)

// Config captures the bucket credentials and endpoints.
type Config struct {
	BucketSlug string
	ReadKey    string
	WriteKey   string
	BaseURL    string
	MediaURL   string
}

// Client talks to a single Cosmic bucket.
type Client struct {
	cfg        Config
	baseURL    *url.URL
	mediaURL   *url.URL
	httpClient *http.Client
	retry      func(context.Context, func() error) error
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithoutRetry disables automatic retries (useful for tests).
func WithoutRetry() Option {
	return func(c *Client) {
		c.retry = func(_ context.Context, fn func() error) error { return fn() }
	}
}

// New constructs a Cosmic client.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.BucketSlug = strings.TrimSpace(cfg.BucketSlug)
	cfg.ReadKey = strings.TrimSpace(cfg.ReadKey)
	cfg.WriteKey = strings.TrimSpace(cfg.WriteKey)
	if cfg.BucketSlug == "" {
		return nil, services.Wrap(services.ErrConfiguration, "cosmic", "new", "bucket slug required", nil)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.MediaURL) == "" {
		cfg.MediaURL = defaultMediaURL
	}
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "cosmic", "new", "parse base url", err)
	}
	media, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.MediaURL), "/"))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "cosmic", "new", "parse media url", err)
	}
	client := &Client{
		cfg:        cfg,
		baseURL:    base,
		mediaURL:   media,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		retry:      services.Retry,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// CanWrite reports whether a write key is configured.
func (c *Client) CanWrite() bool {
	return c != nil && c.cfg.WriteKey != ""
}

func (c *Client) bucketURL(base *url.URL, elem ...string) *url.URL {
	return base.JoinPath(append([]string{"buckets", c.cfg.BucketSlug}, elem...)...)
}

func (c *Client) requireWrite(operation string) error {
	if !c.CanWrite() {
		return services.Wrap(services.ErrConfiguration, "cosmic", operation, "write key not configured", nil)
	}
	return nil
}

// getJSON performs a retried GET and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, operation string, endpoint *url.URL, out any) error {
	return c.retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return fmt.Errorf("cosmic %s: build request: %w", operation, err)
		}
		req.Header.Set("Accept", "application/json")
		return c.do(req, operation, out)
	})
}

// sendJSON performs an authenticated write with a JSON body.
func (c *Client) sendJSON(ctx context.Context, operation, method string, endpoint *url.URL, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("cosmic %s: encode payload: %w", operation, err)
	}
	send := func() error {
		req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("cosmic %s: build request: %w", operation, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.WriteKey)
		return c.do(req, operation, out)
	}
	if method == http.MethodPatch {
		return c.retry(ctx, send)
	}
	return send()
}

func (c *Client) do(req *http.Request, operation string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return fmt.Errorf("cosmic %s: %w", operation, req.Context().Err())
		}
		return services.Wrap(services.ErrTransient, "cosmic", operation, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("cosmic %s: %w", operation, &services.APIError{
			Service: "cosmic",
			Status:  resp.StatusCode,
			Body:    string(snippet),
		})
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrUpstream, "cosmic", operation, "decode response", err)
	}
	return nil
}
