package mixcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wwfm/internal/services"
)

const (
	defaultBaseURL     = "https://api.mixcloud.com"
	defaultHTTPTimeout = 15 * time.Second
	widgetURL          = "https://www.mixcloud.com/widget/iframe/"
	maxErrorBody       = 512
	maxPageSize        = 100
)

// Cloudcast is an archived show upload.
type Cloudcast struct {
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	CreatedTime time.Time `json:"created_time"`
	AudioLength int       `json:"audio_length"`
	PlayCount   int       `json:"play_count"`
	Pictures    Pictures  `json:"pictures"`
	Tags        []Tag     `json:"tags"`
	User        User      `json:"user"`
}

// Duration returns the audio length.
func (c Cloudcast) Duration() time.Duration {
	return time.Duration(c.AudioLength) * time.Second
}

// Pictures holds the artwork renditions.
type Pictures struct {
	Medium     string `json:"medium"`
	Large      string `json:"large"`
	ExtraLarge string `json:"extra_large"`
}

// Best returns the largest available rendition.
func (p Pictures) Best() string {
	for _, candidate := range []string{p.ExtraLarge, p.Large, p.Medium} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// Tag is a Mixcloud genre tag.
type Tag struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// User is the uploading account.
type User struct {
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Page is one page of cloudcasts.
type Page struct {
	Cloudcasts []Cloudcast
	HasMore    bool
}

type listResponse struct {
	Data   []Cloudcast `json:"data"`
	Paging struct {
		Next string `json:"next"`
	} `json:"paging"`
}

// Client reads from the Mixcloud API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// New constructs a client. An empty baseURL uses the public API.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "mixcloud", "new", "parse base url", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// Cloudcasts lists uploads for username, newest first.
func (c *Client) Cloudcasts(ctx context.Context, username string, limit, offset int) (Page, error) {
	username = strings.Trim(strings.TrimSpace(username), "/")
	if username == "" {
		return Page{}, services.Wrap(services.ErrValidation, "mixcloud", "cloudcasts", "username required", nil)
	}
	endpoint := c.baseURL.JoinPath(username, "cloudcasts")
	endpoint.Path += "/"
	endpoint.RawQuery = pageParams(limit, offset).Encode()
	return c.list(ctx, "cloudcasts", endpoint)
}

// Search finds cloudcasts matching q.
func (c *Client) Search(ctx context.Context, q string, limit int) (Page, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return Page{Cloudcasts: []Cloudcast{}}, nil
	}
	endpoint := c.baseURL.JoinPath("search")
	endpoint.Path += "/"
	params := pageParams(limit, 0)
	params.Set("q", q)
	params.Set("type", "cloudcast")
	endpoint.RawQuery = params.Encode()
	return c.list(ctx, "search", endpoint)
}

// Cloudcast fetches one upload by key or page URL.
func (c *Client) Cloudcast(ctx context.Context, key string) (Cloudcast, error) {
	key = KeyFromURL(key)
	if key == "" {
		return Cloudcast{}, services.Wrap(services.ErrValidation, "mixcloud", "cloudcast", "key required", nil)
	}
	endpoint := c.baseURL.JoinPath(strings.Split(strings.Trim(key, "/"), "/")...)
	endpoint.Path += "/"
	var cast Cloudcast
	if err := c.getJSON(ctx, "cloudcast", endpoint, &cast); err != nil {
		return Cloudcast{}, err
	}
	return cast, nil
}

func (c *Client) list(ctx context.Context, operation string, endpoint *url.URL) (Page, error) {
	var resp listResponse
	if err := c.getJSON(ctx, operation, endpoint, &resp); err != nil {
		return Page{}, err
	}
	if resp.Data == nil {
		resp.Data = []Cloudcast{}
	}
	return Page{Cloudcasts: resp.Data, HasMore: resp.Paging.Next != ""}, nil
}

func (c *Client) getJSON(ctx context.Context, operation string, endpoint *url.URL, out any) error {
	return services.Retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return fmt.Errorf("mixcloud %s: build request: %w", operation, err)
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("mixcloud %s: %w", operation, ctx.Err())
			}
			return services.Wrap(services.ErrTransient, "mixcloud", operation, "request failed", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusBadRequest {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return fmt.Errorf("mixcloud %s: %w", operation, &services.APIError{Service: "mixcloud", Status: resp.StatusCode, Body: string(snippet)})
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return services.Wrap(services.ErrUpstream, "mixcloud", operation, "decode response", err)
		}
		return nil
	})
}

func pageParams(limit, offset int) url.Values {
	if limit <= 0 || limit > maxPageSize {
		limit = 20
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	return params
}

// KeyFromURL converts a Mixcloud page URL (or an existing key) into a
// cloudcast key of the form "/user/slug/". It returns "" when the input has
// fewer than two path segments.
func KeyFromURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	path := raw
	if strings.Contains(raw, "://") {
		parsed, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		path = parsed.Path
	}
	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(segments) < 2 {
		return ""
	}
	return "/" + strings.Join(segments, "/") + "/"
}

// PlayerURL returns the widget iframe URL for a cloudcast key or page URL.
func PlayerURL(keyOrURL string) string {
	key := KeyFromURL(keyOrURL)
	if key == "" {
		return ""
	}
	params := url.Values{}
	params.Set("hide_cover", "1")
	params.Set("feed", key)
	return widgetURL + "?" + params.Encode()
}
