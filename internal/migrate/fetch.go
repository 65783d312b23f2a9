package migrate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"wwfm/internal/services"
)

const (
	fetchTimeout = 60 * time.Second
	maxErrorBody = 512
)

// HTTPFetcher downloads legacy assets over HTTP.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher returns a fetcher using client, or a client with a 60s
// timeout when nil.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &HTTPFetcher{client: client}
}

// Fetch opens url for reading. Transient failures are retried.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	var body io.ReadCloser
	err := services.Retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return services.Wrap(services.ErrValidation, "migrate", "fetch asset", url, err)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return services.Wrap(services.ErrTransient, "migrate", "fetch asset", url, err)
		}
		if resp.StatusCode >= http.StatusBadRequest {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			_ = resp.Body.Close()
			return fmt.Errorf("fetch %s: %w", url, &services.APIError{Service: "legacy assets", Status: resp.StatusCode, Body: string(snippet)})
		}
		body = resp.Body
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
