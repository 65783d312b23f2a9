package radiocult

import (
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
	defaultBaseURL     = "https://api.radiocult.fm"
	defaultHTTPTimeout = 10 * time.Second
	maxErrorBody       = 512
)

// Live status values reported by the station.
const (
	StatusSchedule        = "schedule"
	StatusDefaultPlaylist = "defaultPlaylist"
	StatusOffAir          = "offAir"
)

// Config captures the station credentials.
type Config struct {
	StationID string
	APIKey    string
	BaseURL   string
}

// Event is a scheduled broadcast.
type Event struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Start       time.Time       `json:"startDateUtc"`
	End         time.Time       `json:"endDateUtc"`
	Description json.RawMessage `json:"description,omitempty"`
	ArtistIDs   []string        `json:"artistIds"`
	Media       Media           `json:"media"`
}

// DescriptionText returns the description when the station stored it as
// plain text. Rich-text descriptions yield "".
func (e Event) DescriptionText() string {
	var text string
	if len(e.Description) == 0 || json.Unmarshal(e.Description, &text) != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// Media describes what plays during an event.
type Media struct {
	Type       string `json:"type"`
	PlaylistID string `json:"playlistId,omitempty"`
	TrackID    string `json:"trackId,omitempty"`
}

// LiveStatus is the on-air state.
type LiveStatus struct {
	Status string
	Title  string
	Start  time.Time
	End    time.Time
	Artist string
}

// OnAir reports whether a scheduled show is currently broadcasting.
func (l LiveStatus) OnAir() bool {
	return l.Status == StatusSchedule
}

// Artist is a RadioCult artist profile.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Client talks to RadioCult for one station.
type Client struct {
	cfg        Config
	baseURL    *url.URL
	httpClient *http.Client
}

// New constructs a client.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	cfg.StationID = strings.TrimSpace(cfg.StationID)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.StationID == "" || cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "radiocult", "new", "station id and api key required", nil)
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "radiocult", "new", "parse base url", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{cfg: cfg, baseURL: parsed, httpClient: httpClient}, nil
}

// Schedule returns the events overlapping [start, end).
func (c *Client) Schedule(ctx context.Context, start, end time.Time) ([]Event, error) {
	if !end.After(start) {
		return nil, services.Wrap(services.ErrValidation, "radiocult", "schedule", "end must be after start", nil)
	}
	endpoint := c.stationURL("schedule")
	params := url.Values{}
	params.Set("startDate", start.UTC().Format(time.RFC3339))
	params.Set("endDate", end.UTC().Format(time.RFC3339))
	endpoint.RawQuery = params.Encode()

	var resp struct {
		Schedules []Event `json:"schedules"`
	}
	if err := c.getJSON(ctx, "schedule", endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.Schedules == nil {
		return []Event{}, nil
	}
	return resp.Schedules, nil
}

// Live returns what is on air now.
func (c *Client) Live(ctx context.Context) (LiveStatus, error) {
	var resp struct {
		Result struct {
			Status  string `json:"status"`
			Content struct {
				Title string    `json:"title"`
				Start time.Time `json:"startDateUtc"`
				End   time.Time `json:"endDateUtc"`
			} `json:"content"`
			Metadata struct {
				Artist string `json:"artist"`
				Title  string `json:"title"`
			} `json:"metadata"`
		} `json:"result"`
	}
	if err := c.getJSON(ctx, "live", c.stationURL("schedule", "live"), &resp); err != nil {
		return LiveStatus{}, err
	}
	status := LiveStatus{
		Status: resp.Result.Status,
		Title:  resp.Result.Content.Title,
		Start:  resp.Result.Content.Start,
		End:    resp.Result.Content.End,
		Artist: resp.Result.Metadata.Artist,
	}
	if status.Title == "" {
		status.Title = resp.Result.Metadata.Title
	}
	if status.Status == "" {
		status.Status = StatusOffAir
	}
	return status, nil
}

// Artists lists the station's artists.
func (c *Client) Artists(ctx context.Context) ([]Artist, error) {
	var resp struct {
		Artists []Artist `json:"artists"`
	}
	if err := c.getJSON(ctx, "artists", c.stationURL("artists"), &resp); err != nil {
		return nil, err
	}
	return resp.Artists, nil
}

func (c *Client) stationURL(elem ...string) *url.URL {
	return c.baseURL.JoinPath(append([]string{"api", "station", c.cfg.StationID}, elem...)...)
}

func (c *Client) getJSON(ctx context.Context, operation string, endpoint *url.URL, out any) error {
	return services.Retry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return fmt.Errorf("radiocult %s: build request: %w", operation, err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("x-api-key", c.cfg.APIKey)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("radiocult %s: %w", operation, ctx.Err())
			}
			return services.Wrap(services.ErrTransient, "radiocult", operation, "request failed", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusBadRequest {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return fmt.Errorf("radiocult %s: %w", operation, &services.APIError{Service: "radiocult", Status: resp.StatusCode, Body: string(snippet)})
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return services.Wrap(services.ErrUpstream, "radiocult", operation, "decode response", err)
		}
		return nil
	})
}
