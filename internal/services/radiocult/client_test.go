package radiocult

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wwfm/internal/services"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(Config{StationID: "wwfm", APIKey: "secret", BaseURL: server.URL}, server.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(Config{StationID: "wwfm"}, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSchedule(t *testing.T) {
	start := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	end := start.Add(7 * 24 * time.Hour)

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/station/wwfm/schedule" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "secret" {
			t.Fatalf("missing api key header")
		}
		if r.URL.Query().Get("startDate") != "2024-05-06T00:00:00Z" || r.URL.Query().Get("endDate") != "2024-05-13T00:00:00Z" {
			t.Fatalf("unexpected range %v", r.URL.Query())
		}
		_, _ = io.WriteString(w, `{"schedules":[
			{"id":"e1","title":"Breakfast","startDateUtc":"2024-05-06T07:00:00Z","endDateUtc":"2024-05-06T09:00:00Z",
			 "description":"Wake up slowly","artistIds":["a1"],"media":{"type":"mix"}},
			{"id":"e2","title":"Rich","startDateUtc":"2024-05-06T09:00:00Z","endDateUtc":"2024-05-06T10:00:00Z",
			 "description":{"type":"doc","content":[]}}
		]}`)
	})

	events, err := client.Schedule(context.Background(), start, end)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].DescriptionText() != "Wake up slowly" || events[1].DescriptionText() != "" {
		t.Fatalf("unexpected descriptions %q %q", events[0].DescriptionText(), events[1].DescriptionText())
	}
	if !events[0].Start.Equal(start.Add(7*time.Hour)) || events[0].ArtistIDs[0] != "a1" {
		t.Fatalf("unexpected event %+v", events[0])
	}

	if _, err := client.Schedule(context.Background(), end, start); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for inverted range, got %v", err)
	}
}

func TestLive(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/station/wwfm/schedule/live" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"result":{"status":"schedule","content":{"title":"Brownswood Basement","startDateUtc":"2024-05-06T20:00:00Z","endDateUtc":"2024-05-06T22:00:00Z"},"metadata":{"artist":"Gilles Peterson"}}}`)
	})

	live, err := client.Live(context.Background())
	if err != nil {
		t.Fatalf("Live: %v", err)
	}
	if !live.OnAir() || live.Title != "Brownswood Basement" || live.Artist != "Gilles Peterson" {
		t.Fatalf("unexpected live status %+v", live)
	}
}

func TestLiveDefaultsToOffAir(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"result":{}}`)
	})
	live, err := client.Live(context.Background())
	if err != nil {
		t.Fatalf("Live: %v", err)
	}
	if live.OnAir() || live.Status != StatusOffAir {
		t.Fatalf("expected off air, got %+v", live)
	}
}

func TestArtistsForbidden(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	if _, err := client.Artists(context.Background()); !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
