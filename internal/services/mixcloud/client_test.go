package mixcloud

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

func TestCloudcastsPaging(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/worldwidefm/cloudcasts/" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("limit") != "2" || r.URL.Query().Get("offset") != "4" {
			t.Fatalf("unexpected paging %v", r.URL.Query())
		}
		_, _ = io.WriteString(w, `{
			"data": [
				{"key": "/worldwidefm/breakfast-2024-05-01/", "name": "Breakfast", "created_time": "2024-05-01T09:00:00Z",
				 "audio_length": 7200, "pictures": {"large": "l.jpg", "extra_large": "xl.jpg"},
				 "tags": [{"key": "/discover/jazz/", "name": "Jazz"}], "user": {"username": "worldwidefm"}}
			],
			"paging": {"next": "https://api.mixcloud.com/worldwidefm/cloudcasts/?offset=6"}
		}`)
	}))
	defer server.Close()

	client, err := New(server.URL, server.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	page, err := client.Cloudcasts(context.Background(), "worldwidefm", 2, 4)
	if err != nil {
		t.Fatalf("Cloudcasts: %v", err)
	}
	if !page.HasMore || len(page.Cloudcasts) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	cast := page.Cloudcasts[0]
	if cast.Duration() != 2*time.Hour || cast.Pictures.Best() != "xl.jpg" || cast.Tags[0].Name != "Jazz" {
		t.Fatalf("unexpected cloudcast %+v", cast)
	}
}

func TestCloudcastByURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/worldwidefm/late-night/" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = io.WriteString(w, `{"key": "/worldwidefm/late-night/", "name": "Late Night"}`)
	}))
	defer server.Close()

	client, err := New(server.URL, server.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cast, err := client.Cloudcast(context.Background(), "https://www.mixcloud.com/worldwidefm/late-night/")
	if err != nil {
		t.Fatalf("Cloudcast: %v", err)
	}
	if cast.Name != "Late Night" {
		t.Fatalf("unexpected cloudcast %+v", cast)
	}

	if _, err := client.Cloudcast(context.Background(), "/worldwidefm/gone/"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearchEmptyQuerySkipsRequest(t *testing.T) {
	client, err := New("http://127.0.0.1:1", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	page, err := client.Search(context.Background(), "  ", 10)
	if err != nil || len(page.Cloudcasts) != 0 {
		t.Fatalf("expected empty page, got %+v, %v", page, err)
	}
}

func TestKeyFromURL(t *testing.T) {
	cases := map[string]string{
		"https://www.mixcloud.com/worldwidefm/breakfast/": "/worldwidefm/breakfast/",
		"https://www.mixcloud.com/worldwidefm/breakfast":  "/worldwidefm/breakfast/",
		"/worldwidefm/breakfast/":                         "/worldwidefm/breakfast/",
		"worldwidefm/breakfast":                           "/worldwidefm/breakfast/",
		"https://www.mixcloud.com/worldwidefm/":           "",
		"":                                                "",
	}
	for in, want := range cases {
		if got := KeyFromURL(in); got != want {
			t.Errorf("KeyFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPlayerURL(t *testing.T) {
	got := PlayerURL("https://www.mixcloud.com/worldwidefm/breakfast/")
	want := "https://www.mixcloud.com/widget/iframe/?feed=%2Fworldwidefm%2Fbreakfast%2F&hide_cover=1"
	if got != want {
		t.Fatalf("PlayerURL = %q, want %q", got, want)
	}
	if PlayerURL("nope") != "" {
		t.Fatal("expected empty player url for invalid key")
	}
}
