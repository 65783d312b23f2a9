package cosmic

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"wwfm/internal/services"
)

func newTestClient(t *testing.T, server *httptest.Server, writeKey string, opts ...Option) *Client {
	t.Helper()
	client, err := New(Config{
		BucketSlug: "wwfm",
		ReadKey:    "read",
		WriteKey:   writeKey,
		BaseURL:    server.URL + "/v3",
		MediaURL:   server.URL + "/media/v3",
	}, append([]Option{WithHTTPClient(server.Client())}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestObjectsBuildsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/buckets/wwfm/objects" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		params := r.URL.Query()
		var doc map[string]any
		if err := json.Unmarshal([]byte(params.Get("query")), &doc); err != nil {
			t.Fatalf("decode query: %v", err)
		}
		if doc["type"] != "episodes" || doc["metadata.featured_on_homepage"] != true {
			t.Fatalf("unexpected query document %v", doc)
		}
		if params.Get("read_key") != "read" {
			t.Fatalf("missing read key")
		}
		if params.Get("props") != "id,slug,title,metadata" || params.Get("sort") != "-metadata.broadcast_date" {
			t.Fatalf("unexpected props/sort: %v", params)
		}
		if params.Get("limit") != "4" || params.Get("depth") != "1" || params.Get("skip") != "" {
			t.Fatalf("unexpected paging: %v", params)
		}
		_, _ = io.WriteString(w, `{"objects":[{"id":"1","slug":"morning-show","title":"Morning Show","type":"episodes","metadata":{"broadcast_date":"2024-05-01"}}],"total":12}`)
	}))
	defer server.Close()

	client := newTestClient(t, server, "")
	list, err := client.Objects(context.Background(), Query{
		Type:   "episodes",
		Filter: map[string]any{"metadata.featured_on_homepage": true},
		Props:  []string{"id", "slug", "title", "metadata"},
		Sort:   "-metadata.broadcast_date",
		Limit:  4,
		Depth:  1,
	})
	if err != nil {
		t.Fatalf("Objects: %v", err)
	}
	if list.Total != 12 || len(list.Objects) != 1 {
		t.Fatalf("unexpected list %+v", list)
	}
	var meta struct {
		BroadcastDate string `json:"broadcast_date"`
	}
	if err := list.Objects[0].DecodeMetadata(&meta); err != nil {
		t.Fatalf("DecodeMetadata: %v", err)
	}
	if meta.BroadcastDate != "2024-05-01" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}

func TestObjectsNotFoundIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message":"No objects found"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server, "")
	list, err := client.Objects(context.Background(), Query{Type: "posts"})
	if err != nil {
		t.Fatalf("Objects: %v", err)
	}
	if list.Objects == nil || len(list.Objects) != 0 {
		t.Fatalf("expected empty non-nil list, got %+v", list)
	}

	if _, err := client.Object(context.Background(), "posts", "missing", 0); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestObjectsRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"objects":[],"total":0}`)
	}))
	defer server.Close()

	client := newTestClient(t, server, "")
	if _, err := client.Objects(context.Background(), Query{Type: "genres"}); err != nil {
		t.Fatalf("Objects: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestObjectsUnauthorizedNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "bad key")
	}))
	defer server.Close()

	client := newTestClient(t, server, "")
	_, err := client.Objects(context.Background(), Query{Type: "genres"})
	if !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	var apiErr *services.APIError
	if !errors.As(err, &apiErr) || apiErr.Body != "bad key" {
		t.Fatalf("expected APIError with body, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestWritesRequireWriteKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
	}))
	defer server.Close()

	client := newTestClient(t, server, "")
	ctx := context.Background()
	if _, err := client.InsertObject(ctx, NewObject{Type: "members", Title: "a@b.c"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("insert: expected configuration error, got %v", err)
	}
	if _, err := client.EditObject(ctx, "1", Patch{Status: "draft"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("edit: expected configuration error, got %v", err)
	}
	if _, err := client.UploadMedia(ctx, "a.jpg", strings.NewReader("x"), ""); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("upload: expected configuration error, got %v", err)
	}
}

func TestInsertAndEditObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer write" {
			t.Fatalf("missing bearer token")
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v3/buckets/wwfm/objects":
			if payload["type"] != "members" || payload["title"] != "listener@example.com" {
				t.Fatalf("unexpected insert payload %v", payload)
			}
			_, _ = io.WriteString(w, `{"object":{"id":"m1","slug":"listener-example-com","title":"listener@example.com","type":"members"}}`)
		case r.Method == http.MethodPatch && r.URL.Path == "/v3/buckets/wwfm/objects/m1":
			meta, _ := payload["metadata"].(map[string]any)
			if meta["status"] != "canceled" {
				t.Fatalf("unexpected patch payload %v", payload)
			}
			if _, ok := payload["title"]; ok {
				t.Fatalf("empty fields must be omitted: %v", payload)
			}
			_, _ = io.WriteString(w, `{"object":{"id":"m1","type":"members","metadata":{"status":"canceled"}}}`)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server, "write")
	ctx := context.Background()
	created, err := client.InsertObject(ctx, NewObject{
		Type:     "members",
		Title:    "listener@example.com",
		Metadata: map[string]any{"email": "listener@example.com"},
	})
	if err != nil {
		t.Fatalf("InsertObject: %v", err)
	}
	if created.ID != "m1" {
		t.Fatalf("unexpected object %+v", created)
	}
	edited, err := client.EditObject(ctx, created.ID, Patch{Metadata: map[string]any{"status": "canceled"}})
	if err != nil {
		t.Fatalf("EditObject: %v", err)
	}
	if !strings.Contains(string(edited.Metadata), "canceled") {
		t.Fatalf("unexpected edited object %+v", edited)
	}
}

func TestUploadMedia(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/media/v3/buckets/wwfm/media" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if r.FormValue("folder") != "episodes" {
			t.Fatalf("unexpected folder %q", r.FormValue("folder"))
		}
		file, header, err := r.FormFile("media")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "cover-art.jpg" || string(data) != "jpeg-bytes" {
			t.Fatalf("unexpected upload %q %q", header.Filename, data)
		}
		_, _ = io.WriteString(w, `{"media":{"id":"md1","name":"abc-cover-art.jpg","url":"https://cdn.example/abc-cover-art.jpg","imgix_url":"https://imgix.example/abc-cover-art.jpg"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server, "write")
	media, err := client.UploadMedia(context.Background(), "cover:art.jpg", strings.NewReader("jpeg-bytes"), "episodes")
	if err != nil {
		t.Fatalf("UploadMedia: %v", err)
	}
	if media.Name != "abc-cover-art.jpg" || media.ImgixURL == "" {
		t.Fatalf("unexpected media %+v", media)
	}
}
