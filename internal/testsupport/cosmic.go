package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"wwfm/internal/services/cosmic"
)

// CosmicServer is an in-memory stand-in for the Cosmic REST API. It
// understands type, slug and id filters, paging, inserts, edits and media
// uploads, which is enough for the site and the migration jobs.
type CosmicServer struct {
	*httptest.Server

	mu      sync.Mutex
	objects []storedObject
	uploads []string
	nextID  int
}

type storedObject struct {
	obj  cosmic.Object
	meta map[string]any
}

// NewCosmicServer starts a fake Cosmic API and closes it when the test ends.
func NewCosmicServer(t testing.TB) *CosmicServer {
	t.Helper()

	s := &CosmicServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /buckets/{bucket}/objects", s.handleList)
	mux.HandleFunc("POST /buckets/{bucket}/objects", s.handleInsert)
	mux.HandleFunc("PATCH /buckets/{bucket}/objects/{id}", s.handleEdit)
	mux.HandleFunc("POST /buckets/{bucket}/media", s.handleUpload)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// Seed stores obj with the given metadata. An empty ID is assigned.
func (s *CosmicServer) Seed(obj cosmic.Object, meta map[string]any) cosmic.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	if obj.ID == "" {
		s.nextID++
		obj.ID = "obj-" + strconv.Itoa(s.nextID)
	}
	if obj.CreatedAt.IsZero() {
		obj.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(len(s.objects)) * time.Minute)
	}
	s.objects = append(s.objects, storedObject{obj: obj, meta: meta})
	return obj
}

// Objects returns the stored objects of objectType with their metadata.
func (s *CosmicServer) Objects(objectType string) []cosmic.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []cosmic.Object
	for _, stored := range s.objects {
		if stored.obj.Type == objectType {
			out = append(out, stored.render())
		}
	}
	return out
}

// Uploads returns the file names uploaded so far.
func (s *CosmicServer) Uploads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.uploads...)
}

func (o storedObject) render() cosmic.Object {
	obj := o.obj
	if len(o.meta) > 0 {
		obj.Metadata, _ = json.Marshal(o.meta)
	}
	return obj
}

func (s *CosmicServer) handleList(w http.ResponseWriter, r *http.Request) {
	var filter map[string]any
	if raw := r.URL.Query().Get("query"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &filter); err != nil {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))

	s.mu.Lock()
	var matched []cosmic.Object
	for _, stored := range s.objects {
		if matches(stored.obj, filter) {
			matched = append(matched, stored.render())
		}
	}
	s.mu.Unlock()

	if len(matched) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No objects found"})
		return
	}
	total := len(matched)
	start := min(skip, total)
	end := total
	if limit > 0 {
		end = min(start+limit, total)
	}
	writeJSON(w, http.StatusOK, cosmic.ObjectList{Objects: matched[start:end], Total: total})
}

func matches(obj cosmic.Object, filter map[string]any) bool {
	for key, want := range filter {
		var got string
		switch key {
		case "type":
			got = obj.Type
		case "slug":
			got = obj.Slug
		case "id":
			got = obj.ID
		default:
			continue
		}
		if fmt.Sprint(want) != got {
			return false
		}
	}
	return true
}

func (s *CosmicServer) handleInsert(w http.ResponseWriter, r *http.Request) {
	var payload cosmic.NewObject
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	obj := s.Seed(cosmic.Object{
		Type:      payload.Type,
		Title:     payload.Title,
		Slug:      payload.Slug,
		Status:    payload.Status,
		Content:   payload.Content,
		Thumbnail: payload.Thumbnail,
	}, payload.Metadata)
	writeJSON(w, http.StatusCreated, map[string]any{"object": storedObject{obj: obj, meta: payload.Metadata}.render()})
}

func (s *CosmicServer) handleEdit(w http.ResponseWriter, r *http.Request) {
	var patch cosmic.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.objects {
		stored := &s.objects[i]
		if stored.obj.ID != id {
			continue
		}
		if patch.Title != "" {
			stored.obj.Title = patch.Title
		}
		if patch.Slug != "" {
			stored.obj.Slug = patch.Slug
		}
		if patch.Thumbnail != "" {
			stored.obj.Thumbnail = patch.Thumbnail
		}
		if len(patch.Metadata) > 0 && stored.meta == nil {
			stored.meta = map[string]any{}
		}
		for key, value := range patch.Metadata {
			stored.meta[key] = value
		}
		writeJSON(w, http.StatusOK, map[string]any{"object": stored.render()})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "object not found"})
}

func (s *CosmicServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("media")
	if err != nil {
		http.Error(w, "missing media", http.StatusBadRequest)
		return
	}
	defer file.Close()
	if _, err := io.Copy(io.Discard, file); err != nil {
		http.Error(w, "read media", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.uploads = append(s.uploads, header.Filename)
	s.nextID++
	id := strconv.Itoa(s.nextID)
	s.mu.Unlock()

	name := id + "-" + header.Filename
	writeJSON(w, http.StatusOK, map[string]any{"media": cosmic.Media{
		ID:           "media-" + id,
		Name:         name,
		OriginalName: header.Filename,
		URL:          s.URL + "/media/" + name,
		Folder:       r.FormValue("folder"),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
