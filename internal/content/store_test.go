package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"wwfm/internal/cache"
	"wwfm/internal/services"
	"wwfm/internal/services/cosmic"
)

type fakeSource struct {
	mu      sync.Mutex
	objects map[string][]cosmic.Object
	queries []cosmic.Query
	lookups []string
	// paged makes Objects honour Limit and Skip.
	paged bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{objects: map[string][]cosmic.Object{}}
}

func (f *fakeSource) add(objectType, id, slug, title, metadata string) {
	f.objects[objectType] = append(f.objects[objectType], cosmic.Object{
		ID: id, Slug: slug, Title: title, Type: objectType, Metadata: json.RawMessage(metadata),
	})
}

func (f *fakeSource) Objects(_ context.Context, q cosmic.Query) (cosmic.ObjectList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	objs := f.objects[q.Type]
	total := len(objs)
	if f.paged {
		objs = objs[min(q.Skip, total):]
		if q.Limit > 0 && len(objs) > q.Limit {
			objs = objs[:q.Limit]
		}
	}
	return cosmic.ObjectList{Objects: append([]cosmic.Object(nil), objs...), Total: total}, nil
}

func (f *fakeSource) Object(_ context.Context, objectType, slug string, _ int) (cosmic.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, objectType+"/"+slug)
	for _, obj := range f.objects[objectType] {
		if obj.Slug == slug {
			return obj, nil
		}
	}
	return cosmic.Object{}, services.Wrap(services.ErrNotFound, "fake", "object", slug, nil)
}

func (f *fakeSource) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func seededStore(t *testing.T) (*Store, *fakeSource) {
	t.Helper()
	src := newFakeSource()
	src.add(TypeGenres, "g-jazz", "jazz", "Jazz", `{"description": "Jazz in all forms"}`)
	src.add(TypeHosts, "h-gp", "gilles-peterson", "Gilles Peterson", `{"image": {"url": "https://cdn.example/gp.jpg"}}`)
	src.add(TypeEpisodes, "e1", "late-night-1", "Late Night", `{"broadcast_date": "2024-05-06", "broadcast_time": "22:00", "genres": ["g-jazz"]}`)
	src.add(TypeEpisodes, "e2", "breakfast-1", "Breakfast", `{"broadcast_date": "2024-05-07", "broadcast_time": "07:00", "genres": ["g-jazz"]}`)
	src.add(TypeEpisodes, "e3", "broken", "Broken", `{"broadcast_date": "yesterday"}`)
	src.add(TypeEpisodes, "e4", "breakfast-2", "Breakfast", `{"broadcast_date": "2024-05-14", "broadcast_time": "07:00"}`)
	src.add(TypePosts, "p1", "label-focus", "Label Focus", `{"date": "2024-04-01", "excerpt": "A label"}`)
	return NewStore(src, cache.New(64, time.Minute), mustLondon(t), nil), src
}

func TestListEpisodesResolvesRelationFilters(t *testing.T) {
	store, src := seededStore(t)
	ctx := context.Background()

	results, err := store.ListEpisodes(ctx, EpisodeQuery{Genre: "jazz", Featured: true, Search: "late (night)", Limit: 500})
	if err != nil {
		t.Fatalf("ListEpisodes: %v", err)
	}
	if len(results.Items) != 3 {
		t.Fatalf("expected broken episode skipped, got %d items", len(results.Items))
	}
	if results.Limit != maxPageSize {
		t.Fatalf("expected limit clamped to %d, got %d", maxPageSize, results.Limit)
	}

	q := src.queries[len(src.queries)-1]
	if q.Type != TypeEpisodes || q.Sort != broadcastSort || q.Depth != 1 {
		t.Fatalf("unexpected query %+v", q)
	}
	if q.Filter["metadata.genres"] != "g-jazz" || q.Filter["metadata.featured_on_homepage"] != true {
		t.Fatalf("unexpected filter %v", q.Filter)
	}
	title, _ := q.Filter["title"].(map[string]any)
	if title["$regex"] != `late \(night\)` || title["$options"] != "i" {
		t.Fatalf("expected escaped case-insensitive title regex, got %v", q.Filter["title"])
	}

	before := src.queryCount()
	if _, err := store.ListEpisodes(ctx, EpisodeQuery{Genre: "jazz", Featured: true, Search: "late (night)", Limit: 500}); err != nil {
		t.Fatalf("ListEpisodes (cached): %v", err)
	}
	if src.queryCount() != before {
		t.Fatal("expected cached listing")
	}
}

func TestListEpisodesUnknownRelation(t *testing.T) {
	store, _ := seededStore(t)
	if _, err := store.ListEpisodes(context.Background(), EpisodeQuery{Host: "nobody"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetEpisode(t *testing.T) {
	store, _ := seededStore(t)
	ctx := context.Background()

	ep, err := store.GetEpisode(ctx, "late-night-1")
	if err != nil {
		t.Fatalf("GetEpisode: %v", err)
	}
	if ep.Broadcast.Hour() != 22 || ep.Genres[0].ID != "g-jazz" {
		t.Fatalf("unexpected episode %+v", ep)
	}
	if _, err := store.GetEpisode(ctx, "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetEpisode(ctx, " "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRelatedEpisodesExcludesSelf(t *testing.T) {
	store, src := seededStore(t)
	ep, err := store.GetEpisode(context.Background(), "late-night-1")
	if err != nil {
		t.Fatalf("GetEpisode: %v", err)
	}
	related, err := store.RelatedEpisodes(context.Background(), ep, 1)
	if err != nil {
		t.Fatalf("RelatedEpisodes: %v", err)
	}
	if len(related) != 1 || related[0].Slug == ep.Slug {
		t.Fatalf("unexpected related episodes %+v", related)
	}
	q := src.queries[len(src.queries)-1]
	in, _ := q.Filter["metadata.genres"].(map[string]any)
	if ids, _ := in["$in"].([]string); len(ids) != 1 || ids[0] != "g-jazz" || q.Limit != 2 {
		t.Fatalf("unexpected related query %+v", q)
	}

	none, err := store.RelatedEpisodes(context.Background(), Episode{Slug: "x"}, 3)
	if err != nil || none != nil {
		t.Fatalf("expected no related episodes without genres, got %v, %v", none, err)
	}
}

func TestEpisodesBetween(t *testing.T) {
	store, _ := seededStore(t)
	london := mustLondon(t)
	start := time.Date(2024, 5, 6, 0, 0, 0, 0, london)

	got, err := store.EpisodesBetween(context.Background(), start, start.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("EpisodesBetween: %v", err)
	}
	if len(got) != 2 || got[0].Slug != "late-night-1" || got[1].Slug != "breakfast-1" {
		t.Fatalf("unexpected window contents %+v", got)
	}
}

func TestEpisodesBetweenPagesThroughBusyWeeks(t *testing.T) {
	src := newFakeSource()
	src.paged = true
	london := mustLondon(t)
	start := time.Date(2024, 5, 6, 0, 0, 0, 0, london)
	for day := range 7 {
		date := start.AddDate(0, 0, day).Format("2006-01-02")
		for hour := range 20 {
			slug := fmt.Sprintf("show-%s-%02d", date, hour)
			src.add(TypeEpisodes, slug, slug, "Show", fmt.Sprintf(`{"broadcast_date": %q, "broadcast_time": "%02d:00"}`, date, hour))
		}
	}
	store := NewStore(src, cache.New(64, time.Minute), london, nil)

	got, err := store.EpisodesBetween(context.Background(), start, start.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("EpisodesBetween: %v", err)
	}
	if len(got) != 140 {
		t.Fatalf("expected all 140 episodes in the week, got %d", len(got))
	}
	if last := got[len(got)-1].Slug; last != "show-2024-05-12-19" {
		t.Fatalf("expected the last day to be present, last slug %q", last)
	}
	if n := src.queryCount(); n != 2 {
		t.Fatalf("expected two pages fetched, got %d queries", n)
	}
	for i, q := range src.queries {
		if q.Limit != maxPageSize || q.Skip != i*maxPageSize {
			t.Fatalf("query %d paged wrong: limit %d skip %d", i, q.Limit, q.Skip)
		}
	}

	if _, err := store.EpisodesBetween(context.Background(), start, start.AddDate(0, 0, 7)); err != nil {
		t.Fatalf("EpisodesBetween (cached): %v", err)
	}
	if src.queryCount() != 2 {
		t.Fatal("expected the concatenated week to be cached")
	}
}

func TestSearch(t *testing.T) {
	store, src := seededStore(t)
	ctx := context.Background()

	short, err := store.Search(ctx, "a")
	if err != nil || !short.Empty() || src.queryCount() != 0 {
		t.Fatalf("expected short query to skip lookups, got %+v, %v", short, err)
	}

	results, err := store.Search(ctx, "breakfast")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results.Episodes) == 0 || len(results.Hosts) != 1 || len(results.Posts) != 1 {
		t.Fatalf("unexpected search results %+v", results)
	}
}

func TestHostsGenresPosts(t *testing.T) {
	store, _ := seededStore(t)
	ctx := context.Background()

	host, episodes, err := store.GetHost(ctx, "gilles-peterson", 5)
	if err != nil {
		t.Fatalf("GetHost: %v", err)
	}
	if host.Image.Src() != "https://cdn.example/gp.jpg" || len(episodes) == 0 {
		t.Fatalf("unexpected host %+v with %d episodes", host, len(episodes))
	}

	genres, err := store.ListGenres(ctx)
	if err != nil || len(genres) != 1 || genres[0].Description != "Jazz in all forms" {
		t.Fatalf("ListGenres = %+v, %v", genres, err)
	}

	post, err := store.GetPost(ctx, "label-focus")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if post.Published.Format("2006-01-02") != "2024-04-01" || post.Path() != "/editorial/label-focus" {
		t.Fatalf("unexpected post %+v", post)
	}
}
