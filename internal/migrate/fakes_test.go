package migrate_test

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"wwfm/internal/logging"
	"wwfm/internal/migrate"
	"wwfm/internal/migrate/ledger"
	"wwfm/internal/migrate/legacy"
	"wwfm/internal/services"
	"wwfm/internal/services/cosmic"
)

type fakeLegacy struct {
	entries        map[string][]legacy.Entry
	assets         []legacy.Asset
	relatedAssets  map[int64][]legacy.Asset
	relatedEntries map[int64][]int64
	categories     []legacy.Category
}

func (f *fakeLegacy) Entries(_ context.Context, section string) ([]legacy.Entry, error) {
	return f.entries[section], nil
}

func (f *fakeLegacy) Assets(context.Context) ([]legacy.Asset, error) {
	return f.assets, nil
}

func (f *fakeLegacy) RelatedAssets(_ context.Context, id int64) ([]legacy.Asset, error) {
	return f.relatedAssets[id], nil
}

func (f *fakeLegacy) RelatedEntries(_ context.Context, id int64, _ string) ([]int64, error) {
	return f.relatedEntries[id], nil
}

func (f *fakeLegacy) Categories(context.Context, string) ([]legacy.Category, error) {
	return f.categories, nil
}

type fakeCMS struct {
	mu       sync.Mutex
	objects  map[string][]cosmic.Object
	inserted []cosmic.NewObject
	edits    map[string]cosmic.Patch
	uploads  []string
	nextID   int
}

func newFakeCMS() *fakeCMS {
	return &fakeCMS{objects: map[string][]cosmic.Object{}, edits: map[string]cosmic.Patch{}}
}

func (f *fakeCMS) Objects(_ context.Context, q cosmic.Query) (cosmic.ObjectList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.objects[q.Type]
	start := min(q.Skip, len(all))
	end := len(all)
	if q.Limit > 0 {
		end = min(start+q.Limit, len(all))
	}
	return cosmic.ObjectList{Objects: append([]cosmic.Object(nil), all[start:end]...), Total: len(all)}, nil
}

func (f *fakeCMS) Object(_ context.Context, objectType, slug string, _ int) (cosmic.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, obj := range f.objects[objectType] {
		if obj.Slug == slug {
			return obj, nil
		}
	}
	return cosmic.Object{}, services.Wrap(services.ErrNotFound, "cosmic", "object", slug, nil)
}

func (f *fakeCMS) InsertObject(_ context.Context, obj cosmic.NewObject) (cosmic.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	created := cosmic.Object{ID: fmt.Sprintf("new-%d", f.nextID), Slug: obj.Slug, Title: obj.Title, Type: obj.Type}
	f.inserted = append(f.inserted, obj)
	f.objects[obj.Type] = append(f.objects[obj.Type], created)
	return created, nil
}

func (f *fakeCMS) EditObject(_ context.Context, id string, patch cosmic.Patch) (cosmic.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits[id] = patch
	return cosmic.Object{ID: id}, nil
}

func (f *fakeCMS) UploadMedia(_ context.Context, filename string, content io.Reader, _ string) (cosmic.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := io.ReadAll(content); err != nil {
		return cosmic.Media{}, err
	}
	f.uploads = append(f.uploads, filename)
	return cosmic.Media{Name: "media-" + filename}, nil
}

type fakeFetcher struct {
	mu   sync.Mutex
	urls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	return io.NopCloser(strings.NewReader("image-bytes")), nil
}

type harness struct {
	legacy   *fakeLegacy
	cms      *fakeCMS
	fetcher  *fakeFetcher
	ledger   *ledger.Ledger
	lockDir  string
	migrator *migrate.Migrator
}

func newHarness(t *testing.T, src *fakeLegacy) *harness {
	t.Helper()
	dir := t.TempDir()
	l, err := ledger.Open(filepath.Join(dir, "migrate.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	h := &harness{legacy: src, cms: newFakeCMS(), fetcher: &fakeFetcher{}, ledger: l, lockDir: dir}
	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	h.migrator, err = migrate.New(migrate.Deps{
		Legacy:  src,
		CMS:     h.cms,
		Ledger:  l,
		Fetcher: h.fetcher,
		Logger:  logging.NewNop(),
	}, migrate.Settings{
		LockPath:     filepath.Join(dir, "migrate.lock"),
		Location:     london,
		AssetBaseURL: "https://assets.example.com",
	})
	if err != nil {
		t.Fatalf("migrate.New: %v", err)
	}
	return h
}

func (h *harness) run(t *testing.T, job string, opts migrate.Options) *migrate.Report {
	t.Helper()
	report, err := h.migrator.Run(context.Background(), job, opts)
	if err != nil {
		t.Fatalf("Run %s: %v", job, err)
	}
	return report
}

func statuses(rows []migrate.Row) map[string]ledger.Status {
	out := make(map[string]ledger.Status, len(rows))
	for _, row := range rows {
		out[row.Kind+"/"+row.LegacyID] = row.Status
	}
	return out
}

func sortedUploads(f *fakeCMS) []string {
	out := append([]string(nil), f.uploads...)
	sort.Strings(out)
	return out
}
