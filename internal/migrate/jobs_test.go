package migrate_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"

	"wwfm/internal/content"
	"wwfm/internal/migrate"
	"wwfm/internal/migrate/ledger"
	"wwfm/internal/migrate/legacy"
	"wwfm/internal/services"
	"wwfm/internal/services/cosmic"
)

func episodeSource() *fakeLegacy {
	return &fakeLegacy{
		entries: map[string][]legacy.Entry{
			"hosts": {
				{ID: 20, Section: "hosts", Slug: "gilles-peterson", Title: "Gilles Peterson", Body: "<p>Founder</p>"},
			},
			"episodes": {
				{
					ID:        10,
					Section:   "episodes",
					Slug:      "lunch-session",
					Title:     "Lunch Session",
					Broadcast: time.Date(2019, 5, 1, 13, 0, 0, 0, time.UTC),
					Body:      "<p>Hello <strong>world</strong></p>",
					Tracklist: "<p>Track one<script>alert(1)</script></p>",
					Mixcloud:  "https://www.mixcloud.com/worldwidefm/lunch-session/",
				},
				{ID: 11, Section: "episodes", Slug: "existing-show", Title: "Existing Show"},
				{ID: 12, Section: "episodes"},
			},
		},
		relatedEntries: map[int64][]int64{10: {20}},
	}
}

func TestEpisodesMigrateAndRerunIsIdempotent(t *testing.T) {
	h := newHarness(t, episodeSource())
	h.cms.objects[content.TypeEpisodes] = []cosmic.Object{{ID: "cosmic-existing", Slug: "existing-show", Type: content.TypeEpisodes}}
	ctx := context.Background()

	hosts := h.run(t, migrate.JobHosts, migrate.Options{})
	if got := statuses(hosts.Rows); got["host/20"] != ledger.StatusMigrated {
		t.Fatalf("host not migrated: %v", got)
	}
	if len(h.cms.inserted) != 1 {
		t.Fatalf("expected one host insert, got %d", len(h.cms.inserted))
	}
	hostID, ok, err := h.ledger.Migrated(ctx, "host", "20")
	if err != nil || !ok {
		t.Fatalf("host ledger row missing: ok=%v err=%v", ok, err)
	}

	report := h.run(t, migrate.JobEpisodes, migrate.Options{})
	want := map[string]ledger.Status{
		"episode/10": ledger.StatusMigrated,
		"episode/11": ledger.StatusSkipped,
		"episode/12": ledger.StatusReview,
	}
	if diff := cmp.Diff(want, statuses(report.Rows)); diff != "" {
		t.Fatalf("episode statuses mismatch (-want +got):\n%s", diff)
	}
	if len(h.cms.inserted) != 2 {
		t.Fatalf("expected host and one episode inserted, got %d", len(h.cms.inserted))
	}

	episode := h.cms.inserted[1]
	if episode.Type != content.TypeEpisodes || episode.Slug != "lunch-session" || episode.Status != "published" {
		t.Fatalf("unexpected episode insert: %+v", episode)
	}
	meta := episode.Metadata
	if meta["body"] != "Hello **world**" {
		t.Errorf("body = %q", meta["body"])
	}
	if meta["description"] != "Hello world" {
		t.Errorf("description = %q", meta["description"])
	}
	if meta["broadcast_date"] != "2019-05-01" || meta["broadcast_time"] != "14:00" {
		t.Errorf("broadcast = %v %v, want station-local 2019-05-01 14:00", meta["broadcast_date"], meta["broadcast_time"])
	}
	if tracklist, _ := meta["tracklist"].(string); strings.Contains(tracklist, "script") || !strings.Contains(tracklist, "Track one") {
		t.Errorf("tracklist not sanitized: %q", tracklist)
	}
	if meta["player"] != "https://www.mixcloud.com/worldwidefm/lunch-session/" {
		t.Errorf("player = %v", meta["player"])
	}
	if diff := cmp.Diff([]string{hostID}, meta["regular_hosts"]); diff != "" {
		t.Errorf("regular_hosts mismatch (-want +got):\n%s", diff)
	}

	existing, ok, err := h.ledger.Lookup(ctx, "episode", "11")
	if err != nil || !ok {
		t.Fatalf("expected ledger row for pre-existing slug: ok=%v err=%v", ok, err)
	}
	if existing.CosmicID != "cosmic-existing" || existing.Status != ledger.StatusSkipped {
		t.Fatalf("unexpected ledger row: %+v", existing)
	}

	again := h.run(t, migrate.JobEpisodes, migrate.Options{})
	if got := statuses(again.Rows)["episode/10"]; got != ledger.StatusSkipped {
		t.Fatalf("re-run status = %s, want skipped", got)
	}
	if len(h.cms.inserted) != 2 {
		t.Fatalf("re-run inserted duplicates: %d inserts", len(h.cms.inserted))
	}

	runs, err := h.ledger.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 recorded runs, got %d", len(runs))
	}
	for _, run := range runs {
		if run.Summary == "" {
			t.Errorf("run %s has no summary", run.ID)
		}
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	h := newHarness(t, episodeSource())
	ctx := context.Background()

	report := h.run(t, migrate.JobEpisodes, migrate.Options{DryRun: true})
	if !report.DryRun {
		t.Fatal("report not marked as dry run")
	}
	if len(h.cms.inserted) != 0 || len(h.cms.edits) != 0 {
		t.Fatalf("dry run wrote to cosmic: %d inserts %d edits", len(h.cms.inserted), len(h.cms.edits))
	}
	rows := report.Filter(ledger.StatusMigrated)
	if len(rows) != 1 || rows[0].Detail != "would create" {
		t.Fatalf("unexpected dry-run rows: %+v", rows)
	}
	counts, err := h.ledger.Counts(ctx, "episode")
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if len(counts) != 0 {
		t.Fatalf("dry run wrote ledger rows: %v", counts)
	}
	runs, err := h.ledger.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("dry run recorded %d runs", len(runs))
	}
	if !strings.HasSuffix(report.Summary(), "(dry run)") {
		t.Fatalf("summary = %q", report.Summary())
	}
}

func TestLimitCapsActedRecords(t *testing.T) {
	src := &fakeLegacy{entries: map[string][]legacy.Entry{
		"hosts": {
			{ID: 1, Slug: "one", Title: "One"},
			{ID: 2, Slug: "two", Title: "Two"},
			{ID: 3, Slug: "three", Title: "Three"},
		},
	}}
	h := newHarness(t, src)

	report := h.run(t, migrate.JobHosts, migrate.Options{Limit: 2})
	if len(report.Rows) != 2 || len(h.cms.inserted) != 2 {
		t.Fatalf("limit ignored: %d rows %d inserts", len(report.Rows), len(h.cms.inserted))
	}

	// Already migrated hosts are skipped and do not use up the limit.
	report = h.run(t, migrate.JobHosts, migrate.Options{Limit: 1})
	want := map[string]ledger.Status{
		"host/1": ledger.StatusSkipped,
		"host/2": ledger.StatusSkipped,
		"host/3": ledger.StatusMigrated,
	}
	if diff := cmp.Diff(want, statuses(report.Rows)); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}
}

func TestGenresReclassifyLabels(t *testing.T) {
	src := &fakeLegacy{
		entries: map[string][]legacy.Entry{
			"episodes": {
				{ID: 10, Title: "Lunch Session", Genres: "Jazz, Deep House / Polka"},
				{ID: 11, Title: "Club Night", Genres: "Electronica"},
				{ID: 12, Title: "Oompah", Genres: "polka"},
			},
		},
		categories: []legacy.Category{{ID: 40, Slug: "jazz-funk", Title: "Jazz-Funk", EntryIDs: []int64{10}}},
	}
	h := newHarness(t, src)
	h.cms.objects[content.TypeGenres] = []cosmic.Object{
		{ID: "g-jazz", Slug: "jazz", Title: "Jazz"},
		{ID: "g-soul", Slug: "soul-funk", Title: "Soul & Funk"},
		{ID: "g-elec", Slug: "electronic", Title: "Electronic"},
	}
	ctx := context.Background()
	for _, id := range []string{"10", "12"} {
		if err := h.ledger.Put(ctx, ledger.Record{Kind: "episode", LegacyID: id, CosmicID: "ep-" + id, Status: ledger.StatusMigrated}); err != nil {
			t.Fatalf("seed ledger: %v", err)
		}
	}

	report := h.run(t, migrate.JobGenres, migrate.Options{})
	want := map[string]ledger.Status{
		"genre-label/deep house":  ledger.StatusMigrated,
		"genre-label/electronica": ledger.StatusMigrated,
		"genre-label/jazz":        ledger.StatusMigrated,
		"genre-label/jazz funk":   ledger.StatusMigrated,
		"genre-label/polka":       ledger.StatusReview,
		"episode-genres/10":       ledger.StatusMigrated,
		"episode-genres/11":       ledger.StatusSkipped,
		"episode-genres/12":       ledger.StatusReview,
	}
	if diff := cmp.Diff(want, statuses(report.Rows)); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}

	methods := map[string]string{}
	for _, row := range report.Rows {
		if row.Kind == "genre-label" {
			methods[row.LegacyID] = row.Detail + ":" + row.CosmicID
		}
	}
	if methods["electronica"] != "similarity:g-elec" {
		t.Errorf("electronica mapped as %q", methods["electronica"])
	}
	if methods["deep house"] != "keyword:g-elec" {
		t.Errorf("deep house mapped as %q", methods["deep house"])
	}

	patch, ok := h.cms.edits["ep-10"]
	if !ok {
		t.Fatal("episode 10 genres not edited")
	}
	genres, _ := patch.Metadata["genres"].([]string)
	if len(genres) < 2 || genres[0] != "g-jazz" || genres[1] != "g-elec" {
		t.Fatalf("unexpected genres for episode 10: %v", genres)
	}
	if _, ok := h.cms.edits["ep-12"]; ok {
		t.Fatal("episode with only unmapped labels should not be edited")
	}

	again := h.run(t, migrate.JobGenres, migrate.Options{})
	if got := statuses(again.Rows)["episode-genres/10"]; got != ledger.StatusSkipped {
		t.Fatalf("re-run status = %s, want skipped", got)
	}
}

func TestGenresRequiresCanonicalGenres(t *testing.T) {
	h := newHarness(t, &fakeLegacy{})
	if _, err := h.migrator.Run(context.Background(), migrate.JobGenres, migrate.Options{}); err == nil {
		t.Fatal("expected error without canonical genres")
	}
}

func imageSource() *fakeLegacy {
	return &fakeLegacy{
		entries: map[string][]legacy.Entry{
			"episodes": {
				{ID: 14, Title: "Sunrise Sessions", Body: `<p><img src="/uploads/sunrise-sessions.jpg" alt=""></p>`},
			},
		},
		assets: []legacy.Asset{
			{ID: 30, Filename: "lunch_session.jpg", URL: "https://assets.example.com/episodes/lunch_session.jpg"},
			{ID: 31, Filename: "gilles-peterson-2019.png", URL: "https://assets.example.com/hosts/gilles-peterson-2019.png"},
			{ID: 32, Filename: "lunch-session-notes.pdf", URL: "https://assets.example.com/docs/lunch-session-notes.pdf"},
			{ID: 33, Filename: "cover-art.jpg", URL: "https://assets.example.com/episodes/cover-art.jpg"},
		},
		relatedAssets: map[int64][]legacy.Asset{
			12: {{ID: 33, Filename: "cover-art.jpg", URL: "https://assets.example.com/episodes/cover-art.jpg"}},
		},
	}
}

func TestImagesLinkArtwork(t *testing.T) {
	h := newHarness(t, imageSource())
	h.cms.objects[content.TypeEpisodes] = []cosmic.Object{
		{ID: "ep-10", Title: "Lunch Session"},
		{ID: "ep-11", Title: "Has Art", Thumbnail: "existing.jpg"},
		{ID: "ep-12", Title: "Night Moves"},
		{ID: "ep-13", Title: "Completely Different"},
		{ID: "ep-14", Title: "Sunrise Sessions"},
	}
	h.cms.objects[content.TypeHosts] = []cosmic.Object{{ID: "h-20", Title: "Gilles Peterson"}}
	ctx := context.Background()
	for id, cosmicID := range map[string]string{"10": "ep-10", "12": "ep-12", "14": "ep-14"} {
		if err := h.ledger.Put(ctx, ledger.Record{Kind: "episode", LegacyID: id, CosmicID: cosmicID, Status: ledger.StatusMigrated}); err != nil {
			t.Fatalf("seed ledger: %v", err)
		}
	}

	report := h.run(t, migrate.JobImages, migrate.Options{})
	want := map[string]ledger.Status{
		"image/ep-10": ledger.StatusMigrated,
		"image/ep-12": ledger.StatusMigrated,
		"image/ep-13": ledger.StatusReview,
		"image/ep-14": ledger.StatusMigrated,
		"image/h-20":  ledger.StatusMigrated,
	}
	if diff := cmp.Diff(want, statuses(report.Rows)); diff != "" {
		t.Fatalf("statuses mismatch (-want +got):\n%s", diff)
	}

	details := map[string]string{}
	for _, row := range report.Rows {
		details[row.LegacyID] = row.Detail + ":" + row.Target
	}
	wantDetails := map[string]string{
		"ep-10": "similarity:lunch_session.jpg",
		"ep-12": "related:cover-art.jpg",
		"ep-14": "body:sunrise-sessions.jpg",
		"h-20":  "similarity:gilles-peterson-2019.png",
	}
	for id, want := range wantDetails {
		if details[id] != want {
			t.Errorf("%s linked as %q, want %q", id, details[id], want)
		}
	}

	wantUploads := []string{"cover-art.jpg", "gilles-peterson-2019.png", "lunch_session.jpg", "sunrise-sessions.jpg"}
	if diff := cmp.Diff(wantUploads, sortedUploads(h.cms)); diff != "" {
		t.Fatalf("uploads mismatch (-want +got):\n%s", diff)
	}
	if patch := h.cms.edits["ep-10"]; patch.Thumbnail != "media-lunch_session.jpg" || patch.Metadata["image"] != "media-lunch_session.jpg" {
		t.Fatalf("unexpected artwork patch: %+v", patch)
	}
	if _, ok := h.cms.edits["ep-11"]; ok {
		t.Fatal("object with artwork should be left alone")
	}
	fetched := strings.Join(h.fetcher.urls, " ")
	if !strings.Contains(fetched, "https://assets.example.com/uploads/sunrise-sessions.jpg") {
		t.Fatalf("body image not fetched from asset base: %v", h.fetcher.urls)
	}

	uploads := len(h.cms.uploads)
	again := h.run(t, migrate.JobImages, migrate.Options{})
	if got := statuses(again.Rows)["image/ep-10"]; got != ledger.StatusSkipped {
		t.Fatalf("re-run status = %s, want skipped", got)
	}
	if len(h.cms.uploads) != uploads {
		t.Fatalf("re-run uploaded again: %d uploads", len(h.cms.uploads))
	}
}

func TestImagesDryRunDoesNotFetch(t *testing.T) {
	h := newHarness(t, imageSource())
	h.cms.objects[content.TypeEpisodes] = []cosmic.Object{{ID: "ep-10", Title: "Lunch Session"}}

	report := h.run(t, migrate.JobImages, migrate.Options{DryRun: true})
	rows := report.Filter(ledger.StatusMigrated)
	if len(rows) != 1 || rows[0].Detail != "would link via similarity" {
		t.Fatalf("unexpected rows: %+v", report.Rows)
	}
	if len(h.fetcher.urls) != 0 || len(h.cms.uploads) != 0 {
		t.Fatalf("dry run fetched or uploaded: %v %v", h.fetcher.urls, h.cms.uploads)
	}
}

func TestRunRejectsUnknownJob(t *testing.T) {
	h := newHarness(t, &fakeLegacy{})
	_, err := h.migrator.Run(context.Background(), "videos", migrate.Options{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunRefusesWhenLocked(t *testing.T) {
	h := newHarness(t, episodeSource())
	lock := flock.New(filepath.Join(h.lockDir, "migrate.lock"))
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("take lock: locked=%v err=%v", locked, err)
	}
	t.Cleanup(func() { _ = lock.Unlock() })

	_, err = h.migrator.Run(context.Background(), migrate.JobEpisodes, migrate.Options{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected lock refusal, got %v", err)
	}
	if len(h.cms.inserted) != 0 {
		t.Fatal("locked run wrote to cosmic")
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := migrate.New(migrate.Deps{}, migrate.Settings{}); err == nil {
		t.Fatal("expected error without dependencies")
	}
}
