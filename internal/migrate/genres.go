package migrate

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"wwfm/internal/content"
	"wwfm/internal/logging"
	"wwfm/internal/migrate/ledger"
	"wwfm/internal/services/cosmic"
	"wwfm/internal/textutil"
)

// labelUse is a distinct legacy genre label and the entries carrying it.
type labelUse struct {
	label   string
	entries []int64
}

func (m *Migrator) genres(ctx context.Context, r *run) error {
	objs, err := m.allObjects(ctx, content.TypeGenres, []string{"id", "slug", "title"})
	if err != nil {
		return err
	}
	if len(objs) == 0 {
		return errors.New("no canonical genres in cosmic; create them before reclassifying")
	}
	canonical := make([]Genre, 0, len(objs))
	for _, obj := range objs {
		canonical = append(canonical, Genre{ID: obj.ID, Slug: obj.Slug, Title: obj.Title})
	}
	classifier := NewClassifier(canonical, m.settings.Keywords, r.opts.Threshold)

	labels, entryLabels, err := m.collectLabels(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("legacy genre labels collected",
		logging.Int("labels", len(labels)),
		logging.Int("entries", len(entryLabels)),
	)

	mapped := make(map[string]string, len(labels))
	for _, key := range sortedKeys(labels) {
		use := labels[key]
		row := Row{Kind: kindGenreLabel, LegacyID: key, Title: use.label}
		class, ok := classifier.Classify(use.label)
		row.Score = class.Score
		if ok {
			mapped[key] = class.Genre.ID
			row.Status, row.CosmicID, row.Target, row.Detail = ledger.StatusMigrated, class.Genre.ID, class.Genre.Title, class.Method
		} else {
			row.Status = ledger.StatusReview
			row.Detail = fmt.Sprintf("no keyword or similar genre (best %.2f), used by %d entries", class.Score, len(use.entries))
		}
		// Label rows do not count towards the limit, which caps episode edits.
		r.report.Rows = append(r.report.Rows, row)
		if err := m.record(ctx, r, kindGenreLabel, key, row.CosmicID, row.Status, row.Detail); err != nil {
			return err
		}
	}

	entryIDs := make([]int64, 0, len(entryLabels))
	for id := range entryLabels {
		entryIDs = append(entryIDs, id)
	}
	slices.Sort(entryIDs)
	for _, entryID := range entryIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.full() {
			break
		}
		var genreIDs []string
		for _, key := range entryLabels[entryID] {
			if id, ok := mapped[key]; ok && !slices.Contains(genreIDs, id) {
				genreIDs = append(genreIDs, id)
			}
		}
		if err := m.assignGenres(ctx, r, entryID, genreIDs); err != nil {
			return err
		}
	}
	return nil
}

// collectLabels gathers labels from the free-text genre field of episodes
// and from the legacy genre categories. Keys are normalized labels.
func (m *Migrator) collectLabels(ctx context.Context) (map[string]*labelUse, map[int64][]string, error) {
	labels := map[string]*labelUse{}
	entryLabels := map[int64][]string{}
	add := func(label string, entryID int64) {
		key := textutil.Normalize(label)
		if key == "" {
			return
		}
		use, ok := labels[key]
		if !ok {
			use = &labelUse{label: label}
			labels[key] = use
		}
		if entryID == 0 {
			return
		}
		if !slices.Contains(use.entries, entryID) {
			use.entries = append(use.entries, entryID)
		}
		if !slices.Contains(entryLabels[entryID], key) {
			entryLabels[entryID] = append(entryLabels[entryID], key)
		}
	}

	entries, err := m.legacy.Entries(ctx, sectionEpisodes)
	if err != nil {
		return nil, nil, fmt.Errorf("read legacy episodes: %w", err)
	}
	for _, entry := range entries {
		for _, label := range SplitLabels(entry.Genres) {
			add(label, entry.ID)
		}
	}

	categories, err := m.legacy.Categories(ctx, groupGenres)
	if err != nil {
		return nil, nil, fmt.Errorf("read legacy genre categories: %w", err)
	}
	for _, cat := range categories {
		if len(cat.EntryIDs) == 0 {
			add(cat.Title, 0)
		}
		for _, id := range cat.EntryIDs {
			add(cat.Title, id)
		}
	}
	return labels, entryLabels, nil
}

func (m *Migrator) assignGenres(ctx context.Context, r *run, entryID int64, genreIDs []string) error {
	legacyID := strconv.FormatInt(entryID, 10)
	row := Row{Kind: kindEpisodeGenres, LegacyID: legacyID, Target: fmt.Sprintf("%d genres", len(genreIDs))}

	if _, ok, err := m.ledger.Migrated(ctx, kindEpisodeGenres, legacyID); err != nil {
		return err
	} else if ok {
		row.Status, row.Detail = ledger.StatusSkipped, "genres already assigned"
		r.add(row)
		return nil
	}
	if len(genreIDs) == 0 {
		row.Status, row.Detail = ledger.StatusReview, "no label mapped to a genre"
		r.add(row)
		return m.record(ctx, r, kindEpisodeGenres, legacyID, "", ledger.StatusReview, row.Detail)
	}
	cosmicID, ok, err := m.cosmicID(ctx, kindEpisode, entryID)
	if err != nil {
		return err
	}
	if !ok {
		row.Status, row.Detail = ledger.StatusSkipped, "episode not migrated yet"
		r.add(row)
		return nil
	}
	row.CosmicID = cosmicID

	if r.opts.DryRun {
		row.Status, row.Detail = ledger.StatusMigrated, "would assign"
		r.add(row)
		return nil
	}
	if _, err := m.cms.EditObject(ctx, cosmicID, cosmic.Patch{Metadata: map[string]any{"genres": genreIDs}}); err != nil {
		return m.fail(ctx, r, row, fmt.Errorf("edit genres: %w", err))
	}
	row.Status = ledger.StatusMigrated
	r.add(row)
	return m.record(ctx, r, kindEpisodeGenres, legacyID, cosmicID, ledger.StatusMigrated, row.Target)
}
