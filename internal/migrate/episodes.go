package migrate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wwfm/internal/content"
	"wwfm/internal/logging"
	"wwfm/internal/migrate/ledger"
	"wwfm/internal/migrate/legacy"
	"wwfm/internal/sanitize"
	"wwfm/internal/services"
	"wwfm/internal/services/cosmic"
	"wwfm/internal/textutil"
)

const descriptionLength = 300

// entryJob describes how one legacy section becomes Cosmic objects.
type entryJob struct {
	kind       string
	section    string
	objectType string
	metadata   func(ctx context.Context, m *Migrator, e legacy.Entry) (map[string]any, error)
}

func (m *Migrator) episodes(ctx context.Context, r *run) error {
	return m.migrateEntries(ctx, r, entryJob{
		kind:       kindEpisode,
		section:    sectionEpisodes,
		objectType: content.TypeEpisodes,
		metadata:   episodeMetadata,
	})
}

func (m *Migrator) hosts(ctx context.Context, r *run) error {
	return m.migrateEntries(ctx, r, entryJob{
		kind:       kindHost,
		section:    sectionHosts,
		objectType: content.TypeHosts,
		metadata:   hostMetadata,
	})
}

func (m *Migrator) migrateEntries(ctx context.Context, r *run, job entryJob) error {
	entries, err := m.legacy.Entries(ctx, job.section)
	if err != nil {
		return fmt.Errorf("read legacy %s: %w", job.section, err)
	}
	r.logger.Info("legacy entries loaded", logging.String("section", job.section), logging.Int("count", len(entries)))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.full() {
			break
		}
		if err := m.migrateEntry(ctx, r, job, entry); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) migrateEntry(ctx context.Context, r *run, job entryJob, entry legacy.Entry) error {
	legacyID := strconv.FormatInt(entry.ID, 10)
	slug := entry.Slug
	if slug == "" {
		slug = textutil.Slugify(entry.Title)
	}
	row := Row{Kind: job.kind, LegacyID: legacyID, Title: entry.Title, Target: slug}

	if rec, ok, err := m.ledger.Lookup(ctx, job.kind, legacyID); err != nil {
		return err
	} else if ok && rec.Status == ledger.StatusMigrated {
		row.Status, row.CosmicID, row.Detail = ledger.StatusSkipped, rec.CosmicID, "already migrated"
		r.add(row)
		return nil
	}

	if strings.TrimSpace(entry.Title) == "" || slug == "" {
		row.Status, row.Detail = ledger.StatusReview, "entry has no title"
		r.add(row)
		return m.record(ctx, r, job.kind, legacyID, "", ledger.StatusReview, row.Detail)
	}

	existing, err := m.cms.Object(ctx, job.objectType, slug, 0)
	switch {
	case err == nil:
		row.Status, row.CosmicID, row.Detail = ledger.StatusSkipped, existing.ID, "slug already exists in cosmic"
		r.add(row)
		return m.record(ctx, r, job.kind, legacyID, existing.ID, ledger.StatusSkipped, row.Detail)
	case !errors.Is(err, services.ErrNotFound):
		return m.fail(ctx, r, row, fmt.Errorf("check slug: %w", err))
	}

	metadata, err := job.metadata(ctx, m, entry)
	if err != nil {
		return m.fail(ctx, r, row, err)
	}

	if r.opts.DryRun {
		row.Status, row.Detail = ledger.StatusMigrated, "would create"
		r.add(row)
		return nil
	}

	obj, err := m.cms.InsertObject(ctx, cosmic.NewObject{
		Type:     job.objectType,
		Title:    strings.TrimSpace(entry.Title),
		Slug:     slug,
		Status:   "published",
		Metadata: metadata,
	})
	if err != nil {
		return m.fail(ctx, r, row, fmt.Errorf("insert: %w", err))
	}
	row.Status, row.CosmicID = ledger.StatusMigrated, obj.ID
	r.add(row)
	return m.record(ctx, r, job.kind, legacyID, obj.ID, ledger.StatusMigrated, "")
}

func episodeMetadata(ctx context.Context, m *Migrator, e legacy.Entry) (map[string]any, error) {
	body, err := m.markdown(e.Body)
	if err != nil {
		return nil, err
	}
	broadcast := e.Broadcast
	if broadcast.IsZero() {
		broadcast = e.PostDate
	}
	meta := map[string]any{
		"description": sanitize.Excerpt(sanitize.Text(e.Body), descriptionLength),
		"body":        body,
	}
	if !broadcast.IsZero() {
		local := broadcast.In(m.settings.Location)
		meta["broadcast_date"] = local.Format(time.DateOnly)
		meta["broadcast_time"] = local.Format("15:04")
	}
	if tracklist := strings.TrimSpace(e.Tracklist); tracklist != "" {
		meta["tracklist"] = sanitize.HTML(tracklist)
	}
	if player := strings.TrimSpace(e.Mixcloud); player != "" {
		meta["player"] = player
	}

	hostIDs, err := m.legacy.RelatedEntries(ctx, e.ID, sectionHosts)
	if err != nil {
		return nil, fmt.Errorf("related hosts: %w", err)
	}
	var hosts []string
	for _, id := range hostIDs {
		cosmicID, ok, err := m.cosmicID(ctx, kindHost, id)
		if err != nil {
			return nil, err
		}
		if ok {
			hosts = append(hosts, cosmicID)
		}
	}
	if len(hosts) > 0 {
		meta["regular_hosts"] = hosts
	}
	return meta, nil
}

func hostMetadata(_ context.Context, _ *Migrator, e legacy.Entry) (map[string]any, error) {
	return map[string]any{
		"description": sanitize.HTML(e.Body),
	}, nil
}
