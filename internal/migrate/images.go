package migrate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"wwfm/internal/content"
	"wwfm/internal/logging"
	"wwfm/internal/migrate/ledger"
	"wwfm/internal/migrate/legacy"
	"wwfm/internal/services/cosmic"
	"wwfm/internal/textutil"
)

// Link methods reported for images.
const (
	MethodRelated = "related"
	MethodBody    = "body"
)

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// candidate is a legacy image that could become an object's artwork.
type candidate struct {
	name     string
	filename string
	url      string
	method   string
}

func isImage(filename string) bool {
	return imageExtensions[strings.ToLower(path.Ext(filename))]
}

func (m *Migrator) images(ctx context.Context, r *run) error {
	var (
		assets          []legacy.Asset
		episodes, hosts []legacy.Entry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		assets, err = m.legacy.Assets(gctx)
		return err
	})
	g.Go(func() (err error) {
		episodes, err = m.legacy.Entries(gctx, sectionEpisodes)
		return err
	})
	g.Go(func() (err error) {
		hosts, err = m.legacy.Entries(gctx, sectionHosts)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("read legacy data: %w", err)
	}

	pool := make([]candidate, 0, len(assets))
	for _, asset := range assets {
		if !isImage(asset.Filename) {
			continue
		}
		pool = append(pool, candidate{name: textutil.AssetStem(asset.Filename), filename: asset.Filename, url: asset.URL, method: MethodSimilarity})
	}
	bodies := make(map[int64]string, len(episodes)+len(hosts))
	for _, e := range append(episodes, hosts...) {
		bodies[e.ID] = e.Body
	}
	r.logger.Info("legacy images loaded", logging.Int("assets", len(pool)), logging.Int("entries", len(bodies)))

	for _, target := range []struct{ objectType, kind string }{
		{content.TypeEpisodes, kindEpisode},
		{content.TypeHosts, kindHost},
	} {
		objs, err := m.allObjects(ctx, target.objectType, []string{"id", "slug", "title", "thumbnail", "metadata"})
		if err != nil {
			return err
		}
		for _, obj := range objs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if r.full() {
				return nil
			}
			if hasImage(obj) {
				continue
			}
			if err := m.linkImage(ctx, r, target.kind, obj, pool, bodies); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Migrator) linkImage(ctx context.Context, r *run, kind string, obj cosmic.Object, pool []candidate, bodies map[int64]string) error {
	row := Row{Kind: kindImage, LegacyID: obj.ID, CosmicID: obj.ID, Title: obj.Title}
	if _, ok, err := m.ledger.Migrated(ctx, kindImage, obj.ID); err != nil {
		return err
	} else if ok {
		row.Status, row.Detail = ledger.StatusSkipped, "image already linked"
		r.add(row)
		return nil
	}

	pick, score, ok, err := m.chooseImage(ctx, r, kind, obj, pool, bodies)
	if err != nil {
		return m.fail(ctx, r, row, err)
	}
	row.Score = score
	if !ok {
		row.Status = ledger.StatusReview
		row.Detail = fmt.Sprintf("no asset reached %.2f (best %.2f)", r.opts.Threshold, score)
		r.add(row)
		return m.record(ctx, r, kindImage, obj.ID, obj.ID, ledger.StatusReview, row.Detail)
	}
	row.Target = pick.filename
	if pick.url == "" {
		row.Status, row.Detail = ledger.StatusReview, "matched asset has no URL; set legacy.asset_base_url"
		r.add(row)
		return m.record(ctx, r, kindImage, obj.ID, obj.ID, ledger.StatusReview, row.Detail)
	}

	if r.opts.DryRun {
		row.Status, row.Detail = ledger.StatusMigrated, "would link via "+pick.method
		r.add(row)
		return nil
	}

	body, err := m.fetcher.Fetch(ctx, pick.url)
	if err != nil {
		return m.fail(ctx, r, row, err)
	}
	media, err := m.cms.UploadMedia(ctx, path.Base(pick.filename), body, m.settings.MediaFolder)
	_ = body.Close()
	if err != nil {
		return m.fail(ctx, r, row, fmt.Errorf("upload: %w", err))
	}
	if _, err := m.cms.EditObject(ctx, obj.ID, cosmic.Patch{
		Thumbnail: media.Name,
		Metadata:  map[string]any{"image": media.Name},
	}); err != nil {
		return m.fail(ctx, r, row, fmt.Errorf("link image: %w", err))
	}
	row.Status, row.Detail = ledger.StatusMigrated, pick.method
	r.add(row)
	return m.record(ctx, r, kindImage, obj.ID, obj.ID, ledger.StatusMigrated, pick.method+": "+pick.filename)
}

// chooseImage picks artwork for obj. An image asset attached to the legacy
// entry wins outright. Otherwise the title is matched against every legacy
// image asset and the <img> sources of the legacy body; ties keep the
// earliest asset.
func (m *Migrator) chooseImage(ctx context.Context, r *run, kind string, obj cosmic.Object, pool []candidate, bodies map[int64]string) (candidate, float64, bool, error) {
	candidates := pool
	if rec, ok, err := m.ledger.ByCosmicID(ctx, kind, obj.ID); err != nil {
		return candidate{}, 0, false, err
	} else if ok {
		entryID, err := strconv.ParseInt(rec.LegacyID, 10, 64)
		if err == nil {
			related, err := m.legacy.RelatedAssets(ctx, entryID)
			if err != nil {
				return candidate{}, 0, false, fmt.Errorf("related assets: %w", err)
			}
			for _, asset := range related {
				if isImage(asset.Filename) {
					return candidate{name: textutil.AssetStem(asset.Filename), filename: asset.Filename, url: asset.URL, method: MethodRelated}, 1, true, nil
				}
			}
			if srcs := imageSources(bodies[entryID]); len(srcs) > 0 {
				candidates = append(append([]candidate(nil), pool...), m.bodyCandidates(srcs)...)
			}
		}
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.name
	}
	match, ok := textutil.BestMatch(obj.Title, names, r.opts.Threshold)
	if !ok {
		return candidate{}, match.Score, false, nil
	}
	return candidates[match.Index], match.Score, true, nil
}

func (m *Migrator) bodyCandidates(srcs []string) []candidate {
	base := strings.TrimRight(m.settings.AssetBaseURL, "/")
	var out []candidate
	for _, src := range srcs {
		filename := path.Base(strings.SplitN(src, "?", 2)[0])
		if !isImage(filename) {
			continue
		}
		url := src
		switch {
		case strings.HasPrefix(src, "//"):
			url = "https:" + src
		case strings.HasPrefix(src, "/"):
			url = ""
			if base != "" {
				url = base + src
			}
		}
		out = append(out, candidate{name: textutil.AssetStem(filename), filename: filename, url: url, method: MethodBody})
	}
	return out
}

// hasImage reports whether obj already has artwork.
func hasImage(obj cosmic.Object) bool {
	if obj.Thumbnail != "" {
		return true
	}
	var meta struct {
		Image json.RawMessage `json:"image"`
	}
	if err := obj.DecodeMetadata(&meta); err != nil {
		return false
	}
	raw := bytes.TrimSpace(meta.Image)
	switch string(raw) {
	case "", "null", `""`, "{}":
		return false
	}
	var file struct {
		URL      string `json:"url"`
		ImgixURL string `json:"imgix_url"`
	}
	if err := json.Unmarshal(raw, &file); err == nil {
		return file.URL != "" || file.ImgixURL != ""
	}
	return true
}
