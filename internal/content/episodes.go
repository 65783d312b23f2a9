package content

import (
	"context"
	"regexp"
	"strings"
	"time"

	"wwfm/internal/services/cosmic"
)

const broadcastSort = "-metadata.broadcast_date"

// EpisodeQuery filters the episode archive. Relation filters take slugs.
type EpisodeQuery struct {
	Genre    string
	Host     string
	Location string
	Takeover string
	Search   string
	Featured bool
	Limit    int
	Offset   int
}

func (s *Store) episode(obj cosmic.Object) (Episode, error) {
	return episodeFromObject(obj, s.loc)
}

// ListEpisodes returns episodes matching q, newest broadcast first. An unknown
// relation slug yields services.ErrNotFound.
func (s *Store) ListEpisodes(ctx context.Context, q EpisodeQuery) (Results[Episode], error) {
	limit, offset := clampPage(q.Limit, q.Offset)
	filter := map[string]any{}
	relations := []struct {
		field      string
		objectType string
		slug       string
	}{
		{"metadata.genres", TypeGenres, q.Genre},
		{"metadata.regular_hosts", TypeHosts, q.Host},
		{"metadata.locations", TypeLocations, q.Location},
		{"metadata.takeovers", TypeTakeovers, q.Takeover},
	}
	for _, rel := range relations {
		slug := strings.TrimSpace(rel.slug)
		if slug == "" {
			continue
		}
		id, err := s.idForSlug(ctx, rel.objectType, slug)
		if err != nil {
			return Results[Episode]{}, err
		}
		filter[rel.field] = id
	}
	if q.Featured {
		filter["metadata.featured_on_homepage"] = true
	}
	search := strings.TrimSpace(q.Search)
	if search != "" {
		filter["title"] = map[string]any{"$regex": regexp.QuoteMeta(search), "$options": "i"}
	}

	key := cacheKey(TypeEpisodes, "list", q.Genre, q.Host, q.Location, q.Takeover, q.Featured, strings.ToLower(search), limit, offset)
	return list(ctx, s, key, cosmic.Query{
		Type:   TypeEpisodes,
		Filter: filter,
		Sort:   broadcastSort,
		Limit:  limit,
		Skip:   offset,
		Depth:  1,
	}, s.episode)
}

// GetEpisode returns the episode with the given slug.
func (s *Store) GetEpisode(ctx context.Context, slug string) (Episode, error) {
	return one(ctx, s, TypeEpisodes, slug, s.episode)
}

// RelatedEpisodes returns up to n other episodes sharing a genre with ep.
func (s *Store) RelatedEpisodes(ctx context.Context, ep Episode, n int) ([]Episode, error) {
	if n <= 0 || len(ep.Genres) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(ep.Genres))
	for _, genre := range ep.Genres {
		if genre.ID != "" {
			ids = append(ids, genre.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	results, err := list(ctx, s, cacheKey(TypeEpisodes, "related", ep.Slug, n), cosmic.Query{
		Type:   TypeEpisodes,
		Filter: map[string]any{"metadata.genres": map[string]any{"$in": ids}},
		Sort:   broadcastSort,
		Limit:  n + 1,
		Depth:  1,
	}, s.episode)
	if err != nil {
		return nil, err
	}
	related := make([]Episode, 0, n)
	for _, candidate := range results.Items {
		if candidate.Slug == ep.Slug {
			continue
		}
		related = append(related, candidate)
		if len(related) == n {
			break
		}
	}
	return related, nil
}

// EpisodesBetween returns episodes broadcast in [start, end), oldest first.
func (s *Store) EpisodesBetween(ctx context.Context, start, end time.Time) ([]Episode, error) {
	if !end.After(start) {
		return nil, nil
	}
	const day = "2006-01-02"
	episodes, err := listAll(ctx, s, cacheKey(TypeEpisodes, "between", start.Unix(), end.Unix()), cosmic.Query{
		Type: TypeEpisodes,
		Filter: map[string]any{"metadata.broadcast_date": map[string]any{
			"$gte": start.In(s.loc).Format(day),
			"$lte": end.In(s.loc).Format(day),
		}},
		Sort:  "metadata.broadcast_date",
		Depth: 1,
	}, s.episode)
	if err != nil {
		return nil, err
	}
	out := make([]Episode, 0, len(episodes))
	for _, ep := range episodes {
		if ep.Broadcast.IsZero() || ep.Broadcast.Before(start) || !ep.Broadcast.Before(end) {
			continue
		}
		out = append(out, ep)
	}
	return out, nil
}
