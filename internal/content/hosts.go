package content

import (
	"context"

	"wwfm/internal/services/cosmic"
)

// ListHosts returns regular hosts ordered by name.
func (s *Store) ListHosts(ctx context.Context, limit, offset int) (Results[Host], error) {
	limit, offset = clampPage(limit, offset)
	return list(ctx, s, cacheKey(TypeHosts, "list", limit, offset), cosmic.Query{
		Type:  TypeHosts,
		Sort:  "title",
		Limit: limit,
		Skip:  offset,
		Depth: 1,
	}, hostFromObject)
}

// GetHost returns the host with the given slug and their latest episodes.
func (s *Store) GetHost(ctx context.Context, slug string, episodes int) (Host, []Episode, error) {
	host, err := one(ctx, s, TypeHosts, slug, hostFromObject)
	if err != nil {
		return Host{}, nil, err
	}
	if episodes <= 0 {
		return host, nil, nil
	}
	recent, err := s.ListEpisodes(ctx, EpisodeQuery{Host: host.Slug, Limit: episodes})
	if err != nil {
		return host, nil, err
	}
	return host, recent.Items, nil
}

// ListGenres returns every genre ordered by title.
func (s *Store) ListGenres(ctx context.Context) ([]Genre, error) {
	results, err := list(ctx, s, cacheKey(TypeGenres, "list"), cosmic.Query{
		Type:  TypeGenres,
		Sort:  "title",
		Limit: maxPageSize * 5,
	}, genreFromObject)
	if err != nil {
		return nil, err
	}
	return results.Items, nil
}

// GetGenre returns the genre with the given slug.
func (s *Store) GetGenre(ctx context.Context, slug string) (Genre, error) {
	return one(ctx, s, TypeGenres, slug, genreFromObject)
}
