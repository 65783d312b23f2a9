package content

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"wwfm/internal/services/cosmic"
)

const searchLimit = 12

// Search looks up episodes, hosts and posts whose title matches q. The three
// queries run concurrently; any failure fails the search.
func (s *Store) Search(ctx context.Context, q string) (SearchResults, error) {
	q = strings.TrimSpace(q)
	results := SearchResults{Query: q}
	if len(q) < 2 {
		return results, nil
	}
	titleMatch := map[string]any{"title": map[string]any{"$regex": regexp.QuoteMeta(q), "$options": "i"}}
	key := strings.ToLower(q)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		episodes, err := s.ListEpisodes(gctx, EpisodeQuery{Search: q, Limit: searchLimit})
		results.Episodes = episodes.Items
		return err
	})
	g.Go(func() error {
		hosts, err := list(gctx, s, cacheKey(TypeHosts, "search", key), cosmic.Query{
			Type: TypeHosts, Filter: titleMatch, Sort: "title", Limit: searchLimit,
		}, hostFromObject)
		results.Hosts = hosts.Items
		return err
	})
	g.Go(func() error {
		posts, err := list(gctx, s, cacheKey(TypePosts, "search", key), cosmic.Query{
			Type: TypePosts, Filter: titleMatch, Sort: "-metadata.date", Limit: searchLimit,
		}, s.post)
		results.Posts = posts.Items
		return err
	})
	if err := g.Wait(); err != nil {
		return SearchResults{Query: q}, err
	}
	return results, nil
}
