package content

import (
	"context"

	"wwfm/internal/services/cosmic"
)

func (s *Store) post(obj cosmic.Object) (Post, error) {
	return postFromObject(obj, s.loc)
}

func (s *Store) video(obj cosmic.Object) (Video, error) {
	return videoFromObject(obj, s.loc)
}

// ListPosts returns editorial posts, newest first.
func (s *Store) ListPosts(ctx context.Context, limit, offset int) (Results[Post], error) {
	limit, offset = clampPage(limit, offset)
	return list(ctx, s, cacheKey(TypePosts, "list", limit, offset), cosmic.Query{
		Type:  TypePosts,
		Sort:  "-metadata.date",
		Limit: limit,
		Skip:  offset,
		Depth: 1,
	}, s.post)
}

// GetPost returns the post with the given slug.
func (s *Store) GetPost(ctx context.Context, slug string) (Post, error) {
	return one(ctx, s, TypePosts, slug, s.post)
}

// ListVideos returns videos, newest first.
func (s *Store) ListVideos(ctx context.Context, limit, offset int) (Results[Video], error) {
	limit, offset = clampPage(limit, offset)
	return list(ctx, s, cacheKey(TypeVideos, "list", limit, offset), cosmic.Query{
		Type:  TypeVideos,
		Sort:  "-metadata.date",
		Limit: limit,
		Skip:  offset,
	}, s.video)
}

// GetVideo returns the video with the given slug.
func (s *Store) GetVideo(ctx context.Context, slug string) (Video, error) {
	return one(ctx, s, TypeVideos, slug, s.video)
}

// GetPage returns the static page with the given slug.
func (s *Store) GetPage(ctx context.Context, slug string) (Page, error) {
	return one(ctx, s, TypePages, slug, pageFromObject)
}
