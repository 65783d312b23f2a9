package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wwfm/internal/cache"
	"wwfm/internal/logging"
	"wwfm/internal/services"
	"wwfm/internal/services/cosmic"
)

const (
	defaultPageSize = 24
	maxPageSize     = 100
)

// Source is the subset of the Cosmic client the store reads through.
type Source interface {
	Objects(ctx context.Context, q cosmic.Query) (cosmic.ObjectList, error)
	Object(ctx context.Context, objectType, slug string, depth int) (cosmic.Object, error)
}

// Store answers content queries for the site.
type Store struct {
	src    Source
	cache  *cache.Cache
	loc    *time.Location
	logger *slog.Logger
}

// NewStore constructs a store. cache may be nil to disable caching.
func NewStore(src Source, c *cache.Cache, loc *time.Location, logger *slog.Logger) *Store {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{src: src, cache: c, loc: loc, logger: logging.NewComponentLogger(logger, "content")}
}

// Location is the station timezone used to interpret broadcast dates.
func (s *Store) Location() *time.Location {
	return s.loc
}

func cacheKey(objectType string, parts ...any) string {
	var b strings.Builder
	b.WriteString(objectType)
	for _, part := range parts {
		b.WriteByte(':')
		fmt.Fprint(&b, part)
	}
	return b.String()
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// list runs q through the cache and maps every object with convert. Objects
// that fail to decode are logged and skipped so one bad entry does not break a
// listing.
func list[T any](ctx context.Context, s *Store, key string, q cosmic.Query, convert func(cosmic.Object) (T, error)) (Results[T], error) {
	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) (Results[T], error) {
		objects, err := s.src.Objects(ctx, q)
		if err != nil {
			return Results[T]{}, err
		}
		items := decodeAll(ctx, s, objects.Objects, convert)
		total := objects.Total
		if total < q.Skip+len(objects.Objects) {
			total = q.Skip + len(objects.Objects)
		}
		return Results[T]{Items: items, Total: total, Limit: q.Limit, Offset: q.Skip}, nil
	})
}

// listAll pages through every object matching q, maxPageSize at a time, and
// caches the concatenated result under key.
func listAll[T any](ctx context.Context, s *Store, key string, q cosmic.Query, convert func(cosmic.Object) (T, error)) ([]T, error) {
	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) ([]T, error) {
		q.Limit = maxPageSize
		var objects []cosmic.Object
		for skip := 0; ; skip += maxPageSize {
			q.Skip = skip
			page, err := s.src.Objects(ctx, q)
			if err != nil {
				return nil, err
			}
			objects = append(objects, page.Objects...)
			if len(page.Objects) < maxPageSize || (page.Total > 0 && len(objects) >= page.Total) {
				break
			}
		}
		return decodeAll(ctx, s, objects, convert), nil
	})
}

func decodeAll[T any](ctx context.Context, s *Store, objects []cosmic.Object, convert func(cosmic.Object) (T, error)) []T {
	items := make([]T, 0, len(objects))
	for _, obj := range objects {
		item, err := convert(obj)
		if err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, s.logger), "skipping undecodable object", "content_decode_failed",
				logging.String("type", obj.Type),
				logging.String("slug", obj.Slug),
				logging.String(logging.FieldErrorHint, "fix the object metadata in Cosmic"),
				logging.Error(err),
			)
			continue
		}
		items = append(items, item)
	}
	return items
}

// one fetches a single object by slug through the cache.
func one[T any](ctx context.Context, s *Store, objectType, slug string, convert func(cosmic.Object) (T, error)) (T, error) {
	var zero T
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return zero, services.Wrap(services.ErrValidation, "content", "get "+objectType, "slug required", nil)
	}
	return cache.Fetch(ctx, s.cache, cacheKey(objectType, "slug", slug), func(ctx context.Context) (T, error) {
		obj, err := s.src.Object(ctx, objectType, slug, 1)
		if err != nil {
			return zero, err
		}
		return convert(obj)
	})
}

// idForSlug resolves the object ID used by relation filters.
func (s *Store) idForSlug(ctx context.Context, objectType, slug string) (string, error) {
	return cache.Fetch(ctx, s.cache, cacheKey(objectType, "id", slug), func(ctx context.Context) (string, error) {
		obj, err := s.src.Object(ctx, objectType, slug, 0)
		if err != nil {
			return "", err
		}
		return obj.ID, nil
	})
}
