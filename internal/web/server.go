package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"wwfm/internal/cache"
	"wwfm/internal/content"
	"wwfm/internal/logging"
	"wwfm/internal/membership"
	"wwfm/internal/schedule"
	"wwfm/internal/services/mixcloud"
	"wwfm/internal/services/radiocult"
)

// ContentStore is the read API the pages need.
type ContentStore interface {
	ListEpisodes(ctx context.Context, q content.EpisodeQuery) (content.Results[content.Episode], error)
	GetEpisode(ctx context.Context, slug string) (content.Episode, error)
	RelatedEpisodes(ctx context.Context, ep content.Episode, n int) ([]content.Episode, error)
	ListHosts(ctx context.Context, limit, offset int) (content.Results[content.Host], error)
	GetHost(ctx context.Context, slug string, episodes int) (content.Host, []content.Episode, error)
	ListGenres(ctx context.Context) ([]content.Genre, error)
	GetGenre(ctx context.Context, slug string) (content.Genre, error)
	ListPosts(ctx context.Context, limit, offset int) (content.Results[content.Post], error)
	GetPost(ctx context.Context, slug string) (content.Post, error)
	ListVideos(ctx context.Context, limit, offset int) (content.Results[content.Video], error)
	GetVideo(ctx context.Context, slug string) (content.Video, error)
	GetPage(ctx context.Context, slug string) (content.Page, error)
	Search(ctx context.Context, q string) (content.SearchResults, error)
}

// ScheduleBuilder builds the weekly schedule.
type ScheduleBuilder interface {
	Week(ctx context.Context, now time.Time) (schedule.Week, error)
}

// LiveSource reports what is on air.
type LiveSource interface {
	Live(ctx context.Context) (radiocult.LiveStatus, error)
}

// Archive lists, searches and fetches archived shows.
type Archive interface {
	Cloudcasts(ctx context.Context, username string, limit, offset int) (mixcloud.Page, error)
	Search(ctx context.Context, q string, limit int) (mixcloud.Page, error)
	Cloudcast(ctx context.Context, key string) (mixcloud.Cloudcast, error)
}

// Membership runs Stripe checkout and webhooks.
type Membership interface {
	Checkout(ctx context.Context, email string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (membership.Result, error)
}

// ResponseCache drops cached responses and reports hit counters.
type ResponseCache interface {
	Purge(prefix string) int
	PurgeAll() int
	Stats() cache.Stats
}

// Deps are the services behind the site. Live, Archive, Membership and
// Cache are optional.
type Deps struct {
	Content    ContentStore
	Schedule   ScheduleBuilder
	Live       LiveSource
	Archive    Archive
	Membership Membership
	Cache      ResponseCache
}

// Options configure the server.
type Options struct {
	Bind             string
	BaseURL          string
	SiteName         string
	RevalidateSecret string
	MixcloudUser     string
	Logger           *slog.Logger
	Now              func() time.Time
}

// Server is the site HTTP server.
type Server struct {
	deps     Deps
	opts     Options
	logger   *slog.Logger
	pages    *renderer
	handler  http.Handler
	server   *http.Server
}

// New builds the server and its routes.
func New(deps Deps, opts Options) (*Server, error) {
	if deps.Content == nil || deps.Schedule == nil {
		return nil, errors.New("web: content store and schedule builder are required")
	}
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if opts.SiteName == "" {
		opts.SiteName = "Worldwide FM"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}
	s := &Server{
		deps:   deps,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "web"),
		pages:  pages,
	}
	s.handler = s.middleware(s.routes())
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /episodes", s.handleEpisodes)
	mux.HandleFunc("GET /episodes/{slug}", s.handleEpisode)
	mux.HandleFunc("GET /hosts", s.handleHosts)
	mux.HandleFunc("GET /hosts/{slug}", s.handleHost)
	mux.HandleFunc("GET /genres", s.handleGenres)
	mux.HandleFunc("GET /genres/{slug}", s.handleGenre)
	mux.HandleFunc("GET /editorial", s.handlePosts)
	mux.HandleFunc("GET /editorial/{slug}", s.handlePost)
	mux.HandleFunc("GET /videos", s.handleVideos)
	mux.HandleFunc("GET /videos/{slug}", s.handleVideo)
	mux.HandleFunc("GET /schedule", s.handleSchedule)
	mux.HandleFunc("GET /archive", s.handleArchive)
	mux.HandleFunc("GET /archive/{show}", s.handleArchiveShow)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /membership", s.handleMembership)
	mux.HandleFunc("POST /membership/checkout", s.handleCheckout)
	mux.HandleFunc("GET /pages/{slug}", s.handlePage)

	mux.HandleFunc("GET /api/live", s.handleLive)
	mux.HandleFunc("GET /api/schedule", s.handleScheduleJSON)
	mux.HandleFunc("POST /api/webhooks/stripe", s.handleStripeWebhook)
	mux.HandleFunc("POST /api/revalidate", s.handleRevalidate)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /sitemap.xml", s.handleSitemap)
	mux.HandleFunc("GET /robots.txt", s.handleRobots)
	mux.HandleFunc("/", s.handleNotFound)
	return mux
}

// Serve listens on the configured address and blocks until ctx is cancelled
// or the server fails.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Bind)
	if err != nil {
		return fmt.Errorf("web listen: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.logger.Info("site listening", logging.String("address", listener.Addr().String()))

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("web serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web shutdown: %w", err)
	}
	s.logger.Info("site stopped")
	return nil
}
