package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"wwfm/internal/content"
	"wwfm/internal/logging"
	"wwfm/internal/sanitize"
	"wwfm/internal/services/mixcloud"
	"wwfm/internal/services/radiocult"
)

const (
	pageSize        = 24
	homeEpisodes    = 12
	homeFeatured    = 4
	homePosts       = 4
	relatedEpisodes = 6
	hostEpisodes    = 12

	// Mixcloud caps search pages at 100.
	maxArchiveSearch = 50
)

// pager describes pagination links for a listing.
type pager struct {
	Page    int
	PrevURL string
	NextURL string
}

func pageNumber(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func newPager(r *http.Request, page int, hasMore bool) pager {
	link := func(n int) string {
		q := r.URL.Query()
		if n <= 1 {
			q.Del("page")
		} else {
			q.Set("page", strconv.Itoa(n))
		}
		if encoded := q.Encode(); encoded != "" {
			return r.URL.Path + "?" + encoded
		}
		return r.URL.Path
	}
	p := pager{Page: page}
	if page > 1 {
		p.PrevURL = link(page - 1)
	}
	if hasMore {
		p.NextURL = link(page + 1)
	}
	return p
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.WithContext(ctx, s.logger)

	var (
		featured content.Results[content.Episode]
		latest   content.Results[content.Episode]
		posts    content.Results[content.Post]
		live     radiocult.LiveStatus
	)
	// Each block is best effort; a failed section is left out of the page.
	section := func(name string, fn func(context.Context) error) func() error {
		return func() error {
			if err := fn(ctx); err != nil {
				logging.WarnWithContext(logger, "home section unavailable", "home_section_failed",
					logging.String("section", name),
					logging.Error(err),
				)
			}
			return nil
		}
	}
	var g errgroup.Group
	g.Go(section("featured", func(ctx context.Context) (err error) {
		featured, err = s.deps.Content.ListEpisodes(ctx, content.EpisodeQuery{Featured: true, Limit: homeFeatured})
		return err
	}))
	g.Go(section("latest", func(ctx context.Context) (err error) {
		latest, err = s.deps.Content.ListEpisodes(ctx, content.EpisodeQuery{Limit: homeEpisodes})
		return err
	}))
	g.Go(section("posts", func(ctx context.Context) (err error) {
		posts, err = s.deps.Content.ListPosts(ctx, homePosts, 0)
		return err
	}))
	if s.deps.Live != nil {
		g.Go(section("live", func(ctx context.Context) (err error) {
			live, err = s.deps.Live.Live(ctx)
			return err
		}))
	}
	_ = g.Wait()

	s.render(w, r, http.StatusOK, "home", Meta{
		Title:       s.opts.SiteName,
		Description: "Worldwide FM is a global music radio station broadcasting live from London.",
	}, map[string]any{
		"Featured": featured.Items,
		"Latest":   latest.Items,
		"Posts":    posts.Items,
		"Live":     live,
	})
}

func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	page := pageNumber(r)
	q := r.URL.Query()
	query := content.EpisodeQuery{
		Genre:    q.Get("genre"),
		Host:     q.Get("host"),
		Location: q.Get("location"),
		Takeover: q.Get("takeover"),
		Limit:    pageSize,
		Offset:   (page - 1) * pageSize,
	}
	results, err := s.deps.Content.ListEpisodes(r.Context(), query)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	genres, err := s.deps.Content.ListGenres(r.Context())
	if err != nil {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "genre filter unavailable", "genres_failed", logging.Error(err))
	}
	s.render(w, r, http.StatusOK, "episodes", Meta{
		Title:       "Episodes",
		Description: "Shows from the Worldwide FM archive.",
		NoIndex:     page > 1 || query.Genre != "" || query.Host != "",
	}, map[string]any{
		"Episodes": results.Items,
		"Genres":   genres,
		"Query":    query,
		"Pager":    newPager(r, page, results.HasMore()),
	})
}

func (s *Server) handleEpisode(w http.ResponseWriter, r *http.Request) {
	ep, err := s.deps.Content.GetEpisode(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	related, err := s.deps.Content.RelatedEpisodes(r.Context(), ep, relatedEpisodes)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "related episodes unavailable", "related_failed",
			logging.String("slug", ep.Slug),
			logging.Error(err),
		)
	}
	s.render(w, r, http.StatusOK, "episode", episodeMeta(s, ep), map[string]any{
		"Episode": ep,
		"Related": related,
	})
}

func (s *Server) handleHosts(w http.ResponseWriter, r *http.Request) {
	page := pageNumber(r)
	results, err := s.deps.Content.ListHosts(r.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "hosts", Meta{Title: "Hosts", Description: "Regular hosts on Worldwide FM."}, map[string]any{
		"Hosts": results.Items,
		"Pager": newPager(r, page, results.HasMore()),
	})
}

func (s *Server) handleHost(w http.ResponseWriter, r *http.Request) {
	host, episodes, err := s.deps.Content.GetHost(r.Context(), r.PathValue("slug"), hostEpisodes)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "host", Meta{
		Title:       host.Title,
		Description: sanitize.Text(host.Description),
		Image:       host.Image.Src(),
		Type:        "profile",
	}, map[string]any{
		"Host":     host,
		"Episodes": episodes,
	})
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := s.deps.Content.ListGenres(r.Context())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "genres", Meta{Title: "Genres"}, map[string]any{"Genres": genres})
}

func (s *Server) handleGenre(w http.ResponseWriter, r *http.Request) {
	genre, err := s.deps.Content.GetGenre(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	page := pageNumber(r)
	results, err := s.deps.Content.ListEpisodes(r.Context(), content.EpisodeQuery{
		Genre:  genre.Slug,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "genre", Meta{
		Title:       genre.Title,
		Description: sanitize.Text(genre.Description),
		Image:       genre.Image.Src(),
	}, map[string]any{
		"Genre":    genre,
		"Episodes": results.Items,
		"Pager":    newPager(r, page, results.HasMore()),
	})
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	page := pageNumber(r)
	results, err := s.deps.Content.ListPosts(r.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "posts", Meta{Title: "Editorial"}, map[string]any{
		"Posts": results.Items,
		"Pager": newPager(r, page, results.HasMore()),
	})
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	post, err := s.deps.Content.GetPost(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "post", postMeta(s, post), map[string]any{"Post": post})
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	page := pageNumber(r)
	results, err := s.deps.Content.ListVideos(r.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "videos", Meta{Title: "Videos"}, map[string]any{
		"Videos": results.Items,
		"Pager":  newPager(r, page, results.HasMore()),
	})
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	video, err := s.deps.Content.GetVideo(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "video", Meta{
		Title:       video.Title,
		Description: sanitize.Text(video.Description),
		Image:       video.Image.Src(),
		Type:        "video.other",
	}, map[string]any{"Video": video})
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	week, err := s.deps.Schedule.Week(r.Context(), s.opts.Now())
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "schedule", Meta{
		Title:       "Schedule",
		Description: "What is on Worldwide FM this week.",
	}, map[string]any{
		"Week": week,
		"Now":  s.opts.Now(),
	})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.deps.Archive == nil || s.opts.MixcloudUser == "" {
		s.handleNotFound(w, r)
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q != "" {
		found, err := s.deps.Archive.Search(r.Context(), q, maxArchiveSearch)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
		// Mixcloud search is global; only the station's uploads are shown.
		shows := make([]mixcloud.Cloudcast, 0, len(found.Cloudcasts))
		for _, cast := range found.Cloudcasts {
			if strings.EqualFold(cast.User.Username, s.opts.MixcloudUser) {
				shows = append(shows, cast)
			}
		}
		s.render(w, r, http.StatusOK, "archive", Meta{Title: "Archive search", NoIndex: true}, map[string]any{
			"Query": q,
			"Shows": shows,
			"Pager": newPager(r, 1, false),
		})
		return
	}
	page := pageNumber(r)
	shows, err := s.deps.Archive.Cloudcasts(r.Context(), s.opts.MixcloudUser, pageSize, (page-1)*pageSize)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "archive", Meta{Title: "Archive"}, map[string]any{
		"Query": "",
		"Shows": shows.Cloudcasts,
		"Pager": newPager(r, page, shows.HasMore),
	})
}

func (s *Server) handleArchiveShow(w http.ResponseWriter, r *http.Request) {
	if s.deps.Archive == nil || s.opts.MixcloudUser == "" {
		s.handleNotFound(w, r)
		return
	}
	cast, err := s.deps.Archive.Cloudcast(r.Context(), s.opts.MixcloudUser+"/"+r.PathValue("show"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	tags := make([]string, 0, len(cast.Tags))
	for _, tag := range cast.Tags {
		tags = append(tags, tag.Name)
	}
	s.render(w, r, http.StatusOK, "cloudcast", Meta{
		Title:       cast.Name,
		Description: strings.Join(tags, ", "),
		Image:       cast.Pictures.Best(),
		Type:        "music.radio_station",
	}, map[string]any{"Show": cast, "Tags": tags})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	results := content.SearchResults{Query: q}
	if q != "" {
		var err error
		results, err = s.deps.Content.Search(r.Context(), q)
		if err != nil {
			s.renderError(w, r, err)
			return
		}
	}
	s.render(w, r, http.StatusOK, "search", Meta{Title: "Search", NoIndex: true}, map[string]any{"Results": results})
}

func (s *Server) handleMembership(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "membership", Meta{
		Title:       "Membership",
		Description: "Support independent radio and become a Worldwide FM member.",
	}, map[string]any{
		"Enabled": s.deps.Membership != nil,
		"Status":  r.URL.Query().Get("status"),
	})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if s.deps.Membership == nil {
		s.handleNotFound(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 16<<10)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	target, err := s.deps.Membership.Checkout(r.Context(), r.PostForm.Get("email"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Content.GetPage(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "page", Meta{
		Title:       page.Title,
		Description: page.Description,
		Image:       page.Image.Src(),
	}, map[string]any{"Page": page})
}
