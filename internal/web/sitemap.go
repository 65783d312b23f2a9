package web

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"wwfm/internal/content"
)

const (
	sitemapNS       = "http://www.sitemaps.org/schemas/sitemap/0.9"
	sitemapEpisodes = 100
	sitemapPosts    = 100
	sitemapHosts    = 100
)

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	NS      string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

func lastMod(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var (
		episodes content.Results[content.Episode]
		posts    content.Results[content.Post]
		hosts    content.Results[content.Host]
		genres   []content.Genre
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		episodes, err = s.deps.Content.ListEpisodes(gctx, content.EpisodeQuery{Limit: sitemapEpisodes})
		return err
	})
	g.Go(func() (err error) {
		posts, err = s.deps.Content.ListPosts(gctx, sitemapPosts, 0)
		return err
	})
	g.Go(func() (err error) {
		hosts, err = s.deps.Content.ListHosts(gctx, sitemapHosts, 0)
		return err
	})
	g.Go(func() (err error) {
		genres, err = s.deps.Content.ListGenres(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.renderError(w, r, err)
		return
	}

	set := urlSet{NS: sitemapNS}
	add := func(path, mod, freq, priority string) {
		set.URLs = append(set.URLs, sitemapURL{Loc: s.absolute(path), LastMod: mod, ChangeFreq: freq, Priority: priority})
	}
	add("/", "", "hourly", "1.0")
	for _, path := range []string{"/episodes", "/schedule", "/hosts", "/genres", "/editorial", "/videos", "/membership"} {
		add(path, "", "daily", "0.8")
	}
	for _, ep := range episodes.Items {
		add(ep.Path(), lastMod(ep.Broadcast), "weekly", "0.6")
	}
	for _, p := range posts.Items {
		add(p.Path(), lastMod(p.Published), "monthly", "0.6")
	}
	for _, h := range hosts.Items {
		add(h.Path(), "", "weekly", "0.5")
	}
	for _, genre := range genres {
		add(genre.Path(), "", "weekly", "0.4")
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		s.renderError(w, r, fmt.Errorf("encode sitemap: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(out)
}

func (s *Server) handleRobots(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "User-agent: *\nDisallow: /api/\nDisallow: /search\n\nSitemap: %s/sitemap.xml\n", s.opts.BaseURL)
}
