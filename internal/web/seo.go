package web

import (
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"wwfm/internal/content"
	"wwfm/internal/sanitize"
)

const descriptionLength = 160

// completeMeta fills defaults: the titled site name, a canonical URL and an
// Open Graph type.
func (s *Server) completeMeta(r *http.Request, meta Meta) Meta {
	if meta.Title == "" {
		meta.Title = s.opts.SiteName
	} else if meta.Title != s.opts.SiteName {
		meta.Title = meta.Title + " | " + s.opts.SiteName
	}
	meta.Description = sanitize.Excerpt(meta.Description, descriptionLength)
	if meta.Canonical == "" {
		meta.Canonical = s.absolute(r.URL.Path)
	}
	if meta.Type == "" {
		meta.Type = "website"
	}
	return meta
}

func (s *Server) absolute(path string) string {
	return s.opts.BaseURL + path
}

func episodeMeta(s *Server, ep content.Episode) Meta {
	ld := map[string]any{
		"@context": "https://schema.org",
		"@type":    "RadioEpisode",
		"name":     ep.Title,
		"url":      s.absolute(ep.Path()),
	}
	if !ep.Broadcast.IsZero() {
		ld["datePublished"] = ep.Broadcast.Format(time.RFC3339)
	}
	if ep.Duration > 0 {
		ld["timeRequired"] = isoDuration(ep.Duration)
	}
	if !ep.Image.Empty() {
		ld["image"] = ep.Image.Src()
	}
	if len(ep.Hosts) > 0 {
		actors := make([]map[string]string, 0, len(ep.Hosts))
		for _, h := range ep.Hosts {
			actors = append(actors, map[string]string{"@type": "Person", "name": h.Title})
		}
		ld["actor"] = actors
	}
	ld["publication"] = map[string]any{"@type": "BroadcastEvent", "isLiveBroadcast": true, "startDate": ep.Broadcast.Format(time.RFC3339)}
	return Meta{
		Title:       ep.Title,
		Description: sanitize.Text(ep.Description),
		Image:       ep.Image.Src(),
		Type:        "music.radio_station",
		JSONLD:      jsonLD(ld),
	}
}

func postMeta(s *Server, p content.Post) Meta {
	ld := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "Article",
		"headline":      p.Title,
		"url":           s.absolute(p.Path()),
		"datePublished": p.Published.Format(time.RFC3339),
	}
	if p.Author != "" {
		ld["author"] = map[string]string{"@type": "Person", "name": p.Author}
	}
	if !p.Image.Empty() {
		ld["image"] = p.Image.Src()
	}
	description := p.Excerpt
	if description == "" {
		description = sanitize.Text(p.Body)
	}
	return Meta{
		Title:       p.Title,
		Description: description,
		Image:       p.Image.Src(),
		Type:        "article",
		JSONLD:      jsonLD(ld),
	}
}

// jsonLD marshals v for a script tag. encoding/json escapes <, > and & so the
// output cannot close the element early.
func jsonLD(v any) template.JS {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return template.JS(data)
}

func isoDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	out := "PT"
	if h > 0 {
		out += strconv.Itoa(h) + "H"
	}
	if m > 0 || h == 0 {
		out += strconv.Itoa(m) + "M"
	}
	return out
}
