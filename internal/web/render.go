package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"wwfm/internal/logging"
	"wwfm/internal/sanitize"
	"wwfm/internal/services"
	"wwfm/internal/services/mixcloud"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

var templateFuncs = template.FuncMap{
	"safeHTML": func(s string) template.HTML {
		return template.HTML(sanitize.HTML(s))
	},
	"markdown": func(s string) template.HTML {
		out, err := sanitize.Markdown(s)
		if err != nil {
			return template.HTML(template.HTMLEscapeString(s))
		}
		return template.HTML(out)
	},
	"excerpt": sanitize.Excerpt,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2 Jan 2006")
	},
	"day": func(t time.Time) string {
		return t.Format("Monday 2 January")
	},
	"clock": func(t time.Time) string {
		return t.Format("15:04")
	},
	"isoTime": func(t time.Time) string {
		return t.Format(time.RFC3339)
	},
	"player": mixcloud.PlayerURL,
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	r := &renderer{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(file), ".html")
		tmpl, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Meta is the per-page SEO metadata rendered into <head>.
type Meta struct {
	Title       string
	Description string
	Canonical   string
	Image       string
	Type        string
	NoIndex     bool
	JSONLD      template.JS
}

type pageData struct {
	Site string
	Meta Meta
	Data any
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, meta Meta, data any) {
	tmpl, ok := s.pages.pages[page]
	if !ok {
		s.renderError(w, r, fmt.Errorf("unknown template %q", page))
		return
	}
	meta = s.completeMeta(r, meta)
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, pageData{Site: s.opts.SiteName, Meta: meta, Data: data}); err != nil {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "template execution failed", "render_failed",
			logging.String("template", page),
			logging.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderError maps err to a status and renders the error page.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	if errors.Is(err, services.ErrConfiguration) {
		status = http.StatusNotFound
	}
	logger := logging.WithContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logger, "page failed", "page_failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	} else {
		logger.Debug("page not served", logging.Int("status", status), logging.Error(err))
	}
	title := "Something went wrong"
	if status == http.StatusNotFound {
		title = "Page not found"
	}
	s.render(w, r, status, "error", Meta{Title: title, NoIndex: true}, map[string]any{
		"Status":  status,
		"Message": title,
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, services.Wrap(services.ErrNotFound, "web", "route", r.URL.Path, nil))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("encode json response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
