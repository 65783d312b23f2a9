package web

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"wwfm/internal/content"
	"wwfm/internal/logging"
	"wwfm/internal/schedule"
	"wwfm/internal/services"
	"wwfm/internal/services/radiocult"
)

const maxWebhookBytes = 64 << 10

type liveResponse struct {
	Status string     `json:"status"`
	OnAir  bool       `json:"onAir"`
	Title  string     `json:"title,omitempty"`
	Artist string     `json:"artist,omitempty"`
	Start  *time.Time `json:"start,omitempty"`
	End    *time.Time `json:"end,omitempty"`
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=30")
	if s.deps.Live == nil {
		s.writeJSON(w, http.StatusOK, liveResponse{Status: radiocult.StatusOffAir})
		return
	}
	status, err := s.deps.Live.Live(r.Context())
	if err != nil {
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "live status unavailable", "live_failed", logging.Error(err))
		s.writeJSON(w, http.StatusOK, liveResponse{Status: radiocult.StatusOffAir})
		return
	}
	resp := liveResponse{
		Status: status.Status,
		OnAir:  status.OnAir(),
		Title:  status.Title,
		Artist: status.Artist,
	}
	if !status.Start.IsZero() {
		resp.Start = &status.Start
	}
	if !status.End.IsZero() {
		resp.End = &status.End
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type scheduleResponse struct {
	Start   time.Time        `json:"start"`
	End     time.Time        `json:"end"`
	Partial bool             `json:"partial"`
	Entries []schedule.Entry `json:"entries"`
}

func (s *Server) handleScheduleJSON(w http.ResponseWriter, r *http.Request) {
	week, err := s.deps.Schedule.Week(r.Context(), s.opts.Now())
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "schedule unavailable", "schedule_failed", logging.Error(err))
		s.writeError(w, services.HTTPStatus(err), "schedule unavailable")
		return
	}
	entries := week.Entries
	if entries == nil {
		entries = []schedule.Entry{}
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	s.writeJSON(w, http.StatusOK, scheduleResponse{
		Start:   week.Window.Start,
		End:     week.Window.End,
		Partial: week.Partial,
		Entries: entries,
	})
}

func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if s.deps.Membership == nil {
		s.writeError(w, http.StatusNotFound, "membership disabled")
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBytes+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read body")
		return
	}
	if len(payload) > maxWebhookBytes {
		s.writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}
	result, err := s.deps.Membership.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		status := services.HTTPStatus(err)
		if errors.Is(err, services.ErrUnauthorized) || errors.Is(err, services.ErrValidation) {
			status = http.StatusBadRequest
		}
		if status >= http.StatusInternalServerError {
			logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "stripe webhook failed", "webhook_failed", logging.Error(err))
		}
		s.writeError(w, status, "webhook rejected")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"received": true,
		"handled":  result.Handled,
		"type":     result.Type,
	})
}

// purgeTypes maps revalidation targets to cache key prefixes.
var purgeTypes = map[string]string{
	"episodes":  content.TypeEpisodes,
	"hosts":     content.TypeHosts,
	"genres":    content.TypeGenres,
	"posts":     content.TypePosts,
	"editorial": content.TypePosts,
	"videos":    content.TypeVideos,
	"pages":     content.TypePages,
}

func (s *Server) handleRevalidate(w http.ResponseWriter, r *http.Request) {
	secret := s.opts.RevalidateSecret
	given := r.Header.Get("X-Revalidate-Secret")
	if secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(secret)) != 1 {
		s.writeError(w, http.StatusUnauthorized, "invalid secret")
		return
	}
	if s.deps.Cache == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"purged": 0})
		return
	}
	target := strings.TrimSpace(r.URL.Query().Get("type"))
	var purged int
	switch {
	case target == "":
		purged = s.deps.Cache.PurgeAll()
	default:
		objectType, ok := purgeTypes[target]
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown type")
			return
		}
		purged = s.deps.Cache.Purge(objectType + ":")
	}
	logging.WithContext(r.Context(), s.logger).Info("cache revalidated",
		logging.String("type", target),
		logging.Int("purged", purged),
	)
	s.writeJSON(w, http.StatusOK, map[string]any{"purged": purged})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.deps.Cache != nil {
		stats := s.deps.Cache.Stats()
		body["cache"] = map[string]any{
			"entries": stats.Entries,
			"hits":    stats.Hits,
			"misses":  stats.Misses,
			"stale":   stats.Stale,
			"errors":  stats.Errors,
		}
	}
	s.writeJSON(w, http.StatusOK, body)
}
