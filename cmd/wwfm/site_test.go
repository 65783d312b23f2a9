package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wwfm/internal/content"
	"wwfm/internal/logging"
	"wwfm/internal/services/cosmic"
	"wwfm/internal/testsupport"
)

func TestBuildSiteLeavesUnconfiguredServicesNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Mixcloud.Username = ""

	st, err := buildSite(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("buildSite: %v", err)
	}
	if st.radio != nil || st.archive != nil || st.members != nil {
		t.Fatalf("expected optional services to be nil: %+v", st)
	}
	if st.schedule.Events != nil {
		t.Fatal("expected schedule without radiocult events")
	}
	if _, err := st.server(cfg, logging.NewNop()); err != nil {
		t.Fatalf("server: %v", err)
	}
}

func TestBuildSiteWiresOptionalServices(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.RadioCult.StationID = "worldwide-fm"
	cfg.RadioCult.APIKey = "rc-key"
	cfg.Mixcloud.Username = "worldwidefm"
	cfg.Stripe.SecretKey = "sk_test_123"
	cfg.Stripe.WebhookSecret = "whsec_123"
	cfg.Stripe.PriceID = "price_123"

	st, err := buildSite(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("buildSite: %v", err)
	}
	if st.radio == nil || st.archive == nil || st.members == nil {
		t.Fatalf("expected optional services to be wired: %+v", st)
	}
	if st.schedule.Events == nil || st.schedule.Artists == nil {
		t.Fatal("expected schedule to read radiocult events and artists")
	}
}

func TestSiteServesCosmicContent(t *testing.T) {
	server := testsupport.NewCosmicServer(t)
	server.Seed(cosmic.Object{Type: content.TypeEpisodes, Title: "Breakfast Club", Slug: "breakfast-club"}, map[string]any{
		"broadcast_date": "2026-03-10",
		"broadcast_time": "08:00",
		"description":    "Morning records.",
	})
	cfg := testsupport.NewConfig(t, testsupport.WithCosmic(server.URL))

	st, err := buildSite(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("buildSite: %v", err)
	}
	srv, err := st.server(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/episodes/breakfast-club", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("episode status %d: %s", rec.Code, rec.Body.String())
	}
	body, _ := io.ReadAll(rec.Body)
	requireContains(t, string(body), "Breakfast Club")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/episodes/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing episode status %d", rec.Code)
	}
}

func TestScheduleCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cosmic.Seed(cosmic.Object{Type: content.TypeEpisodes, Title: "Breakfast Club", Slug: "breakfast-club"}, map[string]any{
		"broadcast_date": "2026-03-10",
		"broadcast_time": "08:00",
	})

	out, _, err := runCLI(t, []string{"schedule", "--json", "--from", "2026-03-09"}, env.configPath)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	var week struct {
		Partial bool `json:"partial"`
		Days    []struct {
			Entries []struct {
				Title  string `json:"title"`
				Source string `json:"source"`
			} `json:"entries"`
		} `json:"days"`
	}
	if err := json.Unmarshal([]byte(out), &week); err != nil {
		t.Fatalf("decode schedule: %v\n%s", err, out)
	}
	if week.Partial {
		t.Fatal("expected a complete schedule")
	}
	if len(week.Days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(week.Days))
	}
	if len(week.Days[0].Entries) != 0 {
		t.Fatalf("expected an empty first day, got %+v", week.Days[0].Entries)
	}
	if len(week.Days[1].Entries) != 1 || week.Days[1].Entries[0].Title != "Breakfast Club" {
		t.Fatalf("unexpected second day: %+v", week.Days[1].Entries)
	}

	out, _, err = runCLI(t, []string{"schedule", "--from", "2026-03-09"}, env.configPath)
	if err != nil {
		t.Fatalf("schedule table: %v", err)
	}
	requireContains(t, out, "Tuesday 10 March")
	requireContains(t, out, "Breakfast Club")
	requireContains(t, out, "(nothing scheduled)")

	if _, _, err := runCLI(t, []string{"schedule", "--from", "next week"}, env.configPath); err == nil {
		t.Fatal("expected a bad --from date to fail")
	}
}

func TestLiveRequiresRadioCult(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"live"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "radiocult is not configured") {
		t.Fatalf("expected radiocult configuration error, got %v", err)
	}
}
