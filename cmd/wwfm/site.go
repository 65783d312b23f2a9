package main

import (
	"fmt"
	"log/slog"

	"wwfm/internal/cache"
	"wwfm/internal/config"
	"wwfm/internal/content"
	"wwfm/internal/membership"
	"wwfm/internal/schedule"
	"wwfm/internal/services/cosmic"
	"wwfm/internal/services/mixcloud"
	"wwfm/internal/services/radiocult"
	"wwfm/internal/web"
)

// site holds the services behind the public site.
type site struct {
	cms       *cosmic.Client
	responses *cache.Cache
	content   *content.Store
	schedule  *schedule.Builder
	radio     *radiocult.Client
	archive   *mixcloud.Client
	members   *membership.Service
}

// buildSite wires the configured services. RadioCult, Mixcloud and Stripe
// are optional and left nil when unconfigured.
func buildSite(cfg *config.Config, logger *slog.Logger) (*site, error) {
	cms, err := cosmic.New(cosmic.Config{
		BucketSlug: cfg.Cosmic.BucketSlug,
		ReadKey:    cfg.Cosmic.ReadKey,
		WriteKey:   cfg.Cosmic.WriteKey,
		BaseURL:    cfg.Cosmic.BaseURL,
		MediaURL:   cfg.Cosmic.MediaURL,
	})
	if err != nil {
		return nil, fmt.Errorf("cosmic client: %w", err)
	}

	s := &site{cms: cms}
	s.responses = cache.New(cfg.Server.CacheEntries, cfg.CacheTTL())
	s.content = content.NewStore(cms, s.responses, cfg.Location(), logger)
	s.schedule = &schedule.Builder{
		Episodes: s.content,
		Location: cfg.Location(),
		Days:     cfg.Schedule.Days,
		Logger:   logger,
	}

	if cfg.RadioCult.StationID != "" && cfg.RadioCult.APIKey != "" {
		s.radio, err = radiocult.New(radiocult.Config{
			StationID: cfg.RadioCult.StationID,
			APIKey:    cfg.RadioCult.APIKey,
			BaseURL:   cfg.RadioCult.BaseURL,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("radiocult client: %w", err)
		}
		s.schedule.Events = s.radio
		s.schedule.Artists = s.radio
	}

	if cfg.Mixcloud.Username != "" {
		s.archive, err = mixcloud.New(cfg.Mixcloud.BaseURL, nil)
		if err != nil {
			return nil, fmt.Errorf("mixcloud client: %w", err)
		}
	}

	if cfg.MembershipEnabled() {
		s.members = membership.NewService(membership.Config{
			WebhookSecret: cfg.Stripe.WebhookSecret,
			PriceID:       cfg.Stripe.PriceID,
			SuccessURL:    cfg.Server.BaseURL + cfg.Stripe.SuccessPath,
			CancelURL:     cfg.Server.BaseURL + cfg.Stripe.CancelPath,
		}, cms, membership.NewCheckoutClient(cfg.Stripe.SecretKey), logger)
	}
	return s, nil
}

// server builds the HTTP server. Optional services are only set when present
// so the handlers see a nil interface rather than a nil pointer.
func (s *site) server(cfg *config.Config, logger *slog.Logger) (*web.Server, error) {
	deps := web.Deps{
		Content:  s.content,
		Schedule: s.schedule,
		Cache:    s.responses,
	}
	if s.radio != nil {
		deps.Live = s.radio
	}
	if s.archive != nil {
		deps.Archive = s.archive
	}
	if s.members != nil {
		deps.Membership = s.members
	}
	return web.New(deps, web.Options{
		Bind:             cfg.Server.Bind,
		BaseURL:          cfg.Server.BaseURL,
		SiteName:         cfg.Server.SiteName,
		RevalidateSecret: cfg.Server.RevalidateSecret,
		MixcloudUser:     cfg.Mixcloud.Username,
		Logger:           logger,
	})
}
