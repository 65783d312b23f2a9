package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeServer()
	c.normalizeCosmic()
	c.normalizeServices()
	c.normalizeStripe()
	c.normalizeSchedule()
	c.normalizeLegacy()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

// envOverride replaces value with the first non-empty environment variable.
func envOverride(value string, keys ...string) string {
	for _, key := range keys {
		if env, ok := os.LookupEnv(key); ok && strings.TrimSpace(env) != "" {
			return strings.TrimSpace(env)
		}
	}
	return strings.TrimSpace(value)
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	c.Server.BaseURL = strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaultBaseURL
	}
	c.Server.SiteName = strings.TrimSpace(c.Server.SiteName)
	if c.Server.SiteName == "" {
		c.Server.SiteName = defaultSiteName
	}
	c.Server.RevalidateSecret = envOverride(c.Server.RevalidateSecret, "REVALIDATE_SECRET")
	if c.Server.CacheTTLSeconds < 0 {
		c.Server.CacheTTLSeconds = 0
	}
	if c.Server.CacheEntries <= 0 {
		c.Server.CacheEntries = defaultCacheEntries
	}
}

func (c *Config) normalizeCosmic() {
	c.Cosmic.BucketSlug = envOverride(c.Cosmic.BucketSlug, "COSMIC_BUCKET_SLUG")
	c.Cosmic.ReadKey = envOverride(c.Cosmic.ReadKey, "COSMIC_READ_KEY")
	c.Cosmic.WriteKey = envOverride(c.Cosmic.WriteKey, "COSMIC_WRITE_KEY")
	c.Cosmic.BaseURL = strings.TrimRight(strings.TrimSpace(c.Cosmic.BaseURL), "/")
	if c.Cosmic.BaseURL == "" {
		c.Cosmic.BaseURL = defaultCosmicBaseURL
	}
	c.Cosmic.MediaURL = strings.TrimRight(strings.TrimSpace(c.Cosmic.MediaURL), "/")
	if c.Cosmic.MediaURL == "" {
		c.Cosmic.MediaURL = defaultCosmicMediaURL
	}
}

func (c *Config) normalizeServices() {
	c.Mixcloud.Username = strings.Trim(strings.TrimSpace(c.Mixcloud.Username), "/")
	c.Mixcloud.BaseURL = strings.TrimRight(strings.TrimSpace(c.Mixcloud.BaseURL), "/")
	if c.Mixcloud.BaseURL == "" {
		c.Mixcloud.BaseURL = defaultMixcloudBaseURL
	}
	c.RadioCult.StationID = strings.TrimSpace(c.RadioCult.StationID)
	c.RadioCult.APIKey = envOverride(c.RadioCult.APIKey, "RADIOCULT_API_KEY")
	c.RadioCult.BaseURL = strings.TrimRight(strings.TrimSpace(c.RadioCult.BaseURL), "/")
	if c.RadioCult.BaseURL == "" {
		c.RadioCult.BaseURL = defaultRadioCultURL
	}
}

func (c *Config) normalizeStripe() {
	c.Stripe.SecretKey = envOverride(c.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	c.Stripe.WebhookSecret = envOverride(c.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	c.Stripe.PriceID = strings.TrimSpace(c.Stripe.PriceID)
	if strings.TrimSpace(c.Stripe.SuccessPath) == "" {
		c.Stripe.SuccessPath = defaultSuccessPath
	}
	if strings.TrimSpace(c.Stripe.CancelPath) == "" {
		c.Stripe.CancelPath = defaultCancelPath
	}
}

func (c *Config) normalizeSchedule() {
	c.Schedule.Timezone = strings.TrimSpace(c.Schedule.Timezone)
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = defaultTimezone
	}
	if c.Schedule.Days == 0 {
		c.Schedule.Days = defaultScheduleDays
	}
}

func (c *Config) normalizeLegacy() {
	c.Legacy.Driver = strings.ToLower(strings.TrimSpace(c.Legacy.Driver))
	if c.Legacy.Driver == "" {
		c.Legacy.Driver = defaultLegacyDriver
	}
	c.Legacy.DSN = envOverride(c.Legacy.DSN, "LEGACY_DSN")
	c.Legacy.TablePrefix = strings.TrimSpace(c.Legacy.TablePrefix)
	c.Legacy.AssetBaseURL = strings.TrimRight(strings.TrimSpace(c.Legacy.AssetBaseURL), "/")
	if c.Legacy.MatchThreshold <= 0 {
		c.Legacy.MatchThreshold = defaultMatchThreshold
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = envOverride(c.Notifications.NtfyTopic, "NTFY_TOPIC")
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
