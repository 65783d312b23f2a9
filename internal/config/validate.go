package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCosmic(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateStripe(); err != nil {
		return err
	}
	if err := c.validateLegacy(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCosmic() error {
	if c.Cosmic.BucketSlug == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/wwfm/config.toml"
		}
		return fmt.Errorf("cosmic.bucket_slug is required. Set COSMIC_BUCKET_SLUG env var or edit %s (create with 'wwfm config init')", defaultPath)
	}
	if c.Cosmic.ReadKey == "" {
		return errors.New("cosmic.read_key is required (or set COSMIC_READ_KEY)")
	}
	return nil
}

func (c *Config) validateServer() error {
	parsed, err := url.Parse(c.Server.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("server.base_url must be an absolute URL, got %q", c.Server.BaseURL)
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: unknown location %q", c.Schedule.Timezone)
	}
	if c.Schedule.Days < 1 || c.Schedule.Days > 14 {
		return errors.New("schedule.days must be between 1 and 14")
	}
	return nil
}

func (c *Config) validateStripe() error {
	if c.Stripe.SecretKey == "" {
		return nil
	}
	if c.Stripe.PriceID == "" {
		return errors.New("stripe.price_id must be set when stripe.secret_key is configured")
	}
	for name, path := range map[string]string{"success_path": c.Stripe.SuccessPath, "cancel_path": c.Stripe.CancelPath} {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("stripe.%s must start with '/'", name)
		}
	}
	return nil
}

func (c *Config) validateLegacy() error {
	switch c.Legacy.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("legacy.driver: unsupported value %q", c.Legacy.Driver)
	}
	if c.Legacy.MatchThreshold > 1 {
		return errors.New("legacy.match_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be an absolute URL, got %q", c.Notifications.NtfyTopic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
