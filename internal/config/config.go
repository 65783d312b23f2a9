package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains the HTTP site settings.
type Server struct {
	Bind             string `toml:"bind"`
	BaseURL          string `toml:"base_url"`
	SiteName         string `toml:"site_name"`
	RevalidateSecret string `toml:"revalidate_secret"`
	CacheTTLSeconds  int    `toml:"cache_ttl_seconds"`
	CacheEntries     int    `toml:"cache_entries"`
}

// Cosmic contains the headless CMS bucket credentials.
type Cosmic struct {
	BucketSlug string `toml:"bucket_slug"`
	ReadKey    string `toml:"read_key"`
	WriteKey   string `toml:"write_key"`
	BaseURL    string `toml:"base_url"`
	MediaURL   string `toml:"media_url"`
}

// Mixcloud contains configuration for the show archive.
type Mixcloud struct {
	Username string `toml:"username"`
	BaseURL  string `toml:"base_url"`
}

// RadioCult contains configuration for the live scheduling API.
type RadioCult struct {
	StationID string `toml:"station_id"`
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
}

// Stripe contains membership billing settings.
type Stripe struct {
	SecretKey     string `toml:"secret_key"`
	WebhookSecret string `toml:"webhook_secret"`
	PriceID       string `toml:"price_id"`
	SuccessPath   string `toml:"success_path"`
	CancelPath    string `toml:"cancel_path"`
}

// Schedule contains the weekly schedule window settings.
type Schedule struct {
	Timezone string `toml:"timezone"`
	Days     int    `toml:"days"`
}

// Legacy describes the Craft CMS database the migration jobs read from.
type Legacy struct {
	Driver         string  `toml:"driver"`
	DSN            string  `toml:"dsn"`
	TablePrefix    string  `toml:"table_prefix"`
	AssetBaseURL   string  `toml:"asset_base_url"`
	MatchThreshold float64 `toml:"match_threshold"`
}

// Paths contains local directories.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Notifications contains the optional ntfy topic for operator alerts.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for wwfm.
//
// Configuration sections by subsystem:
//   - Server: site bind address, canonical URL and response cache
//   - Cosmic: CMS bucket and API keys
//   - Mixcloud: archive account
//   - RadioCult: live schedule station
//   - Stripe: membership checkout and webhooks
//   - Schedule: station timezone and window length
//   - Legacy: Craft CMS database used by the migration jobs
//   - Paths: data (ledger, locks) and log directories
//   - Notifications: ntfy topic for migration alerts
//   - Logging: log format and level
type Config struct {
	Server        Server        `toml:"server"`
	Cosmic        Cosmic        `toml:"cosmic"`
	Mixcloud      Mixcloud      `toml:"mixcloud"`
	RadioCult     RadioCult     `toml:"radiocult"`
	Stripe        Stripe        `toml:"stripe"`
	Schedule      Schedule      `toml:"schedule"`
	Legacy        Legacy        `toml:"legacy"`
	Paths         Paths         `toml:"paths"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/wwfm/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("wwfm.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Location returns the station timezone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CacheTTL returns the response cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Server.CacheTTLSeconds) * time.Second
}

// CanWrite reports whether a Cosmic write key is configured.
func (c *Config) CanWrite() bool {
	return strings.TrimSpace(c.Cosmic.WriteKey) != ""
}

// MembershipEnabled reports whether Stripe checkout and webhooks are configured.
func (c *Config) MembershipEnabled() bool {
	return c.Stripe.SecretKey != "" && c.Stripe.WebhookSecret != ""
}

// LedgerPath returns the migration ledger database location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.DataDir, "migrate.db")
}

// LockPath returns the migration lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "migrate.lock")
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
