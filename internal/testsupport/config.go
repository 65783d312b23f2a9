package testsupport

import (
	"path/filepath"
	"testing"

	"wwfm/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Cosmic.BucketSlug = "test-bucket"
	cfgVal.Cosmic.ReadKey = "test-read"
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Logging.Level = "error"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCosmic points the Cosmic API and media endpoints at baseURL.
func WithCosmic(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cosmic.BaseURL = baseURL
		b.cfg.Cosmic.MediaURL = baseURL
	}
}

// WithWriteKey sets the Cosmic write key.
func WithWriteKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cosmic.WriteKey = key
	}
}

// WithLegacyFixture writes the Craft fixture into the temp directory and
// points the legacy source at it.
func WithLegacyFixture() ConfigOption {
	return func(b *configBuilder) {
		path := filepath.Join(b.baseDir, "craft.db")
		WriteLegacyFixture(b.t, path)
		b.cfg.Legacy.Driver = "sqlite"
		b.cfg.Legacy.DSN = path
		b.cfg.Legacy.TablePrefix = "craft_"
		b.cfg.Legacy.AssetBaseURL = "https://assets.example.com/"
	}
}

// WithAssetBaseURL points legacy asset URLs at baseURL. Apply it after
// WithLegacyFixture.
func WithAssetBaseURL(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Legacy.AssetBaseURL = baseURL
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
