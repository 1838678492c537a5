package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/mhingston/DriveTime/internal/config"
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
	cfgVal.Lookup.APIKey = "test"
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Queue.Database = filepath.Join(base, "data", "drivetime.db")
	cfgVal.API.Bind = "127.0.0.1:0"
	cfgVal.Worker.EmptySleepMs = 10
	cfgVal.Worker.RequestDelayMs = 0

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

// WithLookupURL points the lookup client at a test server URL template.
func WithLookupURL(template string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Lookup.URLTemplate = template
	}
}

// WithBatchSize overrides queue.batch_size.
func WithBatchSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.BatchSize = size
	}
}

// WithLockTimeout overrides queue.lock_timeout_seconds.
func WithLockTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.LockTimeoutSeconds = seconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
