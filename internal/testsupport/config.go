package testsupport

import (
	"path/filepath"
	"testing"

	"quiltrender/internal/config"
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
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.RecoveryDir = filepath.Join(base, "recovery")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.HistoryDB = filepath.Join(base, "history.db")
	cfgVal.Paths.PresetDir = filepath.Join(base, "presets")
	cfgVal.Logging.RetentionDays = 0

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

// WithPreset selects the default quilt preset and device.
func WithPreset(preset, device string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.Preset = preset
		b.cfg.Render.Device = device
	}
}

// WithRowOrder sets the quilt row order.
func WithRowOrder(order string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.RowOrder = order
	}
}

// WithKeepViews keeps the view files of finished frames.
func WithKeepViews() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.KeepViews = true
	}
}

// WithoutHistory disables the history database.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.HistoryDB = ""
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}

// TinyPreset is a 2x2 quilt of 32x24 views, small enough for end-to-end
// renders in tests.
const TinyPreset = `{
  "description": "Test quilt",
  "quilt_width": 64,
  "quilt_height": 48,
  "view_width": 32,
  "view_height": 24,
  "rows": 2,
  "columns": 2,
  "total_views": 4
}`

// WithTinyPreset installs TinyPreset as the user preset "tiny" and selects it
// with the portrait device.
func WithTinyPreset() ConfigOption {
	return func(b *configBuilder) {
		WriteFile(b.t, filepath.Join(b.cfg.Paths.PresetDir, "tiny.preset"), TinyPreset)
		b.cfg.Render.Preset = "tiny"
		b.cfg.Render.Device = "portrait"
	}
}
