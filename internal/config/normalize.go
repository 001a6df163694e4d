package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if c.Paths.OutputDir == "" {
		if value, ok := os.LookupEnv("QUILTRENDER_OUTPUT_DIR"); ok {
			c.Paths.OutputDir = strings.TrimSpace(value)
		}
	}
	fields := []struct {
		key   string
		value *string
	}{
		{"paths.output_dir", &c.Paths.OutputDir},
		{"paths.recovery_dir", &c.Paths.RecoveryDir},
		{"paths.log_dir", &c.Paths.LogDir},
		{"paths.history_db", &c.Paths.HistoryDB},
		{"paths.preset_dir", &c.Paths.PresetDir},
	}
	for _, field := range fields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.RowOrder = strings.ToLower(strings.TrimSpace(c.Render.RowOrder))
	if c.Render.RowOrder == "" {
		c.Render.RowOrder = Default().Render.RowOrder
	}
	c.Render.Preset = strings.TrimSpace(c.Render.Preset)
	if c.Render.Preset == "" {
		c.Render.Preset = defaultPreset
	}
	c.Render.Device = strings.TrimSpace(c.Render.Device)
	if c.Render.Device == "" {
		c.Render.Device = defaultDevice
	}
	if c.Render.TickIntervalMS == 0 {
		c.Render.TickIntervalMS = defaultTickIntervalMS
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
