package config

import (
	"errors"
	"fmt"
	"strings"

	"quiltrender/internal/quilt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.RecoveryDir) == "" {
		return errors.New("paths.recovery_dir must be set")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.TickIntervalMS < 1 {
		return errors.New("render.tick_interval_ms must be at least 1")
	}
	if _, err := quilt.ParseRowOrder(c.Render.RowOrder); err != nil {
		return fmt.Errorf("render.quilt_row_order: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
