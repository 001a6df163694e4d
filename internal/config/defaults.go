package config

import "quiltrender/internal/quilt"

const (
	defaultOutputDir        = "~/Pictures/quilts"
	defaultRecoveryDir      = "~/.local/share/quiltrender/recovery"
	defaultLogDir           = "~/.local/share/quiltrender/logs"
	defaultHistoryDB        = "~/.local/share/quiltrender/history.db"
	defaultPresetDir        = "~/.config/quiltrender/presets"
	defaultTickIntervalMS   = 1
	defaultPreset           = "portrait"
	defaultDevice           = "portrait"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:   defaultOutputDir,
			RecoveryDir: defaultRecoveryDir,
			LogDir:      defaultLogDir,
			HistoryDB:   defaultHistoryDB,
			PresetDir:   defaultPresetDir,
		},
		Render: Render{
			TickIntervalMS: defaultTickIntervalMS,
			RowOrder:       quilt.TopFirst.String(),
			Preset:         defaultPreset,
			Device:         defaultDevice,
			AddSuffix:      true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
