package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quiltrender/internal/config"
	"quiltrender/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	scenePath  string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cfg := testsupport.NewConfig(t, testsupport.WithTinyPreset())
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		scenePath:  testsupport.WriteScene(t, filepath.Join(base, "scenes"), "orbit.toml", ""),
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\noutput_dir = %q\nrecovery_dir = %q\nlog_dir = %q\nhistory_db = %q\npreset_dir = %q\n\n"+
			"[render]\npreset = %q\ndevice = %q\n\n[logging]\nlevel = \"warn\"\nretention_days = 0\n",
		cfg.Paths.OutputDir,
		cfg.Paths.RecoveryDir,
		cfg.Paths.LogDir,
		cfg.Paths.HistoryDB,
		cfg.Paths.PresetDir,
		cfg.Render.Preset,
		cfg.Render.Device,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireNotContains(t *testing.T, output, substr string) {
	t.Helper()
	if strings.Contains(output, substr) {
		t.Fatalf("expected %q not to contain %q", output, substr)
	}
}
