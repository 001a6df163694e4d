package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quiltrender/internal/config"
	"quiltrender/internal/services"
)

func TestConsoleHandlerWritesSubjectAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger = NewComponentLogger(logger, "renderjob")
	logger.Info("quilt written",
		String(FieldJobID, "0f9c2a7e-1111-2222-3333-444455556666"),
		Int(FieldFrame, 3),
		String(FieldEventType, "quilt_written"),
		Int64("size_bytes", 3*1024*1024),
		Bool("animation", true),
	)

	out := buf.String()
	for _, want := range []string{"INFO [renderjob] Job 0f9c2a7e · frame 3 – quilt written", "- Event: quilt_written", "- Size: 3.0 MiB", "- Animation: yes"} {
		if !strings.Contains(out, want) {
			t.Fatalf("console output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Job Id") {
		t.Fatalf("subject keys should not be repeated as fields:\n%s", out)
	}
}

func TestConsoleHandlerSuppressesRepeatedInfoFields(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Options{Format: "console", Writer: &buf})
	logger = logger.With(String(FieldJobID, "job-1"))
	logger.Info("first", String("preset", "portrait"))
	logger.Info("second", String("preset", "portrait"))

	if n := strings.Count(buf.String(), "Preset: portrait"); n != 1 {
		t.Fatalf("expected preset once, got %d:\n%s", n, buf.String())
	}
}

func TestDebugLevelShowsAllKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Options{Level: "debug", Format: "console", Writer: &buf})
	logger.Debug("view pose", String(FieldCorrelationID, "abc"), Float64("shift_x", 0.125))
	out := buf.String()
	if !strings.Contains(out, "DEBUG") || !strings.Contains(out, "correlation_id: abc") || !strings.Contains(out, "shift_x: 0.125") {
		t.Fatalf("unexpected debug output:\n%s", out)
	}
}

func TestJSONFormatAndFileTee(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	logger, err := New(Options{Level: "warn", Format: "json", Writer: &buf, FilePath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("only in file", String("k", "v"))
	logger.Warn("everywhere")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one primary line, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["level"] != "warn" || rec["msg"] != "everywhere" || rec["ts"] == nil {
		t.Fatalf("unexpected record %v", rec)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "only in file") || !strings.Contains(string(data), "everywhere") {
		t.Fatalf("log file missing records:\n%s", data)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestNewFromConfigWritesRunLog(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "error"

	logger, path, err := NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if ok, _ := filepath.Match(LogFilePattern, filepath.Base(path)); !ok {
		t.Fatalf("log path %q does not match %q", path, LogFilePattern)
	}
	logger.Info("recorded")
	if data, err := os.ReadFile(path); err != nil || !strings.Contains(string(data), "recorded") {
		t.Fatalf("expected run log to hold info records: %v %q", err, data)
	}
}

func TestContextFields(t *testing.T) {
	ctx := services.WithJobID(context.Background(), "job-7")
	ctx = services.WithFrame(ctx, 2)
	ctx = services.WithView(ctx, 0)

	got := map[string]string{}
	for _, attr := range ContextFields(ctx) {
		got[attr.Key] = attr.Value.String()
	}
	if got[FieldJobID] != "job-7" || got[FieldFrame] != "2" || got[FieldView] != "0" {
		t.Fatalf("unexpected fields %v", got)
	}
	if _, ok := got[FieldCorrelationID]; ok {
		t.Fatal("correlation id should be absent")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newJSONHandler(&buf, new(slog.LevelVar), false))
	ctx := services.WithView(services.WithJobID(context.Background(), "job-7"), 3)

	WithContext(ctx, logger).Info("view saved")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec[FieldJobID] != "job-7" || rec[FieldView] != float64(3) {
		t.Fatalf("unexpected record %v", rec)
	}
	if WithContext(context.Background(), logger) != logger {
		t.Fatal("context without fields should keep the logger")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newJSONHandler(&buf, new(slog.LevelVar), false))
	WarnWithContext(logger, "disk low", "disk_low", String(FieldImpact, "render may fail"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec[FieldEventType] != "disk_low" || rec[FieldErrorHint] == nil || rec[FieldImpact] != "render may fail" {
		t.Fatalf("unexpected record %v", rec)
	}

	WarnWithContext(nil, "ignored", "x")
	ErrorWithContext(NewNop(), "ignored", "x", Error(errors.New("boom")))
}

func TestFormatSubject(t *testing.T) {
	tests := []struct {
		job, frame, view string
		want             string
	}{
		{"", "", "", ""},
		{"abcdef0123456789", "", "", "Job abcdef01"},
		{"abc", "4", "", "Job abc · frame 4"},
		{"abc", "4", "0", "Job abc · frame 4 · view 1"},
		{"", "", "x", "view x"},
	}
	for _, tt := range tests {
		if got := FormatSubject(tt.job, tt.frame, tt.view); got != tt.want {
			t.Errorf("FormatSubject(%q, %q, %q) = %q, want %q", tt.job, tt.frame, tt.view, got, tt.want)
		}
	}
}

func TestFormatDurationHuman(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m 05s"},
		{2*time.Hour + 7*time.Minute + 9*time.Second, "2h 07m 09s"},
	}
	for _, tt := range tests {
		if got := formatDurationHuman(tt.in); got != tt.want {
			t.Errorf("formatDurationHuman(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTeeHandler(t *testing.T) {
	if TeeHandler(nil, nil) != slog.DiscardHandler {
		t.Fatal("expected discard handler for nil inputs")
	}
	var a, b bytes.Buffer
	ha := slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo})
	hb := slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError})
	if TeeHandler(nil, ha) != ha {
		t.Fatal("single handler should be returned unwrapped")
	}
	logger := slog.New(TeeHandler(ha, hb)).With(String("k", "v"))
	logger.Info("info line")
	logger.Error("error line")
	if !strings.Contains(a.String(), "info line") || !strings.Contains(a.String(), "k=v") {
		t.Fatalf("first handler missing output: %q", a.String())
	}
	if strings.Contains(b.String(), "info line") || !strings.Contains(b.String(), "error line") {
		t.Fatalf("second handler level not respected: %q", b.String())
	}
}

func TestProgressSampler(t *testing.T) {
	s := NewProgressSampler(25)
	steps := []struct {
		percent float64
		stage   string
		want    bool
	}{
		{0, "frame 1", true},
		{10, "frame 1", false},
		{25, "frame 1", true},
		{49, "frame 1", false},
		{100, "frame 1", true},
		{100, "frame 1", false},
		{0, "frame 2", true},
		{-1, "frame 2", false},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, step.stage); got != step.want {
			t.Fatalf("step %d: ShouldLog(%v, %q) = %v, want %v", i, step.percent, step.stage, got, step.want)
		}
	}
	s.Reset()
	if !s.ShouldLog(0, "frame 2") {
		t.Fatal("expected emit after reset")
	}
	var nilSampler *ProgressSampler
	if !nilSampler.ShouldLog(1, "") {
		t.Fatal("nil sampler should always log")
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "quiltrender-old.log")
	current := filepath.Join(dir, "quiltrender-current.log")
	other := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, current, other} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		past := time.Now().AddDate(0, 0, -10)
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}

	if n := CleanupOldLogs(nil, 0, RetentionTarget{Dir: dir, Pattern: LogFilePattern}); n != 0 {
		t.Fatalf("zero retention removed %d files", n)
	}
	n := CleanupOldLogs(NewNop(), 7, RetentionTarget{Dir: dir, Pattern: LogFilePattern, Exclude: []string{current}})
	if n != 1 {
		t.Fatalf("expected 1 removal, got %d", n)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("old log should be removed")
	}
	for _, keep := range []string{current, other} {
		if _, err := os.Stat(keep); err != nil {
			t.Fatalf("%s should remain: %v", keep, err)
		}
	}
}
