package history_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quiltrender/internal/history"
	"quiltrender/internal/renderjob"
	"quiltrender/internal/services"
	"quiltrender/internal/testsupport"
)

func sampleJob(id string) history.Job {
	return history.Job{
		ID:          id,
		Source:      "/scenes/orbit.toml",
		Animation:   true,
		ViewWidth:   420,
		ViewHeight:  560,
		Rows:        6,
		Columns:     8,
		TotalViews:  48,
		ViewCone:    40,
		QuiltAspect: 0.75,
		FrameStart:  1,
		FrameEnd:    3,
		FrameStep:   1,
		OutputPath:  "/renders/orbit",
	}
}

func TestBeginProgressFinish(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	if err := store.Begin(ctx, sampleJob("job-1")); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for _, p := range []float64{0.25, 0.5} {
		if err := store.UpdateProgress(ctx, "job-1", p); err != nil {
			t.Fatalf("UpdateProgress: %v", err)
		}
	}
	if err := store.AddQuilt(ctx, history.Quilt{JobID: "job-1", Frame: 1, Path: "/renders/orbit_f1.png", SizeBytes: 2048}); err != nil {
		t.Fatalf("AddQuilt: %v", err)
	}
	jobErr := services.Wrap(services.ErrAssembly, "renderjob", "assemble", "bad view", nil)
	if err := store.Finish(ctx, "job-1", history.StatusFailed, "Quilt rendering failed.", jobErr); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	job, quilts, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.Status != history.StatusFailed || job.ErrorKind != "assembly" || job.Progress != 0.5 || job.ViewsRendered != 2 {
		t.Fatalf("unexpected job row %+v", job)
	}
	if !job.Animation || job.Multiview || job.TotalViews != 48 || job.OutputPath != "/renders/orbit" {
		t.Fatalf("job fields not round-tripped: %+v", job)
	}
	if job.FinishedAt == nil || !job.Finished() {
		t.Fatal("expected finished job")
	}
	if len(quilts) != 1 || quilts[0].SizeBytes != 2048 || quilts[0].Frame != 1 {
		t.Fatalf("unexpected quilts %+v", quilts)
	}
}

func TestBeginTwiceMarksResume(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if err := store.Begin(ctx, sampleJob("job-1")); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Finish(ctx, "job-1", history.StatusCancelled, "Quilt rendering was cancelled.", nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if err := store.Begin(ctx, sampleJob("job-1")); err != nil {
		t.Fatalf("Begin again: %v", err)
	}
	job, _, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.Resumed != 1 || job.Status != history.StatusRunning || job.FinishedAt != nil || job.Message != "" {
		t.Fatalf("unexpected resumed row %+v", job)
	}
}

func TestListAndFind(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()

	for _, id := range []string{"aaa-1", "aab-2", "bbb-3"} {
		if err := store.Begin(ctx, sampleJob(id)); err != nil {
			t.Fatalf("Begin %s: %v", id, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].ID != "bbb-3" || all[2].ID != "aaa-1" {
		t.Fatalf("expected newest first, got %+v", all)
	}
	limited, err := store.List(ctx, 2)
	if err != nil || len(limited) != 2 {
		t.Fatalf("List(2) = %d jobs, %v", len(limited), err)
	}

	if job, _, err := store.FindByPrefix(ctx, "bb"); err != nil || job.ID != "bbb-3" {
		t.Fatalf("FindByPrefix(bb) = %v, %v", job, err)
	}
	if _, _, err := store.FindByPrefix(ctx, "aa"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ambiguous prefix error, got %v", err)
	}
	if _, _, err := store.FindByPrefix(ctx, "zz"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, _, err := store.FindByPrefix(ctx, "%"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("wildcards must be literal, got %v", err)
	}
}

func TestUpdateUnknownJob(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	if err := store.UpdateProgress(context.Background(), "missing", 0.1); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, _, err := store.Get(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPrune(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	ctx := context.Background()
	for _, id := range []string{"done", "running"} {
		if err := store.Begin(ctx, sampleJob(id)); err != nil {
			t.Fatalf("Begin: %v", err)
		}
	}
	if err := store.Finish(ctx, "done", history.StatusCompleted, "Complete quilt rendered.", nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	removed, err := store.Prune(ctx, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned job, got %d", removed)
	}
	jobs, _ := store.List(ctx, 0)
	if len(jobs) != 1 || jobs[0].ID != "running" {
		t.Fatalf("unexpected remaining jobs %+v", jobs)
	}
}

func TestSchemaVersionGuard(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	if err := store.Begin(context.Background(), sampleJob("x")); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	store.Close()

	reopened, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	reopened.Close()

	db, err := sql.Open("sqlite", cfg.Paths.HistoryDB)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := history.Open(cfg.Paths.HistoryDB); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
	if _, err := history.Open(" "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRecorderObservesJob(t *testing.T) {
	store := testsupport.MustOpenHistory(t, testsupport.NewConfig(t))
	rec := history.NewRecorder(store, nil)
	ctx := context.Background()

	quiltPath := filepath.Join(t.TempDir(), "orbit.png")
	if err := os.WriteFile(quiltPath, make([]byte, 100), 0o644); err != nil {
		t.Fatal(err)
	}

	job := &renderjob.Job{ID: "rec-1", Source: "/scenes/orbit.toml", ViewWidth: 2, ViewHeight: 2, Rows: 1, Columns: 2, TotalViews: 2, ViewCone: 40, QuiltAspect: 1, Frame: 4, FrameStart: 4, FrameEnd: 4, FrameStep: 1}
	rec.JobStarted(ctx, job)
	rec.ViewCompleted(ctx, job, 0)
	rec.ViewCompleted(ctx, job, 1)
	rec.QuiltWritten(ctx, job, quiltPath)
	rec.JobFinished(ctx, job, renderjob.Outcome{Status: renderjob.StatusCompleted, Message: renderjob.MessageStillComplete})

	row, quilts, err := store.Get(ctx, "rec-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if row.Status != history.StatusCompleted || row.Progress != 1 || row.ViewsRendered != 2 || row.Message != renderjob.MessageStillComplete {
		t.Fatalf("unexpected row %+v", row)
	}
	if len(quilts) != 1 || quilts[0].Frame != 4 || quilts[0].SizeBytes != 100 {
		t.Fatalf("unexpected quilts %+v", quilts)
	}

	// A nil store is inert.
	history.NewRecorder(nil, nil).JobStarted(ctx, job)
}
