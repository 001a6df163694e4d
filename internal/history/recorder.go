package history

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"quiltrender/internal/logging"
	"quiltrender/internal/renderjob"
	"quiltrender/internal/services"
)

// Recorder writes job events into a Store. It implements renderjob.Observer.
type Recorder struct {
	store  *Store
	logger *slog.Logger
}

// NewRecorder returns a recorder for store. A nil store yields a recorder
// that does nothing.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logging.NewComponentLogger(logger, "history")}
}

// FromRenderJob converts a render job into its history row.
func FromRenderJob(job *renderjob.Job) Job {
	return Job{
		ID:          job.ID,
		Source:      job.Source,
		Animation:   job.Animation,
		Multiview:   job.Multiview,
		ViewWidth:   job.ViewWidth,
		ViewHeight:  job.ViewHeight,
		Rows:        job.Rows,
		Columns:     job.Columns,
		TotalViews:  job.TotalViews,
		ViewCone:    job.ViewCone,
		QuiltAspect: job.QuiltAspect,
		FrameStart:  job.FrameStart,
		FrameEnd:    job.FrameEnd,
		FrameStep:   job.FrameStep,
		OutputPath:  job.OutputPath,
	}
}

func (r *Recorder) JobStarted(ctx context.Context, job *renderjob.Job) {
	if r.store == nil {
		return
	}
	r.warn(job, "begin", r.store.Begin(ctx, FromRenderJob(job)))
}

func (r *Recorder) ViewCompleted(ctx context.Context, job *renderjob.Job, progress float64) {
	if r.store == nil {
		return
	}
	r.warn(job, "progress", r.store.UpdateProgress(ctx, job.ID, progress))
}

func (r *Recorder) QuiltWritten(ctx context.Context, job *renderjob.Job, path string) {
	if r.store == nil {
		return
	}
	q := Quilt{JobID: job.ID, Frame: job.Frame, Path: path}
	if info, err := os.Stat(path); err == nil {
		q.SizeBytes = info.Size()
	}
	r.warn(job, "quilt", r.store.AddQuilt(ctx, q))
}

func (r *Recorder) JobFinished(ctx context.Context, job *renderjob.Job, outcome renderjob.Outcome) {
	if r.store == nil {
		return
	}
	err := r.store.Finish(ctx, job.ID, outcome.Status.String(), outcome.Message, outcome.Err)
	if errors.Is(err, services.ErrNotFound) {
		// Discarded jobs that never reached the history have nothing to close.
		r.logger.Debug("job not in history", logging.String(logging.FieldJobID, job.ID))
		return
	}
	r.warn(job, "finish", err)
}

func (r *Recorder) warn(job *renderjob.Job, op string, err error) {
	if err == nil {
		return
	}
	logging.WarnWithContext(r.logger, "history update failed", "history_write_failed",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check permissions of paths.history_db"),
		logging.String(logging.FieldImpact, "render continues; history for this job is incomplete"),
	)
}
