package workflow

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"quiltrender/internal/logging"
	"quiltrender/internal/renderjob"
)

// progressLogger writes sampled progress lines for a job.
type progressLogger struct {
	logger  *slog.Logger
	sampler *logging.ProgressSampler
}

func newProgressLogger(logger *slog.Logger) *progressLogger {
	return &progressLogger{logger: logger, sampler: logging.NewProgressSampler(10)}
}

func (p *progressLogger) JobStarted(_ context.Context, job *renderjob.Job) {
	p.sampler.Reset()
	p.logger.Info("rendering quilt",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldEventType, "job_started"),
		logging.String("quilt_size", strconv.Itoa(job.Columns)+"x"+strconv.Itoa(job.Rows)),
		logging.String("view_size", strconv.Itoa(job.ViewWidth)+"x"+strconv.Itoa(job.ViewHeight)),
		logging.Int("views", job.TotalViews),
		logging.Int("frames", len(job.Frames())),
	)
}

func (p *progressLogger) ViewCompleted(_ context.Context, job *renderjob.Job, progress float64) {
	percent := progress * 100
	stage := "frame " + strconv.Itoa(job.Frame)
	if !p.sampler.ShouldLog(percent, stage) {
		return
	}
	p.logger.Info("render progress",
		logging.String(logging.FieldJobID, job.ID),
		logging.Int(logging.FieldFrame, job.Frame),
		logging.String(logging.FieldEventType, "render_progress"),
		logging.String(logging.FieldProgressStage, stage),
		logging.Float64(logging.FieldProgressPercent, percent),
		logging.String(logging.FieldProgressMessage, "view "+strconv.Itoa(job.View+1)+" of "+strconv.Itoa(job.TotalViews)),
	)
}

func (p *progressLogger) QuiltWritten(_ context.Context, job *renderjob.Job, path string) {
	attrs := []logging.Attr{
		logging.String(logging.FieldJobID, job.ID),
		logging.Int(logging.FieldFrame, job.Frame),
		logging.String(logging.FieldEventType, "quilt_saved"),
		logging.String("output", path),
	}
	if info, err := os.Stat(path); err == nil {
		attrs = append(attrs, logging.Int64("size_bytes", info.Size()))
	}
	p.logger.Info("quilt saved", logging.Args(attrs...)...)
}

func (p *progressLogger) JobFinished(context.Context, *renderjob.Job, renderjob.Outcome) {}
