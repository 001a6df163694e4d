package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"quiltrender/internal/renderjob"
)

// progressSteps is the resolution of the terminal progress bar.
const progressSteps = 1000

// progressObserver draws job progress as a terminal progress bar.
type progressObserver struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newProgressObserver(w io.Writer) *progressObserver {
	return &progressObserver{w: w}
}

func (p *progressObserver) JobStarted(_ context.Context, job *renderjob.Job) {
	p.bar = progressbar.NewOptions(progressSteps,
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionSetDescription(describeFrame(job)),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	if job.Resuming() {
		_ = p.bar.Set(int(job.Progress() * progressSteps))
	}
}

func (p *progressObserver) ViewCompleted(_ context.Context, job *renderjob.Job, progress float64) {
	if p.bar == nil {
		return
	}
	p.bar.Describe(describeFrame(job))
	_ = p.bar.Set(int(progress * progressSteps))
}

func (p *progressObserver) QuiltWritten(context.Context, *renderjob.Job, string) {}

func (p *progressObserver) JobFinished(_ context.Context, _ *renderjob.Job, outcome renderjob.Outcome) {
	if p.bar == nil {
		return
	}
	if outcome.Status == renderjob.StatusCompleted {
		_ = p.bar.Finish()
	} else {
		_ = p.bar.Clear()
	}
	p.bar = nil
}

func describeFrame(job *renderjob.Job) string {
	if !job.Animation {
		return "Rendering quilt"
	}
	return fmt.Sprintf("Frame %d/%d", job.Frame, job.FrameEnd)
}
