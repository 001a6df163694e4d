package renderjob

import (
	"context"
	"fmt"
)

// Status is the final state of a job.
type Status int

const (
	StatusCompleted Status = iota
	StatusCancelled
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome describes how a job ended.
type Outcome struct {
	Status  Status
	Message string
	Err     error
	// Quilts lists the quilt files written, in frame order.
	Quilts []string
}

// Observer is notified about job progress. Calls happen on the goroutine
// driving the machine.
type Observer interface {
	JobStarted(ctx context.Context, job *Job)
	ViewCompleted(ctx context.Context, job *Job, progress float64)
	QuiltWritten(ctx context.Context, job *Job, path string)
	JobFinished(ctx context.Context, job *Job, outcome Outcome)
}

// Observers fans every notification out to each member in order.
type Observers []Observer

func (o Observers) JobStarted(ctx context.Context, job *Job) {
	for _, obs := range o {
		if obs != nil {
			obs.JobStarted(ctx, job)
		}
	}
}

func (o Observers) ViewCompleted(ctx context.Context, job *Job, progress float64) {
	for _, obs := range o {
		if obs != nil {
			obs.ViewCompleted(ctx, job, progress)
		}
	}
}

func (o Observers) QuiltWritten(ctx context.Context, job *Job, path string) {
	for _, obs := range o {
		if obs != nil {
			obs.QuiltWritten(ctx, job, path)
		}
	}
}

func (o Observers) JobFinished(ctx context.Context, job *Job, outcome Outcome) {
	for _, obs := range o {
		if obs != nil {
			obs.JobFinished(ctx, job, outcome)
		}
	}
}
