package history

import "time"

// Status values stored in the jobs table.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Job is one row of the jobs table.
type Job struct {
	ID            string     `json:"id"`
	Source        string     `json:"source"`
	Animation     bool       `json:"animation"`
	Multiview     bool       `json:"multiview"`
	ViewWidth     int        `json:"view_width"`
	ViewHeight    int        `json:"view_height"`
	Rows          int        `json:"rows"`
	Columns       int        `json:"columns"`
	TotalViews    int        `json:"total_views"`
	ViewCone      float64    `json:"view_cone"`
	QuiltAspect   float64    `json:"quilt_aspect"`
	FrameStart    int        `json:"frame_start"`
	FrameEnd      int        `json:"frame_end"`
	FrameStep     int        `json:"frame_step"`
	OutputPath    string     `json:"output_path,omitempty"`
	Status        string     `json:"status"`
	Message       string     `json:"message,omitempty"`
	ErrorKind     string     `json:"error_kind,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	Progress      float64    `json:"progress"`
	ViewsRendered int        `json:"views_rendered"`
	Resumed       int        `json:"resumed"`
	StartedAt     time.Time  `json:"started_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// Quilt is one written quilt file of a job.
type Quilt struct {
	JobID     string    `json:"job_id"`
	Frame     int       `json:"frame"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// Finished reports whether the job has reached a final status.
func (j Job) Finished() bool {
	return j.Status != StatusRunning
}

// Duration returns the wall time of the job so far.
func (j Job) Duration() time.Duration {
	end := j.UpdatedAt
	if j.FinishedAt != nil {
		end = *j.FinishedAt
	}
	if end.Before(j.StartedAt) {
		return 0
	}
	return end.Sub(j.StartedAt)
}
