package renderjob

import (
	"fmt"

	"quiltrender/internal/quilt"
	"quiltrender/internal/recovery"
	"quiltrender/internal/services"
)

// ResumeError explains why a recovery record or its view files could not be
// used to continue a job.
type ResumeError struct {
	Reason string
	Err    error
}

func (e *ResumeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resume: %s: %v", e.Reason, e.Err)
	}
	return "resume: " + e.Reason
}

func (e *ResumeError) Unwrap() []error {
	if e.Err != nil {
		return []error{services.ErrResume, e.Err}
	}
	return []error{services.ErrResume}
}

// Checkpoint snapshots every persistent field of job.
func Checkpoint(job *Job) recovery.Record {
	return recovery.Record{
		Version:      recovery.Version,
		SourceFile:   job.Source,
		JobID:        job.ID,
		Animation:    job.Animation,
		Multiview:    job.Multiview,
		ViewWidth:    job.ViewWidth,
		ViewHeight:   job.ViewHeight,
		Rows:         job.Rows,
		Columns:      job.Columns,
		TotalViews:   job.TotalViews,
		ViewCone:     job.ViewCone,
		QuiltAspect:  job.QuiltAspect,
		RowOrder:     job.RowOrder.String(),
		Frame:        job.Frame,
		Subframe:     job.Subframe,
		View:         job.View,
		Seed:         job.Seed,
		FrameStart:   job.FrameStart,
		FrameEnd:     job.FrameEnd,
		FrameStep:    job.FrameStep,
		AnimatedSeed: job.AnimatedSeed,
		OutputPath:   job.OutputPath,
		Dir:          job.Dir,
		Base:         job.Base,
		Ext:          job.Ext,
		AddSuffix:    job.AddSuffix,
		UseTempName:  job.UseTempName,
		ForceKeep:    job.ForceKeep,
		KeepViews:    job.KeepViews,
		Settings:     job.Settings,
		CreatedAt:    job.CreatedAt,
	}
}

// Resume rebuilds a job from rec for the scene named identity. The returned
// job rebuilds its camera rig and reloads views below rec.View before
// rendering.
func Resume(rec recovery.Record, identity string) (*Job, error) {
	if err := rec.Check(); err != nil {
		return nil, &ResumeError{Reason: "invalid record", Err: err}
	}
	if rec.SourceFile != identity {
		return nil, &ResumeError{Reason: fmt.Sprintf("record belongs to %q, not %q", rec.SourceFile, identity)}
	}
	if err := checkGeometry(rec); err != nil {
		return nil, &ResumeError{Reason: "invalid geometry", Err: err}
	}
	order, err := quilt.ParseRowOrder(rec.RowOrder)
	if err != nil {
		return nil, &ResumeError{Reason: "invalid row order", Err: err}
	}

	return &Job{
		ID:            rec.JobID,
		Source:        rec.SourceFile,
		Animation:     rec.Animation,
		Multiview:     rec.Multiview,
		ViewWidth:     rec.ViewWidth,
		ViewHeight:    rec.ViewHeight,
		Rows:          rec.Rows,
		Columns:       rec.Columns,
		TotalViews:    rec.TotalViews,
		ViewCone:      rec.ViewCone,
		QuiltAspect:   rec.QuiltAspect,
		RowOrder:      order,
		Frame:         rec.Frame,
		Subframe:      rec.Subframe,
		View:          rec.View,
		Seed:          rec.Seed,
		Init:          true,
		FrameStart:    rec.FrameStart,
		FrameEnd:      rec.FrameEnd,
		FrameStep:     rec.FrameStep,
		AnimatedSeed:  rec.AnimatedSeed,
		OutputPath:    rec.OutputPath,
		Dir:           rec.Dir,
		Base:          rec.Base,
		Ext:           rec.Ext,
		AddSuffix:     rec.AddSuffix,
		UseTempName:   rec.UseTempName,
		ForceKeep:     rec.ForceKeep,
		KeepViews:     rec.KeepViews,
		Settings:      rec.Settings,
		CreatedAt:     rec.CreatedAt,
		resumePending: true,
	}, nil
}

func checkGeometry(rec recovery.Record) error {
	switch {
	case rec.ViewWidth <= 0 || rec.ViewHeight <= 0:
		return fmt.Errorf("view size %dx%d", rec.ViewWidth, rec.ViewHeight)
	case rec.Rows <= 0 || rec.Columns <= 0 || rec.TotalViews != rec.Rows*rec.Columns:
		return fmt.Errorf("%d views in a %dx%d grid", rec.TotalViews, rec.Columns, rec.Rows)
	case rec.View < 0 || rec.View >= rec.TotalViews:
		return fmt.Errorf("view %d out of range [0,%d)", rec.View, rec.TotalViews)
	case rec.ViewCone <= 0 || rec.QuiltAspect <= 0:
		return fmt.Errorf("view cone %v, aspect %v", rec.ViewCone, rec.QuiltAspect)
	case rec.FrameStep < 1:
		return fmt.Errorf("frame step %d", rec.FrameStep)
	case rec.Frame < rec.FrameStart || rec.Frame > rec.FrameEnd:
		return fmt.Errorf("frame %d outside [%d,%d]", rec.Frame, rec.FrameStart, rec.FrameEnd)
	case rec.Base == "":
		return fmt.Errorf("record has no output base name")
	}
	return nil
}
