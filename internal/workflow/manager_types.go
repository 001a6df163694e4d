package workflow

import "quiltrender/internal/renderjob"

// Mode selects what a request does with an existing recovery record.
type Mode int

const (
	// ModeNew starts a fresh job. An existing record is an error.
	ModeNew Mode = iota
	// ModeResume continues the job described by the record.
	ModeResume
	// ModeDiscard deletes the record and the files of the interrupted job.
	ModeDiscard
)

func (m Mode) String() string {
	switch m {
	case ModeResume:
		return "resume"
	case ModeDiscard:
		return "discard"
	default:
		return "new"
	}
}

// Request describes one render invocation.
type Request struct {
	ScenePath string
	Mode      Mode
	Animation bool
	Multiview bool
	// FrameStep is the animation frame increment. Zero means 1.
	FrameStep int
	// Output overrides the quilt path. Empty renders to the scene name in
	// the configured output directory.
	Output string
	// Preset and Device override the configured defaults when set.
	Preset    string
	Device    string
	KeepViews bool
	// Overwrite lets the job replace existing quilt files.
	Overwrite bool
	// Observers receive job events in addition to the history recorder and
	// the progress logger.
	Observers []renderjob.Observer
}
