package renderjob

import "errors"

// dropsFilesOnCancel reports whether the unwind deletes the view files of
// every frame. A still written under the temporary name is treated like a
// preview and never outlives the job.
func (j *Job) dropsFilesOnCancel(discard bool) bool {
	if discard {
		return true
	}
	return (!j.KeepViews || (!j.Animation && j.UseTempName)) && !j.ForceKeep
}

// dropsViewsPerFrame reports whether a finished frame's views are deleted
// before the next frame starts.
func (j *Job) dropsViewsPerFrame() bool {
	return !j.KeepViews && !j.ForceKeep
}

// deleteFrameFiles removes the views of frame and, for a still saved under
// the temporary name, its quilt.
func deleteFrameFiles(files Files, job *Job, frame int) error {
	layout := job.Layout()
	var errs []error
	for _, path := range layout.ViewPaths(frame) {
		if err := files.Remove(path); err != nil {
			errs = append(errs, err)
		}
	}
	if job.UseTempName && !job.Animation {
		if err := files.Remove(layout.QuiltPath(frame)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// deleteJobFiles applies deleteFrameFiles to every frame of the job.
func deleteJobFiles(files Files, job *Job) error {
	var errs []error
	for _, frame := range job.Frames() {
		if err := deleteFrameFiles(files, job, frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
