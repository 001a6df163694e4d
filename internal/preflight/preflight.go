package preflight

import (
	"strings"

	"quiltrender/internal/config"
	"quiltrender/internal/renderjob"
	"quiltrender/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks for starting job with cfg.
func RunAll(cfg *config.Config, job *renderjob.Job) []Result {
	if cfg == nil || job == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Recovery directory", cfg.Paths.RecoveryDir),
		CheckCreatableDirectory("Output directory", job.Dir),
	}
	if results[1].Passed {
		results = append(results, CheckFreeSpace("Output space", job.Dir, EstimateBytes(job)))
	}
	return append(results, CheckQuiltTargets("Quilt file", job))
}

// EstimateBytes returns an upper bound for the files job writes at once: the
// uncompressed views of one frame plus the quilt, at 16 bits per channel.
func EstimateBytes(job *renderjob.Job) uint64 {
	const bytesPerPixel = 8
	view := uint64(job.ViewWidth) * uint64(job.ViewHeight) * bytesPerPixel
	return view * uint64(job.TotalViews) * 2
}

// Err folds failed results into one configuration error, or nil when every
// check passed.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r.Name+": "+r.Detail)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check", strings.Join(failed, "; "), nil)
}
