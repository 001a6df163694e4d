package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"quiltrender/internal/logging"
	"quiltrender/internal/renderjob"
	"quiltrender/internal/services"
	"quiltrender/internal/workflow"
)

type renderOptions struct {
	animate   bool
	resume    bool
	discard   bool
	multiview bool
	keepViews bool
	overwrite bool
	output    string
	preset    string
	device    string
	frameStep int
	json      bool
}

type renderResult struct {
	JobID     string       `json:"job_id,omitempty"`
	Scene     string       `json:"scene"`
	Mode      string       `json:"mode"`
	Status    string       `json:"status"`
	Message   string       `json:"message,omitempty"`
	Quilts    []quiltEntry `json:"quilts"`
	ErrorKind string       `json:"error_kind,omitempty"`
	Error     string       `json:"error,omitempty"`
}

type quiltEntry struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render <scene.toml>",
		Short: "Render a scene into a quilt image",
		Long: `Render a scene into a quilt image, or a sequence of quilts with --animate.

An interrupted job leaves a recovery record behind. Continue it with --resume
or delete it and its partial files with --discard-lockfile.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, ctx, args[0], opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.animate, "animate", false, "Render one quilt per frame of the scene's frame range")
	flags.BoolVar(&opts.resume, "resume", false, "Continue the interrupted render job of the scene")
	flags.BoolVar(&opts.discard, "discard-lockfile", false, "Delete the interrupted render job of the scene and its files")
	flags.BoolVar(&opts.multiview, "multiview", false, "Render every view through a dedicated camera per view")
	flags.BoolVar(&opts.keepViews, "keep-views", false, "Keep the individual view images next to the quilt")
	flags.BoolVar(&opts.overwrite, "overwrite", false, "Replace quilt files that already exist (defaults to render.overwrite)")
	flags.StringVarP(&opts.output, "output", "o", "", "Quilt output path; a trailing separator renders to a temporary name in that directory")
	flags.StringVar(&opts.preset, "preset", "", "Quilt preset (defaults to render.preset)")
	flags.StringVar(&opts.device, "device", "", "Display device (defaults to render.device)")
	flags.IntVar(&opts.frameStep, "frame-step", 1, "Frame increment for animations")
	flags.BoolVar(&opts.json, "json", false, "Print the result as JSON")
	cmd.MarkFlagsMutuallyExclusive("resume", "discard-lockfile")

	return cmd
}

func runRender(cmd *cobra.Command, ctx *commandContext, scenePath string, opts renderOptions) error {
	if opts.frameStep < 1 {
		return services.Wrap(services.ErrValidation, "cli", "render", "--frame-step must be at least 1", nil)
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	showProgress := !opts.json && isTerminal(stdout)
	logger, logPath, err := ctx.runLogger(cmd.ErrOrStderr(), showProgress)
	if err != nil {
		return err
	}

	store, err := ctx.openHistory()
	if err != nil {
		logging.WarnWithContext(logger, "render history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this job is not recorded in history"),
		)
		store = nil
	}
	if store != nil {
		defer store.Close()
	}

	req := workflow.Request{
		ScenePath: scenePath,
		Mode:      requestMode(opts),
		Animation: opts.animate,
		Multiview: opts.multiview,
		FrameStep: opts.frameStep,
		Output:    opts.output,
		Preset:    opts.preset,
		Device:    opts.device,
		KeepViews: opts.keepViews,
		Overwrite: opts.overwrite,
	}
	tracker := &jobTracker{}
	req.Observers = append(req.Observers, tracker)
	if showProgress {
		req.Observers = append(req.Observers, newProgressObserver(stdout))
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager := workflow.NewManager(cfg, store, logger)
	outcome, runErr := manager.Run(runCtx, req)

	if err := manager.Housekeeping(context.WithoutCancel(runCtx), logPath); err != nil {
		logging.WarnWithContext(logger, "housekeeping failed", "housekeeping_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "old logs and history rows are kept until the next run"),
		)
	}

	if runErr != nil {
		if opts.json {
			_ = writeJSON(cmd, renderResult{
				Scene:     scenePath,
				Mode:      req.Mode.String(),
				Status:    renderjob.StatusFailed.String(),
				Quilts:    []quiltEntry{},
				ErrorKind: services.Kind(runErr),
				Error:     runErr.Error(),
			})
		}
		return runErr
	}

	result := renderResult{
		JobID:   tracker.jobID,
		Scene:   scenePath,
		Mode:    req.Mode.String(),
		Status:  outcome.Status.String(),
		Message: outcome.Message,
		Quilts:  quiltEntries(outcome.Quilts),
	}
	if outcome.Err != nil {
		result.ErrorKind = services.Kind(outcome.Err)
		result.Error = outcome.Err.Error()
	}
	if opts.json {
		if err := writeJSON(cmd, result); err != nil {
			return err
		}
	} else {
		printRenderResult(stdout, result)
	}
	return outcomeError(req.Mode, outcome)
}

func requestMode(opts renderOptions) workflow.Mode {
	switch {
	case opts.resume:
		return workflow.ModeResume
	case opts.discard:
		return workflow.ModeDiscard
	default:
		return workflow.ModeNew
	}
}

// outcomeError maps a finished job to the command error. A discard ends in
// the cancelled state but is what the user asked for.
func outcomeError(mode workflow.Mode, outcome renderjob.Outcome) error {
	switch outcome.Status {
	case renderjob.StatusCompleted:
		return nil
	case renderjob.StatusCancelled:
		if mode == workflow.ModeDiscard {
			return nil
		}
		return errCancelled
	default:
		if outcome.Err != nil {
			return outcome.Err
		}
		return errors.New(outcome.Message)
	}
}

func quiltEntries(paths []string) []quiltEntry {
	entries := make([]quiltEntry, 0, len(paths))
	for _, path := range paths {
		entry := quiltEntry{Path: path}
		if info, err := os.Stat(path); err == nil {
			entry.SizeBytes = info.Size()
		}
		entries = append(entries, entry)
	}
	return entries
}

func printRenderResult(w io.Writer, result renderResult) {
	fmt.Fprintln(w, result.Message)
	for _, q := range result.Quilts {
		fmt.Fprintf(w, "  %s (%s)\n", q.Path, logging.FormatBytes(q.SizeBytes))
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// jobTracker remembers the ID of the job the manager started.
type jobTracker struct {
	jobID string
}

func (t *jobTracker) JobStarted(_ context.Context, job *renderjob.Job) { t.jobID = job.ID }

func (t *jobTracker) ViewCompleted(context.Context, *renderjob.Job, float64) {}

func (t *jobTracker) QuiltWritten(context.Context, *renderjob.Job, string) {}

func (t *jobTracker) JobFinished(_ context.Context, job *renderjob.Job, _ renderjob.Outcome) {
	if job != nil && t.jobID == "" {
		t.jobID = job.ID
	}
}
