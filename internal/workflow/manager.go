package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"quiltrender/internal/config"
	"quiltrender/internal/history"
	"quiltrender/internal/imageio"
	"quiltrender/internal/logging"
	"quiltrender/internal/preflight"
	"quiltrender/internal/presets"
	"quiltrender/internal/recovery"
	"quiltrender/internal/renderer/ggrender"
	"quiltrender/internal/renderjob"
	"quiltrender/internal/scene"
	"quiltrender/internal/services"
)

// Manager runs render requests against one configuration.
type Manager struct {
	cfg     *config.Config
	history *history.Store
	logger  *slog.Logger
}

// NewManager returns a manager. store may be nil to run without history.
func NewManager(cfg *config.Config, store *history.Store, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:     cfg,
		history: store,
		logger:  logging.NewComponentLogger(logger, "workflow"),
	}
}

// Run executes req and returns the job outcome. An error means the job never
// started: the scene, configuration, record or preflight checks were
// unusable, and nothing on disk was changed.
func (m *Manager) Run(ctx context.Context, req Request) (renderjob.Outcome, error) {
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	logger := logging.WithContext(ctx, m.logger)

	if err := m.cfg.EnsureDirectories(); err != nil {
		return renderjob.Outcome{}, services.Wrap(services.ErrConfiguration, "workflow", "prepare directories", "", err)
	}
	sc, err := scene.Load(req.ScenePath)
	if err != nil {
		return renderjob.Outcome{}, err
	}

	records := recovery.NewStore(m.cfg.Paths.RecoveryDir)
	lease, err := records.Acquire(sc.Identity())
	if err != nil {
		return renderjob.Outcome{}, err
	}
	defer func() {
		if err := lease.Release(); err != nil {
			logging.WarnWithContext(logger, "releasing scene lock failed", "lease_release_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove "+lease.Path()+" if no render is running"),
			)
		}
	}()

	hasRecord := records.Exists(sc.Identity())
	attrs := append([]logging.Attr{logging.String("scene", sc.Identity())},
		logging.DecisionAttrs("recovery", req.Mode.String(), recordReason(hasRecord))...)
	logger.Info("render request", logging.Args(attrs...)...)

	var job *renderjob.Job
	switch req.Mode {
	case ModeDiscard:
		if !hasRecord {
			return renderjob.Outcome{}, services.Wrap(services.ErrConfiguration, "workflow", "discard",
				"no interrupted render job for "+filepath.Base(sc.Identity()), nil)
		}
		return m.discard(ctx, sc, records, logger)
	case ModeResume:
		if !hasRecord {
			return renderjob.Outcome{}, services.Wrap(services.ErrConfiguration, "workflow", "resume",
				"no interrupted render job for "+filepath.Base(sc.Identity()), nil)
		}
		rec, err := records.Read(sc.Identity())
		if err != nil {
			return renderjob.Outcome{}, err
		}
		if job, err = renderjob.Resume(rec, sc.Identity()); err != nil {
			return renderjob.Outcome{}, err
		}
	default:
		if hasRecord {
			return renderjob.Outcome{}, services.Wrap(services.ErrConfiguration, "workflow", "start",
				"an interrupted render job exists for "+filepath.Base(sc.Identity())+"; resume it or discard it first", nil)
		}
		if job, err = m.newJob(sc, req); err != nil {
			return renderjob.Outcome{}, err
		}
	}

	results := preflight.RunAll(m.cfg, job)
	for _, r := range results {
		if !r.Passed {
			logger.Error("preflight check failed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_failed"),
				logging.String(logging.FieldErrorHint, "fix the reported path and start the render again"),
			)
		}
	}
	if err := preflight.Err(results); err != nil {
		return renderjob.Outcome{}, err
	}

	ctx = services.WithJobID(ctx, job.ID)
	renderer := ggrender.New(sc, ggrender.Options{Shading: m.cfg.Render.Shading, Logger: m.logger})
	defer renderer.Wait()

	machine, err := renderjob.NewMachine(renderjob.Config{
		Job:       job,
		Scene:     sc,
		Renderer:  renderer,
		Store:     records,
		Observers: m.observers(req),
		Logger:    m.logger,
	})
	if err != nil {
		return renderjob.Outcome{}, services.Wrap(services.ErrConfiguration, "workflow", "build job", "", err)
	}
	return NewLoop(m.cfg.TickInterval(), m.logger).Run(ctx, machine, renderer), nil
}

func (m *Manager) discard(ctx context.Context, sc *scene.Scene, records *recovery.Store, logger *slog.Logger) (renderjob.Outcome, error) {
	discarded := renderjob.Outcome{Status: renderjob.StatusCancelled, Message: renderjob.MessageDiscarded}

	rec, err := records.Read(sc.Identity())
	var job *renderjob.Job
	if err == nil {
		job, err = renderjob.Resume(rec, sc.Identity())
	}
	if err != nil {
		// Unusable records name no files to clean up; drop the record alone.
		logging.WarnWithContext(logger, "discarding unreadable recovery record", "record_discarded",
			logging.Error(err),
			logging.String(logging.FieldImpact, "view files of the interrupted job stay on disk"),
		)
		if rmErr := records.Remove(sc.Identity()); rmErr != nil {
			return renderjob.Outcome{}, rmErr
		}
		return discarded, nil
	}

	renderer := ggrender.New(sc, ggrender.Options{Logger: m.logger})
	machine, err := renderjob.NewMachine(renderjob.Config{
		Job:       job,
		Scene:     sc,
		Renderer:  renderer,
		Store:     records,
		Observers: []renderjob.Observer{history.NewRecorder(m.history, m.logger)},
		Logger:    m.logger,
	})
	if err != nil {
		return renderjob.Outcome{}, services.Wrap(services.ErrConfiguration, "workflow", "build job", "", err)
	}
	return machine.Discard(services.WithJobID(ctx, job.ID)), nil
}

func (m *Manager) newJob(sc *scene.Scene, req Request) (*renderjob.Job, error) {
	catalog, err := presets.Load(m.cfg.Paths.PresetDir, m.logger)
	if err != nil {
		return nil, err
	}
	quiltPreset, err := catalog.Quilt(firstNonEmpty(req.Preset, m.cfg.Render.Preset))
	if err != nil {
		return nil, err
	}
	device, err := catalog.Device(firstNonEmpty(req.Device, m.cfg.Render.Device))
	if err != nil {
		return nil, err
	}

	start, end := sc.FrameRange()
	step := req.FrameStep
	if step == 0 {
		step = 1
	}
	output := req.Output
	if strings.TrimSpace(output) == "" {
		name := filepath.Base(sc.Identity())
		output = filepath.Join(m.cfg.Paths.OutputDir, strings.TrimSuffix(name, filepath.Ext(name)))
		if format, ok := imageio.LookupFormat(sc.Settings().FileFormat); ok {
			output += format.Extension
		}
	} else if expanded, err := config.ExpandPath(output); err == nil {
		// Keep a trailing separator: it asks for a temporary file name.
		if strings.HasSuffix(output, string(filepath.Separator)) {
			expanded += string(filepath.Separator)
		}
		output = expanded
	}

	params := renderjob.Params{
		Source:       sc.Identity(),
		Animation:    req.Animation,
		Multiview:    req.Multiview || m.cfg.Render.Multiview,
		ViewWidth:    quiltPreset.ViewWidth,
		ViewHeight:   quiltPreset.ViewHeight,
		Rows:         quiltPreset.Rows,
		Columns:      quiltPreset.Columns,
		TotalViews:   quiltPreset.TotalViews,
		ViewCone:     device.ViewCone,
		QuiltAspect:  device.Aspect,
		RowOrder:     m.cfg.QuiltRowOrder(),
		Frame:        sc.Frame(),
		FrameStart:   start,
		FrameEnd:     end,
		FrameStep:    step,
		AnimatedSeed: m.cfg.Render.AnimatedSeed,
		Output:       output,
		AddSuffix:    m.cfg.Render.AddSuffix,
		KeepViews:    req.KeepViews || m.cfg.Render.KeepViews,
		Overwrite:    req.Overwrite || m.cfg.Render.Overwrite,
	}
	job, err := renderjob.NewJob(params, sc.Settings())
	if err != nil {
		return nil, err
	}
	m.logger.Info("render job prepared",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("preset", quiltPreset.Name),
		logging.String("device", device.Name),
		logging.String("output", job.QuiltPath()),
	)
	return job, nil
}

func (m *Manager) observers(req Request) []renderjob.Observer {
	observers := []renderjob.Observer{newProgressLogger(m.logger)}
	if m.history != nil {
		observers = append(observers, history.NewRecorder(m.history, m.logger))
	}
	return append(observers, req.Observers...)
}

// Housekeeping prunes log files and history rows older than the configured
// retention. currentLog is never removed.
func (m *Manager) Housekeeping(ctx context.Context, currentLog string) error {
	days := m.cfg.Logging.RetentionDays
	if days <= 0 {
		return nil
	}
	logging.CleanupOldLogs(m.logger, days, logging.RetentionTarget{
		Dir:     m.cfg.Paths.LogDir,
		Pattern: logging.LogFilePattern,
		Exclude: []string{currentLog},
	})
	if m.history == nil {
		return nil
	}
	removed, err := m.history.Prune(ctx, time.Now().AddDate(0, 0, -days))
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	if removed > 0 {
		m.logger.Debug("history pruned", logging.Int64("jobs", removed))
	}
	return nil
}

func recordReason(hasRecord bool) string {
	if hasRecord {
		return "recovery record present"
	}
	return "no recovery record"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
