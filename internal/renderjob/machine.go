package renderjob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"quiltrender/internal/camerarig"
	"quiltrender/internal/logging"
	"quiltrender/internal/quilt"
	"quiltrender/internal/services"
)

const (
	MessageCancelled         = "Quilt rendering was cancelled."
	MessageStillComplete     = "Complete quilt rendered."
	MessageAnimationComplete = "Complete animation quilt rendered."
	MessageMissingViews      = "Render job can not be continued. Missing view file(s) of the previously failed render job."
	MessageDiscarded         = "Render job discarded."
	MessageFailed            = "Quilt rendering failed."
)

// Config wires a machine to its collaborators.
type Config struct {
	Job      *Job
	Scene    Scene
	Renderer Renderer
	// Files defaults to ImageFiles.
	Files Files
	// Store receives checkpoints. A nil store disables recovery.
	Store     RecordStore
	Observers []Observer
	Logger    *slog.Logger
}

// Machine runs a job. All methods except RequestCancel must be called from
// one goroutine.
type Machine struct {
	job       *Job
	scene     Scene
	renderer  Renderer
	files     Files
	store     RecordStore
	observers Observers
	logger    *slog.Logger
	rig       *camerarig.Rig

	state         State
	buffers       []quilt.Buffer
	quilts        []string
	started       bool
	finished      bool
	discarding    bool
	checkpointing bool
	renderCancel  context.CancelFunc

	reasonSet bool
	reason    Outcome
	outcome   Outcome

	cancelRequested atomic.Bool
}

// NewMachine validates cfg and returns a machine in StateInvoke.
func NewMachine(cfg Config) (*Machine, error) {
	if cfg.Job == nil || cfg.Scene == nil || cfg.Renderer == nil {
		return nil, errors.New("render job requires job, scene, and renderer")
	}
	files := cfg.Files
	if files == nil {
		files = ImageFiles{}
	}
	logger := logging.NewComponentLogger(cfg.Logger, "renderjob").With(
		logging.String(logging.FieldJobID, cfg.Job.ID),
	)
	return &Machine{
		job:           cfg.Job,
		scene:         cfg.Scene,
		renderer:      cfg.Renderer,
		files:         files,
		store:         cfg.Store,
		observers:     Observers(cfg.Observers),
		logger:        logger,
		rig:           camerarig.New(cfg.Scene, cfg.Job.RigMode(), cfg.Job.ViewCone, cfg.Job.TotalViews),
		state:         StateInvoke,
		checkpointing: cfg.Store != nil,
	}, nil
}

// Job returns the job driven by the machine.
func (m *Machine) Job() *Job { return m.job }

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Done reports whether the unwind has run.
func (m *Machine) Done() bool { return m.finished }

// Outcome returns the final outcome. It is only meaningful once Done is true.
func (m *Machine) Outcome() Outcome { return m.outcome }

// RequestCancel asks the machine to stop at the next tick or hook. It is safe
// to call from any goroutine.
func (m *Machine) RequestCancel() {
	m.cancelRequested.Store(true)
}

// Tick advances the machine by one step and reports whether the job is over.
func (m *Machine) Tick(ctx context.Context) bool {
	if m.finished {
		return true
	}
	if !m.started {
		m.start(ctx)
	}
	if m.cancelRequested.Load() {
		m.cancelWith(StatusCancelled, MessageCancelled, nil)
	}

	switch m.state {
	case StateInvoke:
		m.invoke(ctx)
	case StateComplete:
		m.complete(ctx)
	}

	if m.state == StateCancel {
		m.unwind(ctx)
	}
	return m.finished
}

// Discard unwinds a recovered job without rendering anything. Files of the
// interrupted job are deleted even when the record asked to keep them.
func (m *Machine) Discard(ctx context.Context) Outcome {
	if !m.finished {
		m.discarding = true
		m.cancelWith(StatusCancelled, MessageDiscarded, nil)
		m.unwind(ctx)
	}
	return m.outcome
}

func (m *Machine) OnInit() {
	if m.halted() {
		return
	}
	m.state = StateInit
}

func (m *Machine) OnPre() {
	if m.halted() {
		return
	}
	m.state = StatePre
	m.logger.Debug("preparing view",
		logging.Int(logging.FieldFrame, m.job.Frame),
		logging.Int(logging.FieldView, m.job.View),
		logging.String("view_file", m.job.ViewPath(m.job.View)),
		logging.String("quilt_file", m.job.QuiltPath()),
	)
}

func (m *Machine) OnPost(buf quilt.Buffer) {
	if m.halted() {
		return
	}
	m.state = StatePost

	path := m.job.ViewPath(m.job.View)
	if err := m.files.Write(path, buf); err != nil {
		m.fail(services.Wrap(services.ErrIO, "renderjob", "write view", path, err))
		return
	}
	if len(m.buffers) > m.job.View {
		m.buffers = m.buffers[:m.job.View]
	}
	m.buffers = append(m.buffers, buf)
	m.logger.Debug("view saved",
		logging.Int(logging.FieldFrame, m.job.Frame),
		logging.Int(logging.FieldView, m.job.View),
		logging.String("path", path),
	)
}

func (m *Machine) OnComplete() {
	if m.halted() {
		return
	}
	m.state = StateComplete
	m.job.Init = false
}

func (m *Machine) OnCancel() {
	if m.finished {
		return
	}
	m.logger.Info("renderer cancelled the job")
	m.cancelWith(StatusCancelled, MessageCancelled, nil)
}

func (m *Machine) OnFailed(err error) {
	if m.finished {
		return
	}
	m.logger.Info("renderer failed the view",
		logging.Int(logging.FieldFrame, m.job.Frame),
		logging.Int(logging.FieldView, m.job.View),
	)
	m.fail(services.Wrap(services.ErrExternalTool, "renderjob", "render view",
		fmt.Sprintf("frame %d view %d", m.job.Frame, m.job.View), err))
}

// halted reports whether hooks must be ignored. A pending cancel request is
// turned into the cancel state here.
func (m *Machine) halted() bool {
	if m.finished || m.state == StateCancel {
		return true
	}
	if m.cancelRequested.Load() {
		m.cancelWith(StatusCancelled, MessageCancelled, nil)
		return true
	}
	return false
}

func (m *Machine) start(ctx context.Context) {
	m.started = true
	job := m.job

	if err := m.scene.ApplySettings(job.RenderSettings()); err != nil {
		m.fail(services.Wrap(services.ErrExternalTool, "renderjob", "apply render settings", "", err))
		return
	}
	m.observers.JobStarted(ctx, job)
	m.logger.Info("render job started",
		logging.String("source", job.Source),
		logging.Bool("animation", job.Animation),
		logging.String("mode", job.RigMode().String()),
		logging.Int("total_views", job.TotalViews),
		logging.String("quilt_file", job.QuiltPath()),
		logging.Bool("resume", job.Resuming()),
	)
	m.checkpoint(ctx)
}

func (m *Machine) invoke(ctx context.Context) {
	job := m.job
	if job.resumePending {
		job.resumePending = false
		if err := m.reloadViews(); err != nil {
			job.ForceKeep = true
			m.cancelWith(StatusFailed, MessageMissingViews, err)
			return
		}
	}

	if err := m.scene.SetFrame(job.Frame, job.Subframe); err != nil {
		m.fail(services.Wrap(services.ErrExternalTool, "renderjob", "set frame", fmt.Sprintf("frame %d", job.Frame), err))
		return
	}
	m.applySeed()

	if job.Init || !m.rig.Ready() {
		if err := m.rig.Setup(); err != nil {
			m.fail(services.Wrap(services.ErrExternalTool, "renderjob", "camera setup", "", err))
			return
		}
	}
	pose, camera, err := m.rig.Apply(job.View)
	if err != nil {
		m.fail(services.Wrap(services.ErrExternalTool, "renderjob", "camera pose", "", err))
		return
	}

	renderCtx, cancel := context.WithCancel(ctx)
	renderCtx = services.WithJobID(renderCtx, job.ID)
	renderCtx = services.WithFrame(renderCtx, job.Frame)
	renderCtx = services.WithView(renderCtx, job.View)
	if m.renderCancel != nil {
		m.renderCancel()
	}
	m.renderCancel = cancel

	m.state = StateIdle
	req := Request{
		JobID:      job.ID,
		Frame:      job.Frame,
		View:       job.View,
		Camera:     camera,
		Pose:       pose,
		Width:      job.ViewWidth,
		Height:     job.ViewHeight,
		Multiview:  job.Multiview,
		OutputPath: job.ViewPath(job.View),
	}
	m.logger.Info("rendering view",
		logging.Int(logging.FieldFrame, job.Frame),
		logging.Int(logging.FieldView, job.View),
		logging.Int("total_views", job.TotalViews),
		logging.String("camera", camera),
	)
	if err := m.renderer.Render(renderCtx, req); err != nil {
		m.fail(services.Wrap(services.ErrExternalTool, "renderer", "start render", "", err))
	}
}

func (m *Machine) reloadViews() error {
	job := m.job
	m.buffers = m.buffers[:0]
	for view := 0; view < job.View; view++ {
		path := job.ViewPath(view)
		buf, err := m.files.Read(path)
		if err != nil {
			m.logger.Info("view file for continuation not usable",
				logging.Int(logging.FieldView, view),
				logging.String("path", path),
				logging.Error(err),
			)
			return &ResumeError{Reason: fmt.Sprintf("view %d file %s", view, path), Err: err}
		}
		m.buffers = append(m.buffers, buf)
	}
	m.logger.Info("reloaded views of interrupted job",
		logging.Int(logging.FieldFrame, job.Frame),
		logging.Int("views", job.View),
	)
	return nil
}

func (m *Machine) applySeed() {
	seed, ok := m.scene.Seed()
	if !ok {
		return
	}
	if m.job.View == 0 {
		m.job.Seed = seed
	}
	m.scene.SetSeed(m.job.ActiveSeed())
}

func (m *Machine) complete(ctx context.Context) {
	job := m.job
	if job.LastView() {
		if !m.writeQuilt(ctx) {
			return
		}
	}
	m.observers.ViewCompleted(ctx, job, job.Progress())

	if !job.LastView() {
		job.View++
		m.state = StateInvoke
		m.checkpoint(ctx)
		return
	}

	next, ok := job.NextFrame()
	if !ok {
		msg := MessageStillComplete
		if job.Animation {
			msg = MessageAnimationComplete
		}
		m.cancelWith(StatusCompleted, msg, nil)
		return
	}

	if _, hasSeed := m.scene.Seed(); hasSeed {
		m.scene.SetSeed(job.Seed)
	}
	if job.dropsViewsPerFrame() {
		if err := deleteFrameFiles(m.files, job, job.Frame); err != nil {
			logging.WarnWithContext(m.logger, "view cleanup failed", "retention_cleanup_failed",
				logging.Int(logging.FieldFrame, job.Frame),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the view files manually"),
				logging.String(logging.FieldImpact, "view files of the frame remain on disk"),
			)
		}
	}
	if err := m.rig.Release(); err != nil {
		logging.WarnWithContext(m.logger, "camera cleanup failed", "rig_release_failed", logging.Error(err))
	}
	job.Init = true
	job.View = 0
	job.Frame = next
	m.buffers = nil
	m.state = StateInvoke
	m.checkpoint(ctx)
}

func (m *Machine) writeQuilt(ctx context.Context) bool {
	job := m.job
	q, err := quilt.AssembleOrdered(m.buffers, job.Rows, job.Columns, job.RowOrder)
	if err != nil {
		m.fail(services.Wrap(services.ErrAssembly, "renderjob", "assemble quilt", fmt.Sprintf("frame %d", job.Frame), err))
		return false
	}
	path := job.QuiltPath()
	if err := m.files.Write(path, q); err != nil {
		m.fail(services.Wrap(services.ErrIO, "renderjob", "write quilt", path, err))
		return false
	}
	m.quilts = append(m.quilts, path)
	m.logger.Info("quilt written",
		logging.Int(logging.FieldFrame, job.Frame),
		logging.String("path", path),
		logging.Int("width", q.Width),
		logging.Int("height", q.Height),
	)
	m.observers.QuiltWritten(ctx, job, path)
	return true
}

func (m *Machine) checkpoint(ctx context.Context) {
	if !m.checkpointing || m.state == StateCancel {
		return
	}
	if err := m.store.Write(Checkpoint(m.job)); err != nil {
		m.checkpointing = false
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "recovery checkpoint failed", "checkpoint_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the recovery directory is writable"),
			logging.String(logging.FieldImpact, "this job can not be continued after a crash"),
		)
	}
}

func (m *Machine) fail(err error) {
	m.cancelWith(StatusFailed, MessageFailed, err)
}

// cancelWith records the first reason the job stops and enters StateCancel.
func (m *Machine) cancelWith(status Status, message string, err error) {
	if !m.reasonSet {
		m.reasonSet = true
		m.reason = Outcome{Status: status, Message: message, Err: err}
	}
	m.state = StateCancel
}

// unwind releases everything the job touched. It runs once.
func (m *Machine) unwind(ctx context.Context) {
	if m.finished {
		return
	}
	m.finished = true
	job := m.job

	if m.renderCancel != nil {
		m.renderCancel()
		m.renderCancel = nil
	}
	if err := m.rig.Release(); err != nil {
		logging.WarnWithContext(m.logger, "camera cleanup failed", "rig_release_failed", logging.Error(err))
	}
	if m.started {
		if err := m.scene.ApplySettings(job.Settings); err != nil {
			logging.WarnWithContext(m.logger, "restoring render settings failed", "settings_restore_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "scene keeps the quilt render settings"),
			)
		}
	}

	quilts := m.quilts
	if job.dropsFilesOnCancel(m.discarding) {
		m.logger.Info("cleaning up job files", logging.Bool("discard", m.discarding))
		if err := deleteJobFiles(m.files, job); err != nil {
			logging.WarnWithContext(m.logger, "file cleanup failed", "retention_cleanup_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "view files remain on disk"),
			)
		}
		if job.UseTempName && !job.Animation {
			quilts = nil
		}
	}
	if m.store != nil {
		if err := m.store.Remove(job.Source); err != nil {
			logging.WarnWithContext(m.logger, "removing recovery record failed", "record_remove_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "next render of this scene will offer to continue"),
			)
		}
	}
	m.buffers = nil

	m.outcome = m.reason
	if !m.reasonSet {
		m.outcome = Outcome{Status: StatusCancelled, Message: MessageCancelled}
	}
	m.outcome.Quilts = append([]string(nil), quilts...)

	attrs := []logging.Attr{
		logging.String("status", m.outcome.Status.String()),
		logging.String("message", m.outcome.Message),
		logging.Int("quilts", len(m.outcome.Quilts)),
	}
	if m.outcome.Err != nil {
		attrs = append(attrs, logging.Error(m.outcome.Err), logging.String(logging.FieldErrorCode, services.Kind(m.outcome.Err)))
		logging.ErrorWithContext(m.logger, "render job failed", "job_failed", attrs...)
	} else {
		m.logger.Info("render job finished", logging.Args(attrs...)...)
	}
	m.observers.JobFinished(ctx, job, m.outcome)
}
