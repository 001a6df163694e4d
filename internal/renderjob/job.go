package renderjob

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"quiltrender/internal/camerarig"
	"quiltrender/internal/imageio"
	"quiltrender/internal/quilt"
	"quiltrender/internal/quiltpath"
	"quiltrender/internal/recovery"
	"quiltrender/internal/services"
)

// State is the position of the machine in the capture cycle.
type State int

const (
	StateInvoke State = iota
	StateIdle
	StateInit
	StatePre
	StatePost
	StateComplete
	StateCancel
)

func (s State) String() string {
	switch s {
	case StateInvoke:
		return "invoke"
	case StateIdle:
		return "idle"
	case StateInit:
		return "init"
	case StatePre:
		return "pre"
	case StatePost:
		return "post"
	case StateComplete:
		return "complete"
	case StateCancel:
		return "cancel"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Settings are the host render settings touched by a job.
type Settings = recovery.Settings

// Params describe a new render job.
type Params struct {
	Source      string  `validate:"required"`
	Animation   bool
	Multiview   bool
	ViewWidth   int     `validate:"gt=0"`
	ViewHeight  int     `validate:"gt=0"`
	Rows        int     `validate:"gt=0"`
	Columns     int     `validate:"gt=0"`
	TotalViews  int     `validate:"gt=0"`
	ViewCone    float64 `validate:"gt=0,lt=180"`
	QuiltAspect float64 `validate:"gt=0"`
	RowOrder    quilt.RowOrder

	// Frame is the frame rendered by a still job.
	Frame        int
	FrameStart   int
	FrameEnd     int `validate:"gtefield=FrameStart"`
	FrameStep    int `validate:"gte=1"`
	AnimatedSeed bool

	Output    string
	AddSuffix bool
	KeepViews bool
	// Overwrite allows replacing quilt files that already exist.
	Overwrite bool
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func paramsValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterStructValidation(func(sl validator.StructLevel) {
			p := sl.Current().Interface().(Params)
			if p.Rows > 0 && p.Columns > 0 && p.TotalViews != p.Rows*p.Columns {
				sl.ReportError(p.TotalViews, "TotalViews", "TotalViews", "grid", fmt.Sprintf("%dx%d", p.Columns, p.Rows))
			}
		}, Params{})
	})
	return validate
}

// Validate checks the parameters and reports every violation at once.
func (p Params) Validate() error {
	if err := paramsValidator().Struct(p); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describeFieldError(fe))
			}
			return services.Wrap(services.ErrValidation, "renderjob", "validate params", strings.Join(msgs, "; "), nil)
		}
		return services.Wrap(services.ErrValidation, "renderjob", "validate params", "", err)
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "grid":
		return fmt.Sprintf("total views %v must equal columns x rows (%s)", fe.Value(), fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be before %s", fe.Field(), fe.Param())
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	default:
		return fmt.Sprintf("%s fails %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	}
}

// Job is the state of one render invocation. The machine owns it while the
// job runs.
type Job struct {
	ID        string
	Source    string
	Animation bool
	Multiview bool

	ViewWidth   int
	ViewHeight  int
	Rows        int
	Columns     int
	TotalViews  int
	ViewCone    float64
	QuiltAspect float64
	RowOrder    quilt.RowOrder

	Frame    int
	Subframe float64
	View     int
	Seed     int
	// Init is set when the camera rig has to be built before the next view.
	Init bool

	FrameStart   int
	FrameEnd     int
	FrameStep    int
	AnimatedSeed bool

	OutputPath  string
	Dir         string
	Base        string
	Ext         string
	AddSuffix   bool
	UseTempName bool
	ForceKeep   bool
	KeepViews   bool
	Overwrite   bool

	// Settings are the host settings in effect before the job changed them.
	Settings Settings
	// CreatedAt is when the job was first prepared. Resumed jobs keep it.
	CreatedAt time.Time

	resumePending bool
}

// NewJob validates params and builds a job starting at its first view.
// settings are the current host settings.
func NewJob(params Params, settings Settings) (*Job, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	format, ok := imageio.LookupFormat(settings.FileFormat)
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "renderjob", "output format",
			fmt.Sprintf("unsupported file format %q", settings.FileFormat), nil)
	}
	out := quiltpath.SplitOutput(params.Output, format.Extension, settings.UseFileExtension)
	if err := checkExtension(out.Ext, format); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           uuid.NewString(),
		Source:       params.Source,
		Animation:    params.Animation,
		Multiview:    params.Multiview,
		ViewWidth:    params.ViewWidth,
		ViewHeight:   params.ViewHeight,
		Rows:         params.Rows,
		Columns:      params.Columns,
		TotalViews:   params.TotalViews,
		ViewCone:     params.ViewCone,
		QuiltAspect:  params.QuiltAspect,
		RowOrder:     params.RowOrder,
		Frame:        params.Frame,
		Init:         true,
		FrameStart:   params.FrameStart,
		FrameEnd:     params.FrameEnd,
		FrameStep:    params.FrameStep,
		AnimatedSeed: params.AnimatedSeed,
		OutputPath:   params.Output,
		Dir:          out.Dir,
		Base:         out.Base,
		Ext:          out.Ext,
		AddSuffix:    params.AddSuffix,
		UseTempName:  out.UseTempName,
		KeepViews:    params.KeepViews,
		Overwrite:    params.Overwrite,
		Settings:     settings,
		CreatedAt:    time.Now().UTC().Round(0),
		Seed:         settings.Seed,
	}
	if job.Animation {
		job.Frame = job.FrameStart
	} else {
		job.FrameStart = job.Frame
		job.FrameEnd = job.Frame
	}
	return job, nil
}

// checkExtension rejects an output extension the host would not write for
// format: a missing one, an unknown one, or one of another format.
func checkExtension(ext string, format imageio.Format) error {
	var detail string
	switch other, known := imageio.FormatForPath(ext); {
	case ext == "":
		detail = "output path has no file extension"
	case format.Accepts(ext):
		return nil
	case known:
		detail = fmt.Sprintf("extension %q is %s but the scene writes %s", ext, other.Name, format.Name)
	default:
		detail = fmt.Sprintf("unsupported extension %q", ext)
	}
	return services.Wrap(services.ErrConfiguration, "renderjob", "output extension", detail, nil)
}

// Layout returns the file naming layout of the job.
func (j *Job) Layout() quiltpath.Layout {
	return quiltpath.Layout{
		Dir:        j.Dir,
		Base:       j.Base,
		Ext:        j.Ext,
		AddSuffix:  j.AddSuffix,
		Columns:    j.Columns,
		Rows:       j.Rows,
		Aspect:     j.QuiltAspect,
		TotalViews: j.TotalViews,
		Animation:  j.Animation,
		FrameEnd:   j.FrameEnd,
	}
}

// ViewPath returns the file of view in the current frame.
func (j *Job) ViewPath(view int) string {
	return j.Layout().ViewPath(view, j.Frame)
}

// QuiltPath returns the quilt file of the current frame.
func (j *Job) QuiltPath() string {
	return j.Layout().QuiltPath(j.Frame)
}

// LastView reports whether the current view is the last of its frame.
func (j *Job) LastView() bool {
	return j.View >= j.TotalViews-1
}

// NextFrame returns the frame after the current one and whether it lies in
// the range.
func (j *Job) NextFrame() (int, bool) {
	if !j.Animation {
		return j.Frame, false
	}
	next := j.Frame + j.FrameStep
	return next, next <= j.FrameEnd
}

// Frames lists every frame the job renders.
func (j *Job) Frames() []int {
	if !j.Animation {
		return []int{j.Frame}
	}
	step := j.FrameStep
	if step < 1 {
		step = 1
	}
	var frames []int
	for f := j.FrameStart; f <= j.FrameEnd; f += step {
		frames = append(frames, f)
	}
	return frames
}

// Progress returns the completed fraction in [0,1] after the current view.
func (j *Job) Progress() float64 {
	var p float64
	switch {
	case !j.Animation && j.TotalViews <= 1:
		p = 1
	case !j.Animation:
		p = float64(j.View) / float64(j.TotalViews-1)
	case j.TotalViews <= 1:
		p = float64(j.Frame-j.FrameStart+1) / float64(j.FrameEnd-j.FrameStart+1)
	default:
		done := (j.Frame-j.FrameStart)*(j.TotalViews-1) + j.View
		p = float64(done) / float64((j.TotalViews-1)*(j.FrameEnd-j.FrameStart+1))
	}
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// ActiveSeed returns the render seed of the current view.
func (j *Job) ActiveSeed() int {
	if j.AnimatedSeed {
		return j.Seed + j.Frame + j.View
	}
	return j.Seed + j.View
}

// Resuming reports whether finished views still have to be reloaded.
func (j *Job) Resuming() bool { return j.resumePending }

// RenderSettings returns the host settings used while the job renders.
func (j *Job) RenderSettings() Settings {
	s := j.Settings
	s.ResolutionX = j.ViewWidth
	s.ResolutionY = j.ViewHeight
	s.PixelAspectX, s.PixelAspectY = camerarig.PixelAspect(j.ViewWidth, j.ViewHeight, j.QuiltAspect)
	return s
}

// RigMode returns the camera rig mode of the job.
func (j *Job) RigMode() camerarig.Mode {
	if j.Multiview {
		return camerarig.ModeMultiview
	}
	return camerarig.ModeSingle
}
