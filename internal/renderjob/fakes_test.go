package renderjob

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"quiltrender/internal/camerarig"
	"quiltrender/internal/quilt"
	"quiltrender/internal/recovery"
)

type fakeScene struct {
	identity string
	active   string
	cameras  map[string]camerarig.CameraState
	views    map[string]string
	frames   []int
	seed     int
	hasSeed  bool
	settings Settings
	applied  []Settings
}

func newFakeScene() *fakeScene {
	return &fakeScene{
		identity: "/scenes/orbit.toml",
		active:   "Camera",
		cameras: map[string]camerarig.CameraState{
			"Camera": {
				Location: camerarig.Vec3{Z: 10},
				Scale:    camerarig.Vec3{X: 1, Y: 1, Z: 1},
				Lens:     camerarig.Lens{FOV: 0.8, FocalPlane: 10},
			},
		},
		views:   map[string]string{},
		seed:    10,
		hasSeed: true,
		settings: Settings{
			ResolutionX: 1920, ResolutionY: 1080,
			PixelAspectX: 1, PixelAspectY: 1,
			FileFormat: "PNG", UseFileExtension: true,
			Seed: 10, HasSeed: true,
		},
	}
}

func (s *fakeScene) Identity() string { return s.identity }

func (s *fakeScene) SetFrame(frame int, _ float64) error {
	s.frames = append(s.frames, frame)
	return nil
}

func (s *fakeScene) Seed() (int, bool) { return s.seed, s.hasSeed }

func (s *fakeScene) SetSeed(seed int) { s.seed = seed }

func (s *fakeScene) Settings() Settings { return s.settings }

func (s *fakeScene) ApplySettings(settings Settings) error {
	s.settings = settings
	s.seed = settings.Seed
	s.applied = append(s.applied, settings)
	return nil
}

func (s *fakeScene) ActiveCamera() string { return s.active }

func (s *fakeScene) SetActiveCamera(name string) error {
	if _, ok := s.cameras[name]; !ok {
		return fmt.Errorf("no camera %q", name)
	}
	s.active = name
	return nil
}

func (s *fakeScene) Camera(name string) (camerarig.CameraState, error) {
	c, ok := s.cameras[name]
	if !ok {
		return camerarig.CameraState{}, fmt.Errorf("no camera %q", name)
	}
	return c, nil
}

func (s *fakeScene) AddCamera(name, from string) error {
	c, ok := s.cameras[from]
	if !ok {
		return fmt.Errorf("no camera %q", from)
	}
	s.cameras[name] = c
	return nil
}

func (s *fakeScene) UpdateCamera(name string, location camerarig.Vec3, shiftX, shiftY float64) error {
	c, ok := s.cameras[name]
	if !ok {
		return fmt.Errorf("no camera %q", name)
	}
	c.Location = location
	c.Lens.ShiftX = shiftX
	c.Lens.ShiftY = shiftY
	s.cameras[name] = c
	return nil
}

func (s *fakeScene) RemoveCamera(name string) error {
	delete(s.cameras, name)
	return nil
}

func (s *fakeScene) AddRenderView(name, suffix string) error {
	s.views[name] = suffix
	return nil
}

func (s *fakeScene) RemoveRenderView(name string) error {
	delete(s.views, name)
	return nil
}

func (s *fakeScene) cameraNames() []string {
	names := make([]string, 0, len(s.cameras))
	for name := range s.cameras {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fakeRenderer renders synchronously: every hook fires before Render returns.
type fakeRenderer struct {
	scene        *fakeScene
	hooks        Hooks
	requests     []Request
	seeds        []int
	startErr     error
	cancelAtView int
	failAtView   int
	failErr      error
	skipPost     bool
	buffer       func(req Request) quilt.Buffer
}

func newFakeRenderer(scene *fakeScene) *fakeRenderer {
	return &fakeRenderer{scene: scene, cancelAtView: -1, failAtView: -1}
}

func (r *fakeRenderer) Subscribe(h Hooks) func() {
	r.hooks = h
	return func() { r.hooks = nil }
}

func (r *fakeRenderer) Render(_ context.Context, req Request) error {
	if r.startErr != nil {
		return r.startErr
	}
	r.requests = append(r.requests, req)
	r.seeds = append(r.seeds, r.scene.seed)
	h := r.hooks
	h.OnInit()
	h.OnPre()
	if req.View == r.cancelAtView {
		h.OnCancel()
		return nil
	}
	if req.View == r.failAtView {
		h.OnFailed(r.failErr)
		return nil
	}
	if !r.skipPost {
		h.OnPost(r.render(req))
	}
	h.OnComplete()
	return nil
}

func (r *fakeRenderer) render(req Request) quilt.Buffer {
	if r.buffer != nil {
		return r.buffer(req)
	}
	return viewBuffer(req.Frame, req.View)
}

// viewBuffer returns a 2x2 RGBA buffer whose samples encode frame and view.
func viewBuffer(frame, view int) quilt.Buffer {
	buf := quilt.NewBuffer(2, 2, 4)
	for i := range buf.Pix {
		buf.Pix[i] = float32(frame*100 + view)
	}
	return buf
}

type memFiles struct {
	files     map[string]quilt.Buffer
	removed   []string
	failWrite map[string]bool
}

func newMemFiles() *memFiles {
	return &memFiles{files: map[string]quilt.Buffer{}, failWrite: map[string]bool{}}
}

func (f *memFiles) Write(path string, buf quilt.Buffer) error {
	if f.failWrite[path] {
		return errors.New("disk full")
	}
	f.files[path] = buf
	return nil
}

func (f *memFiles) Read(path string) (quilt.Buffer, error) {
	buf, ok := f.files[path]
	if !ok {
		return quilt.Buffer{}, fmt.Errorf("open %s: no such file", path)
	}
	return buf, nil
}

func (f *memFiles) Remove(path string) error {
	if _, ok := f.files[path]; ok {
		delete(f.files, path)
		f.removed = append(f.removed, path)
	}
	return nil
}

func (f *memFiles) has(path string) bool {
	_, ok := f.files[path]
	return ok
}

type memStore struct {
	records  []recovery.Record
	removed  bool
	failErr  error
	onWrite  func(recovery.Record)
	removals int
}

func (s *memStore) Write(rec recovery.Record) error {
	if s.failErr != nil {
		return s.failErr
	}
	if s.onWrite != nil {
		s.onWrite(rec)
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memStore) Remove(string) error {
	s.removed = true
	s.removals++
	return nil
}

func (s *memStore) views() []int {
	out := make([]int, len(s.records))
	for i, rec := range s.records {
		out[i] = rec.View
	}
	return out
}

type recordingObserver struct {
	started  int
	progress []float64
	quilts   []string
	outcomes []Outcome
	onView   func(job *Job)
}

func (o *recordingObserver) JobStarted(context.Context, *Job) { o.started++ }

func (o *recordingObserver) ViewCompleted(_ context.Context, job *Job, progress float64) {
	o.progress = append(o.progress, progress)
	if o.onView != nil {
		o.onView(job)
	}
}

func (o *recordingObserver) QuiltWritten(_ context.Context, _ *Job, path string) {
	o.quilts = append(o.quilts, path)
}

func (o *recordingObserver) JobFinished(_ context.Context, _ *Job, outcome Outcome) {
	o.outcomes = append(o.outcomes, outcome)
}

func baseParams() Params {
	return Params{
		Source:      "/scenes/orbit.toml",
		ViewWidth:   2,
		ViewHeight:  2,
		Rows:        2,
		Columns:     2,
		TotalViews:  4,
		ViewCone:    40,
		QuiltAspect: 0.75,
		Frame:       1,
		FrameStart:  1,
		FrameEnd:    1,
		FrameStep:   1,
		Output:      "/renders/orbit",
		AddSuffix:   true,
	}
}

type harness struct {
	scene    *fakeScene
	renderer *fakeRenderer
	files    *memFiles
	store    *memStore
	observer *recordingObserver
	machine  *Machine
}

func newHarness(t *testing.T, job *Job) *harness {
	t.Helper()
	scene := newFakeScene()
	h := &harness{
		scene:    scene,
		renderer: newFakeRenderer(scene),
		files:    newMemFiles(),
		store:    &memStore{},
		observer: &recordingObserver{},
	}
	m, err := NewMachine(Config{
		Job:       job,
		Scene:     scene,
		Renderer:  h.renderer,
		Files:     h.files,
		Store:     h.store,
		Observers: []Observer{h.observer},
	})
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	h.renderer.Subscribe(m)
	h.machine = m
	return h
}

func mustJob(t *testing.T, mutate func(*Params)) *Job {
	t.Helper()
	params := baseParams()
	if mutate != nil {
		mutate(&params)
	}
	job, err := NewJob(params, newFakeScene().settings)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	return job
}

func (h *harness) run(t *testing.T) Outcome {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		if h.machine.Tick(ctx) {
			return h.machine.Outcome()
		}
	}
	t.Fatal("machine did not finish within 1000 ticks")
	return Outcome{}
}
