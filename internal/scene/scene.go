package scene

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"quiltrender/internal/camerarig"
	"quiltrender/internal/imageio"
	"quiltrender/internal/renderjob"
	"quiltrender/internal/services"
)

// Sphere is a sphere at a given frame.
type Sphere struct {
	Name   string
	Center camerarig.Vec3
	Radius float64
	Color  [4]float64
}

type sphereTrack struct {
	name     string
	center   camerarig.Vec3
	velocity camerarig.Vec3
	radius   float64
	color    [4]float64
}

// Scene is a loaded scene. It is safe for concurrent use.
type Scene struct {
	mu sync.RWMutex

	identity   string
	name       string
	frameStart int
	frameEnd   int
	frame      int
	subframe   float64
	seed       int
	hasSeed    bool
	background [4]float64
	settings   renderjob.Settings

	active  string
	cameras map[string]camerarig.CameraState
	order   []string
	views   map[string]string
	spheres []sphereTrack
}

// Load reads the scene file at path. The scene identity is the absolute path.
func Load(path string) (*Scene, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scene", "resolve path", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scene", "read scene", abs, err)
	}
	return Parse(data, abs)
}

// Parse decodes a TOML scene and validates it.
func Parse(data []byte, identity string) (*Scene, error) {
	var doc Document
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&doc); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scene", "parse scene", identity, err)
	}
	return FromDocument(doc, identity)
}

// FromDocument builds a scene from an already decoded document.
func FromDocument(doc Document, identity string) (*Scene, error) {
	doc.normalize(identity)
	if err := doc.validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "scene", "validate scene", identity, err)
	}

	s := &Scene{
		identity:   identity,
		name:       doc.Name,
		frameStart: doc.FrameStart,
		frameEnd:   doc.FrameEnd,
		frame:      doc.FrameCurrent,
		background: doc.Render.Background,
		active:     doc.ActiveCamera,
		cameras:    make(map[string]camerarig.CameraState, len(doc.Cameras)),
		views:      make(map[string]string),
	}
	if doc.Seed != nil {
		s.seed = *doc.Seed
		s.hasSeed = true
	}
	s.settings = renderjob.Settings{
		ResolutionX:      doc.Render.ResolutionX,
		ResolutionY:      doc.Render.ResolutionY,
		PixelAspectX:     doc.Render.PixelAspectX,
		PixelAspectY:     doc.Render.PixelAspectY,
		FileFormat:       doc.Render.FileFormat,
		UseFileExtension: *doc.Render.UseFileExtension,
		Seed:             s.seed,
		HasSeed:          s.hasSeed,
	}
	for _, c := range doc.Cameras {
		s.cameras[c.Name] = camerarig.CameraState{
			Location: vec(c.Location),
			Rotation: radians(vec(c.Rotation)),
			Scale:    vec(c.Scale),
			Lens: camerarig.Lens{
				FOV:        c.FOV * math.Pi / 180,
				ShiftX:     c.ShiftX,
				ShiftY:     c.ShiftY,
				FocalPlane: c.FocalPlane,
			},
		}
		s.order = append(s.order, c.Name)
	}
	for _, sp := range doc.Spheres {
		s.spheres = append(s.spheres, sphereTrack{
			name:     sp.Name,
			center:   vec(sp.Center),
			velocity: vec(sp.Velocity),
			radius:   sp.Radius,
			color:    sp.Color,
		})
	}
	return s, nil
}

func (d *Document) normalize(identity string) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		d.Name = strings.TrimSuffix(filepath.Base(identity), filepath.Ext(identity))
	}
	if d.FrameStart == 0 && d.FrameEnd == 0 {
		d.FrameStart, d.FrameEnd = 1, 1
	}
	if d.FrameCurrent == 0 {
		d.FrameCurrent = d.FrameStart
	}
	if d.Render.ResolutionX == 0 {
		d.Render.ResolutionX = 1920
	}
	if d.Render.ResolutionY == 0 {
		d.Render.ResolutionY = 1080
	}
	if d.Render.PixelAspectX == 0 {
		d.Render.PixelAspectX = 1
	}
	if d.Render.PixelAspectY == 0 {
		d.Render.PixelAspectY = 1
	}
	d.Render.FileFormat = strings.ToUpper(strings.TrimSpace(d.Render.FileFormat))
	if d.Render.FileFormat == "" {
		d.Render.FileFormat = "PNG"
	}
	if d.Render.UseFileExtension == nil {
		enabled := true
		d.Render.UseFileExtension = &enabled
	}
	if d.ActiveCamera == "" && len(d.Cameras) > 0 {
		d.ActiveCamera = d.Cameras[0].Name
	}
	for i := range d.Cameras {
		c := &d.Cameras[i]
		if c.Scale == [3]float64{} {
			c.Scale = [3]float64{1, 1, 1}
		}
		if c.FOV == 0 {
			c.FOV = 39.6
		}
		if c.FocalPlane == 0 {
			c.FocalPlane = 10
		}
	}
	for i := range d.Spheres {
		sp := &d.Spheres[i]
		if sp.Color == [4]float64{} {
			sp.Color = [4]float64{0.8, 0.8, 0.8, 1}
		}
		if sp.Color[3] == 0 {
			sp.Color[3] = 1
		}
	}
}

func (d Document) validate() error {
	var problems []string
	if d.FrameEnd < d.FrameStart {
		problems = append(problems, fmt.Sprintf("frame_end %d before frame_start %d", d.FrameEnd, d.FrameStart))
	}
	if d.Render.ResolutionX < 0 || d.Render.ResolutionY < 0 {
		problems = append(problems, "resolution must be positive")
	}
	if _, ok := imageio.LookupFormat(d.Render.FileFormat); !ok {
		problems = append(problems, fmt.Sprintf("unsupported file_format %q", d.Render.FileFormat))
	}
	if len(d.Cameras) == 0 {
		problems = append(problems, "scene has no cameras")
	}
	seen := make(map[string]struct{}, len(d.Cameras))
	for i, c := range d.Cameras {
		switch {
		case strings.TrimSpace(c.Name) == "":
			problems = append(problems, fmt.Sprintf("cameras[%d] has no name", i))
		case strings.HasPrefix(c.Name, camerarig.TempCameraName):
			problems = append(problems, fmt.Sprintf("camera name %q is reserved", c.Name))
		}
		if _, dup := seen[c.Name]; dup {
			problems = append(problems, fmt.Sprintf("duplicate camera %q", c.Name))
		}
		seen[c.Name] = struct{}{}
		if c.FOV <= 0 || c.FOV >= 180 {
			problems = append(problems, fmt.Sprintf("camera %q fov %v outside (0,180)", c.Name, c.FOV))
		}
		if c.FocalPlane <= 0 {
			problems = append(problems, fmt.Sprintf("camera %q focal_plane must be positive", c.Name))
		}
	}
	if len(d.Cameras) > 0 {
		if _, ok := seen[d.ActiveCamera]; !ok {
			problems = append(problems, fmt.Sprintf("active_camera %q not defined", d.ActiveCamera))
		}
	}
	for i, sp := range d.Spheres {
		if sp.Radius <= 0 {
			problems = append(problems, fmt.Sprintf("spheres[%d] radius must be positive", i))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// Identity returns the absolute scene file path.
func (s *Scene) Identity() string { return s.identity }

// Name returns the scene name.
func (s *Scene) Name() string { return s.name }

// FrameRange returns the scene's animation range.
func (s *Scene) FrameRange() (start, end int) {
	return s.frameStart, s.frameEnd
}

// Frame returns the current frame.
func (s *Scene) Frame() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frame
}

func (s *Scene) SetFrame(frame int, subframe float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = frame
	s.subframe = subframe
	return nil
}

func (s *Scene) Seed() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seed, s.hasSeed
}

func (s *Scene) SetSeed(seed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasSeed {
		s.seed = seed
	}
}

func (s *Scene) Settings() renderjob.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings := s.settings
	settings.Seed = s.seed
	settings.HasSeed = s.hasSeed
	return settings
}

func (s *Scene) ApplySettings(settings renderjob.Settings) error {
	if settings.ResolutionX <= 0 || settings.ResolutionY <= 0 {
		return fmt.Errorf("invalid resolution %dx%d", settings.ResolutionX, settings.ResolutionY)
	}
	if _, ok := imageio.LookupFormat(settings.FileFormat); !ok {
		return fmt.Errorf("unsupported file format %q", settings.FileFormat)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	if s.hasSeed && settings.HasSeed {
		s.seed = settings.Seed
	}
	return nil
}

// Background returns the clear color.
func (s *Scene) Background() [4]float64 { return s.background }

// Spheres returns the spheres positioned at frame and subframe.
func (s *Scene) Spheres(frame int, subframe float64) []Sphere {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := float64(frame-s.frameStart) + subframe
	out := make([]Sphere, len(s.spheres))
	for i, sp := range s.spheres {
		out[i] = Sphere{
			Name: sp.name,
			Center: camerarig.Vec3{
				X: sp.center.X + sp.velocity.X*t,
				Y: sp.center.Y + sp.velocity.Y*t,
				Z: sp.center.Z + sp.velocity.Z*t,
			},
			Radius: sp.radius,
			Color:  sp.color,
		}
	}
	return out
}

// Subframe returns the current subframe offset.
func (s *Scene) Subframe() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subframe
}

func (s *Scene) ActiveCamera() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Scene) SetActiveCamera(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cameras[name]; !ok {
		return fmt.Errorf("%w: camera %q", services.ErrNotFound, name)
	}
	s.active = name
	return nil
}

func (s *Scene) Camera(name string) (camerarig.CameraState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cameras[name]
	if !ok {
		return camerarig.CameraState{}, fmt.Errorf("%w: camera %q", services.ErrNotFound, name)
	}
	return c, nil
}

// CameraNames lists cameras in definition order, temporary cameras last.
func (s *Scene) CameraNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// AddCamera copies the camera from into a new camera called name. An existing
// camera of that name is replaced.
func (s *Scene) AddCamera(name, from string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cameras[from]
	if !ok {
		return fmt.Errorf("%w: camera %q", services.ErrNotFound, from)
	}
	if _, exists := s.cameras[name]; !exists {
		s.order = append(s.order, name)
	}
	s.cameras[name] = c
	return nil
}

func (s *Scene) UpdateCamera(name string, location camerarig.Vec3, shiftX, shiftY float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cameras[name]
	if !ok {
		return fmt.Errorf("%w: camera %q", services.ErrNotFound, name)
	}
	c.Location = location
	c.Lens.ShiftX = shiftX
	c.Lens.ShiftY = shiftY
	s.cameras[name] = c
	return nil
}

// RemoveCamera deletes a camera. Removing an unknown camera is a no-op.
func (s *Scene) RemoveCamera(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cameras[name]; !ok {
		return nil
	}
	delete(s.cameras, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.active == name {
		s.active = ""
		if len(s.order) > 0 {
			s.active = s.order[0]
		}
	}
	return nil
}

func (s *Scene) AddRenderView(name, cameraSuffix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[name] = cameraSuffix
	return nil
}

func (s *Scene) RemoveRenderView(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.views, name)
	return nil
}

// RenderViews returns the render view names in sorted order.
func (s *Scene) RenderViews() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.views))
	for name := range s.views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func vec(v [3]float64) camerarig.Vec3 {
	return camerarig.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

func radians(v camerarig.Vec3) camerarig.Vec3 {
	const k = math.Pi / 180
	return camerarig.Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}
