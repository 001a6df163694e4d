package camerarig

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// TempCameraName names the temporary camera(s) created by the rig.
	TempCameraName = "_quilt_render_cam"
	// RenderViewPrefix prefixes the render views registered in multiview mode.
	RenderViewPrefix = "quilt_v"
)

// Mode selects how the rig maps poses onto host cameras.
type Mode int

const (
	// ModeSingle reuses one temporary camera and moves it per view.
	ModeSingle Mode = iota
	// ModeMultiview allocates one camera and one render view per index.
	ModeMultiview
)

func (m Mode) String() string {
	if m == ModeMultiview {
		return "multiview"
	}
	return "single"
}

// CameraHost is the part of the scene host the rig needs.
type CameraHost interface {
	ActiveCamera() string
	SetActiveCamera(name string) error
	Camera(name string) (CameraState, error)
	AddCamera(name, from string) error
	UpdateCamera(name string, location Vec3, shiftX, shiftY float64) error
	RemoveCamera(name string) error
	AddRenderView(name, cameraSuffix string) error
	RemoveRenderView(name string) error
}

// Rig owns the temporary cameras of a render job.
type Rig struct {
	host       CameraHost
	mode       Mode
	viewCone   float64
	totalViews int

	ready    bool
	original string
	snapshot Snapshot
	poses    []Pose
	cameras  []string
	views    []string
}

// New constructs a rig for totalViews views spread over viewCone degrees.
func New(host CameraHost, mode Mode, viewCone float64, totalViews int) *Rig {
	return &Rig{host: host, mode: mode, viewCone: viewCone, totalViews: totalViews}
}

// Mode reports the rig mode.
func (r *Rig) Mode() Mode { return r.mode }

// Ready reports whether Setup ran since the last Release.
func (r *Rig) Ready() bool { return r.ready }

// Snapshot returns the base camera captured by Setup.
func (r *Rig) Snapshot() Snapshot { return r.snapshot }

// Cameras returns the names of the temporary cameras.
func (r *Rig) Cameras() []string {
	return append([]string(nil), r.cameras...)
}

// Setup captures the active camera as the base snapshot and creates the
// temporary camera entities. In multiview mode all poses are computed here.
func (r *Rig) Setup() error {
	if r.ready {
		return nil
	}
	if r.host == nil {
		return errors.New("camera rig: no host")
	}
	if r.totalViews <= 0 {
		return fmt.Errorf("camera rig: invalid view count %d", r.totalViews)
	}

	r.original = r.host.ActiveCamera()
	if r.original == "" {
		return errors.New("camera rig: scene has no active camera")
	}
	state, err := r.host.Camera(r.original)
	if err != nil {
		return fmt.Errorf("camera rig: read camera %q: %w", r.original, err)
	}
	r.snapshot = NewSnapshot(state)
	r.poses = ComputePoses(r.snapshot, r.viewCone, r.totalViews)
	r.ready = true

	switch r.mode {
	case ModeMultiview:
		for view, pose := range r.poses {
			label := r.label(view)
			name := TempCameraName + "_v" + label
			if err := r.host.AddCamera(name, r.original); err != nil {
				return fmt.Errorf("camera rig: add camera %q: %w", name, err)
			}
			r.cameras = append(r.cameras, name)
			if err := r.host.UpdateCamera(name, pose.Location, pose.ShiftX, pose.ShiftY); err != nil {
				return fmt.Errorf("camera rig: update camera %q: %w", name, err)
			}
			viewName := RenderViewPrefix + label
			if err := r.host.AddRenderView(viewName, "_v"+label); err != nil {
				return fmt.Errorf("camera rig: add render view %q: %w", viewName, err)
			}
			r.views = append(r.views, viewName)
		}
	default:
		if err := r.host.AddCamera(TempCameraName, r.original); err != nil {
			return fmt.Errorf("camera rig: add camera %q: %w", TempCameraName, err)
		}
		r.cameras = append(r.cameras, TempCameraName)
	}
	return r.host.SetActiveCamera(r.cameras[0])
}

// Apply prepares the host to render view and returns its pose together with
// the camera that carries it.
func (r *Rig) Apply(view int) (Pose, string, error) {
	if !r.ready {
		return Pose{}, "", errors.New("camera rig: apply before setup")
	}
	if view < 0 || view >= r.totalViews {
		return Pose{}, "", fmt.Errorf("camera rig: view %d out of range [0,%d)", view, r.totalViews)
	}
	pose := r.poses[view]

	var camera string
	if r.mode == ModeMultiview {
		camera = r.cameras[view]
	} else {
		camera = r.cameras[0]
		if err := r.host.UpdateCamera(camera, pose.Location, pose.ShiftX, pose.ShiftY); err != nil {
			return Pose{}, "", fmt.Errorf("camera rig: update camera %q: %w", camera, err)
		}
	}
	if err := r.host.SetActiveCamera(camera); err != nil {
		return Pose{}, "", fmt.Errorf("camera rig: activate camera %q: %w", camera, err)
	}
	return pose, camera, nil
}

// Release removes every temporary camera and render view and restores the
// original active camera. It is safe to call repeatedly.
func (r *Rig) Release() error {
	if r.host == nil {
		return nil
	}
	var errs []error
	if r.original != "" {
		if err := r.host.SetActiveCamera(r.original); err != nil {
			errs = append(errs, fmt.Errorf("restore camera %q: %w", r.original, err))
		}
	}
	for _, name := range r.cameras {
		if err := r.host.RemoveCamera(name); err != nil {
			errs = append(errs, fmt.Errorf("remove camera %q: %w", name, err))
		}
	}
	for _, name := range r.views {
		if err := r.host.RemoveRenderView(name); err != nil {
			errs = append(errs, fmt.Errorf("remove render view %q: %w", name, err))
		}
	}
	r.cameras = nil
	r.views = nil
	r.poses = nil
	r.ready = false
	return errors.Join(errs...)
}

func (r *Rig) label(view int) string {
	last := r.totalViews - 1
	if last < 0 {
		last = 0
	}
	return fmt.Sprintf("%0*d", len(strconv.Itoa(last)), view)
}
