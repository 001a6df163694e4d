package camerarig

import "math"

// Lens holds the projection parameters of a camera. FOV is the full field of
// view in radians along the larger sensor dimension; shifts are fractions of
// that dimension.
type Lens struct {
	FOV        float64
	ShiftX     float64
	ShiftY     float64
	FocalPlane float64
}

// CameraState is the transform and lens of a host camera.
type CameraState struct {
	Location Vec3
	Rotation Vec3
	Scale    Vec3
	Lens     Lens
}

// World returns the camera's world matrix including scale.
func (s CameraState) World() Mat4 {
	return Compose(s.Location, s.Rotation, s.Scale)
}

// Snapshot is the base camera captured once per frame. It is never mutated;
// per-view poses are derived from it.
type Snapshot struct {
	// View is the world matrix with the object scale removed.
	View     Mat4
	Inverse  Mat4
	Location Vec3
	Lens     Lens
}

// NewSnapshot captures state. Scale is divided out of the world matrix so
// offsets are measured in world units regardless of the camera object's
// scale.
func NewSnapshot(state CameraState) Snapshot {
	view := state.World().Mul(Scaling(Vec3{
		X: reciprocal(state.Scale.X),
		Y: reciprocal(state.Scale.Y),
		Z: reciprocal(state.Scale.Z),
	}))
	return Snapshot{
		View:     view,
		Inverse:  view.InverseSafe(),
		Location: state.Location,
		Lens:     state.Lens,
	}
}

func reciprocal(v float64) float64 {
	if v == 0 {
		return 1
	}
	return 1 / v
}

// Pose is the derived camera of one view.
type Pose struct {
	View     int
	Angle    float64
	Offset   float64
	Location Vec3
	ShiftX   float64
	ShiftY   float64
}

// OffsetAngle returns the viewing angle (radians) of view within a cone of
// viewCone degrees. View 0 looks from +cone/2, the last view from -cone/2.
func OffsetAngle(viewCone float64, view, totalViews int) float64 {
	if totalViews <= 1 {
		return 0
	}
	return (0.5 - float64(view)/float64(totalViews-1)) * viewCone * math.Pi / 180
}

// ComputeViewPose derives the camera of view from the base snapshot: the
// camera moves along its own horizontal axis by -offset and the horizontal
// lens shift re-centres the focal plane.
func ComputeViewPose(base Snapshot, viewCone float64, view, totalViews int) Pose {
	lens := base.Lens
	cameraSize := lens.FocalPlane * math.Tan(lens.FOV/2)
	angle := OffsetAngle(viewCone, view, totalViews)
	offset := lens.FocalPlane * math.Tan(angle)

	local := base.Inverse.Apply(base.Location)
	moved := Translation(Vec3{X: -offset}).Apply(local)
	location := base.View.Apply(moved)

	shift := lens.ShiftX
	if cameraSize != 0 {
		shift += 0.5 * offset / cameraSize
	}
	return Pose{
		View:     view,
		Angle:    angle,
		Offset:   offset,
		Location: location,
		ShiftX:   shift,
		ShiftY:   lens.ShiftY,
	}
}

// ComputePoses returns the poses of every view in order.
func ComputePoses(base Snapshot, viewCone float64, totalViews int) []Pose {
	poses := make([]Pose, totalViews)
	for view := range poses {
		poses[view] = ComputeViewPose(base, viewCone, view, totalViews)
	}
	return poses
}

// PixelAspect returns the pixel aspect that stretches a view of resX x resY
// to the display aspect of the target device.
func PixelAspect(resX, resY int, deviceAspect float64) (x, y float64) {
	if resX <= 0 || resY <= 0 || deviceAspect <= 0 {
		return 1, 1
	}
	rx, ry := float64(resX), float64(resY)
	if (rx/ry)/deviceAspect > 1 {
		return 1, rx / (ry * deviceAspect)
	}
	return (ry * deviceAspect) / rx, 1
}
