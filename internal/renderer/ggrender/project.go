package ggrender

import (
	"math"

	"quiltrender/internal/camerarig"
)

const nearClip = 1e-6

// Projection maps world points to pixel coordinates for one camera. The
// camera looks down its local -Z axis and the field of view spans the larger
// image dimension.
type Projection struct {
	inverse camerarig.Mat4
	tanHalf float64
	shiftX  float64
	shiftY  float64
	width   float64
	height  float64
	aspectX float64
	aspectY float64
	scale   float64
}

// NewProjection prepares a projection of cam into a width x height image with
// the given pixel aspect.
func NewProjection(cam camerarig.CameraState, width, height int, pixelAspectX, pixelAspectY float64) Projection {
	if pixelAspectX <= 0 {
		pixelAspectX = 1
	}
	if pixelAspectY <= 0 {
		pixelAspectY = 1
	}
	snapshot := camerarig.NewSnapshot(cam)
	w := float64(width)
	h := float64(height)
	return Projection{
		inverse: snapshot.Inverse,
		tanHalf: math.Tan(cam.Lens.FOV / 2),
		shiftX:  cam.Lens.ShiftX,
		shiftY:  cam.Lens.ShiftY,
		width:   w,
		height:  h,
		aspectX: pixelAspectX,
		aspectY: pixelAspectY,
		scale:   math.Max(w*pixelAspectX, h*pixelAspectY),
	}
}

// Point projects p. ok is false when p lies behind the camera.
func (p Projection) Point(world camerarig.Vec3) (x, y, depth float64, ok bool) {
	c := p.inverse.Apply(world)
	depth = -c.Z
	if depth <= nearClip {
		return 0, 0, depth, false
	}
	u := c.X / depth / (2 * p.tanHalf)
	v := c.Y / depth / (2 * p.tanHalf)
	x = p.width/2 + (u-p.shiftX)*p.scale/p.aspectX
	y = p.height/2 - (v-p.shiftY)*p.scale/p.aspectY
	return x, y, depth, true
}

// Radius returns the projected horizontal and vertical radius in pixels of a
// sphere of radius r at depth.
func (p Projection) Radius(r, depth float64) (rx, ry float64) {
	n := r / depth / (2 * p.tanHalf) * p.scale
	return n / p.aspectX, n / p.aspectY
}
