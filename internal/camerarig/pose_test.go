package camerarig

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func nearVec(a, b Vec3) bool { return near(a.X, b.X) && near(a.Y, b.Y) && near(a.Z, b.Z) }

func baseState() CameraState {
	return CameraState{
		Location: Vec3{X: 1, Y: -10, Z: 2},
		Rotation: Vec3{X: math.Pi / 2},
		Scale:    Vec3{X: 1, Y: 1, Z: 1},
		Lens:     Lens{FOV: 50 * math.Pi / 180, FocalPlane: 5},
	}
}

func TestViewConeScenarioOffsets(t *testing.T) {
	snap := NewSnapshot(baseState())
	angles := []float64{20, 10, 0, -10, -20}
	for view, deg := range angles {
		pose := ComputeViewPose(snap, 40, view, len(angles))
		wantAngle := deg * math.Pi / 180
		if !near(pose.Angle, wantAngle) {
			t.Fatalf("view %d: angle %v, want %v", view, pose.Angle, wantAngle)
		}
		if want := 5 * math.Tan(wantAngle); !near(pose.Offset, want) {
			t.Fatalf("view %d: offset %v, want %v", view, pose.Offset, want)
		}
	}
}

func TestOffsetsMonotonicAndAntisymmetric(t *testing.T) {
	snap := NewSnapshot(baseState())
	for _, total := range []int{2, 5, 8, 45, 48} {
		poses := ComputePoses(snap, 40, total)
		for i := 1; i < total; i++ {
			if poses[i].Offset >= poses[i-1].Offset {
				t.Fatalf("total %d: offset not decreasing at view %d", total, i)
			}
		}
		for i := 0; i < total; i++ {
			mirror := poses[total-1-i].Offset
			if !near(poses[i].Offset, -mirror) {
				t.Fatalf("total %d: offset %d (%v) not antisymmetric to %v", total, i, poses[i].Offset, mirror)
			}
		}
		if total%2 == 1 && poses[total/2].Offset != 0 {
			t.Fatalf("total %d: middle view offset %v, want 0", total, poses[total/2].Offset)
		}
	}
}

func TestSingleViewHasZeroOffset(t *testing.T) {
	snap := NewSnapshot(baseState())
	pose := ComputeViewPose(snap, 40, 0, 1)
	if pose.Offset != 0 || pose.Angle != 0 {
		t.Fatalf("expected zero offset, got angle=%v offset=%v", pose.Angle, pose.Offset)
	}
	if !nearVec(pose.Location, baseState().Location) {
		t.Fatalf("expected base location, got %+v", pose.Location)
	}
	if pose.ShiftX != 0 {
		t.Fatalf("expected base shift, got %v", pose.ShiftX)
	}
}

func TestPoseMovesAlongCameraLocalXAxis(t *testing.T) {
	state := baseState()
	// Rotate the camera 90 degrees around Z: its local X axis points along world +Y.
	state.Rotation = Vec3{X: math.Pi / 2, Z: math.Pi / 2}
	state.Scale = Vec3{X: 2, Y: 3, Z: 4}
	snap := NewSnapshot(state)

	pose := ComputeViewPose(snap, 40, 0, 5)
	delta := pose.Location.Sub(state.Location)
	want := Vec3{Y: -pose.Offset}
	if !nearVec(delta, want) {
		t.Fatalf("displacement %+v, want %+v", delta, want)
	}
	if !near(delta.Length(), math.Abs(pose.Offset)) {
		t.Fatalf("scale leaked into displacement: %v vs %v", delta.Length(), pose.Offset)
	}
}

func TestShiftRecentresFocalPlane(t *testing.T) {
	state := baseState()
	state.Lens.ShiftX = 0.1
	snap := NewSnapshot(state)
	pose := ComputeViewPose(snap, 40, 1, 5)

	cameraSize := state.Lens.FocalPlane * math.Tan(state.Lens.FOV/2)
	want := 0.1 + 0.5*pose.Offset/cameraSize
	if !near(pose.ShiftX, want) {
		t.Fatalf("shift %v, want %v", pose.ShiftX, want)
	}
}

func TestInverse(t *testing.T) {
	m := Compose(Vec3{X: 1, Y: 2, Z: 3}, Vec3{X: 0.3, Y: -0.4, Z: 1.1}, Vec3{X: 2, Y: 2, Z: 0.5})
	inv, ok := m.Inverse()
	if !ok {
		t.Fatal("expected invertible matrix")
	}
	p := Vec3{X: -4, Y: 0.5, Z: 9}
	if got := inv.Apply(m.Apply(p)); !nearVec(got, p) {
		t.Fatalf("round trip %+v, want %+v", got, p)
	}

	singular := Scaling(Vec3{X: 1, Y: 0, Z: 1})
	if _, ok := singular.Inverse(); ok {
		t.Fatal("expected singular matrix to fail")
	}
	if singular.InverseSafe() != Identity() {
		t.Fatal("expected identity from InverseSafe on singular matrix")
	}
}

func TestPixelAspect(t *testing.T) {
	tests := []struct {
		name   string
		rx, ry int
		aspect float64
		wantX  float64
		wantY  float64
	}{
		{"view wider than device", 420, 560, 0.5, 1, 420.0 / (560 * 0.5)},
		{"matching aspect", 420, 560, 0.75, 1, 1},
		{"view narrower than device", 600, 455, 1.8, (455 * 1.8) / 600, 1},
		{"invalid input", 0, 10, 1, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := PixelAspect(tt.rx, tt.ry, tt.aspect)
			if !near(x, tt.wantX) || !near(y, tt.wantY) {
				t.Fatalf("PixelAspect = (%v, %v), want (%v, %v)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}
