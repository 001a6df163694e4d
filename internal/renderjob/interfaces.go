package renderjob

import (
	"context"

	"quiltrender/internal/camerarig"
	"quiltrender/internal/quilt"
	"quiltrender/internal/recovery"
)

// Scene is the host document being rendered.
type Scene interface {
	camerarig.CameraHost
	// Identity names the scene file. Recovery records are keyed by it.
	Identity() string
	SetFrame(frame int, subframe float64) error
	// Seed returns the scene seed and whether the host exposes one.
	Seed() (int, bool)
	SetSeed(seed int)
	Settings() Settings
	ApplySettings(Settings) error
}

// Hooks receives the renderer lifecycle callbacks for one render call.
type Hooks interface {
	OnInit()
	OnPre()
	OnPost(buf quilt.Buffer)
	OnComplete()
	OnCancel()
	// OnFailed reports a render that stopped on an error of its own.
	OnFailed(err error)
}

// Request asks the renderer for a single view.
type Request struct {
	JobID      string
	Frame      int
	View       int
	Camera     string
	Pose       camerarig.Pose
	Width      int
	Height     int
	Multiview  bool
	OutputPath string
}

// Renderer produces view pixels. Render starts a render and returns once it
// is under way; the outcome is reported through the subscribed hooks. When ctx
// is cancelled the renderer stops and calls OnCancel; a render that breaks on
// its own calls OnFailed.
type Renderer interface {
	Subscribe(h Hooks) (unsubscribe func())
	Render(ctx context.Context, req Request) error
}

// Files stores view and quilt images.
type Files interface {
	Write(path string, buf quilt.Buffer) error
	Read(path string) (quilt.Buffer, error)
	Remove(path string) error
}

// RecordStore persists recovery checkpoints.
type RecordStore interface {
	Write(rec recovery.Record) error
	Remove(source string) error
}
