package ggrender

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/gogpu/gg"

	"quiltrender/internal/imageio"
	"quiltrender/internal/logging"
	"quiltrender/internal/quilt"
	"quiltrender/internal/renderjob"
	"quiltrender/internal/scene"
)

// Options tune the renderer.
type Options struct {
	// Shading draws spheres with a radial highlight instead of flat color.
	Shading bool
	Logger  *slog.Logger
}

// Renderer renders one view at a time from a scene.
type Renderer struct {
	scene   *scene.Scene
	shading bool
	logger  *slog.Logger

	mu     sync.Mutex
	nextID int
	hooks  map[int]renderjob.Hooks
	wg     sync.WaitGroup
}

// New returns a renderer for s.
func New(s *scene.Scene, opts Options) *Renderer {
	return &Renderer{
		scene:   s,
		shading: opts.Shading,
		logger:  logging.NewComponentLogger(opts.Logger, "ggrender"),
		hooks:   make(map[int]renderjob.Hooks),
	}
}

// Subscribe registers h for lifecycle callbacks.
func (r *Renderer) Subscribe(h renderjob.Hooks) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.hooks[id] = h
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.hooks, id)
			r.mu.Unlock()
		})
	}
}

// frame is everything a render needs, captured before the goroutine starts so
// the scene can change while the view is drawn.
type frame struct {
	projection Projection
	spheres    []scene.Sphere
	background [4]float64
	width      int
	height     int
}

// Render captures the scene state for req and draws it in the background.
func (r *Renderer) Render(ctx context.Context, req renderjob.Request) error {
	if req.Width <= 0 || req.Height <= 0 {
		return fmt.Errorf("invalid view size %dx%d", req.Width, req.Height)
	}
	cam, err := r.scene.Camera(req.Camera)
	if err != nil {
		return err
	}
	settings := r.scene.Settings()
	f := frame{
		projection: NewProjection(cam, req.Width, req.Height, settings.PixelAspectX, settings.PixelAspectY),
		spheres:    r.scene.Spheres(r.scene.Frame(), r.scene.Subframe()),
		background: r.scene.Background(),
		width:      req.Width,
		height:     req.Height,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(ctx, req, f)
	}()
	return nil
}

// Wait blocks until every started render has reported back.
func (r *Renderer) Wait() {
	r.wg.Wait()
}

func (r *Renderer) run(ctx context.Context, req renderjob.Request, f frame) {
	r.emit(func(h renderjob.Hooks) { h.OnInit() })
	if ctx.Err() != nil {
		r.emit(func(h renderjob.Hooks) { h.OnCancel() })
		return
	}
	r.emit(func(h renderjob.Hooks) { h.OnPre() })

	buf, err := r.draw(f)
	if ctx.Err() != nil {
		r.emit(func(h renderjob.Hooks) { h.OnCancel() })
		return
	}
	if err != nil {
		logging.ErrorWithContext(r.logger, "view render failed", "render_failed",
			logging.Int(logging.FieldFrame, req.Frame),
			logging.Int(logging.FieldView, req.View),
			logging.Error(err),
		)
		r.emit(func(h renderjob.Hooks) { h.OnFailed(err) })
		return
	}
	r.emit(func(h renderjob.Hooks) { h.OnPost(buf) })
	r.emit(func(h renderjob.Hooks) { h.OnComplete() })
}

func (r *Renderer) emit(call func(renderjob.Hooks)) {
	r.mu.Lock()
	ids := make([]int, 0, len(r.hooks))
	for id := range r.hooks {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	hooks := make([]renderjob.Hooks, 0, len(ids))
	for _, id := range ids {
		hooks = append(hooks, r.hooks[id])
	}
	r.mu.Unlock()

	for _, h := range hooks {
		call(h)
	}
}

type placedSphere struct {
	x, y, rx, ry, depth float64
	color               [4]float64
}

func (r *Renderer) draw(f frame) (quilt.Buffer, error) {
	dc := gg.NewContext(f.width, f.height)
	defer dc.Close()

	bg := f.background
	dc.ClearWithColor(gg.RGBA{R: bg[0], G: bg[1], B: bg[2], A: bg[3]})

	placed := make([]placedSphere, 0, len(f.spheres))
	for _, sp := range f.spheres {
		x, y, depth, ok := f.projection.Point(sp.Center)
		if !ok || depth <= sp.Radius {
			continue
		}
		rx, ry := f.projection.Radius(sp.Radius, depth)
		placed = append(placed, placedSphere{x: x, y: y, rx: rx, ry: ry, depth: depth, color: sp.Color})
	}
	// Painter's order: farthest first.
	sort.SliceStable(placed, func(i, j int) bool { return placed[i].depth > placed[j].depth })

	for _, p := range placed {
		c := p.color
		if r.shading {
			radius := math.Max(p.rx, p.ry)
			brush := gg.NewRadialGradientBrush(p.x-0.35*p.rx, p.y-0.35*p.ry, 0, 1.35*radius).
				AddColorStop(0, gg.RGBA{R: lighten(c[0]), G: lighten(c[1]), B: lighten(c[2]), A: c[3]}).
				AddColorStop(1, gg.RGBA{R: c[0] * 0.35, G: c[1] * 0.35, B: c[2] * 0.35, A: c[3]})
			dc.SetFillBrush(brush)
		} else {
			dc.SetRGBA(c[0], c[1], c[2], c[3])
		}
		dc.DrawEllipse(p.x, p.y, p.rx, p.ry)
		if err := dc.Fill(); err != nil {
			return quilt.Buffer{}, fmt.Errorf("fill sphere: %w", err)
		}
	}
	if err := dc.FlushGPU(); err != nil {
		return quilt.Buffer{}, fmt.Errorf("flush: %w", err)
	}
	return imageio.FromImage(dc.Image()), nil
}

func lighten(v float64) float64 {
	return v + (1-v)*0.6
}
