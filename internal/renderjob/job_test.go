package renderjob

import (
	"errors"
	"math"
	"strings"
	"testing"

	"quiltrender/internal/services"
)

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr string
	}{
		{name: "valid", mutate: func(*Params) {}},
		{name: "grid mismatch", mutate: func(p *Params) { p.TotalViews = 5 }, wantErr: "columns x rows"},
		{name: "missing source", mutate: func(p *Params) { p.Source = "" }, wantErr: "Source is required"},
		{name: "zero width", mutate: func(p *Params) { p.ViewWidth = 0 }, wantErr: "ViewWidth"},
		{name: "view cone too wide", mutate: func(p *Params) { p.ViewCone = 180 }, wantErr: "ViewCone"},
		{name: "frame range reversed", mutate: func(p *Params) { p.FrameStart, p.FrameEnd = 10, 2 }, wantErr: "FrameEnd must not be before FrameStart"},
		{name: "frame step", mutate: func(p *Params) { p.FrameStep = 0 }, wantErr: "FrameStep"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := baseParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %v does not mention %q", err, tt.wantErr)
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestNewJobOutputNaming(t *testing.T) {
	settings := newFakeScene().settings

	settings.FileFormat = "JPEG"
	job, err := NewJob(baseParams(), settings)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.Dir != "/renders" || job.Base != "orbit" || job.Ext != ".jpg" || job.UseTempName {
		t.Fatalf("unexpected naming %+v", job)
	}
	if !job.Init || job.View != 0 || job.Seed != 10 || job.ID == "" {
		t.Fatalf("unexpected initial state %+v", job)
	}

	settings.FileFormat = "OPEN_EXR"
	if _, err := NewJob(baseParams(), settings); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewJobOutputExtension(t *testing.T) {
	tests := []struct {
		name         string
		output       string
		format       string
		useExtension bool
		wantExt      string
		wantErr      string
	}{
		{name: "matching", output: "/renders/orbit.png", format: "PNG", useExtension: true, wantExt: ".png"},
		{name: "alternate spelling", output: "/renders/orbit.JPEG", format: "JPEG", useExtension: false, wantExt: ".JPEG"},
		{name: "added from format", output: "/renders/orbit", format: "TIFF", useExtension: true, wantExt: ".tif"},
		{name: "temp name", output: "/renders/", format: "BMP", useExtension: false, wantExt: ".bmp"},
		{name: "other format", output: "/renders/orbit.jpg", format: "PNG", useExtension: true, wantErr: "is JPEG but the scene writes PNG"},
		{name: "unsupported", output: "/renders/orbit.xyz", format: "PNG", useExtension: true, wantErr: "unsupported extension"},
		{name: "missing", output: "/renders/orbit", format: "PNG", useExtension: false, wantErr: "no file extension"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := newFakeScene().settings
			settings.FileFormat = tt.format
			settings.UseFileExtension = tt.useExtension
			p := baseParams()
			p.Output = tt.output

			job, err := NewJob(p, settings)
			if tt.wantErr != "" {
				if !errors.Is(err, services.ErrConfiguration) || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected configuration error mentioning %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewJob: %v", err)
			}
			if job.Ext != tt.wantExt {
				t.Fatalf("Ext = %q, want %q", job.Ext, tt.wantExt)
			}
		})
	}
}

func TestNewJobFrameRange(t *testing.T) {
	settings := newFakeScene().settings

	p := baseParams()
	p.Frame, p.FrameStart, p.FrameEnd = 7, 1, 250
	still, err := NewJob(p, settings)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if still.Frame != 7 || still.FrameStart != 7 || still.FrameEnd != 7 {
		t.Fatalf("still frame range %d..%d at %d", still.FrameStart, still.FrameEnd, still.Frame)
	}

	p.Animation = true
	anim, err := NewJob(p, settings)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if anim.Frame != 1 || len(anim.Frames()) != 250 {
		t.Fatalf("animation starts at %d with %d frames", anim.Frame, len(anim.Frames()))
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		name string
		job  Job
		want float64
	}{
		{name: "still first view", job: Job{TotalViews: 5, View: 0}, want: 0},
		{name: "still middle view", job: Job{TotalViews: 5, View: 2}, want: 0.5},
		{name: "still last view", job: Job{TotalViews: 5, View: 4}, want: 1},
		{name: "still single view", job: Job{TotalViews: 1}, want: 1},
		{
			name: "animation second frame",
			job:  Job{Animation: true, TotalViews: 5, View: 2, Frame: 2, FrameStart: 1, FrameEnd: 4},
			want: 6.0 / 16,
		},
		{
			name: "animation last view",
			job:  Job{Animation: true, TotalViews: 5, View: 4, Frame: 4, FrameStart: 1, FrameEnd: 4},
			want: 1,
		},
		{
			name: "animation single view",
			job:  Job{Animation: true, TotalViews: 1, Frame: 2, FrameStart: 1, FrameEnd: 4},
			want: 0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.job.Progress(); math.Abs(got-tt.want) > 1e-12 {
				t.Fatalf("Progress() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActiveSeed(t *testing.T) {
	job := Job{Seed: 100, Frame: 12, View: 3}
	if got := job.ActiveSeed(); got != 103 {
		t.Fatalf("ActiveSeed() = %d, want 103", got)
	}
	job.AnimatedSeed = true
	if got := job.ActiveSeed(); got != 115 {
		t.Fatalf("animated ActiveSeed() = %d, want 115", got)
	}
}

func TestRenderSettings(t *testing.T) {
	job := mustJob(t, func(p *Params) {
		p.ViewWidth, p.ViewHeight = 420, 560
	})
	s := job.RenderSettings()
	if s.ResolutionX != 420 || s.ResolutionY != 560 {
		t.Fatalf("resolution %dx%d", s.ResolutionX, s.ResolutionY)
	}
	if s.PixelAspectX != 1 || math.Abs(s.PixelAspectY-1) > 1e-12 {
		t.Fatalf("pixel aspect %v:%v", s.PixelAspectX, s.PixelAspectY)
	}
	if job.Settings.ResolutionX != 1920 {
		t.Fatal("RenderSettings must not modify the captured settings")
	}
}

func TestRetentionPolicy(t *testing.T) {
	tests := []struct {
		name     string
		job      Job
		discard  bool
		onCancel bool
		perFrame bool
	}{
		{name: "drop views", job: Job{}, onCancel: true, perFrame: true},
		{name: "keep views", job: Job{KeepViews: true}},
		{name: "temp still", job: Job{KeepViews: true, UseTempName: true}, onCancel: true},
		{name: "temp animation", job: Job{Animation: true, KeepViews: true, UseTempName: true}},
		{name: "force keep", job: Job{ForceKeep: true}},
		{name: "discard beats force keep", job: Job{ForceKeep: true, KeepViews: true}, discard: true, onCancel: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.job.dropsFilesOnCancel(tt.discard); got != tt.onCancel {
				t.Fatalf("dropsFilesOnCancel = %v, want %v", got, tt.onCancel)
			}
			if got := tt.job.dropsViewsPerFrame(); got != tt.perFrame {
				t.Fatalf("dropsViewsPerFrame = %v, want %v", got, tt.perFrame)
			}
		})
	}
}
