package quiltpath

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// TempName is the base name used when the output path names no file.
const TempName = "Quilt Render Result"

// Layout holds everything that influences view and quilt file names.
type Layout struct {
	Dir        string
	Base       string
	Ext        string
	AddSuffix  bool
	Columns    int
	Rows       int
	Aspect     float64
	TotalViews int
	Animation  bool
	FrameEnd   int
}

// Suffix returns the quilt metadata suffix consumed by quilt viewers, or an
// empty string when the suffix is disabled.
func (l Layout) Suffix() string {
	if !l.AddSuffix {
		return ""
	}
	return "_qs" + strconv.Itoa(l.Columns) + "x" + strconv.Itoa(l.Rows) + "a" + FormatAspect(l.Aspect)
}

// QuiltPath returns the quilt file for frame. Stills ignore frame.
func (l Layout) QuiltPath(frame int) string {
	return filepath.Join(l.Dir, l.stem(frame)+l.Suffix()+l.Ext)
}

// ViewPath returns the file of a single view. Stills ignore frame.
func (l Layout) ViewPath(view, frame int) string {
	return filepath.Join(l.Dir, l.stem(frame)+l.Suffix()+"_v"+pad(view, l.viewWidth())+l.Ext)
}

// ViewPaths lists the files of all views of frame in view order.
func (l Layout) ViewPaths(frame int) []string {
	if l.TotalViews <= 0 {
		return nil
	}
	paths := make([]string, l.TotalViews)
	for view := range paths {
		paths[view] = l.ViewPath(view, frame)
	}
	return paths
}

// ViewLabel returns the zero padded view index used in camera and render view
// names.
func (l Layout) ViewLabel(view int) string {
	return pad(view, l.viewWidth())
}

func (l Layout) stem(frame int) string {
	if !l.Animation {
		return l.Base
	}
	return l.Base + "_f" + pad(frame, len(strconv.Itoa(l.FrameEnd)))
}

func (l Layout) viewWidth() int {
	last := l.TotalViews - 1
	if last < 0 {
		last = 0
	}
	return len(strconv.Itoa(last))
}

func pad(value, width int) string {
	return fmt.Sprintf("%0*d", width, value)
}

// FormatAspect renders an aspect ratio the way quilt suffixes expect it:
// shortest round-trip digits, always with a decimal point (0.75, 1.0).
func FormatAspect(aspect float64) string {
	s := strconv.FormatFloat(aspect, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// Output is the configured output path split into its naming parts.
type Output struct {
	Dir         string
	Base        string
	Ext         string
	UseTempName bool
}

// SplitOutput splits an output path into directory, base name, and
// extension. A path without a file name selects TempName. When
// useFileExtension is set and the path carries no extension, formatExt is
// used.
func SplitOutput(output, formatExt string, useFileExtension bool) Output {
	dir, file := filepath.Split(output)
	if dir == "" {
		dir = "."
	}
	dir = filepath.Clean(dir)

	out := Output{Dir: dir}
	if file == "" {
		out.Base = TempName
		out.UseTempName = true
		out.Ext = formatExt
		return out
	}

	ext := filepath.Ext(file)
	out.Base = strings.TrimSuffix(file, ext)
	out.Ext = ext
	if useFileExtension && out.Ext == "" {
		out.Ext = formatExt
	}
	return out
}
