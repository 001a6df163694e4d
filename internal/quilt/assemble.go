package quilt

import (
	"fmt"
	"strings"

	"quiltrender/internal/services"
)

// RowOrder selects where row 0 of the view grid lands in the quilt.
type RowOrder int

const (
	// TopFirst puts row 0 at the top of the quilt buffer.
	TopFirst RowOrder = iota
	// BottomFirst puts row 0 at the bottom of the quilt buffer.
	BottomFirst
)

func (o RowOrder) String() string {
	if o == BottomFirst {
		return "bottom_first"
	}
	return "top_first"
}

// ParseRowOrder converts a config value into a RowOrder.
func ParseRowOrder(value string) (RowOrder, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "top_first":
		return TopFirst, nil
	case "bottom_first":
		return BottomFirst, nil
	default:
		return TopFirst, fmt.Errorf("unsupported row order %q", value)
	}
}

// AssemblyError reports why a set of views cannot be tiled.
type AssemblyError struct {
	View   int
	Reason string
}

func (e *AssemblyError) Error() string {
	if e.View >= 0 {
		return fmt.Sprintf("assemble quilt: view %d: %s", e.View, e.Reason)
	}
	return "assemble quilt: " + e.Reason
}

// Unwrap lets callers match the error with services.ErrAssembly.
func (e *AssemblyError) Unwrap() error { return services.ErrAssembly }

// Assemble tiles views into a quilt of columns x rows tiles with row 0 on top.
func Assemble(views []Buffer, rows, columns int) (Buffer, error) {
	return AssembleOrdered(views, rows, columns, TopFirst)
}

// AssembleOrdered tiles views with the given row order. Every view must share
// the dimensions of the first; nothing is resampled or cropped.
func AssembleOrdered(views []Buffer, rows, columns int, order RowOrder) (Buffer, error) {
	if rows <= 0 || columns <= 0 {
		return Buffer{}, &AssemblyError{View: -1, Reason: fmt.Sprintf("invalid grid %dx%d", columns, rows)}
	}
	if len(views) != rows*columns {
		return Buffer{}, &AssemblyError{View: -1, Reason: fmt.Sprintf("got %d views, want %d", len(views), rows*columns)}
	}
	first := views[0]
	if !first.Valid() {
		return Buffer{}, &AssemblyError{View: 0, Reason: fmt.Sprintf("buffer holds %d samples, dimensions imply %d", len(first.Pix), first.Len())}
	}
	for i, view := range views[1:] {
		if view.Width != first.Width || view.Height != first.Height || view.Channels != first.Channels {
			return Buffer{}, &AssemblyError{View: i + 1, Reason: fmt.Sprintf("dimensions %dx%dx%d differ from %dx%dx%d",
				view.Width, view.Height, view.Channels, first.Width, first.Height, first.Channels)}
		}
		if len(view.Pix) != first.Len() {
			return Buffer{}, &AssemblyError{View: i + 1, Reason: fmt.Sprintf("buffer holds %d samples, want %d", len(view.Pix), first.Len())}
		}
	}

	out := NewBuffer(columns*first.Width, rows*first.Height, first.Channels)
	tileStride := first.Stride()
	outStride := out.Stride()
	for row := 0; row < rows; row++ {
		gridRow := row
		if order == BottomFirst {
			gridRow = rows - 1 - row
		}
		for column := 0; column < columns; column++ {
			src := views[row*columns+column].Pix
			x0 := column * tileStride
			y0 := gridRow * first.Height
			for y := 0; y < first.Height; y++ {
				dst := (y0+y)*outStride + x0
				copy(out.Pix[dst:dst+tileStride], src[y*tileStride:(y+1)*tileStride])
			}
		}
	}
	return out, nil
}

// Tile extracts tile (row, column) from a top-first quilt of columns x rows.
func Tile(q Buffer, rows, columns, row, column int) (Buffer, error) {
	if rows <= 0 || columns <= 0 || q.Width%columns != 0 || q.Height%rows != 0 {
		return Buffer{}, &AssemblyError{View: -1, Reason: fmt.Sprintf("quilt %dx%d does not split into %dx%d tiles", q.Width, q.Height, columns, rows)}
	}
	if row < 0 || row >= rows || column < 0 || column >= columns {
		return Buffer{}, &AssemblyError{View: row*columns + column, Reason: "tile out of range"}
	}
	if !q.Valid() {
		return Buffer{}, &AssemblyError{View: -1, Reason: "quilt buffer does not match its dimensions"}
	}
	tile := NewBuffer(q.Width/columns, q.Height/rows, q.Channels)
	tileStride := tile.Stride()
	x0 := column * tileStride
	y0 := row * tile.Height
	for y := 0; y < tile.Height; y++ {
		src := (y0+y)*q.Stride() + x0
		copy(tile.Pix[y*tileStride:(y+1)*tileStride], q.Pix[src:src+tileStride])
	}
	return tile, nil
}
