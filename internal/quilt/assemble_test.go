package quilt_test

import (
	"errors"
	"testing"

	"quiltrender/internal/quilt"
	"quiltrender/internal/services"
)

func filledViews(count, width, height, channels int) []quilt.Buffer {
	views := make([]quilt.Buffer, count)
	for i := range views {
		b := quilt.NewBuffer(width, height, channels)
		for j := range b.Pix {
			b.Pix[j] = float32(i)
		}
		views[i] = b
	}
	return views
}

func TestAssembleScenarioThreeByFive(t *testing.T) {
	views := filledViews(15, 256, 256, 4)
	out, err := quilt.Assemble(views, 3, 5)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if out.Width != 1280 || out.Height != 768 || out.Channels != 4 {
		t.Fatalf("unexpected dimensions %dx%dx%d", out.Width, out.Height, out.Channels)
	}
	if len(out.Pix) != 1280*768*4 {
		t.Fatalf("unexpected sample count %d", len(out.Pix))
	}
	// First pixel belongs to view 0, the top-left tile.
	if out.Pix[0] != 0 {
		t.Fatalf("expected view 0 at top-left, got %v", out.Pix[0])
	}
	// Last pixel belongs to view 14, the bottom-right tile.
	if got := out.Pix[len(out.Pix)-1]; got != 14 {
		t.Fatalf("expected view 14 at bottom-right, got %v", got)
	}
	for row := 0; row < 3; row++ {
		for column := 0; column < 5; column++ {
			tile, err := quilt.Tile(out, 3, 5, row, column)
			if err != nil {
				t.Fatalf("Tile(%d,%d): %v", row, column, err)
			}
			want := float32(row*5 + column)
			for _, v := range tile.Pix {
				if v != want {
					t.Fatalf("tile (%d,%d) holds %v, want %v", row, column, v, want)
				}
			}
		}
	}
}

func TestAssemblePreservesPixelLayoutWithinTile(t *testing.T) {
	views := make([]quilt.Buffer, 2)
	for i := range views {
		b := quilt.NewBuffer(2, 2, 1)
		for j := range b.Pix {
			b.Pix[j] = float32(i*10 + j)
		}
		views[i] = b
	}
	out, err := quilt.Assemble(views, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{0, 1, 10, 11, 2, 3, 12, 13}
	for i, v := range want {
		if out.Pix[i] != v {
			t.Fatalf("sample %d = %v, want %v (got %v)", i, out.Pix[i], v, out.Pix)
		}
	}
}

func TestAssembleBottomFirst(t *testing.T) {
	views := filledViews(4, 1, 1, 1)
	out, err := quilt.AssembleOrdered(views, 2, 2, quilt.BottomFirst)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{2, 3, 0, 1}
	for i, v := range want {
		if out.Pix[i] != v {
			t.Fatalf("sample %d = %v, want %v", i, out.Pix[i], v)
		}
	}
}

func TestAssembleErrors(t *testing.T) {
	tests := []struct {
		name  string
		views []quilt.Buffer
		rows  int
		cols  int
	}{
		{"too few views", filledViews(5, 2, 2, 4), 2, 3},
		{"too many views", filledViews(7, 2, 2, 4), 2, 3},
		{"invalid grid", filledViews(0, 2, 2, 4), 0, 3},
		{"mismatched dimensions", append(filledViews(5, 2, 2, 4), quilt.NewBuffer(3, 2, 4)), 2, 3},
		{"short buffer", append(filledViews(5, 2, 2, 4), quilt.Buffer{Width: 2, Height: 2, Channels: 4, Pix: make([]float32, 15)}), 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := quilt.Assemble(tt.views, tt.rows, tt.cols)
			if err == nil {
				t.Fatal("expected error")
			}
			var assemblyErr *quilt.AssemblyError
			if !errors.As(err, &assemblyErr) {
				t.Fatalf("expected AssemblyError, got %T", err)
			}
			if !errors.Is(err, services.ErrAssembly) {
				t.Fatalf("expected ErrAssembly marker, got %v", err)
			}
		})
	}
}

func TestParseRowOrder(t *testing.T) {
	if order, err := quilt.ParseRowOrder(""); err != nil || order != quilt.TopFirst {
		t.Fatalf("default order = %v, %v", order, err)
	}
	if order, err := quilt.ParseRowOrder(" Bottom_First "); err != nil || order != quilt.BottomFirst {
		t.Fatalf("bottom order = %v, %v", order, err)
	}
	if _, err := quilt.ParseRowOrder("sideways"); err == nil {
		t.Fatal("expected error for unknown order")
	}
}
