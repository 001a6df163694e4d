package quilt

// Buffer is an interleaved float32 image: Pix holds Height rows of Width
// pixels with Channels samples each, top row first.
type Buffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []float32
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(width, height, channels int) Buffer {
	return Buffer{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]float32, width*height*channels),
	}
}

// Len returns the sample count implied by the dimensions.
func (b Buffer) Len() int {
	return b.Width * b.Height * b.Channels
}

// Stride returns the number of samples per row.
func (b Buffer) Stride() int {
	return b.Width * b.Channels
}

// Valid reports whether Pix matches the dimensions.
func (b Buffer) Valid() bool {
	return b.Width > 0 && b.Height > 0 && b.Channels > 0 && len(b.Pix) == b.Len()
}
