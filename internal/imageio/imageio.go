// Package imageio reads and writes view and quilt buffers as image files,
// choosing the codec from the file extension.
package imageio

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"quiltrender/internal/quilt"
)

const jpegQuality = 95

// Format describes a supported file format.
type Format struct {
	Name       string
	Extension  string
	Extensions []string
	Alpha      bool
}

var formats = []Format{
	{Name: "PNG", Extension: ".png", Extensions: []string{".png"}, Alpha: true},
	{Name: "JPEG", Extension: ".jpg", Extensions: []string{".jpg", ".jpeg"}},
	{Name: "TIFF", Extension: ".tif", Extensions: []string{".tif", ".tiff"}, Alpha: true},
	{Name: "BMP", Extension: ".bmp", Extensions: []string{".bmp"}},
}

// Formats lists the supported formats.
func Formats() []Format {
	return append([]Format(nil), formats...)
}

// LookupFormat finds a format by name (case-insensitive).
func LookupFormat(name string) (Format, bool) {
	for _, f := range formats {
		if strings.EqualFold(f.Name, strings.TrimSpace(name)) {
			return f, true
		}
	}
	return Format{}, false
}

// FormatForPath finds the format of path from its extension.
func FormatForPath(path string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range formats {
		for _, e := range f.Extensions {
			if e == ext {
				return f, true
			}
		}
	}
	return Format{}, false
}

// Accepts reports whether ext is a valid extension of f.
func (f Format) Accepts(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range f.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Write encodes buf to path using the codec selected by the extension.
func Write(path string, buf quilt.Buffer) error {
	format, ok := FormatForPath(path)
	if !ok {
		return fmt.Errorf("write %s: unsupported extension %q", path, filepath.Ext(path))
	}
	img, err := ToImage(buf)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(file)
	switch format.Name {
	case "PNG":
		err = png.Encode(w, img)
	case "JPEG":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case "TIFF":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case "BMP":
		err = bmp.Encode(w, img)
	}
	if err == nil {
		err = w.Flush()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

// Read decodes the image at path into a four channel buffer.
func Read(path string) (quilt.Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return quilt.Buffer{}, err
	}
	defer file.Close()

	img, _, err := image.Decode(bufio.NewReader(file))
	if err != nil {
		return quilt.Buffer{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return FromImage(img), nil
}

// ToImage converts buf into an image. One channel becomes gray, three or four
// channels become non-premultiplied RGBA.
func ToImage(buf quilt.Buffer) (image.Image, error) {
	if !buf.Valid() {
		return nil, fmt.Errorf("buffer %dx%dx%d holds %d samples", buf.Width, buf.Height, buf.Channels, len(buf.Pix))
	}
	rect := image.Rect(0, 0, buf.Width, buf.Height)
	switch buf.Channels {
	case 1:
		img := image.NewGray16(rect)
		for y := 0; y < buf.Height; y++ {
			for x := 0; x < buf.Width; x++ {
				img.SetGray16(x, y, color.Gray16{Y: toUint16(buf.Pix[y*buf.Width+x])})
			}
		}
		return img, nil
	case 3, 4:
		img := image.NewNRGBA64(rect)
		stride := buf.Stride()
		for y := 0; y < buf.Height; y++ {
			for x := 0; x < buf.Width; x++ {
				i := y*stride + x*buf.Channels
				c := color.NRGBA64{
					R: toUint16(buf.Pix[i]),
					G: toUint16(buf.Pix[i+1]),
					B: toUint16(buf.Pix[i+2]),
					A: 0xffff,
				}
				if buf.Channels == 4 {
					c.A = toUint16(buf.Pix[i+3])
				}
				img.SetNRGBA64(x, y, c)
			}
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported channel count %d", buf.Channels)
	}
}

// FromImage converts img into a four channel buffer with samples in [0,1].
func FromImage(img image.Image) quilt.Buffer {
	bounds := img.Bounds()
	buf := quilt.NewBuffer(bounds.Dx(), bounds.Dy(), 4)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
			buf.Pix[i] = float32(c.R) / 0xffff
			buf.Pix[i+1] = float32(c.G) / 0xffff
			buf.Pix[i+2] = float32(c.B) / 0xffff
			buf.Pix[i+3] = float32(c.A) / 0xffff
			i += 4
		}
	}
	return buf
}

func toUint16(v float32) uint16 {
	switch {
	case v <= 0 || math.IsNaN(float64(v)):
		return 0
	case v >= 1:
		return 0xffff
	default:
		return uint16(math.Round(float64(v) * 0xffff))
	}
}
