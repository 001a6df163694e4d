package renderjob

import (
	"os"
	"path/filepath"

	"quiltrender/internal/fileutil"
	"quiltrender/internal/imageio"
	"quiltrender/internal/quilt"
)

// ImageFiles stores buffers as image files chosen by extension.
type ImageFiles struct{}

func (ImageFiles) Write(path string, buf quilt.Buffer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return imageio.Write(path, buf)
}

func (ImageFiles) Read(path string) (quilt.Buffer, error) {
	return imageio.Read(path)
}

func (ImageFiles) Remove(path string) error {
	_, err := fileutil.RemoveIfExists(path)
	return err
}
