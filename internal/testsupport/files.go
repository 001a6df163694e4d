package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// OrbitScene is a small scene with one camera and two spheres over three
// frames.
const OrbitScene = `
name = "orbit"
frame_start = 1
frame_end = 3
seed = 7

[render]
resolution_x = 640
resolution_y = 480
file_format = "PNG"
background = [0.05, 0.05, 0.08, 1.0]

[[cameras]]
name = "Camera"
location = [0.0, 0.0, 12.0]
fov = 40.0
focal_plane = 12.0

[[spheres]]
name = "sun"
center = [0.0, 0.0, 0.0]
radius = 2.0
color = [1.0, 0.8, 0.2, 1.0]

[[spheres]]
name = "moon"
center = [4.0, 0.0, -2.0]
radius = 0.6
color = [0.6, 0.6, 0.7, 1.0]
velocity = [-0.5, 0.0, 0.0]
`

// WriteScene writes a scene file named name into dir and returns its path.
// An empty content writes OrbitScene.
func WriteScene(t testing.TB, dir, name, content string) string {
	t.Helper()

	if content == "" {
		content = OrbitScene
	}
	path := filepath.Join(dir, name)
	WriteFile(t, path, content)
	return path
}

// ListFiles returns the names of the regular files in dir, sorted.
func ListFiles(t testing.TB, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	return names
}
