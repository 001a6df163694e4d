package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"quiltrender/internal/renderjob"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCreatableDirectory passes when path is a writable directory or can be
// created below its nearest existing ancestor.
func CheckCreatableDirectory(name, path string) Result {
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path)
	}
	ancestor, ok := existingAncestor(path)
	if !ok {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent directory)", path)}
	}
	check := CheckDirectoryAccess(name, ancestor)
	if !check.Passed {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s)", path, ancestor)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckFreeSpace verifies that the filesystem holding path has at least
// required bytes available.
func CheckFreeSpace(name, path string, required uint64) Result {
	dir, ok := existingAncestor(path)
	if !ok {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent directory)", path)}
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", dir, err)}
	}
	available := stat.Bavail * uint64(stat.Bsize)
	if available < required {
		return Result{Name: name, Detail: fmt.Sprintf("%s free, %s needed", humanize.IBytes(available), humanize.IBytes(required))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s free", humanize.IBytes(available))}
}

func existingAncestor(path string) (string, bool) {
	current := filepath.Clean(path)
	for {
		info, err := os.Stat(current)
		if err == nil {
			if info.IsDir() {
				return current, true
			}
			return "", false
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", false
		}
		current = parent
	}
}

// CheckQuiltTargets fails when a quilt file the job would write already
// exists and the job may not overwrite it. Resumed jobs and temporary names
// always pass.
func CheckQuiltTargets(name string, job *renderjob.Job) Result {
	if job.Overwrite || job.UseTempName || job.Resuming() {
		return Result{Name: name, Passed: true, Detail: "overwrite allowed"}
	}
	layout := job.Layout()
	for _, frame := range job.Frames() {
		path := layout.QuiltPath(frame)
		_, err := os.Lstat(path)
		switch {
		case err == nil:
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: already exists; use --overwrite or render.overwrite)", path)}
		case !errors.Is(err, fs.ErrNotExist):
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d quilt file(s) free", len(job.Frames()))}
}
