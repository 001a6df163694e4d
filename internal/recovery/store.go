package recovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"quiltrender/internal/fileutil"
	"quiltrender/internal/services"
)

// ErrNoRecord is returned by Read when no record exists for the source.
var ErrNoRecord = errors.New("no recovery record")

const (
	recordExt = ".lock"
	leaseExt  = ".run"
)

// Store reads and writes records in a single directory.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore returns a store rooted at dir. The directory is created on first
// write.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// PathFor returns the record path for a source file.
func (s *Store) PathFor(source string) string {
	return filepath.Join(s.dir, sourceName(source)+recordExt)
}

// Write replaces the record for rec.SourceFile atomically.
func (s *Store) Write(rec Record) error {
	if strings.TrimSpace(rec.SourceFile) == "" {
		return services.Wrap(services.ErrIO, "recovery", "write record", "record has no source_file", nil)
	}
	if rec.Version == 0 {
		rec.Version = Version
	}
	now := s.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrIO, "recovery", "encode record", "", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return services.Wrap(services.ErrIO, "recovery", "create directory", s.dir, err)
	}
	if err := fileutil.WriteFileAtomic(s.PathFor(rec.SourceFile), data, 0o644); err != nil {
		return services.Wrap(services.ErrIO, "recovery", "write record", s.PathFor(rec.SourceFile), err)
	}
	return nil
}

// Read loads the record for source. A missing file yields ErrNoRecord and a
// file that cannot be decoded yields a resume error.
func (s *Store) Read(source string) (Record, error) {
	return readRecord(s.PathFor(source))
}

// List returns every readable record in the store, ordered by source file.
// Unreadable records are skipped and reported in the joined error.
func (s *Store) List() ([]Record, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*"+recordExt))
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "recovery", "list records", s.dir, err)
	}
	sort.Strings(paths)
	records := make([]Record, 0, len(paths))
	var errs []error
	for _, path := range paths {
		rec, err := readRecord(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].SourceFile < records[j].SourceFile })
	return records, errors.Join(errs...)
}

func readRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Record{}, ErrNoRecord
		}
		return Record{}, services.Wrap(services.ErrResume, "recovery", "read record", path, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, services.Wrap(services.ErrResume, "recovery", "decode record", path+" is corrupt", err)
	}
	if err := rec.Check(); err != nil {
		return Record{}, services.Wrap(services.ErrResume, "recovery", "check record", path, err)
	}
	return rec, nil
}

// Exists reports whether a record file is present for source.
func (s *Store) Exists(source string) bool {
	return fileutil.IsRegularFile(s.PathFor(source))
}

// Remove deletes the record for source. Removing a missing record is not an
// error.
func (s *Store) Remove(source string) error {
	if _, err := fileutil.RemoveIfExists(s.PathFor(source)); err != nil {
		return services.Wrap(services.ErrIO, "recovery", "remove record", s.PathFor(source), err)
	}
	return nil
}

// Lease is held while a job renders a source file.
type Lease struct {
	lock *flock.Flock
	path string
}

// Acquire takes the per-source advisory lock without blocking.
func (s *Store) Acquire(source string) (*Lease, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrIO, "recovery", "create directory", s.dir, err)
	}
	path := filepath.Join(s.dir, sourceName(source)+leaseExt)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "recovery", "acquire lock", path, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "recovery", "acquire lock",
			fmt.Sprintf("another render job is already running for %s", sourceName(source)), nil)
	}
	return &Lease{lock: lock, path: path}, nil
}

// Path returns the lock file path.
func (l *Lease) Path() string { return l.path }

// Release unlocks and removes the lock file. It is safe to call more than once.
func (l *Lease) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	lock := l.lock
	l.lock = nil
	if err := lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	_, _ = fileutil.RemoveIfExists(l.path)
	return nil
}

func sourceName(source string) string {
	name := filepath.Base(strings.TrimSpace(source))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return "untitled"
	}
	return name
}
