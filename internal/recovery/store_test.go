package recovery_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"quiltrender/internal/recovery"
	"quiltrender/internal/services"
)

func sampleRecord() recovery.Record {
	return recovery.Record{
		SourceFile:  "/scenes/orbit.toml",
		JobID:       "job-1",
		Animation:   true,
		ViewWidth:   420,
		ViewHeight:  560,
		Rows:        6,
		Columns:     8,
		TotalViews:  48,
		ViewCone:    40,
		QuiltAspect: 0.75,
		Frame:       3,
		View:        17,
		Seed:        9,
		FrameStart:  1,
		FrameEnd:    24,
		FrameStep:   1,
		Dir:         "/renders",
		Base:        "orbit",
		Ext:         ".png",
		AddSuffix:   true,
		Settings: recovery.Settings{
			ResolutionX: 1920, ResolutionY: 1080, PixelAspectX: 1, PixelAspectY: 1,
			FileFormat: "PNG", UseFileExtension: true, Seed: 9, HasSeed: true,
		},
	}
}

func TestWriteReadRecord(t *testing.T) {
	store := recovery.NewStore(filepath.Join(t.TempDir(), "recovery"))
	rec := sampleRecord()
	if err := store.Write(rec); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := store.PathFor(rec.SourceFile); filepath.Base(got) != "orbit.toml.lock" {
		t.Fatalf("unexpected record path %q", got)
	}
	if !store.Exists(rec.SourceFile) {
		t.Fatal("expected record to exist")
	}

	got, err := store.Read(rec.SourceFile)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Version != recovery.Version {
		t.Fatalf("version = %d, want %d", got.Version, recovery.Version)
	}
	if got.View != 17 || got.Frame != 3 || got.Settings != rec.Settings || got.Base != "orbit" {
		t.Fatalf("record did not round trip: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
}

func TestWriteOverwritesPreviousRecord(t *testing.T) {
	store := recovery.NewStore(t.TempDir())
	rec := sampleRecord()
	if err := store.Write(rec); err != nil {
		t.Fatalf("Write: %v", err)
	}
	first, err := store.Read(rec.SourceFile)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	rec.View = 18
	rec.CreatedAt = first.CreatedAt
	if err := store.Write(rec); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := store.Read(rec.SourceFile)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.View != 18 {
		t.Fatalf("view = %d, want 18", got.View)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("created_at changed from %v to %v", first.CreatedAt, got.CreatedAt)
	}
	entries, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the record file, found %d entries", len(entries))
	}
}

func TestReadMissingAndCorrupt(t *testing.T) {
	store := recovery.NewStore(t.TempDir())
	if _, err := store.Read("/scenes/none.toml"); !errors.Is(err, recovery.ErrNoRecord) {
		t.Fatalf("expected ErrNoRecord, got %v", err)
	}

	path := store.PathFor("/scenes/broken.toml")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := store.Read("/scenes/broken.toml")
	if !errors.Is(err, services.ErrResume) {
		t.Fatalf("expected resume error, got %v", err)
	}
	if errors.Is(err, recovery.ErrNoRecord) {
		t.Fatal("corrupt record must not look missing")
	}
}

func TestReadRejectsUnknownVersion(t *testing.T) {
	store := recovery.NewStore(t.TempDir())
	path := store.PathFor("/scenes/old.toml")
	if err := os.WriteFile(path, []byte(`{"version": 7, "source_file": "/scenes/old.toml"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Read("/scenes/old.toml"); !errors.Is(err, services.ErrResume) {
		t.Fatalf("expected resume error, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	store := recovery.NewStore(t.TempDir())
	rec := sampleRecord()
	if err := store.Write(rec); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := store.Remove(rec.SourceFile); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if store.Exists(rec.SourceFile) {
		t.Fatal("record still present")
	}
	if err := store.Remove(rec.SourceFile); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestWriteRequiresSource(t *testing.T) {
	store := recovery.NewStore(t.TempDir())
	rec := sampleRecord()
	rec.SourceFile = " "
	if err := store.Write(rec); !errors.Is(err, services.ErrIO) {
		t.Fatalf("expected io error, got %v", err)
	}
}

func TestAcquireIsExclusive(t *testing.T) {
	store := recovery.NewStore(t.TempDir())
	lease, err := store.Acquire("/scenes/orbit.toml")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := store.Acquire("/other/orbit.toml"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for second lease, got %v", err)
	}
	other, err := store.Acquire("/scenes/cube.toml")
	if err != nil {
		t.Fatalf("Acquire other scene: %v", err)
	}
	defer other.Release()

	if err := lease.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := lease.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	again, err := store.Acquire("/scenes/orbit.toml")
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	_ = again.Release()
}

func TestListSkipsUnreadableRecords(t *testing.T) {
	store := recovery.NewStore(t.TempDir())
	if records, err := store.List(); err != nil || len(records) != 0 {
		t.Fatalf("empty store: records=%v err=%v", records, err)
	}

	second := sampleRecord()
	second.SourceFile = "/scenes/zoom.toml"
	for _, rec := range []recovery.Record{second, sampleRecord()} {
		if err := store.Write(rec); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := os.WriteFile(store.PathFor("/scenes/broken.toml"), []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	records, err := store.List()
	if !errors.Is(err, services.ErrResume) {
		t.Fatalf("expected resume error for the corrupt record, got %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 readable records, got %d", len(records))
	}
	if records[0].SourceFile != "/scenes/orbit.toml" || records[1].SourceFile != "/scenes/zoom.toml" {
		t.Fatalf("unexpected order: %s, %s", records[0].SourceFile, records[1].SourceFile)
	}
}
