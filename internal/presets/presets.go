package presets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"quiltrender/internal/logging"
	"quiltrender/internal/services"
)

// FileExtension marks user preset files.
const FileExtension = ".preset"

// Quilt describes one quilt format. The JSON shape matches user preset
// files.
type Quilt struct {
	Name        string `json:"-"`
	Description string `json:"description" validate:"required"`
	QuiltWidth  int    `json:"quilt_width" validate:"gte=0"`
	QuiltHeight int    `json:"quilt_height" validate:"gte=0"`
	ViewWidth   int    `json:"view_width" validate:"gt=0"`
	ViewHeight  int    `json:"view_height" validate:"gt=0"`
	Rows        int    `json:"rows" validate:"gt=0"`
	Columns     int    `json:"columns" validate:"gt=0"`
	TotalViews  int    `json:"total_views" validate:"gt=0"`
	Hidden      bool   `json:"hidden,omitempty"`
	User        bool   `json:"-"`
}

// Device describes the optics of a display.
type Device struct {
	Name        string
	Description string
	// ViewCone is the horizontal viewing angle in degrees.
	ViewCone float64
	// Aspect is the width/height ratio of the display.
	Aspect float64
}

var builtinQuilts = []Quilt{
	{Name: "portrait", Description: "Looking Glass Portrait", QuiltWidth: 3360, QuiltHeight: 3360, ViewWidth: 420, ViewHeight: 560, Columns: 8, Rows: 6, TotalViews: 48},
	{Name: "go", Description: "Looking Glass Go", QuiltWidth: 4092, QuiltHeight: 4092, ViewWidth: 372, ViewHeight: 682, Columns: 11, Rows: 6, TotalViews: 66},
	{Name: "standard", Description: "Looking Glass 8.9\" standard", QuiltWidth: 4096, QuiltHeight: 4096, ViewWidth: 819, ViewHeight: 455, Columns: 5, Rows: 9, TotalViews: 45},
	{Name: "standard-hires", Description: "Looking Glass 8.9\" high resolution", QuiltWidth: 8192, QuiltHeight: 8192, ViewWidth: 1638, ViewHeight: 910, Columns: 5, Rows: 9, TotalViews: 45},
	{Name: "large", Description: "Looking Glass 15.6\"", QuiltWidth: 4096, QuiltHeight: 4096, ViewWidth: 819, ViewHeight: 455, Columns: 5, Rows: 9, TotalViews: 45},
	{Name: "8k", Description: "Looking Glass 8K", QuiltWidth: 8192, QuiltHeight: 8192, ViewWidth: 1638, ViewHeight: 910, Columns: 5, Rows: 9, TotalViews: 45},
	{Name: "preview", Description: "Low-resolution preview", QuiltWidth: 1024, QuiltHeight: 1024, ViewWidth: 256, ViewHeight: 128, Columns: 4, Rows: 8, TotalViews: 32, Hidden: true},
}

var builtinDevices = []Device{
	{Name: "portrait", Description: "Looking Glass Portrait", ViewCone: 40, Aspect: 0.75},
	{Name: "go", Description: "Looking Glass Go", ViewCone: 40, Aspect: 0.5625},
	{Name: "standard", Description: "Looking Glass 8.9\"", ViewCone: 40, Aspect: 1.6},
	{Name: "large", Description: "Looking Glass 15.6\"", ViewCone: 40, Aspect: 16.0 / 9.0},
	{Name: "8k", Description: "Looking Glass 8K", ViewCone: 40, Aspect: 16.0 / 9.0},
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func presetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterStructValidation(func(sl validator.StructLevel) {
			q := sl.Current().Interface().(Quilt)
			if q.Rows*q.Columns != q.TotalViews {
				sl.ReportError(q.TotalViews, "TotalViews", "total_views", "grid", "")
			}
			if q.QuiltWidth > 0 && q.QuiltWidth < q.Columns*q.ViewWidth {
				sl.ReportError(q.QuiltWidth, "QuiltWidth", "quilt_width", "fits", "")
			}
			if q.QuiltHeight > 0 && q.QuiltHeight < q.Rows*q.ViewHeight {
				sl.ReportError(q.QuiltHeight, "QuiltHeight", "quilt_height", "fits", "")
			}
		}, Quilt{})
	})
	return validate
}

// Validate checks that q describes a usable grid.
func (q Quilt) Validate() error {
	err := presetValidator().Struct(q)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return services.Wrap(services.ErrValidation, "presets", "validate", q.Name, err)
	}
	fe := fieldErrs[0]
	var msg string
	switch fe.Tag() {
	case "grid":
		msg = fmt.Sprintf("total_views %d must equal columns x rows (%dx%d)", q.TotalViews, q.Columns, q.Rows)
	case "fits":
		msg = fmt.Sprintf("%s %v is smaller than the view grid", fe.Field(), fe.Value())
	case "required":
		msg = fe.Field() + " is required"
	default:
		msg = fmt.Sprintf("%s fails %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
	}
	return services.Wrap(services.ErrValidation, "presets", "validate", fmt.Sprintf("preset %q: %s", q.Name, msg), nil)
}

// Catalog holds the quilt presets and devices available to a run.
type Catalog struct {
	quilts  []Quilt
	devices []Device
}

// Builtin returns a catalog with only the built-in entries.
func Builtin() *Catalog {
	return &Catalog{
		quilts:  append([]Quilt(nil), builtinQuilts...),
		devices: append([]Device(nil), builtinDevices...),
	}
}

// Load returns the built-in catalog extended with the user presets in dir.
// A missing directory is not an error. Invalid files are skipped with a
// warning; a user preset named like a built-in one replaces it.
func Load(dir string, logger *slog.Logger) (*Catalog, error) {
	logger = logging.NewComponentLogger(logger, "presets")
	c := Builtin()
	if strings.TrimSpace(dir) == "" {
		return c, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, services.Wrap(services.ErrConfiguration, "presets", "read dir", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), FileExtension) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		q, err := ReadFile(filepath.Join(dir, name))
		if err != nil {
			logging.WarnWithContext(logger, "user preset skipped", "preset_invalid",
				logging.String("preset_file", name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "fix the JSON or remove the file"),
				logging.String(logging.FieldImpact, "preset is not selectable"),
			)
			continue
		}
		c.add(q)
	}
	return c, nil
}

// ReadFile parses and validates one `.preset` file. The preset name is the
// lower-cased file stem.
func ReadFile(path string) (Quilt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Quilt{}, fmt.Errorf("read preset: %w", err)
	}
	var q Quilt
	if err := json.Unmarshal(data, &q); err != nil {
		return Quilt{}, fmt.Errorf("decode preset: %w", err)
	}
	q.Name = strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	q.User = true
	if err := q.Validate(); err != nil {
		return Quilt{}, err
	}
	return q, nil
}

func (c *Catalog) add(q Quilt) {
	for i := range c.quilts {
		if c.quilts[i].Name == q.Name {
			c.quilts[i] = q
			return
		}
	}
	c.quilts = append(c.quilts, q)
}

// Quilt returns the preset with name.
func (c *Catalog) Quilt(name string) (Quilt, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, q := range c.quilts {
		if q.Name == key {
			return q, nil
		}
	}
	return Quilt{}, services.Wrap(services.ErrConfiguration, "presets", "lookup",
		fmt.Sprintf("unknown quilt preset %q", name), services.ErrNotFound)
}

// Quilts lists presets in catalog order. Hidden presets are included only on
// request.
func (c *Catalog) Quilts(includeHidden bool) []Quilt {
	out := make([]Quilt, 0, len(c.quilts))
	for _, q := range c.quilts {
		if q.Hidden && !includeHidden {
			continue
		}
		out = append(out, q)
	}
	return out
}

// Device returns the device with name.
func (c *Catalog) Device(name string) (Device, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, d := range c.devices {
		if d.Name == key {
			return d, nil
		}
	}
	return Device{}, services.Wrap(services.ErrConfiguration, "presets", "lookup",
		fmt.Sprintf("unknown device %q", name), services.ErrNotFound)
}

// Devices lists the known devices.
func (c *Catalog) Devices() []Device {
	return append([]Device(nil), c.devices...)
}
