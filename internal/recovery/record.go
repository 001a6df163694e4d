package recovery

import (
	"fmt"
	"time"
)

// Version is the record schema version written by this build.
const Version = 1

// Settings are the host render settings captured when a job starts. They are
// restored when the job ends and reapplied on resume.
type Settings struct {
	ResolutionX      int     `json:"resolution_x"`
	ResolutionY      int     `json:"resolution_y"`
	PixelAspectX     float64 `json:"pixel_aspect_x"`
	PixelAspectY     float64 `json:"pixel_aspect_y"`
	FileFormat       string  `json:"file_format"`
	UseFileExtension bool    `json:"use_file_extension"`
	Seed             int     `json:"seed"`
	HasSeed          bool    `json:"has_seed"`
}

// Record is the persisted state of a render job. Pixel buffers and live host
// handles are never part of it.
type Record struct {
	Version    int    `json:"version"`
	SourceFile string `json:"source_file"`
	JobID      string `json:"job_id"`
	Animation  bool   `json:"animation"`
	Multiview  bool   `json:"multiview"`

	ViewWidth   int     `json:"view_width"`
	ViewHeight  int     `json:"view_height"`
	Rows        int     `json:"rows"`
	Columns     int     `json:"columns"`
	TotalViews  int     `json:"total_views"`
	ViewCone    float64 `json:"view_cone"`
	QuiltAspect float64 `json:"quilt_aspect"`
	RowOrder    string  `json:"row_order,omitempty"`

	Frame    int     `json:"frame"`
	Subframe float64 `json:"subframe"`
	View     int     `json:"view"`
	Seed     int     `json:"seed"`

	FrameStart   int  `json:"frame_start"`
	FrameEnd     int  `json:"frame_end"`
	FrameStep    int  `json:"frame_step"`
	AnimatedSeed bool `json:"animated_seed"`

	OutputPath  string `json:"output_path"`
	Dir         string `json:"dir"`
	Base        string `json:"base"`
	Ext         string `json:"ext"`
	AddSuffix   bool   `json:"add_suffix"`
	UseTempName bool   `json:"use_temp_name"`
	ForceKeep   bool   `json:"force_keep"`
	KeepViews   bool   `json:"keep_views"`

	Settings Settings `json:"settings"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Check reports schema problems that make a record unusable regardless of
// which scene is loaded.
func (r Record) Check() error {
	if r.Version != Version {
		return fmt.Errorf("unsupported record version %d", r.Version)
	}
	if r.SourceFile == "" {
		return fmt.Errorf("record has no source_file")
	}
	return nil
}
