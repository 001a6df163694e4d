package scene

// Document is the on-disk TOML form of a scene.
type Document struct {
	Name         string           `toml:"name"`
	FrameStart   int              `toml:"frame_start"`
	FrameEnd     int              `toml:"frame_end"`
	FrameCurrent int              `toml:"frame_current"`
	Seed         *int             `toml:"seed"`
	ActiveCamera string           `toml:"active_camera"`
	Render       RenderDocument   `toml:"render"`
	Cameras      []CameraDocument `toml:"cameras"`
	Spheres      []SphereDocument `toml:"spheres"`
}

// RenderDocument holds the output settings of the scene.
type RenderDocument struct {
	ResolutionX      int        `toml:"resolution_x"`
	ResolutionY      int        `toml:"resolution_y"`
	PixelAspectX     float64    `toml:"pixel_aspect_x"`
	PixelAspectY     float64    `toml:"pixel_aspect_y"`
	FileFormat       string     `toml:"file_format"`
	UseFileExtension *bool      `toml:"use_file_extension"`
	Background       [4]float64 `toml:"background"`
}

// CameraDocument describes a camera. Rotation and FOV are in degrees.
type CameraDocument struct {
	Name       string     `toml:"name"`
	Location   [3]float64 `toml:"location"`
	Rotation   [3]float64 `toml:"rotation"`
	Scale      [3]float64 `toml:"scale"`
	FOV        float64    `toml:"fov"`
	ShiftX     float64    `toml:"shift_x"`
	ShiftY     float64    `toml:"shift_y"`
	FocalPlane float64    `toml:"focal_plane"`
}

// SphereDocument describes a sphere moving at a constant velocity per frame.
type SphereDocument struct {
	Name     string     `toml:"name"`
	Center   [3]float64 `toml:"center"`
	Radius   float64    `toml:"radius"`
	Color    [4]float64 `toml:"color"`
	Velocity [3]float64 `toml:"velocity"`
}
