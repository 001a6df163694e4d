// Package ggrender is a CPU reference renderer. It rasterizes the spheres of
// a scene through the requested camera with gogpu/gg and reports the result
// through the render job hooks from a background goroutine.
package ggrender
