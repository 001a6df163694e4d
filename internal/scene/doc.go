// Package scene loads TOML scene descriptions and exposes them as a render
// host: cameras, temporary render views, the frame cursor, the seed, and the
// render settings a job overrides and restores.
//
// A scene holds cameras and animated spheres, which is
// enough for the reference renderer to produce parallax between views.
package scene
