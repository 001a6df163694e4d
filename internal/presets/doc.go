// Package presets catalogs quilt formats and display devices.
//
// A quilt preset fixes the view size and the view grid of a job; a device
// contributes the view cone and the display aspect. Built-in entries cover
// the common lenticular displays, and user presets are read from `.preset`
// JSON files in the configured preset directory.
package presets
