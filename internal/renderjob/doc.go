// Package renderjob drives the capture of a quilt: one render per view, the
// views tiled into a quilt, repeated per frame for animations.
//
// Machine is a single-threaded state machine. Renderer lifecycle callbacks
// arrive through the Hooks methods and the host loop advances the machine with
// Tick. Every completed view is written to disk and followed by a recovery
// checkpoint, so an interrupted job can be resumed from the next view.
package renderjob
