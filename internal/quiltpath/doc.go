// Package quiltpath maps render job parameters to the file names of view and
// quilt images.
//
// Every function is pure: identical inputs always produce identical paths,
// which is what lets an interrupted job find the view files it already wrote.
// Zero padding widths derive from the last frame and the last view index, so
// the naming of a job never changes while it runs.
package quiltpath
