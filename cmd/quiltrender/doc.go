// Command quiltrender renders scene files into quilt images for lenticular
// light field displays.
//
// The render command drives one render job to completion, resumes a job left
// behind by a crash, or discards it. The remaining commands inspect the
// preset catalog, the render history, and recovery records, and manage the
// configuration file.
package main
