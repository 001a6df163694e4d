// Package services defines shared utilities consumed by the render job
// machinery and its collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, frames, views, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that let callers classify
//     failures (configuration, resume, assembly, I/O) with errors.Is.
//
// Use these helpers when wiring new components so error reporting and
// observability stay uniform across the render pipeline.
package services
