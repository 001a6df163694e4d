// Package logging assembles the slog loggers used by quiltrender.
//
// It owns the console and JSON handlers, routes output to stderr and the
// per-run log file, and exposes context-aware helpers so render code tags
// lines with the job, frame and view being worked on. A no-op logger is
// provided for tests and optional wiring.
package logging
