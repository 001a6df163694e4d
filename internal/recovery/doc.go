// Package recovery persists the progress of an interrupted render job.
//
// A record is written after every completed view so a later invocation can
// reload the finished views from disk and continue with the next one. Records
// live in the recovery directory as {scene file name}.lock and are replaced
// atomically. A separate advisory lock keeps two jobs from rendering the same
// scene at once.
package recovery
