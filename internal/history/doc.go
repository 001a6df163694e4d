// Package history keeps a SQLite log of render jobs.
//
// Every job started by the CLI gets a row keyed by its job ID; a resumed job
// reuses the row and bumps its resume counter. Written quilts are listed per
// job with their file sizes. Recorder adapts the store to the render job
// observer interface so history updates ride along with the job loop;
// failures there are logged and never stop a render.
package history
