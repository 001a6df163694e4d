// Package preflight checks the filesystem before a render job starts.
//
// The workflow runs RunAll after the job parameters are known and before any
// host setting is touched, so a failing check surfaces as a configuration
// error with no side effects. The CLI reuses CheckDirectoryAccess for
// `config validate`.
package preflight
