// Package workflow runs render jobs end to end.
//
// The Manager turns a render request into a running job: it loads the scene,
// takes the per-scene lease, decides between a new job, a resumed job and a
// discarded one, runs preflight checks, and hands the job machine to the Loop.
// The Loop is the single goroutine that feeds renderer callbacks and ticks to
// the machine, so renderjob never needs its own locking.
package workflow
