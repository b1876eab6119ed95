// Package jobqueue implements an in-process asynchronous job queue:
// priority-ordered dispatch over a jobs-per-second rate limit, with
// done/error/drain/stats lifecycle events.
//
// It does not persist jobs across restarts, coordinate across processes,
// or preempt a running job. The caller supplies job bodies as plain Go
// functions; the queue decides when and in what order they run.
package jobqueue
