// Package scheduler triggers named jobs on cron or interval schedules.
//
// Jobs run on robfig/cron goroutines in the configured timezone. A job whose
// previous run is still in flight is skipped rather than queued.
package scheduler
