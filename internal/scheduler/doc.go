// Package scheduler runs the daily clock-out schedule. A single goroutine
// polls the clock, claims the current date once the trigger hour has
// passed on a weekday, resolves the off-duty time through a short-lived
// session, and arms a one-shot timer for the full workflow run.
//
// Armed timers sleep at most 60 seconds at a time and re-check the wall
// clock on wake, so NTP steps and system sleep cannot push a run far past
// its target.
package scheduler
