// Package orchestrator owns the active start-up sequence.
//
// The orchestrator runs on its own goroutine. The executor wakes it after
// every host frame; each wake takes at most one pending message (a target
// change, a start request or an interrupt request) and advances the active
// engine once at the host's simulation time. Progress is fanned out to
// subscribers, recorded as run history and written to the metrics stack.
package orchestrator
