package orchestrator

import "errors"

// Domain errors for the orchestrator package.
var (
	// ErrQueueFull is returned when a request cannot be queued because the
	// inbox is saturated.
	ErrQueueFull = errors.New("orchestrator inbox is full")

	// ErrAlreadyRunning is returned when Run is called twice.
	ErrAlreadyRunning = errors.New("orchestrator already running")

	// ErrRunNotFound is returned when a run record does not exist.
	ErrRunNotFound = errors.New("run not found")
)
