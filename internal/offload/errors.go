package offload

import "errors"

var (
	// ErrDisconnected is returned when the other side of the channel is gone:
	// the consumer was closed before a job ran, or every Sender was closed and
	// no work remains.
	ErrDisconnected = errors.New("offload: channel disconnected")

	// ErrEmpty is returned by TryTick when no job is pending.
	ErrEmpty = errors.New("offload: no pending jobs")

	// ErrJobPanicked is returned from a Future whose job panicked on the host
	// goroutine.
	ErrJobPanicked = errors.New("offload: job panicked")
)
