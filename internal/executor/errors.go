package executor

import "errors"

// ErrAlreadyRunning is returned by Driver.Start when frames are already being
// driven.
var ErrAlreadyRunning = errors.New("executor: driver already running")
