package host

import (
	"errors"
	"fmt"
)

// MainPanel is the device whose arguments mirror every cockpit control's
// position. Switch readbacks go through it.
const MainPanel = 0

// CommandLeftEngineStart is the simulator-level command that starts the left
// (or only) engine.
const CommandLeftEngineStart = 311

// ErrHostOperation wraps every error raised by the scripting host itself.
var ErrHostOperation = errors.New("host: operation failed")

// Host is the scripting host's capability surface. Every method must be called
// on the host goroutine.
type Host interface {
	// PerformAction clicks a cockpit control.
	PerformAction(device, command int, value float64) error

	// ReadArgument reads a control's normalized position or an indicator's
	// drawing argument.
	ReadArgument(device, argument int) (float64, error)

	// ReadTextDump returns the raw indication dump for an avionics device.
	ReadTextDump(device int) (string, error)

	// SimulationTime returns the model clock in seconds.
	SimulationTime() (float64, error)

	// IsPaused reports whether the simulation is paused.
	IsPaused() (bool, error)

	// ListCockpitParams returns the `NAME:value` listing of internal cockpit
	// parameters.
	ListCockpitParams() (string, error)

	// SetCommand issues a simulator-level command.
	SetCommand(command int) error

	// OwnshipType returns the type name of the aircraft currently flown.
	OwnshipType() (string, error)
}

// OperationError builds an ErrHostOperation-wrapped error.
func OperationError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrHostOperation, op, err)
}
