package host

import (
	"errors"
	"fmt"
)

// Result is the uniform outcome of applying an Op. Which of Value, Text or Flag
// is meaningful depends on the variant.
type Result struct {
	Value float64
	Text  string
	Flag  bool
	Err   error
}

// Op is a single bounded host operation.
type Op interface {
	Apply(h Host) Result
	String() string
	op()
}

// Click performs a raw control action.
type Click struct {
	Device  int
	Command int
	Value   float64
}

func (o Click) Apply(h Host) Result {
	return Result{Err: h.PerformAction(o.Device, o.Command, o.Value)}
}
func (o Click) String() string {
	return fmt.Sprintf("click(%d,%d,%g)", o.Device, o.Command, o.Value)
}
func (Click) op() {}

// ReadArgument reads a drawing argument.
type ReadArgument struct {
	Device   int
	Argument int
}

func (o ReadArgument) Apply(h Host) Result {
	v, err := h.ReadArgument(o.Device, o.Argument)
	return Result{Value: v, Err: err}
}
func (o ReadArgument) String() string {
	return fmt.Sprintf("read_argument(%d,%d)", o.Device, o.Argument)
}
func (ReadArgument) op() {}

// ReadDump fetches an indication dump.
type ReadDump struct {
	Device int
}

func (o ReadDump) Apply(h Host) Result {
	s, err := h.ReadTextDump(o.Device)
	return Result{Text: s, Err: err}
}
func (o ReadDump) String() string { return fmt.Sprintf("read_dump(%d)", o.Device) }
func (ReadDump) op()              {}

// ReadCockpitParams fetches the cockpit parameter listing.
type ReadCockpitParams struct{}

func (ReadCockpitParams) Apply(h Host) Result {
	s, err := h.ListCockpitParams()
	return Result{Text: s, Err: err}
}
func (ReadCockpitParams) String() string { return "read_cockpit_params" }
func (ReadCockpitParams) op()            {}

// SimTime reads the simulation clock.
type SimTime struct{}

func (SimTime) Apply(h Host) Result {
	v, err := h.SimulationTime()
	return Result{Value: v, Err: err}
}
func (SimTime) String() string { return "sim_time" }
func (SimTime) op()            {}

// Paused reads the pause flag.
type Paused struct{}

func (Paused) Apply(h Host) Result {
	b, err := h.IsPaused()
	return Result{Flag: b, Err: err}
}
func (Paused) String() string { return "paused" }
func (Paused) op()            {}

// SetCommand issues a simulator-level command.
type SetCommand struct {
	Command int
}

func (o SetCommand) Apply(h Host) Result {
	return Result{Err: h.SetCommand(o.Command)}
}
func (o SetCommand) String() string { return fmt.Sprintf("set_command(%d)", o.Command) }
func (SetCommand) op()              {}

// Ownship reads the current aircraft type.
type Ownship struct{}

func (Ownship) Apply(h Host) Result {
	s, err := h.OwnshipType()
	return Result{Text: s, Err: err}
}
func (Ownship) String() string { return "ownship" }
func (Ownship) op()            {}

// Barrier does nothing. Waiting on it waits for the next frame.
type Barrier struct{}

func (Barrier) Apply(Host) Result { return Result{} }
func (Barrier) String() string    { return "barrier" }
func (Barrier) op()               {}

// SetSwitch turns a two-state switch on, reading its position first so that
// repeated requests do not toggle it back off.
type SetSwitch struct {
	Device   int
	Command  int
	Argument int
}

func (o SetSwitch) Apply(h Host) Result {
	return toggleTo(h, o.Device, o.Command, o.Argument, true)
}
func (o SetSwitch) String() string {
	return fmt.Sprintf("set_switch(%d,%d,%d)", o.Device, o.Command, o.Argument)
}
func (SetSwitch) op() {}

// UnsetSwitch turns a two-state switch off, idempotently.
type UnsetSwitch struct {
	Device   int
	Command  int
	Argument int
}

func (o UnsetSwitch) Apply(h Host) Result {
	return toggleTo(h, o.Device, o.Command, o.Argument, false)
}
func (o UnsetSwitch) String() string {
	return fmt.Sprintf("unset_switch(%d,%d,%d)", o.Device, o.Command, o.Argument)
}
func (UnsetSwitch) op() {}

func toggleTo(h Host, device, command, argument int, on bool) Result {
	v, err := h.ReadArgument(MainPanel, argument)
	if err != nil {
		return Result{Err: err}
	}
	if (v > 0.5) == on {
		return Result{Value: v}
	}
	return Result{Value: v, Err: h.PerformAction(device, command, 1.0)}
}

// Position is a three-position switch position.
type Position int

const (
	PositionDown Position = iota - 1
	PositionMiddle
	PositionUp
)

// Readback is the argument value a three-position switch reports in p.
func (p Position) Readback() float64 { return float64(p) }

func (p Position) String() string {
	switch p {
	case PositionDown:
		return "down"
	case PositionUp:
		return "up"
	default:
		return "middle"
	}
}

// ParsePosition accepts down, middle (or stop) and up.
func ParsePosition(s string) (Position, error) {
	switch s {
	case "down":
		return PositionDown, nil
	case "middle", "stop":
		return PositionMiddle, nil
	case "up":
		return PositionUp, nil
	}
	return PositionMiddle, fmt.Errorf("unknown switch position %q", s)
}

// Spring3Pos drives a spring-loaded three-position switch that has one
// command per direction. Both commands are released first; then the selected
// direction is held.
type Spring3Pos struct {
	Device   int
	Down     int
	Up       int
	Position Position
}

func (o Spring3Pos) Apply(h Host) Result {
	if err := h.PerformAction(o.Device, o.Down, 0); err != nil {
		return Result{Err: err}
	}
	if err := h.PerformAction(o.Device, o.Up, 0); err != nil {
		return Result{Err: err}
	}
	switch o.Position {
	case PositionDown:
		return Result{Err: h.PerformAction(o.Device, o.Down, -1)}
	case PositionUp:
		return Result{Err: h.PerformAction(o.Device, o.Up, 1)}
	}
	return Result{}
}
func (o Spring3Pos) String() string {
	return fmt.Sprintf("spring3(%d,%d/%d,%s)", o.Device, o.Down, o.Up, o.Position)
}
func (Spring3Pos) op() {}

// Dual3Pos drives a latching three-position switch with separate up and down
// commands. Moving up leaves the up command held; callers release it with a
// Click of value 0 once the switch has settled.
type Dual3Pos struct {
	Device   int
	Down     int
	Up       int
	Position Position
}

func (o Dual3Pos) Apply(h Host) Result {
	switch o.Position {
	case PositionDown:
		return Result{Err: h.PerformAction(o.Device, o.Down, -1)}
	case PositionUp:
		return Result{Err: h.PerformAction(o.Device, o.Up, 1)}
	}
	if err := h.PerformAction(o.Device, o.Down, 0); err != nil {
		return Result{Err: err}
	}
	return Result{Err: h.PerformAction(o.Device, o.Up, -1)}
}
func (o Dual3Pos) String() string {
	return fmt.Sprintf("dual3(%d,%d/%d,%s)", o.Device, o.Down, o.Up, o.Position)
}
func (Dual3Pos) op() {}

// Batch applies every op in order. A failed op does not stop the ones after
// it; all failures are joined in Err. Value, Text and Flag come from the last
// op applied.
func Batch(h Host, ops ...Op) Result {
	var res Result
	var errs []error
	for _, o := range ops {
		res = o.Apply(h)
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o, res.Err))
		}
	}
	res.Err = errors.Join(errs...)
	return res
}
