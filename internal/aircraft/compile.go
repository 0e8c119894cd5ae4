package aircraft

import (
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/preflight/internal/host"
	"github.com/nerrad567/preflight/internal/sequence"
)

// pulseSettleFrames is how many frames a spring-loaded switch is left alone
// after each movement of a pulse.
const pulseSettleFrames = 2

// Compile builds the procedure a profile describes.
func Compile(p *Profile) (sequence.Procedure, error) {
	proc := sequence.Procedure{
		Name:             p.Name,
		Aircraft:         p.DisplayName,
		ExpectedDuration: p.ExpectedDuration,
		DoneText:         p.DoneText,
		Steps:            make([]sequence.Step, 0, len(p.Steps)),
	}

	for i, spec := range p.Steps {
		step := sequence.Step{Name: spec.Name, Text: spec.Text, Progress: spec.Progress}

		if spec.Until != nil {
			w, err := p.compileWait(*spec.Until)
			if err != nil {
				return sequence.Procedure{}, fmt.Errorf("step %d (%s): %w", i, spec.Name, err)
			}
			step.Until = w
		}
		for j, a := range spec.Then {
			actions, err := p.compileAction(a)
			if err != nil {
				return sequence.Procedure{}, fmt.Errorf("step %d (%s) action %d: %w", i, spec.Name, j, err)
			}
			step.Then = append(step.Then, actions...)
		}
		proc.Steps = append(proc.Steps, step)
	}

	if err := proc.Validate(); err != nil {
		return sequence.Procedure{}, err
	}
	return proc, nil
}

func (p *Profile) compileWait(w WaitSpec) (sequence.Wait, error) {
	var out []sequence.Wait

	if w.Event != "" {
		if w.Event != "start" {
			return nil, fmt.Errorf("%w: unknown event %q", ErrInvalidProfile, w.Event)
		}
		out = append(out, sequence.WaitEvent{Event: sequence.EventStart})
	}
	if w.Argument != nil {
		if w.Argument.Compare == "" {
			return nil, fmt.Errorf("%w: argument wait needs a compare", ErrInvalidProfile)
		}
		cmp, err := sequence.ParseCompare(w.Argument.Compare)
		if err != nil {
			return nil, err
		}
		arg := w.Argument.Argument
		if w.Argument.Switch != "" {
			s, err := p.Switches.Lookup(w.Argument.Switch)
			if err != nil {
				return nil, err
			}
			arg = s.Argument
		}
		out = append(out, sequence.PollArgument{Device: host.MainPanel, Argument: arg, Compare: cmp, Value: w.Argument.Value})
	}
	if w.CockpitParam != nil {
		if w.CockpitParam.Compare == "" {
			return nil, fmt.Errorf("%w: cockpit_param wait needs a compare", ErrInvalidProfile)
		}
		cmp, err := sequence.ParseCompare(w.CockpitParam.Compare)
		if err != nil {
			return nil, err
		}
		if w.CockpitParam.Name == "" {
			return nil, fmt.Errorf("%w: cockpit_param needs a name", ErrInvalidProfile)
		}
		out = append(out, sequence.PollCockpitParam{Name: w.CockpitParam.Name, Compare: cmp, Value: w.CockpitParam.Value})
	}
	if w.Settle != nil {
		out = append(out, sequence.Settle{Duration: *w.Settle})
	}
	if w.Indication != nil {
		dev, err := p.device(w.Indication.Device)
		if err != nil {
			return nil, err
		}
		match, err := sequence.ParseTextMatch(w.Indication.Match)
		if err != nil {
			return nil, err
		}
		if match != sequence.MatchNonEmpty && len(w.Indication.Path) == 0 {
			return nil, fmt.Errorf("%w: indication wait needs a path", ErrInvalidProfile)
		}
		out = append(out, sequence.ScanText{Device: dev, Path: w.Indication.Path, Match: match, Expected: w.Indication.Expected})
	}

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0], nil
	}
	return nil, fmt.Errorf("%w: a wait must select exactly one kind", ErrInvalidProfile)
}

func (p *Profile) device(name string) (int, error) {
	if id, ok := p.Devices[name]; ok {
		return id, nil
	}
	id, err := strconv.Atoi(name)
	if err != nil {
		return 0, fmt.Errorf("%w: unknown indication device %q", ErrInvalidProfile, name)
	}
	return id, nil
}

func (p *Profile) compileAction(a ActionSpec) ([]sequence.Action, error) {
	forms := 0
	if len(a.Ops) > 0 {
		forms++
	}
	if a.Press != nil {
		forms++
	}
	if a.Pulse != nil {
		forms++
	}
	if forms != 1 {
		return nil, fmt.Errorf("%w: an action needs exactly one of ops, press or pulse", ErrInvalidProfile)
	}

	switch {
	case a.Press != nil:
		return p.press(*a.Press)
	case a.Pulse != nil:
		return p.pulse(*a.Pulse)
	}

	action := sequence.Action{Confirm: a.Confirm}
	for _, spec := range a.Ops {
		ops, err := p.compileOp(spec)
		if err != nil {
			return nil, err
		}
		action.Ops = append(action.Ops, ops...)
	}
	if a.Verify != nil {
		s, err := p.Switches.Lookup(a.Verify.Switch)
		if err != nil {
			return nil, err
		}
		action.Verify = &sequence.Readback{Device: host.MainPanel, Argument: s.Argument, Value: a.Verify.Value}
	}
	if a.Hold != "" {
		d, err := time.ParseDuration(a.Hold)
		if err != nil {
			return nil, fmt.Errorf("%w: hold %q: %w", ErrInvalidProfile, a.Hold, err)
		}
		action.Hold = d
	}
	return []sequence.Action{action}, nil
}

func (p *Profile) compileOp(o OpSpec) ([]host.Op, error) {
	var ops []host.Op
	forms := 0

	if len(o.Set) > 0 || len(o.Unset) > 0 {
		forms++
		for _, key := range o.Set {
			s, err := p.kinded(key, "set", Kind.Latching)
			if err != nil {
				return nil, err
			}
			ops = append(ops, host.SetSwitch{Device: s.Device, Command: s.Command, Argument: s.Argument})
		}
		for _, key := range o.Unset {
			s, err := p.kinded(key, "unset", Kind.Latching)
			if err != nil {
				return nil, err
			}
			ops = append(ops, host.UnsetSwitch{Device: s.Device, Command: s.Command, Argument: s.Argument})
		}
	}
	if len(o.Actuate) > 0 {
		forms++
		for _, v := range o.Actuate {
			s, err := p.kinded(v.Switch, "actuate", Kind.Clickable)
			if err != nil {
				return nil, err
			}
			ops = append(ops, host.Click{Device: s.Device, Command: s.Command, Value: v.Value})
		}
	}
	if o.Spring != nil {
		forms++
		op, err := p.spring(*o.Spring)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if o.Dual != nil {
		forms++
		s, err := p.kinded(o.Dual.Switch, "dual", isKind(KindDual3Pos))
		if err != nil {
			return nil, err
		}
		pos, err := host.ParsePosition(o.Dual.Position)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
		}
		ops = append(ops, host.Dual3Pos{Device: s.Device, Down: s.Command, Up: s.CommandUp, Position: pos})
	}
	if o.Release != "" {
		forms++
		s, err := p.kinded(o.Release, "release", isKind(KindDual3Pos))
		if err != nil {
			return nil, err
		}
		ops = append(ops, host.Click{Device: s.Device, Command: s.CommandUp, Value: 0})
	}
	if o.Command != 0 {
		forms++
		ops = append(ops, host.SetCommand{Command: o.Command})
	}
	if o.Barrier {
		forms++
		ops = append(ops, host.Barrier{})
	}

	if forms != 1 {
		return nil, fmt.Errorf("%w: an op must select exactly one kind", ErrInvalidProfile)
	}
	return ops, nil
}

func (p *Profile) spring(ps PositionSpec) (host.Spring3Pos, error) {
	s, err := p.kinded(ps.Switch, "spring", isKind(KindSpring3Pos))
	if err != nil {
		return host.Spring3Pos{}, err
	}
	pos, err := host.ParsePosition(ps.Position)
	if err != nil {
		return host.Spring3Pos{}, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	return host.Spring3Pos{Device: s.Device, Down: s.Command, Up: s.CommandUp, Position: pos}, nil
}

// press holds a momentary control at a value until it reads back, then
// releases it the same way.
func (p *Profile) press(v ValueSpec) ([]sequence.Action, error) {
	s, err := p.kinded(v.Switch, "press", isKind(KindMomentary, KindSpring3Pos))
	if err != nil {
		return nil, err
	}
	click := func(val float64) sequence.Action {
		return sequence.Action{
			Ops:    []host.Op{host.Click{Device: s.Device, Command: s.Command, Value: val}},
			Verify: &sequence.Readback{Device: host.MainPanel, Argument: s.Argument, Value: val},
		}
	}
	return []sequence.Action{click(v.Value), click(0)}, nil
}

// pulse moves a spring-loaded switch, waits for it to register, then lets it
// spring back to the middle.
func (p *Profile) pulse(ps PositionSpec) ([]sequence.Action, error) {
	op, err := p.spring(ps)
	if err != nil {
		return nil, err
	}
	s := p.Switches[ps.Switch]
	release := op
	release.Position = host.PositionMiddle

	frames := func() []sequence.Action {
		out := make([]sequence.Action, pulseSettleFrames)
		for i := range out {
			out[i] = sequence.Action{Ops: []host.Op{host.Barrier{}}, Confirm: true}
		}
		return out
	}

	actions := []sequence.Action{{
		Ops:    []host.Op{op},
		Verify: &sequence.Readback{Device: host.MainPanel, Argument: s.Argument, Value: op.Position.Readback()},
	}}
	actions = append(actions, frames()...)
	actions = append(actions, sequence.Action{
		Ops:    []host.Op{release},
		Verify: &sequence.Readback{Device: host.MainPanel, Argument: s.Argument, Value: 0},
	})
	actions = append(actions, frames()...)
	return actions, nil
}

func (p *Profile) kinded(key, use string, allowed func(Kind) bool) (Switch, error) {
	s, err := p.Switches.Lookup(key)
	if err != nil {
		return Switch{}, err
	}
	if !allowed(s.Kind) {
		return Switch{}, fmt.Errorf("%w: %s cannot be used with %q (%s)", ErrKindMismatch, use, key, s.Kind)
	}
	return s, nil
}

func isKind(kinds ...Kind) func(Kind) bool {
	return func(k Kind) bool {
		for _, want := range kinds {
			if k == want {
				return true
			}
		}
		return false
	}
}
