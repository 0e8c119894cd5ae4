package sequence

import (
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/preflight/internal/host"
)

// Event is what the owner feeds into Advance.
type Event int

const (
	// EventNone is a plain poll tick.
	EventNone Event = iota
	// EventStart requests the procedure to begin.
	EventStart
	// EventInterrupt requests the procedure to stop and return to its first step.
	EventInterrupt
)

func (e Event) String() string {
	switch e {
	case EventStart:
		return "start"
	case EventInterrupt:
		return "interrupt"
	default:
		return "none"
	}
}

// Status is the engine's coarse lifecycle position.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
)

// Compare is a readback comparison against a reference value.
type Compare int

const (
	Equal Compare = iota
	NotEqual
	AtLeast
	Above
	AtMost
	Below
)

// Holds reports whether v compares to ref.
func (c Compare) Holds(v, ref float64) bool {
	switch c {
	case NotEqual:
		return v != ref
	case AtLeast:
		return v >= ref
	case Above:
		return v > ref
	case AtMost:
		return v <= ref
	case Below:
		return v < ref
	default:
		return v == ref
	}
}

func (c Compare) String() string {
	return [...]string{"eq", "ne", "ge", "gt", "le", "lt"}[c]
}

// ParseCompare accepts eq/ne/ge/gt/le/lt and their symbolic forms. There is
// no default: an empty string is an error.
func ParseCompare(s string) (Compare, error) {
	switch strings.TrimSpace(s) {
	case "eq", "==":
		return Equal, nil
	case "ne", "!=":
		return NotEqual, nil
	case "ge", ">=":
		return AtLeast, nil
	case "gt", ">":
		return Above, nil
	case "le", "<=":
		return AtMost, nil
	case "lt", "<":
		return Below, nil
	}
	return Equal, fmt.Errorf("%w: %q", ErrUnknownCompare, s)
}

// TextMatch selects how ScanText judges an indication.
type TextMatch int

const (
	// MatchPresent waits for the path to exist.
	MatchPresent TextMatch = iota
	// MatchAbsent waits for the path (or the whole dump) to disappear.
	MatchAbsent
	// MatchEquals waits for the path to hold Expected.
	MatchEquals
	// MatchNonEmpty waits for the device to produce any dump at all.
	MatchNonEmpty
)

func (m TextMatch) String() string {
	return [...]string{"present", "absent", "equals", "nonempty"}[m]
}

// ParseTextMatch accepts present, absent, equals and nonempty.
func ParseTextMatch(s string) (TextMatch, error) {
	switch s {
	case "present":
		return MatchPresent, nil
	case "absent":
		return MatchAbsent, nil
	case "equals":
		return MatchEquals, nil
	case "nonempty", "non_empty":
		return MatchNonEmpty, nil
	}
	return MatchPresent, fmt.Errorf("%w: %q", ErrUnknownMatch, s)
}

// Wait is what a step waits for before issuing its actions. A nil Wait is
// satisfied immediately.
type Wait interface {
	String() string
	wait()
}

// WaitEvent waits for an owner event.
type WaitEvent struct {
	Event Event
}

func (w WaitEvent) String() string { return "event " + w.Event.String() }
func (WaitEvent) wait()            {}

// PollArgument waits for a readback to satisfy Compare against Value.
type PollArgument struct {
	Device   int
	Argument int
	Compare  Compare
	Value    float64
}

func (w PollArgument) String() string {
	return fmt.Sprintf("argument %d:%d %s %g", w.Device, w.Argument, w.Compare, w.Value)
}
func (PollArgument) wait() {}

// PollCockpitParam waits for a named cockpit parameter to satisfy Compare.
type PollCockpitParam struct {
	Name    string
	Compare Compare
	Value   float64
}

func (w PollCockpitParam) String() string {
	return fmt.Sprintf("cockpit param %s %s %g", w.Name, w.Compare, w.Value)
}
func (PollCockpitParam) wait() {}

// Settle waits for Duration simulation seconds from step entry.
type Settle struct {
	Duration float64
}

func (w Settle) String() string { return fmt.Sprintf("settle %gs", w.Duration) }
func (Settle) wait()            {}

// ScanText waits on an avionics indication.
type ScanText struct {
	Device   int
	Path     []string
	Match    TextMatch
	Expected string
}

func (w ScanText) String() string {
	return fmt.Sprintf("indication %d:%s %s %q", w.Device, strings.Join(w.Path, "/"), w.Match, w.Expected)
}
func (ScanText) wait() {}

// Readback is a control position an action waits to see.
type Readback struct {
	Device   int
	Argument int
	Value    float64
}

// Action is one batch of host operations.
type Action struct {
	Ops []host.Op

	// Confirm waits for the batch to run before continuing.
	Confirm bool

	// Verify, when set, polls the readback after the batch until it matches.
	Verify *Readback

	// Hold pauses for this long (wall clock) after the batch.
	Hold time.Duration
}

func (a Action) blocking() bool {
	return a.Confirm || a.Verify != nil || a.Hold > 0
}

// Step is one state of a procedure.
type Step struct {
	Name string

	// Text and Progress are reported when the step is entered. Empty text or
	// zero progress leave the previous report unchanged.
	Text     string
	Progress float64

	Until Wait
	Then  []Action
}

// Procedure is a complete start-up sequence.
type Procedure struct {
	Name     string
	Aircraft string

	// ExpectedDuration, when positive, drives continuous progress as elapsed
	// simulation time over this many seconds.
	ExpectedDuration float64

	// DoneText is reported on completion. Defaults to "DONE".
	DoneText string

	Steps []Step
}

// Validate checks the procedure's structural rules.
func (p Procedure) Validate() error {
	if len(p.Steps) == 0 {
		return ErrEmptyProcedure
	}
	seen := make(map[string]bool, len(p.Steps))
	for i, s := range p.Steps {
		if s.Name == "" {
			return fmt.Errorf("%w: step %d has no name", ErrInvalidStep, i)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate step name %q", ErrInvalidStep, s.Name)
		}
		seen[s.Name] = true
		if s.Progress < 0 || s.Progress > 1 {
			return fmt.Errorf("%w: step %q progress %g outside [0,1]", ErrInvalidStep, s.Name, s.Progress)
		}
		if st, ok := s.Until.(Settle); ok && st.Duration < 0 {
			return fmt.Errorf("%w: step %q has negative settle", ErrInvalidStep, s.Name)
		}
	}
	return nil
}

// Progress is one report to the owner.
type Progress struct {
	Procedure string  `json:"procedure"`
	Step      string  `json:"step"`
	Status    Status  `json:"status"`
	Value     float64 `json:"value"`
	Text      string  `json:"text"`
}

// Reporter receives progress reports.
type Reporter func(Progress)
