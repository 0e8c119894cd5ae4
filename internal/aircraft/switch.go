package aircraft

import (
	"fmt"
	"sort"
)

// Kind is how a cockpit control behaves.
type Kind string

const (
	KindToggle      Kind = "toggle"
	KindMultiToggle Kind = "multi_toggle"
	KindMomentary   Kind = "momentary"
	KindSpring3Pos  Kind = "spring_3pos"
	KindDual3Pos    Kind = "dual_3pos"
	KindFloat       Kind = "float"
	KindAxis        Kind = "axis"
	KindIndicator   Kind = "indicator"
)

var validKinds = map[Kind]bool{
	KindToggle: true, KindMultiToggle: true, KindMomentary: true, KindSpring3Pos: true,
	KindDual3Pos: true, KindFloat: true, KindAxis: true, KindIndicator: true,
}

// Clickable reports whether the control accepts a plain value click.
func (k Kind) Clickable() bool {
	switch k {
	case KindFloat, KindIndicator, KindDual3Pos:
		return false
	}
	return true
}

// Latching reports whether the control keeps an on/off position that can be
// read back and toggled.
func (k Kind) Latching() bool {
	return k == KindToggle || k == KindMultiToggle || k == KindMomentary
}

// Switch describes one cockpit control. For three-position kinds Command is
// the down command and CommandUp the up command.
type Switch struct {
	Key       string `yaml:"-" json:"key"`
	Device    int    `yaml:"device" json:"device"`
	Command   int    `yaml:"command" json:"command"`
	CommandUp int    `yaml:"command_up,omitempty" json:"command_up,omitempty"`
	Argument  int    `yaml:"argument" json:"argument"`
	Kind      Kind   `yaml:"kind" json:"kind"`
}

func (s Switch) validate() error {
	if !validKinds[s.Kind] {
		return fmt.Errorf("%w: switch %q has unknown kind %q", ErrInvalidProfile, s.Key, s.Kind)
	}
	if s.Kind.Clickable() || s.Kind == KindDual3Pos {
		if s.Command == 0 {
			return fmt.Errorf("%w: switch %q needs a command", ErrInvalidProfile, s.Key)
		}
	}
	if (s.Kind == KindSpring3Pos || s.Kind == KindDual3Pos) && s.CommandUp == 0 {
		return fmt.Errorf("%w: switch %q needs command_up", ErrInvalidProfile, s.Key)
	}
	return nil
}

// Catalog maps switch keys to descriptors.
type Catalog map[string]Switch

// Lookup finds a switch by key.
func (c Catalog) Lookup(key string) (Switch, error) {
	s, ok := c[key]
	if !ok {
		return Switch{}, fmt.Errorf("%w: %q", ErrUnknownSwitch, key)
	}
	return s, nil
}

// Sorted returns the catalog ordered by key.
func (c Catalog) Sorted() []Switch {
	out := make([]Switch, 0, len(c))
	for _, s := range c {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
