package aircraft

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/preflight/internal/sequence"
)

// Profile is the YAML description of one aircraft and its start-up.
type Profile struct {
	Name             string         `yaml:"name"`
	DisplayName      string         `yaml:"display_name"`
	Ownship          []string       `yaml:"ownship"`
	ExpectedDuration float64        `yaml:"expected_duration"`
	DoneText         string         `yaml:"done_text"`
	Devices          map[string]int `yaml:"indication_devices"`
	Switches         Catalog        `yaml:"switches"`
	Steps            []StepSpec     `yaml:"steps"`

	// Source is where the profile was loaded from.
	Source string `yaml:"-"`

	procedure sequence.Procedure
}

// Procedure returns the compiled procedure.
func (p *Profile) Procedure() sequence.Procedure { return p.procedure }

// StepSpec is one step as written in YAML.
type StepSpec struct {
	Name     string       `yaml:"name"`
	Text     string       `yaml:"text"`
	Progress float64      `yaml:"progress"`
	Until    *WaitSpec    `yaml:"until"`
	Then     []ActionSpec `yaml:"then"`
}

// WaitSpec selects exactly one wait kind.
type WaitSpec struct {
	Event        string          `yaml:"event"`
	Argument     *ArgumentWait   `yaml:"argument"`
	CockpitParam *ParamWait      `yaml:"cockpit_param"`
	Settle       *float64        `yaml:"settle"`
	Indication   *IndicationWait `yaml:"indication"`
}

// ArgumentWait polls a switch's readback, or a raw argument on the main panel.
type ArgumentWait struct {
	Switch   string  `yaml:"switch"`
	Argument int     `yaml:"argument"`
	Compare  string  `yaml:"compare"`
	Value    float64 `yaml:"value"`
}

// ParamWait polls a cockpit parameter.
type ParamWait struct {
	Name    string  `yaml:"name"`
	Compare string  `yaml:"compare"`
	Value   float64 `yaml:"value"`
}

// IndicationWait scans an avionics indication. Device is a name from the
// profile's indication_devices or a number.
type IndicationWait struct {
	Device   string   `yaml:"device"`
	Path     []string `yaml:"path"`
	Match    string   `yaml:"match"`
	Expected string   `yaml:"expected"`
}

// ActionSpec is one batch. Either Ops, Press or Pulse is set.
type ActionSpec struct {
	Ops     []OpSpec      `yaml:"ops"`
	Confirm bool          `yaml:"confirm"`
	Verify  *ValueSpec    `yaml:"verify"`
	Hold    string        `yaml:"hold"`
	Press   *ValueSpec    `yaml:"press"`
	Pulse   *PositionSpec `yaml:"pulse"`
}

// OpSpec selects exactly one operation kind.
type OpSpec struct {
	Set     []string      `yaml:"set"`
	Unset   []string      `yaml:"unset"`
	Actuate []ValueSpec   `yaml:"actuate"`
	Spring  *PositionSpec `yaml:"spring"`
	Dual    *PositionSpec `yaml:"dual"`
	Release string        `yaml:"release"`
	Command int           `yaml:"command"`
	Barrier bool          `yaml:"barrier"`
}

// ValueSpec pairs a switch with a value.
type ValueSpec struct {
	Switch string  `yaml:"switch"`
	Value  float64 `yaml:"value"`
}

// PositionSpec pairs a three-position switch with a position name.
type PositionSpec struct {
	Switch   string `yaml:"switch"`
	Position string `yaml:"position"`
}

// ParseProfile decodes, validates and compiles a profile.
func ParseProfile(data []byte, source string) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", source, err)
	}
	p.Source = source

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("validating profile %s: %w", source, err)
	}
	proc, err := Compile(&p)
	if err != nil {
		return nil, fmt.Errorf("compiling profile %s: %w", source, err)
	}
	p.procedure = proc
	return &p, nil
}

// Validate checks the profile's own fields and its switch table.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if len(p.Ownship) == 0 {
		return fmt.Errorf("%w: at least one ownship type is required", ErrInvalidProfile)
	}
	if p.ExpectedDuration < 0 {
		return fmt.Errorf("%w: expected_duration must not be negative", ErrInvalidProfile)
	}
	if p.DisplayName == "" {
		p.DisplayName = p.Ownship[0]
	}
	for key, s := range p.Switches {
		s.Key = key
		if err := s.validate(); err != nil {
			return err
		}
		p.Switches[key] = s
	}
	return nil
}
