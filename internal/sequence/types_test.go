package sequence

import (
	"errors"
	"testing"
)

func TestCompareHolds(t *testing.T) {
	tests := []struct {
		c    Compare
		v    float64
		ref  float64
		want bool
	}{
		{Equal, 0, 0, true},
		{Equal, 0.1, 0, false},
		{NotEqual, 0.1, 0, true},
		{AtLeast, 0.12, 0.12, true},
		{AtLeast, 0.1, 0.12, false},
		{Above, 0.12, 0.12, false},
		{AtMost, 0.1, 0.1, true},
		{Below, 0.1, 0.1, false},
		{Below, -1, 0, true},
	}
	for _, tt := range tests {
		if got := tt.c.Holds(tt.v, tt.ref); got != tt.want {
			t.Errorf("%s.Holds(%g, %g) = %v, want %v", tt.c, tt.v, tt.ref, got, tt.want)
		}
	}
}

func TestParseCompare(t *testing.T) {
	for in, want := range map[string]Compare{
		"eq": Equal, "==": Equal, "ne": NotEqual, ">=": AtLeast, "gt": Above, "le": AtMost, "<": Below,
	} {
		got, err := ParseCompare(in)
		if err != nil || got != want {
			t.Errorf("ParseCompare(%q) = (%v, %v), want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"approximately", "", "  "} {
		if _, err := ParseCompare(in); !errors.Is(err, ErrUnknownCompare) {
			t.Errorf("ParseCompare(%q) error = %v, want ErrUnknownCompare", in, err)
		}
	}
}

func TestParseTextMatch(t *testing.T) {
	if m, err := ParseTextMatch("absent"); err != nil || m != MatchAbsent {
		t.Errorf("ParseTextMatch(absent) = (%v, %v)", m, err)
	}
	if _, err := ParseTextMatch("maybe"); !errors.Is(err, ErrUnknownMatch) {
		t.Errorf("ParseTextMatch(maybe) error = %v, want ErrUnknownMatch", err)
	}
}

func TestProcedureValidate(t *testing.T) {
	tests := []struct {
		name    string
		proc    Procedure
		wantErr error
	}{
		{"empty", Procedure{Name: "p"}, ErrEmptyProcedure},
		{"unnamed step", Procedure{Steps: []Step{{}}}, ErrInvalidStep},
		{"duplicate", Procedure{Steps: []Step{{Name: "a"}, {Name: "a"}}}, ErrInvalidStep},
		{"progress range", Procedure{Steps: []Step{{Name: "a", Progress: 1.5}}}, ErrInvalidStep},
		{"negative settle", Procedure{Steps: []Step{{Name: "a", Until: Settle{Duration: -1}}}}, ErrInvalidStep},
		{"valid", Procedure{Steps: []Step{{Name: "a", Until: WaitEvent{Event: EventStart}}, {Name: "b"}}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.proc.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
