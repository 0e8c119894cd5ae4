package host_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/preflight/internal/host"
	"github.com/nerrad567/preflight/internal/host/hosttest"
	"github.com/nerrad567/preflight/internal/offload"
)

func TestSetSwitchIsIdempotent(t *testing.T) {
	tests := []struct {
		name    string
		op      host.Op
		initial float64
		clicks  int
	}{
		{"set when off", host.SetSwitch{Device: 1, Command: 3001, Argument: 165}, 0, 1},
		{"set when on", host.SetSwitch{Device: 1, Command: 3001, Argument: 165}, 1, 0},
		{"unset when on", host.UnsetSwitch{Device: 1, Command: 3001, Argument: 165}, 1, 1},
		{"unset when off", host.UnsetSwitch{Device: 1, Command: 3001, Argument: 165}, 0, 0},
		{"set at threshold", host.SetSwitch{Device: 1, Command: 3001, Argument: 165}, 0.5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := hosttest.New()
			h.SetArgument(host.MainPanel, 165, tt.initial)

			if res := tt.op.Apply(h); res.Err != nil {
				t.Fatalf("Apply() error = %v", res.Err)
			}
			if got := len(h.Actions()); got != tt.clicks {
				t.Fatalf("clicks = %d, want %d", got, tt.clicks)
			}
			if tt.clicks == 1 && h.Actions()[0].Value != 1.0 {
				t.Errorf("click value = %g, want 1.0", h.Actions()[0].Value)
			}
		})
	}
}

func TestSpring3PosReleasesBothCommandsFirst(t *testing.T) {
	h := hosttest.New()
	op := host.Spring3Pos{Device: 6, Down: 3006, Up: 3005, Position: host.PositionDown}

	if res := op.Apply(h); res.Err != nil {
		t.Fatalf("Apply() error = %v", res.Err)
	}

	want := []hosttest.Action{{Device: 6, Command: 3006, Value: 0}, {Device: 6, Command: 3005, Value: 0}, {Device: 6, Command: 3006, Value: -1}}
	got := h.Actions()
	if len(got) != len(want) {
		t.Fatalf("actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("action %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDual3PosPositions(t *testing.T) {
	tests := []struct {
		pos  host.Position
		want []hosttest.Action
	}{
		{host.PositionDown, []hosttest.Action{{Device: 7, Command: 3004, Value: -1}}},
		{host.PositionUp, []hosttest.Action{{Device: 7, Command: 3010, Value: 1}}},
		{host.PositionMiddle, []hosttest.Action{{Device: 7, Command: 3004, Value: 0}, {Device: 7, Command: 3010, Value: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.pos.String(), func(t *testing.T) {
			h := hosttest.New()
			host.Dual3Pos{Device: 7, Down: 3004, Up: 3010, Position: tt.pos}.Apply(h)
			got := h.Actions()
			if len(got) != len(tt.want) {
				t.Fatalf("actions = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("action %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBatchAppliesEveryOp(t *testing.T) {
	tests := []struct {
		name       string
		fail       func(h *hosttest.Host)
		wantClicks int
		wantErrs   int
	}{
		{"no failures", func(*hosttest.Host) {}, 3, 0},
		{"readback fails", func(h *hosttest.Host) { h.Fail("ReadArgument", errors.New("lua error")) }, 2, 1},
		{"one device fails", func(h *hosttest.Host) { h.FailDevice(2, errors.New("no such device")) }, 2, 1},
		{"every click fails", func(h *hosttest.Host) { h.Fail("PerformAction", errors.New("lua error")) }, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := hosttest.New()
			tt.fail(h)

			res := host.Batch(h,
				host.Click{Device: 1, Command: 1, Value: 1},
				host.SetSwitch{Device: 2, Command: 2, Argument: 3},
				host.Click{Device: 1, Command: 4, Value: 1},
			)

			if got := len(h.Actions()); got != tt.wantClicks {
				t.Errorf("clicks = %d, want %d", got, tt.wantClicks)
			}
			if tt.wantErrs == 0 {
				if res.Err != nil {
					t.Errorf("Batch() error = %v, want nil", res.Err)
				}
				return
			}
			if !errors.Is(res.Err, host.ErrHostOperation) {
				t.Fatalf("Batch() error = %v, want ErrHostOperation", res.Err)
			}
			joined, ok := res.Err.(interface{ Unwrap() []error })
			if !ok {
				t.Fatalf("Batch() error %T is not joined", res.Err)
			}
			if got := len(joined.Unwrap()); got != tt.wantErrs {
				t.Errorf("joined errors = %d, want %d", got, tt.wantErrs)
			}
		})
	}
}

func TestBatchKeepsLastRead(t *testing.T) {
	h := hosttest.New()
	h.SetArgument(host.MainPanel, 95, 0.42)
	h.FailDevice(1, errors.New("no such device"))

	res := host.Batch(h,
		host.Click{Device: 1, Command: 1, Value: 1},
		host.ReadArgument{Device: host.MainPanel, Argument: 95},
	)

	if res.Value != 0.42 {
		t.Errorf("Value = %g, want 0.42", res.Value)
	}
	if res.Err == nil {
		t.Error("Batch() error = nil, want the click failure")
	}
}

func TestParsePosition(t *testing.T) {
	for in, want := range map[string]host.Position{"down": host.PositionDown, "stop": host.PositionMiddle, "middle": host.PositionMiddle, "up": host.PositionUp} {
		got, err := host.ParsePosition(in)
		if err != nil || got != want {
			t.Errorf("ParsePosition(%q) = (%v, %v), want %v", in, got, err, want)
		}
	}
	if _, err := host.ParsePosition("sideways"); err == nil {
		t.Error("ParsePosition(sideways) expected error")
	}
}

func TestClientReadsThroughChannels(t *testing.T) {
	h := hosttest.New()
	h.SetArgument(host.MainPanel, 95, 0.42)
	h.SetTime(12.5)
	h.SetDump(6, "dump")
	h.SetCockpitParams("BASE_SENSOR_CANOPY_POS:0\n")
	c := hosttest.NewClient(t, h)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if v, err := c.ReadArgument(ctx, host.MainPanel, 95); err != nil || v != 0.42 {
		t.Errorf("ReadArgument() = (%g, %v), want 0.42", v, err)
	}
	if v, err := c.SimulationTime(ctx); err != nil || v != 12.5 {
		t.Errorf("SimulationTime() = (%g, %v), want 12.5", v, err)
	}
	if s, err := c.ReadTextDump(ctx, 6); err != nil || s != "dump" {
		t.Errorf("ReadTextDump() = (%q, %v), want dump", s, err)
	}
	if s, err := c.CockpitParams(ctx); err != nil || s == "" {
		t.Errorf("CockpitParams() = (%q, %v)", s, err)
	}
	if err := c.WaitFrame(ctx); err != nil {
		t.Errorf("WaitFrame() error = %v", err)
	}
}

func TestClientReportsDisconnect(t *testing.T) {
	itx, irx := offload.NewChannel[host.Host]()
	etx, _ := offload.NewChannel[host.Host]()
	c := host.NewClient(itx, etx)
	defer c.Close()
	irx.Close()

	_, err := c.SimulationTime(context.Background())
	if !errors.Is(err, offload.ErrDisconnected) {
		t.Fatalf("SimulationTime() error = %v, want ErrDisconnected", err)
	}
}
