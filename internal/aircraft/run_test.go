package aircraft

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/preflight/internal/host"
	"github.com/nerrad567/preflight/internal/host/hosttest"
	"github.com/nerrad567/preflight/internal/indication"
	"github.com/nerrad567/preflight/internal/sequence"
)

// ─── Helpers ─────────────────────────────────────────────────────────

func hudDump(status string) string {
	segments := []string{
		"HUD_BlankRoot_PH_com\n\nchildren are {\n",
		"HUD_Indication_bias\n\nchildren are {\n",
		"HUD_Window7_origin\n\nchildren are {\n",
		"HUD_AlignStatus_origin\n\nchildren are {\n",
		"HUD_Window7_AlignmentStatus\n" + status + "\n}\n}\n}\n}\n",
	}
	var b strings.Builder
	for _, s := range segments {
		b.WriteString("\n" + indication.Separator + "\n" + s)
	}
	return b.String()
}

type run struct {
	engine *sequence.Engine
	texts  []string
	done   int
}

// drive advances the engine in half-second steps of simulation time, sending
// start on the first tick, until it is done or maxTicks pass.
func drive(t *testing.T, proc sequence.Procedure, client *host.Client, maxTicks int) *run {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := &run{}
	r.engine = sequence.New(proc, client, sequence.Options{
		Reporter: func(p sequence.Progress) {
			if len(r.texts) == 0 || r.texts[len(r.texts)-1] != p.Text {
				r.texts = append(r.texts, p.Text)
			}
		},
		OnDone: func(sequence.Summary) { r.done++ },
	})

	now := 0.0
	ev := sequence.EventStart
	for tick := 0; tick < maxTicks && r.engine.Status() != sequence.StatusDone; tick++ {
		r.engine.Advance(ctx, ev, now)
		ev = sequence.EventNone
		now += 0.5
	}
	return r
}

func registry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	if err := r.Load(""); err != nil {
		t.Fatal(err)
	}
	return r
}

func containsAction(actions []hosttest.Action, want hosttest.Action) bool {
	for _, a := range actions {
		if a == want {
			return true
		}
	}
	return false
}

// ─── Tests ───────────────────────────────────────────────────────────

func TestMiG21StartRunsToCompletion(t *testing.T) {
	proc, err := registry(t).Procedure("MiG-21Bis")
	if err != nil {
		t.Fatal(err)
	}

	h := hosttest.New()
	h.SetCockpitParams("BASE_SENSOR_CANOPY_POS:0.000000\nBASE_SENSOR_GEAR:1\n")
	// Start light comes on for the begun check, then goes out.
	h.ScriptArgument(host.MainPanel, 509, func(n int) float64 {
		if n <= 2 {
			return 1
		}
		return 0
	})
	client := hosttest.NewClient(t, h)

	r := drive(t, proc, client, 100)

	if r.engine.Status() != sequence.StatusDone {
		t.Fatalf("Status() = %v at step %s, want done", r.engine.Status(), r.engine.Step())
	}
	if r.done != 1 {
		t.Errorf("OnDone called %d times, want 1", r.done)
	}
	if got := r.engine.Progress(); got.Value != 1 || got.Text != "DONE" {
		t.Errorf("final progress = %+v", got)
	}

	actions := h.Actions()
	for _, want := range []hosttest.Action{
		{Device: 43, Command: 3194, Value: 1},
		{Device: 3, Command: 3016, Value: 1},
		{Device: 3, Command: 3016, Value: 0},
		{Device: 42, Command: 3188, Value: 0.7},
		{Device: 23, Command: 3143, Value: 1},
		{Device: 23, Command: 3143, Value: 0},
	} {
		if !containsAction(actions, want) {
			t.Errorf("missing action %+v", want)
		}
	}
	if last := actions[len(actions)-1]; last != (hosttest.Action{Device: 23, Command: 3143, Value: 0}) {
		t.Errorf("last action = %+v, want NPP adjust release", last)
	}

	want := []string{
		"Setting up initial switches",
		"Waiting for canopy to close",
		"Sealing canopy",
		"Waiting for engine start sequence",
		"Starting up systems",
		"Waiting for engine start sequence to complete",
		"Waiting for NPP adjust",
		"DONE",
	}
	if strings.Join(r.texts, "|") != strings.Join(want, "|") {
		t.Errorf("texts = %q\nwant    %q", r.texts, want)
	}
}

func TestMiG21SetSwitchesAreIdempotent(t *testing.T) {
	proc, err := registry(t).Procedure("MiG-21Bis")
	if err != nil {
		t.Fatal(err)
	}

	h := hosttest.New()
	// Battery already on: the set must not toggle it off.
	h.SetArgument(host.MainPanel, 165, 1)
	client := hosttest.NewClient(t, h)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e := sequence.New(proc, client, sequence.Options{})
	e.Advance(ctx, sequence.EventStart, 0)

	if e.Step() != "wait_canopy_closed" {
		t.Fatalf("Step() = %s, want wait_canopy_closed", e.Step())
	}
	for _, a := range h.Actions() {
		if a.Device == 1 && a.Command == 3001 {
			t.Errorf("battery toggled although already on: %+v", a)
		}
	}
	if !containsAction(h.Actions(), hosttest.Action{Device: 1, Command: 3002, Value: 1}) {
		t.Error("battery heat not switched on")
	}
}

func TestMiG21FailedSwitchDoesNotStopBatch(t *testing.T) {
	proc, err := registry(t).Procedure("MiG-21Bis")
	if err != nil {
		t.Fatal(err)
	}

	h := hosttest.New()
	h.SetCockpitParams("BASE_SENSOR_CANOPY_POS:1.000000\n")
	h.FailDevice(53, errors.New("device not found"))
	client := hosttest.NewClient(t, h)

	r := drive(t, proc, client, 1)

	if got := r.engine.Step(); got != "wait_canopy_closed" {
		t.Fatalf("Step() = %q, want wait_canopy_closed", got)
	}
	actions := h.Actions()
	if !containsAction(actions, hosttest.Action{Device: 3, Command: 3238, Value: 1}) {
		t.Errorf("throttle_stop_lock never clicked after fire_extinguisher_power failed; actions = %v", actions)
	}
	for _, a := range actions {
		if a.Device == 53 {
			t.Errorf("unexpected click on failing device: %v", a)
		}
	}
}

func TestF16StartRunsToCompletion(t *testing.T) {
	proc, err := registry(t).Procedure("F-16C_50")
	if err != nil {
		t.Fatal(err)
	}

	h := hosttest.New()
	h.Bind(10, 3004, 600) // canopy lock
	h.Bind(7, 3010, 357)  // anti-skid up
	h.Bind(17, 3032, 184) // ICP data/rtn/seq
	h.Bind(17, 3033, 184)
	h.SetArgument(host.MainPanel, 95, 0.2)
	h.SetDump(6, "\n"+indication.Separator+"\nDED\nINS  08.0/10\n")
	h.ScriptDump(1, func(n int) string {
		if n <= 2 {
			return hudDump("ALIGN")
		}
		return ""
	})
	client := hosttest.NewClient(t, h)

	r := drive(t, proc, client, 100)

	if r.engine.Status() != sequence.StatusDone {
		t.Fatalf("Status() = %v at step %s, want done", r.engine.Status(), r.engine.Step())
	}
	if r.done != 1 {
		t.Errorf("OnDone called %d times, want 1", r.done)
	}

	if got := h.Commands(); len(got) != 1 || got[0] != host.CommandLeftEngineStart {
		t.Errorf("Commands() = %v, want [%d]", got, host.CommandLeftEngineStart)
	}

	actions := h.Actions()
	for _, want := range []hosttest.Action{
		{Device: 3, Command: 3001, Value: 1},      // main power
		{Device: 10, Command: 3003, Value: -1},    // canopy down
		{Device: 6, Command: 3006, Value: -1},     // JFS start
		{Device: 10, Command: 3004, Value: 1},     // canopy lock
		{Device: 7, Command: 3010, Value: 1},      // anti-skid up
		{Device: 7, Command: 3010, Value: 0},      // anti-skid release
		{Device: 14, Command: 3001, Value: 0.3},   // INS nav
		{Device: 17, Command: 3032, Value: -1},    // DCS down
		{Device: 47, Command: 3003, Value: 0.504}, // SAI trim
	} {
		if !containsAction(actions, want) {
			t.Errorf("missing action %+v", want)
		}
	}
	if got := h.Reads(host.MainPanel, 184); got < 2 {
		t.Errorf("ICP switch read back %d times, want at least 2", got)
	}
}
