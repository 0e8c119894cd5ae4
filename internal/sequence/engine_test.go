package sequence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/preflight/internal/host"
	"github.com/nerrad567/preflight/internal/host/hosttest"
	"github.com/nerrad567/preflight/internal/indication"
)

// ─── Mock Dependencies ───────────────────────────────────────────────

type recordingReporter struct {
	mu      sync.Mutex
	reports []Progress
}

func (r *recordingReporter) report(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, p)
}

func (r *recordingReporter) last() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.reports) == 0 {
		return Progress{}
	}
	return r.reports[len(r.reports)-1]
}

func (r *recordingReporter) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, p := range r.reports {
		if len(out) == 0 || out[len(out)-1] != p.Text {
			out = append(out, p.Text)
		}
	}
	return out
}

type countingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *countingLogger) Debug(string, ...any) {}
func (l *countingLogger) Info(string, ...any)  {}
func (l *countingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}
func (l *countingLogger) Error(string, ...any) {}

func (l *countingLogger) count(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, w := range l.warns {
		if w == msg {
			n++
		}
	}
	return n
}

// ─── Helpers ─────────────────────────────────────────────────────────

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

const (
	canopyArg   = 7
	canopyLock  = 600
	tachometer  = 95
	canopyDev   = 10
	lockCommand = 3004
)

// canopyProcedure mirrors the first half of a jet start: close the canopy,
// let it settle, lock it, then wait for the starter to spool.
func canopyProcedure() Procedure {
	return Procedure{
		Name:     "canopy",
		Aircraft: "TestJet",
		Steps: []Step{
			{
				Name:  "cold_dark",
				Until: WaitEvent{Event: EventStart},
				Then: []Action{{Ops: []host.Op{
					host.Spring3Pos{Device: canopyDev, Down: 3003, Up: 3002, Position: host.PositionDown},
				}}},
			},
			{Name: "wait_canopy_closed", Text: "Waiting for canopy to close", Progress: 0.05,
				Until: PollArgument{Device: host.MainPanel, Argument: canopyArg, Compare: Equal, Value: 0}},
			{Name: "wait_after_canopy_closed", Text: "Waiting for canopy to fully close",
				Until: Settle{Duration: 2.3},
				Then: []Action{{Confirm: true, Ops: []host.Op{
					host.Spring3Pos{Device: canopyDev, Down: 3003, Up: 3002, Position: host.PositionMiddle},
					host.Click{Device: canopyDev, Command: lockCommand, Value: 1},
				}}}},
			{Name: "wait_canopy_locked", Text: "Locking canopy", Progress: 0.1,
				Until: PollArgument{Device: host.MainPanel, Argument: canopyLock, Compare: AtLeast, Value: 1}},
			{Name: "wait_jfs_spool", Text: "Waiting for JFS",
				Until: PollArgument{Device: host.MainPanel, Argument: tachometer, Compare: AtLeast, Value: 0.12}},
		},
	}
}

// ─── Tests ───────────────────────────────────────────────────────────

func TestEngineFollowsScriptedReadbacks(t *testing.T) {
	h := hosttest.New()
	h.ScriptArgument(host.MainPanel, canopyArg, func(n int) float64 {
		if n <= 3 {
			return 1
		}
		return 0
	})
	h.Bind(canopyDev, lockCommand, canopyLock)
	client := hosttest.NewClient(t, h)
	ctx := testContext(t)

	rep := &recordingReporter{}
	e := New(canopyProcedure(), client, Options{Reporter: rep.report})

	order := map[string]int{}
	for i, s := range canopyProcedure().Steps {
		order[s.Name] = i
	}

	now := 0.0
	highest := 0
	ev := EventNone
	for tick := 0; tick < 200 && e.Step() != "wait_jfs_spool"; tick++ {
		if tick == 2 {
			ev = EventStart
		}
		e.Advance(ctx, ev, now)
		ev = EventNone
		now += 0.1

		idx := order[e.Step()]
		if idx < highest {
			t.Fatalf("tick %d: moved back to %s", tick, e.Step())
		}
		highest = idx
	}

	if e.Step() != "wait_jfs_spool" {
		t.Fatalf("Step() = %q, want wait_jfs_spool", e.Step())
	}
	if e.Status() != StatusRunning {
		t.Errorf("Status() = %v, want running", e.Status())
	}
	want := []string{"Waiting for canopy to close", "Waiting for canopy to fully close", "Locking canopy", "Waiting for JFS"}
	if got := rep.texts(); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("texts = %v, want %v", got, want)
	}
}

func TestEngineIgnoresEventsOtherThanStartWhileIdle(t *testing.T) {
	client := hosttest.NewClient(t, hosttest.New())
	ctx := testContext(t)
	e := New(canopyProcedure(), client, Options{})

	for i := 0; i < 5; i++ {
		e.Advance(ctx, EventNone, float64(i))
	}
	e.Advance(ctx, EventInterrupt, 6)

	if e.Step() != "cold_dark" || e.Status() != StatusIdle {
		t.Fatalf("engine at (%s, %s), want (cold_dark, idle)", e.Step(), e.Status())
	}
}

func TestPollStaysUntilThreshold(t *testing.T) {
	h := hosttest.New()
	h.ScriptArgument(host.MainPanel, tachometer, func(n int) float64 {
		return float64(n-1) * 0.02
	})
	client := hosttest.NewClient(t, h)
	ctx := testContext(t)

	proc := Procedure{Name: "spool", Steps: []Step{
		{Name: "wait_jfs_spool", Until: PollArgument{Device: host.MainPanel, Argument: tachometer, Compare: AtLeast, Value: 0.12}},
	}}
	e := New(proc, client, Options{})

	for i := 1; i <= 6; i++ {
		if st := e.Advance(ctx, EventNone, float64(i)); st == StatusDone {
			t.Fatalf("invocation %d: transitioned early", i)
		}
		if e.Step() != "wait_jfs_spool" {
			t.Fatalf("invocation %d: Step() = %q", i, e.Step())
		}
	}
	if st := e.Advance(ctx, EventNone, 7); st != StatusDone {
		t.Fatalf("invocation 7: Status = %v, want done", st)
	}
	if n := h.Reads(host.MainPanel, tachometer); n != 7 {
		t.Errorf("reads = %d, want 7", n)
	}
}

func TestDoneIsReachedOnce(t *testing.T) {
	client := hosttest.NewClient(t, hosttest.New())
	ctx := testContext(t)
	rep := &recordingReporter{}

	var summaries []Summary
	proc := Procedure{Name: "short", Steps: []Step{
		{Name: "start", Until: WaitEvent{Event: EventStart}},
		{Name: "settle", Until: Settle{Duration: 1}},
	}}
	e := New(proc, client, Options{Reporter: rep.report, OnDone: func(s Summary) { summaries = append(summaries, s) }})

	e.Advance(ctx, EventStart, 10)
	e.Advance(ctx, EventNone, 10.5)
	e.Advance(ctx, EventNone, 11)
	e.Advance(ctx, EventNone, 12)
	e.Advance(ctx, EventStart, 13)

	if e.Status() != StatusDone {
		t.Fatalf("Status() = %v, want done", e.Status())
	}
	if len(summaries) != 1 {
		t.Fatalf("OnDone called %d times, want 1", len(summaries))
	}
	if summaries[0].Elapsed != 1 {
		t.Errorf("Elapsed = %g, want 1", summaries[0].Elapsed)
	}
	last := rep.last()
	if last.Value != 1 || last.Text != "DONE" || last.Status != StatusDone {
		t.Errorf("final report = %+v", last)
	}
}

func TestInterruptReturnsToFirstStep(t *testing.T) {
	client := hosttest.NewClient(t, hosttest.New())
	ctx := testContext(t)
	rep := &recordingReporter{}
	proc := Procedure{Name: "p", Steps: []Step{
		{Name: "start", Until: WaitEvent{Event: EventStart}},
		{Name: "wait", Text: "Waiting", Progress: 0.3, Until: Settle{Duration: 100}},
	}}
	e := New(proc, client, Options{Reporter: rep.report})

	e.Advance(ctx, EventStart, 0)
	if e.Step() != "wait" {
		t.Fatalf("Step() = %q, want wait", e.Step())
	}
	e.Advance(ctx, EventInterrupt, 1)

	if e.Step() != "start" || e.Status() != StatusIdle {
		t.Fatalf("engine at (%s, %s), want (start, idle)", e.Step(), e.Status())
	}
	if last := rep.last(); last.Text != "Interrupted" || last.Value != 0 {
		t.Errorf("last report = %+v", last)
	}

	// A fresh start captures a new settle timer.
	e.Advance(ctx, EventStart, 50)
	e.Advance(ctx, EventNone, 149)
	if e.Status() == StatusDone {
		t.Fatal("settle timer was not restarted")
	}
	e.Advance(ctx, EventNone, 150)
	if e.Status() != StatusDone {
		t.Fatalf("Status() = %v, want done", e.Status())
	}
}

func TestReadFailuresAreRetried(t *testing.T) {
	h := hosttest.New()
	h.SetArgument(host.MainPanel, canopyArg, 0)
	h.Fail("ReadArgument", errors.New("attempt to index a nil value"))
	client := hosttest.NewClient(t, h)
	ctx := testContext(t)
	logger := &countingLogger{}

	proc := Procedure{Name: "p", Steps: []Step{
		{Name: "wait", Until: PollArgument{Device: host.MainPanel, Argument: canopyArg, Compare: Equal, Value: 0}},
	}}
	e := New(proc, client, Options{Logger: logger})

	for i := 0; i < 3; i++ {
		e.Advance(ctx, EventNone, float64(i))
	}
	if e.Status() == StatusDone {
		t.Fatal("advanced despite read failures")
	}
	if n := logger.count("step wait failed"); n != 3 {
		t.Errorf("warnings = %d, want 3", n)
	}

	h.Fail("ReadArgument", nil)
	if st := e.Advance(ctx, EventNone, 4); st != StatusDone {
		t.Fatalf("Status() = %v after recovery, want done", st)
	}
}

func TestFailedClickLoggedAndBatchContinues(t *testing.T) {
	h := hosttest.New()
	h.FailDevice(53, errors.New("device not found"))
	client := hosttest.NewClient(t, h)
	ctx := testContext(t)
	logger := &countingLogger{}

	proc := Procedure{Name: "p", Steps: []Step{
		{Name: "start", Until: WaitEvent{Event: EventStart}, Then: []Action{{Confirm: true, Ops: []host.Op{
			host.Click{Device: 53, Command: 3025, Value: 1},
			host.Click{Device: 3, Command: 3238, Value: 1},
		}}}},
		{Name: "wait", Until: WaitEvent{Event: EventStart}},
	}}
	e := New(proc, client, Options{Logger: logger})

	e.Advance(ctx, EventStart, 0)

	if got := e.Step(); got != "wait" {
		t.Errorf("Step() = %q, want wait", got)
	}
	if n := logger.count("action failed"); n != 1 {
		t.Errorf("action failures logged = %d, want 1", n)
	}
	want := hosttest.Action{Device: 3, Command: 3238, Value: 1}
	if got := h.Actions(); len(got) != 1 || got[0] != want {
		t.Errorf("actions = %v, want [%v]", got, want)
	}
}

func TestStallWarningLoggedOnce(t *testing.T) {
	h := hosttest.New()
	h.SetArgument(host.MainPanel, tachometer, 0)
	client := hosttest.NewClient(t, h)
	ctx := testContext(t)
	logger := &countingLogger{}

	proc := Procedure{Name: "p", Steps: []Step{
		{Name: "start", Until: WaitEvent{Event: EventStart}},
		{Name: "spool", Until: PollArgument{Device: host.MainPanel, Argument: tachometer, Compare: AtLeast, Value: 0.12}},
	}}
	e := New(proc, client, Options{Logger: logger, StallWarnAfter: 30})

	e.Advance(ctx, EventStart, 0)
	for now := 1.0; now <= 90; now += 10 {
		e.Advance(ctx, EventNone, now)
	}

	if n := logger.count("step is taking longer than expected"); n != 1 {
		t.Errorf("stall warnings = %d, want 1", n)
	}
	if e.Step() != "spool" {
		t.Errorf("Step() = %q, stall must not change state", e.Step())
	}
}

func hudDump(align string) string {
	sep := "\n" + indication.Separator + "\n"
	if align == "" {
		return sep + "HUD_Window7_origin\n\n"
	}
	return sep + "HUD_Window7_origin\n\nchildren are {\n" + sep + "HUD_Window7_AlignmentStatus\n" + align + "\n}\n"
}

func TestScanTextMatches(t *testing.T) {
	path := []string{"HUD_Window7_origin", "HUD_Window7_AlignmentStatus"}
	tests := []struct {
		name string
		wait ScanText
		dump string
		want bool
	}{
		{"equals hit", ScanText{Device: 1, Path: path, Match: MatchEquals, Expected: "ALIGN"}, hudDump("ALIGN"), true},
		{"equals other text", ScanText{Device: 1, Path: path, Match: MatchEquals, Expected: "ALIGN"}, hudDump("NAV"), false},
		{"equals missing", ScanText{Device: 1, Path: path, Match: MatchEquals, Expected: "ALIGN"}, hudDump(""), false},
		{"present", ScanText{Device: 1, Path: path, Match: MatchPresent}, hudDump("NAV"), true},
		{"absent when gone", ScanText{Device: 1, Path: path, Match: MatchAbsent}, hudDump(""), true},
		{"absent when blank dump", ScanText{Device: 1, Path: path, Match: MatchAbsent}, "", true},
		{"absent while shown", ScanText{Device: 1, Path: path, Match: MatchAbsent}, hudDump("ALIGN"), false},
		{"nonempty blank", ScanText{Device: 6, Match: MatchNonEmpty}, "", false},
		{"nonempty text", ScanText{Device: 6, Match: MatchNonEmpty}, "anything", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := hosttest.New()
			h.SetDump(tt.wait.Device, tt.dump)
			client := hosttest.NewClient(t, h)
			e := New(Procedure{Name: "p", Steps: []Step{{Name: "scan", Until: tt.wait}}}, client, Options{})

			done := e.Advance(testContext(t), EventNone, 0) == StatusDone
			if done != tt.want {
				t.Errorf("satisfied = %v, want %v", done, tt.want)
			}
		})
	}
}

func TestCockpitParamWait(t *testing.T) {
	h := hosttest.New()
	h.SetCockpitParams("BASE_SENSOR_CANOPY_STATE:1\nBASE_SENSOR_CANOPY_POS:0.4\n")
	client := hosttest.NewClient(t, h)
	ctx := testContext(t)
	logger := &countingLogger{}

	proc := Procedure{Name: "p", Steps: []Step{
		{Name: "canopy", Until: PollCockpitParam{Name: "BASE_SENSOR_CANOPY_POS", Compare: Equal, Value: 0}},
	}}
	e := New(proc, client, Options{Logger: logger})

	e.Advance(ctx, EventNone, 0)
	if e.Status() == StatusDone {
		t.Fatal("canopy reported closed while open")
	}

	h.SetCockpitParams("BASE_SENSOR_CANOPY_POS:0\n")
	if e.Advance(ctx, EventNone, 1) != StatusDone {
		t.Fatal("canopy closure not detected")
	}

	// A missing parameter is an index failure: logged, not fatal.
	h.SetCockpitParams("SOMETHING_ELSE:1\n")
	e2 := New(proc, client, Options{Logger: logger})
	e2.Advance(ctx, EventNone, 0)
	if e2.Status() == StatusDone || logger.count("step wait failed") != 1 {
		t.Errorf("missing param: status %v, warnings %d", e2.Status(), logger.count("step wait failed"))
	}
}

func TestContinuousProgress(t *testing.T) {
	client := hosttest.NewClient(t, hosttest.New())
	ctx := testContext(t)
	rep := &recordingReporter{}
	proc := Procedure{Name: "p", ExpectedDuration: 100, Steps: []Step{
		{Name: "start", Until: WaitEvent{Event: EventStart}},
		{Name: "wait", Until: Settle{Duration: 500}},
	}}
	e := New(proc, client, Options{Reporter: rep.report})

	e.Advance(ctx, EventStart, 20)
	e.Advance(ctx, EventNone, 45)
	if got := rep.last().Value; got != 0.25 {
		t.Errorf("progress at 25s = %g, want 0.25", got)
	}
	e.Advance(ctx, EventNone, 400)
	if got := rep.last().Value; got != 1 {
		t.Errorf("progress past expected duration = %g, want clamped 1", got)
	}
}

func TestActionVerifyWaitsForReadback(t *testing.T) {
	h := hosttest.New()
	h.Bind(17, 3032, 184)
	client := hosttest.NewClient(t, h)
	ctx := testContext(t)

	proc := Procedure{Name: "p", Steps: []Step{{
		Name: "ded_return",
		Then: []Action{
			{Ops: []host.Op{host.Spring3Pos{Device: 17, Down: 3032, Up: 3033, Position: host.PositionDown}},
				Verify: &Readback{Device: host.MainPanel, Argument: 184, Value: -1}},
			{Ops: []host.Op{host.Barrier{}}, Confirm: true},
			{Ops: []host.Op{host.Spring3Pos{Device: 17, Down: 3032, Up: 3033, Position: host.PositionMiddle}},
				Verify: &Readback{Device: host.MainPanel, Argument: 184, Value: 0}},
		},
	}}}
	e := New(proc, client, Options{})

	if e.Advance(ctx, EventNone, 0) != StatusDone {
		t.Fatal("procedure did not complete")
	}
	actions := h.Actions()
	if len(actions) != 5 {
		t.Fatalf("actions = %d (%v), want 5", len(actions), actions)
	}
	if last := actions[len(actions)-1]; last.Value != 0 {
		t.Errorf("last action = %v, want release", last)
	}
	if n := h.Reads(host.MainPanel, 184); n < 2 {
		t.Errorf("readbacks = %d, want at least 2", n)
	}
}

func TestFireAndContinuePreservesOrder(t *testing.T) {
	h := hosttest.New()
	client := hosttest.NewClient(t, h)
	ctx := testContext(t)

	var actions []Action
	for i := 0; i < 5; i++ {
		actions = append(actions, Action{Ops: []host.Op{host.Click{Device: 1, Command: 3000 + i, Value: 1}}})
	}
	actions = append(actions, Action{Ops: []host.Op{host.Barrier{}}, Confirm: true})
	e := New(Procedure{Name: "p", Steps: []Step{{Name: "batch", Then: actions}}}, client, Options{})
	e.Advance(ctx, EventNone, 0)

	got := h.Actions()
	if len(got) != 5 {
		t.Fatalf("actions = %d, want 5", len(got))
	}
	for i, a := range got {
		if a.Command != 3000+i {
			t.Errorf("action %d = %v, want command %d", i, a, 3000+i)
		}
	}
}

func ExampleTimer() {
	timer := NewTimer(2.3, 10)
	fmt.Println(timer.Expired(12.29), timer.Expired(12.3))
	// Output: false true
}
