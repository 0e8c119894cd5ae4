package sequence

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/nerrad567/preflight/internal/host"
	"github.com/nerrad567/preflight/internal/indication"
)

// maxVerifyPolls bounds how many readbacks a Verify action makes before it
// gives up and lets the procedure carry on.
const maxVerifyPolls = 600

// Logger is the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Summary describes a completed run.
type Summary struct {
	Procedure string
	Elapsed   float64
}

// Options configures an Engine.
type Options struct {
	Logger   Logger
	Reporter Reporter

	// OnDone is called once, when the last step completes.
	OnDone func(Summary)

	// StallWarnAfter logs a warning once per step that has waited this many
	// simulation seconds. Zero disables it.
	StallWarnAfter float64
}

// Engine interprets one Procedure.
type Engine struct {
	proc   Procedure
	client *host.Client
	logger Logger
	report Reporter
	onDone func(Summary)
	parser *indication.Parser
	stall  float64

	index   int
	status  Status
	entered bool
	entry   float64
	settle  Timer
	started Timer
	warned  bool
	current Progress
}

// New creates an engine positioned at the procedure's first step.
func New(proc Procedure, client *host.Client, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	if proc.DoneText == "" {
		proc.DoneText = "DONE"
	}
	e := &Engine{
		proc:   proc,
		client: client,
		logger: logger,
		report: opts.Reporter,
		onDone: opts.OnDone,
		parser: indication.NewParser(logger),
		stall:  opts.StallWarnAfter,
		status: StatusIdle,
	}
	e.current = Progress{Procedure: proc.Name, Status: StatusIdle}
	if len(proc.Steps) > 0 {
		e.current.Step = proc.Steps[0].Name
	}
	return e
}

// Procedure returns the procedure being run.
func (e *Engine) Procedure() Procedure { return e.proc }

// Status returns the lifecycle position.
func (e *Engine) Status() Status { return e.status }

// Step returns the current step name, or "" once done.
func (e *Engine) Step() string {
	if e.index >= len(e.proc.Steps) {
		return ""
	}
	return e.proc.Steps[e.index].Name
}

// Progress returns the last report.
func (e *Engine) Progress() Progress { return e.current }

// Advance evaluates the current step once at simulation time now.
func (e *Engine) Advance(ctx context.Context, ev Event, now float64) Status {
	if ev == EventInterrupt {
		e.interrupt()
		return e.status
	}
	if e.status == StatusDone {
		return e.status
	}
	if e.index >= len(e.proc.Steps) {
		e.finish(now)
		return e.status
	}

	step := e.proc.Steps[e.index]
	if !e.entered {
		e.enter(step, now)
	}

	ok, err := e.satisfied(ctx, step.Until, ev, now)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			e.logger.Warn("step wait failed", "procedure", e.proc.Name, "step", step.Name, "wait", waitName(step.Until), "error", err)
		}
	}
	if !ok {
		e.checkStall(step, now)
		e.continuous(now)
		return e.status
	}

	if e.status == StatusIdle {
		e.status = StatusRunning
		e.started = NewTimer(0, now)
		e.logger.Info("sequence started", "procedure", e.proc.Name, "aircraft", e.proc.Aircraft)
	}
	e.logger.Debug("step complete", "procedure", e.proc.Name, "step", step.Name)
	e.run(ctx, step.Then)

	e.index++
	e.entered = false
	if e.index >= len(e.proc.Steps) {
		e.finish(now)
		return e.status
	}
	e.enter(e.proc.Steps[e.index], now)
	e.continuous(now)
	return e.status
}

func (e *Engine) enter(step Step, now float64) {
	e.entered = true
	e.entry = now
	e.warned = false
	if s, ok := step.Until.(Settle); ok {
		e.settle = NewTimer(s.Duration, now)
	}

	e.current.Step = step.Name
	e.current.Status = e.status
	if step.Progress > 0 {
		e.current.Value = step.Progress
	}
	if step.Text != "" {
		e.current.Text = step.Text
	}
	if step.Progress > 0 || step.Text != "" {
		e.emit()
	}
}

func (e *Engine) satisfied(ctx context.Context, w Wait, ev Event, now float64) (bool, error) {
	switch w := w.(type) {
	case nil:
		return true, nil
	case WaitEvent:
		return ev == w.Event, nil
	case Settle:
		return e.settle.Expired(now), nil
	case PollArgument:
		v, err := e.client.ReadArgument(ctx, w.Device, w.Argument)
		if err != nil {
			return false, err
		}
		return w.Compare.Holds(v, w.Value), nil
	case PollCockpitParam:
		listing, err := e.client.CockpitParams(ctx)
		if err != nil {
			return false, err
		}
		v, err := indication.CockpitParam(listing, w.Name)
		if err != nil {
			return false, err
		}
		return w.Compare.Holds(v, w.Value), nil
	case ScanText:
		dump, err := e.client.ReadTextDump(ctx, w.Device)
		if err != nil {
			return false, err
		}
		return e.matchText(w, dump), nil
	}
	return false, nil
}

func (e *Engine) matchText(w ScanText, dump string) bool {
	if w.Match == MatchNonEmpty {
		return dump != ""
	}
	value, found := e.parser.Parse(dump).Lookup(w.Path...)
	switch w.Match {
	case MatchAbsent:
		return !found
	case MatchEquals:
		return found && value == w.Expected
	default:
		return found
	}
}

func (e *Engine) run(ctx context.Context, actions []Action) {
	for _, a := range actions {
		f := e.client.Do(a.Ops...)
		if !a.blocking() {
			continue
		}
		if _, err := host.Await(ctx, f); err != nil {
			e.logger.Warn("action failed", "procedure", e.proc.Name, "error", err)
		}
		if a.Verify != nil {
			e.verify(ctx, *a.Verify)
		}
		if a.Hold > 0 {
			t := time.NewTimer(a.Hold)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
			}
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (e *Engine) verify(ctx context.Context, rb Readback) {
	for i := 0; i < maxVerifyPolls; i++ {
		v, err := e.client.ReadArgument(ctx, rb.Device, rb.Argument)
		if err != nil {
			e.logger.Warn("readback failed", "argument", rb.Argument, "error", err)
			return
		}
		if v == rb.Value {
			return
		}
	}
	e.logger.Warn("readback never reached expected value", "argument", rb.Argument, "want", rb.Value)
}

func (e *Engine) checkStall(step Step, now float64) {
	if e.stall <= 0 || e.warned || e.status != StatusRunning {
		return
	}
	if now-e.entry >= e.stall {
		e.warned = true
		e.logger.Warn("step is taking longer than expected",
			"procedure", e.proc.Name, "step", step.Name, "waiting_seconds", now-e.entry)
	}
}

func (e *Engine) continuous(now float64) {
	if e.status != StatusRunning || e.proc.ExpectedDuration <= 0 {
		return
	}
	e.current.Value = clamp(e.started.Elapsed(now) / e.proc.ExpectedDuration)
	e.emit()
}

func (e *Engine) finish(now float64) {
	if e.status == StatusDone {
		return
	}
	elapsed := 0.0
	if e.status == StatusRunning {
		elapsed = e.started.Elapsed(now)
	}
	e.status = StatusDone
	e.current = Progress{Procedure: e.proc.Name, Status: StatusDone, Value: 1, Text: e.proc.DoneText}
	e.emit()
	e.logger.Info("sequence finished", "procedure", e.proc.Name, "seconds", elapsed)
	if e.onDone != nil {
		e.onDone(Summary{Procedure: e.proc.Name, Elapsed: elapsed})
	}
}

func (e *Engine) interrupt() {
	if e.status != StatusRunning {
		return
	}
	e.logger.Info("sequence interrupted", "procedure", e.proc.Name, "step", e.Step())
	e.index = 0
	e.entered = false
	e.status = StatusIdle
	e.current = Progress{Procedure: e.proc.Name, Step: e.proc.Steps[0].Name, Status: StatusIdle, Text: "Interrupted"}
	e.emit()
}

func (e *Engine) emit() {
	if e.report != nil {
		e.report(e.current)
	}
}

func waitName(w Wait) string {
	if w == nil {
		return "none"
	}
	return w.String()
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
