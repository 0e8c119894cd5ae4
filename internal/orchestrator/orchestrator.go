package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/preflight/internal/host"
	"github.com/nerrad567/preflight/internal/sequence"
)

// inboxSize bounds queued start and interrupt requests.
const inboxSize = 16

// persistTimeout bounds each run-history write.
const persistTimeout = 5 * time.Second

// ProgressChannel is the WebSocket channel updates are broadcast on.
const ProgressChannel = "sequence.progress"

// Logger defines the logging interface used by the orchestrator.
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

// Procedures resolves the start-up procedure for an aircraft type.
type Procedures interface {
	Procedure(ownship string) (sequence.Procedure, error)
}

// ProgressWriter records progress samples and run outcomes in a
// time-series store.
type ProgressWriter interface {
	WriteSequenceProgress(target, procedure, step, status string, value float64)
	WriteRunOutcome(target, procedure, outcome string, simSeconds *float64)
}

// WSHub is the interface for broadcasting WebSocket events.
type WSHub interface {
	Broadcast(channel string, payload any)
}

// Options holds the orchestrator's optional collaborators.
type Options struct {
	Runs     RunRepository
	Progress ProgressWriter
	Hub      WSHub
	Logger   Logger

	// StallWarnAfter is passed to every engine. Zero disables the warning.
	StallWarnAfter float64
}

// UpdateKind says what changed in an Update.
type UpdateKind string

const (
	UpdateProgress UpdateKind = "progress"
	UpdateTarget   UpdateKind = "target"
	UpdatePaused   UpdateKind = "paused"
	UpdateRun      UpdateKind = "run"
)

// Status is a snapshot of the orchestrator.
type Status struct {
	Target    string          `json:"target"`
	Supported bool            `json:"supported"`
	Aircraft  string          `json:"aircraft,omitempty"`
	Procedure string          `json:"procedure,omitempty"`
	State     sequence.Status `json:"state"`
	Step      string          `json:"step,omitempty"`
	Progress  float64         `json:"progress"`
	Text      string          `json:"text"`
	Paused    bool            `json:"paused"`
	Running   bool            `json:"running"`
	RunID     string          `json:"run_id,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Update is one notification to subscribers. Run is set on UpdateRun,
// which is sent when a run finishes.
type Update struct {
	Kind   UpdateKind `json:"kind"`
	Status Status     `json:"status"`
	Run    *Run       `json:"run,omitempty"`
}

// targetChange is a pending retarget. A refresh carries no name: it is
// resolved against the current target on the Run goroutine.
type targetChange struct {
	name    string
	force   bool
	refresh bool
}

// Orchestrator owns the engine for the aircraft currently flown.
//
// Thread Safety: Wake, TargetChanged, RefreshTarget, RequestStart,
// RequestInterrupt, SetPaused, Subscribe and Status are safe for concurrent
// use. Everything else runs on the Run goroutine.
type Orchestrator struct {
	client     *host.Client
	procedures Procedures
	runs       RunRepository
	progress   ProgressWriter
	hub        WSHub
	logger     Logger
	stall      float64
	broker     *Broker

	wake    chan struct{}
	inbox   chan sequence.Event
	running atomic.Bool

	// Latest target change not yet applied. Changes coalesce so the host
	// thread never blocks on a full inbox.
	targetMu sync.Mutex
	pending  *targetChange

	// Owned by the Run goroutine.
	engine  *sequence.Engine
	target  string
	applied bool
	run     *Run
	summary *sequence.Summary

	mu     sync.RWMutex
	status Status
}

// New creates an orchestrator that drives engines through client.
func New(client *host.Client, procedures Procedures, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Orchestrator{
		client:     client,
		procedures: procedures,
		runs:       opts.Runs,
		progress:   opts.Progress,
		hub:        opts.Hub,
		logger:     logger,
		stall:      opts.StallWarnAfter,
		broker:     NewBroker(),
		wake:       make(chan struct{}, 1),
		inbox:      make(chan sequence.Event, inboxSize),
		status:     Status{State: sequence.StatusIdle},
	}
}

// Run processes wakes until ctx is cancelled. A run in progress at shutdown
// is recorded as abandoned.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer o.running.Store(false)

	o.setRunning(true)
	o.logger.Info("orchestrator started")

	for {
		select {
		case <-ctx.Done():
			o.abandon(ctx, "shutdown")
			o.setRunning(false)
			o.logger.Info("orchestrator stopped")
			return nil
		case <-o.wake:
			o.tick(ctx)
		}
	}
}

// Wake signals that a host frame has passed. Signals coalesce.
func (o *Orchestrator) Wake() {
	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// TargetChanged records the aircraft now flown. It takes effect on the next
// wake; only the latest change is kept. A refresh requested before it is
// folded in.
func (o *Orchestrator) TargetChanged(name string) {
	o.targetMu.Lock()
	defer o.targetMu.Unlock()
	force := o.pending != nil && (o.pending.force || o.pending.refresh)
	o.pending = &targetChange{name: name, force: force}
}

// RefreshTarget rebuilds the engine for the current target after the
// profiles change. An engine that has started keeps its procedure.
func (o *Orchestrator) RefreshTarget() {
	o.targetMu.Lock()
	defer o.targetMu.Unlock()
	if o.pending != nil {
		o.pending.force = true
		return
	}
	o.pending = &targetChange{refresh: true}
}

// RequestStart queues a start request.
func (o *Orchestrator) RequestStart() error {
	return o.enqueue(sequence.EventStart)
}

// RequestInterrupt queues an interrupt request.
func (o *Orchestrator) RequestInterrupt() error {
	return o.enqueue(sequence.EventInterrupt)
}

func (o *Orchestrator) enqueue(ev sequence.Event) error {
	select {
	case o.inbox <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// SetPaused records the simulator's pause state.
func (o *Orchestrator) SetPaused(paused bool) {
	o.mu.Lock()
	if o.status.Paused == paused {
		o.mu.Unlock()
		return
	}
	o.status.Paused = paused
	o.status.UpdatedAt = time.Now().UTC()
	snap := o.status
	o.mu.Unlock()

	o.publish(UpdatePaused, snap)
}

// Subscribe returns a channel of updates and an unsubscribe function.
func (o *Orchestrator) Subscribe() (<-chan Update, func()) {
	return o.broker.Subscribe()
}

// Status returns a snapshot.
func (o *Orchestrator) Status() Status {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.status
}

// Close closes every subscription.
func (o *Orchestrator) Close() {
	o.broker.Close()
}

// tick handles one wake: at most one message, then one Advance.
func (o *Orchestrator) tick(ctx context.Context) {
	ev := sequence.EventNone
	if change, ok := o.takeTarget(); ok {
		o.retarget(ctx, change)
	} else {
		select {
		case ev = <-o.inbox:
		default:
		}
	}

	if o.engine == nil {
		if ev != sequence.EventNone {
			o.logger.Info("request ignored, no sequence for aircraft", "target", o.target, "event", ev.String())
		}
		return
	}

	now, err := o.client.SimulationTime(ctx)
	if err != nil {
		if ctx.Err() == nil {
			o.logger.Debug("simulation time unavailable, skipping tick", "error", err)
		}
		return
	}

	before := o.engine.Status()
	after := o.engine.Advance(ctx, ev, now)
	o.transition(ctx, before, after)
}

func (o *Orchestrator) takeTarget() (targetChange, bool) {
	o.targetMu.Lock()
	defer o.targetMu.Unlock()
	if o.pending == nil {
		return targetChange{}, false
	}
	change := *o.pending
	o.pending = nil
	if change.refresh {
		if !o.applied {
			return targetChange{}, false
		}
		change = targetChange{name: o.target, force: true}
	}
	return change, true
}

func (o *Orchestrator) retarget(ctx context.Context, change targetChange) {
	if o.applied && change.name == o.target {
		if !change.force {
			return
		}
		if o.engine != nil && o.engine.Status() != sequence.StatusIdle {
			o.logger.Info("profiles changed, active sequence keeps its procedure", "target", o.target)
			return
		}
	}

	if o.target != change.name {
		o.abandon(ctx, "target changed")
	}
	o.target = change.name
	o.applied = true
	o.engine = nil
	o.summary = nil

	next := Status{Target: change.name, State: sequence.StatusIdle}
	if change.name == "" {
		o.logger.Info("no aircraft")
	} else if proc, err := o.procedures.Procedure(change.name); err != nil {
		o.logger.Info("no start-up sequence for aircraft", "target", change.name, "reason", err)
	} else {
		o.engine = sequence.New(proc, o.client, sequence.Options{
			Logger:         o.logger,
			Reporter:       o.report,
			OnDone:         o.done,
			StallWarnAfter: o.stall,
		})
		p := o.engine.Progress()
		next.Supported = true
		next.Aircraft = proc.Aircraft
		next.Procedure = proc.Name
		next.Step = p.Step
		o.logger.Info("start-up sequence ready", "target", change.name, "procedure", proc.Name)
	}

	o.mu.Lock()
	next.Paused = o.status.Paused
	next.Running = o.status.Running
	next.UpdatedAt = time.Now().UTC()
	o.status = next
	o.mu.Unlock()

	sequenceProgress.Set(0)
	o.publish(UpdateTarget, next)
}

// report receives engine progress on the Run goroutine.
func (o *Orchestrator) report(p sequence.Progress) {
	o.mu.Lock()
	o.status.State = p.Status
	o.status.Step = p.Step
	o.status.Progress = p.Value
	o.status.Text = p.Text
	o.status.UpdatedAt = time.Now().UTC()
	snap := o.status
	o.mu.Unlock()

	sequenceProgress.Set(p.Value)
	if o.run != nil {
		o.run.LastStep = p.Step
		o.run.Progress = p.Value
	}
	if o.progress != nil {
		o.progress.WriteSequenceProgress(o.target, p.Procedure, p.Step, string(p.Status), p.Value)
	}
	o.publish(UpdateProgress, snap)
}

func (o *Orchestrator) done(s sequence.Summary) {
	o.summary = &s
}

func (o *Orchestrator) transition(ctx context.Context, before, after sequence.Status) {
	if before == sequence.StatusIdle && after != sequence.StatusIdle {
		o.startRun(ctx)
	}
	switch {
	case after == sequence.StatusDone && before != sequence.StatusDone:
		runsTotal.WithLabelValues(outcomeCompleted).Inc()
		var elapsed *float64
		if o.summary != nil {
			e := o.summary.Elapsed
			elapsed = &e
			runSeconds.Observe(e)
		}
		o.finishRun(ctx, RunCompleted, elapsed)
	case before == sequence.StatusRunning && after == sequence.StatusIdle:
		runsTotal.WithLabelValues(outcomeInterrupted).Inc()
		o.finishRun(ctx, RunInterrupted, nil)
	}
}

func (o *Orchestrator) startRun(ctx context.Context) {
	runsTotal.WithLabelValues(outcomeStarted).Inc()

	p := o.engine.Progress()
	o.run = NewRun(o.target, o.engine.Procedure().Name, time.Now())
	o.run.LastStep = p.Step
	o.run.Progress = p.Value
	o.setRunID(o.run.ID)

	if o.runs == nil {
		return
	}
	pctx, cancel := persistContext(ctx)
	defer cancel()
	if err := o.runs.Create(pctx, o.run); err != nil {
		o.logger.Error("recording run start failed", "run_id", o.run.ID, "error", err)
	}
}

func (o *Orchestrator) finishRun(ctx context.Context, status RunStatus, simSeconds *float64) {
	if o.run == nil {
		return
	}
	run := o.run
	o.run = nil
	o.setRunID("")

	finished := time.Now().UTC()
	run.Status = status
	run.FinishedAt = &finished
	run.SimSeconds = simSeconds

	o.logger.Info("run finished", "run_id", run.ID, "target", run.Target, "status", string(status))
	if o.progress != nil {
		o.progress.WriteRunOutcome(run.Target, run.Procedure, string(status), simSeconds)
	}

	o.mu.Lock()
	snap := o.status
	o.mu.Unlock()
	outcome := *run
	o.broadcast(Update{Kind: UpdateRun, Status: snap, Run: &outcome})

	if o.runs == nil {
		return
	}
	pctx, cancel := persistContext(ctx)
	defer cancel()
	if err := o.runs.Update(pctx, run); err != nil {
		o.logger.Error("recording run outcome failed", "run_id", run.ID, "error", err)
	}
}

// abandon closes a run cut short by anything other than an interrupt.
func (o *Orchestrator) abandon(ctx context.Context, reason string) {
	if o.run == nil {
		return
	}
	o.logger.Info("abandoning run", "run_id", o.run.ID, "reason", reason)
	runsTotal.WithLabelValues(outcomeAbandoned).Inc()
	o.finishRun(ctx, RunAbandoned, nil)
}

func (o *Orchestrator) setRunID(id string) {
	o.mu.Lock()
	o.status.RunID = id
	o.mu.Unlock()
}

func (o *Orchestrator) setRunning(running bool) {
	o.mu.Lock()
	o.status.Running = running
	o.status.UpdatedAt = time.Now().UTC()
	o.mu.Unlock()
}

func (o *Orchestrator) publish(kind UpdateKind, snap Status) {
	o.broadcast(Update{Kind: kind, Status: snap})
}

func (o *Orchestrator) broadcast(u Update) {
	o.broker.Publish(u)
	if o.hub != nil {
		o.hub.Broadcast(ProgressChannel, u)
	}
}

// persistContext outlives cancellation of the Run context so that the
// outcome of a run interrupted by shutdown is still written.
func persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
}
