package executor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/preflight/internal/host"
	"github.com/nerrad567/preflight/internal/offload"
)

// Logger defines the logging interface used by the Executor and Driver.
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

// Options configures an Executor. All callbacks are invoked on the host
// goroutine and must not block.
type Options struct {
	Logger Logger

	// OnTarget is called when the ownship type changes. An empty name means
	// no aircraft is being flown.
	OnTarget func(name string)

	// OnWake is called after every interactive frame.
	OnWake func()

	// OnPause is called when the pause state changes.
	OnPause func(paused bool)
}

// Executor runs jobs from the interactive and export channels.
type Executor struct {
	interactive *offload.Receiver[host.Host]
	export      *offload.Receiver[host.Host]

	logger   Logger
	onTarget func(string)
	onWake   func()
	onPause  func(bool)

	// ownship is only touched on the host goroutine.
	ownship string
	paused  atomic.Bool

	stopOnce sync.Once
}

// New creates an Executor with fresh channels and returns it with a Client
// that submits to them.
func New(opts Options) (*Executor, *host.Client) {
	itx, irx := offload.NewChannel[host.Host]()
	etx, erx := offload.NewChannel[host.Host]()
	return NewWithReceivers(irx, erx, opts), host.NewClient(itx, etx)
}

// NewWithReceivers creates an Executor around existing receivers.
func NewWithReceivers(interactive, export *offload.Receiver[host.Host], opts Options) *Executor {
	e := &Executor{
		interactive: interactive,
		export:      export,
		logger:      opts.Logger,
		onTarget:    opts.OnTarget,
		onWake:      opts.OnWake,
		onPause:     opts.OnPause,
	}
	if e.logger == nil {
		e.logger = noopLogger{}
	}
	return e
}

// OnStart records the pause state the simulation starts in.
func (e *Executor) OnStart(h host.Host) {
	paused, err := h.IsPaused()
	if err != nil {
		e.logger.Warn("reading pause state failed", "error", err)
		return
	}
	e.setPaused(paused)
}

// OnFrame handles one interactive frame: ownship detection, then every
// pending interactive job, then the wake signal.
func (e *Executor) OnFrame(h host.Host) {
	e.detectOwnship(h)
	e.drain(h, e.interactive, channelInteractive)
	if e.onWake != nil {
		e.onWake()
	}
}

// OnExportFrame runs every pending export job.
func (e *Executor) OnExportFrame(h host.Host) {
	e.drain(h, e.export, channelExport)
}

// OnPause records that the simulation paused.
func (e *Executor) OnPause(host.Host) { e.setPaused(true) }

// OnResume records that the simulation resumed.
func (e *Executor) OnResume(host.Host) { e.setPaused(false) }

// Paused reports the last known pause state. Safe from any goroutine.
func (e *Executor) Paused() bool { return e.paused.Load() }

// Stop closes both channels. Pending and later submissions resolve with
// offload.ErrDisconnected.
func (e *Executor) Stop() {
	e.stopOnce.Do(func() {
		e.interactive.Close()
		e.export.Close()
		e.logger.Info("executor stopped")
	})
}

func (e *Executor) drain(h host.Host, rx *offload.Receiver[host.Host], channel string) {
	queueDepth.WithLabelValues(channel).Set(float64(rx.Len()))
	start := time.Now()
	n := rx.Drain(h)
	drainDuration.WithLabelValues(channel).Observe(time.Since(start).Seconds())
	framesTotal.WithLabelValues(channel).Inc()
	if n > 0 {
		jobsTotal.WithLabelValues(channel).Add(float64(n))
	}
}

func (e *Executor) detectOwnship(h host.Host) {
	name, err := h.OwnshipType()
	if err != nil {
		// Between missions there is no ownship.
		name = ""
	}
	if name == e.ownship {
		return
	}
	e.logger.Info("ownship changed", "from", e.ownship, "to", name)
	e.ownship = name
	if e.onTarget != nil {
		e.onTarget(name)
	}
}

func (e *Executor) setPaused(p bool) {
	if e.paused.Swap(p) == p {
		return
	}
	e.logger.Debug("pause state changed", "paused", p)
	if e.onPause != nil {
		e.onPause(p)
	}
}
