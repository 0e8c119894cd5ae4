package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/preflight/internal/host"
)

// DefaultFrameRate is the Driver's frame rate when none is configured.
const DefaultFrameRate = 60

// Status is the Driver's lifecycle state.
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
)

// FrameHook is implemented by hosts that need a per-frame callback of their
// own before jobs run, such as a script's on_frame function.
type FrameHook interface {
	Frame(dt float64) error
}

// DriverConfig configures a Driver.
type DriverConfig struct {
	// FrameRate is frames per second. Zero means DefaultFrameRate.
	FrameRate int

	Logger Logger
}

// Driver calls an Executor's frame callbacks at a fixed rate on its own
// goroutine, standing in for a simulator that would otherwise call them.
type Driver struct {
	exec     *Executor
	host     host.Host
	interval time.Duration
	logger   Logger

	mu     sync.RWMutex
	status Status
	cancel context.CancelFunc
	done   chan struct{}

	frames    atomic.Uint64
	hookFails bool
}

// NewDriver creates a stopped Driver.
func NewDriver(exec *Executor, h host.Host, cfg DriverConfig) *Driver {
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = DefaultFrameRate
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	return &Driver{
		exec:     exec,
		host:     h,
		interval: time.Second / time.Duration(cfg.FrameRate),
		logger:   cfg.Logger,
		status:   StatusStopped,
	}
}

// Start begins driving frames until ctx is cancelled or Stop is called.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.status == StatusRunning {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	d.status = StatusRunning
	d.cancel = cancel
	d.done = make(chan struct{})
	done := d.done
	d.mu.Unlock()

	d.logger.Info("frame driver starting", "interval", d.interval)
	go d.loop(ctx, done)
	return nil
}

// Stop halts the frame loop and waits for the current frame to finish. The
// executor's channels stay open; call Executor.Stop to release waiters.
func (d *Driver) Stop() {
	d.mu.Lock()
	if d.status != StatusRunning {
		d.mu.Unlock()
		return
	}
	cancel, done := d.cancel, d.done
	d.mu.Unlock()

	cancel()
	<-done
	d.logger.Info("frame driver stopped", "frames", d.frames.Load())
}

// Status returns the Driver's lifecycle state.
func (d *Driver) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// Frames returns how many frames have been driven.
func (d *Driver) Frames() uint64 { return d.frames.Load() }

func (d *Driver) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		d.mu.Lock()
		d.status = StatusStopped
		d.mu.Unlock()
		close(done)
	}()

	d.exec.OnStart(d.host)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			d.frame(now.Sub(last))
			last = now
		}
	}
}

func (d *Driver) frame(dt time.Duration) {
	if hook, ok := d.host.(FrameHook); ok {
		err := hook.Frame(dt.Seconds())
		switch {
		case err != nil && !d.hookFails:
			d.hookFails = true
			d.logger.Warn("frame hook failed", "error", err)
		case err == nil && d.hookFails:
			d.hookFails = false
			d.logger.Info("frame hook recovered")
		}
	}

	if paused, err := d.host.IsPaused(); err == nil && paused != d.exec.Paused() {
		if paused {
			d.exec.OnPause(d.host)
		} else {
			d.exec.OnResume(d.host)
		}
	}

	d.exec.OnFrame(d.host)
	d.exec.OnExportFrame(d.host)
	d.frames.Add(1)
}
