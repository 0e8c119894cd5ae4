// Package hosttest provides an in-memory, scriptable host.Host for tests.
package hosttest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/preflight/internal/host"
	"github.com/nerrad567/preflight/internal/offload"
)

// Arg identifies a drawing argument on a device.
type Arg struct {
	Device   int
	Argument int
}

// Action records one PerformAction call.
type Action struct {
	Device  int
	Command int
	Value   float64
}

type binding struct {
	device  int
	command int
}

var _ host.Host = (*Host)(nil)

// Host is a fake cockpit. Clicks land in Actions and, when bound, move the
// bound argument to the clicked value. Readbacks can be fixed values or
// functions of how many times they have been read.
type Host struct {
	mu sync.Mutex

	args        map[Arg]float64
	argScripts  map[Arg]func(n int) float64
	reads       map[Arg]int
	bindings    map[binding]Arg
	dumps       map[int]string
	dumpScripts map[int]func(n int) string
	dumpReads   map[int]int
	params      string
	now         float64
	paused      bool
	ownship     string
	errs        map[string]error
	deviceErrs  map[int]error

	actions  []Action
	commands []int
}

// New returns an empty fake host.
func New() *Host {
	return &Host{
		args:        make(map[Arg]float64),
		argScripts:  make(map[Arg]func(int) float64),
		reads:       make(map[Arg]int),
		bindings:    make(map[binding]Arg),
		dumps:       make(map[int]string),
		dumpScripts: make(map[int]func(int) string),
		dumpReads:   make(map[int]int),
		errs:        make(map[string]error),
		deviceErrs:  make(map[int]error),
	}
}

// SetArgument fixes an argument value.
func (h *Host) SetArgument(device, argument int, v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.args[Arg{device, argument}] = v
}

// ScriptArgument makes an argument return fn(n) on its n-th read (from 1).
func (h *Host) ScriptArgument(device, argument int, fn func(n int) float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.argScripts[Arg{device, argument}] = fn
}

// Bind makes clicks on (device, command) set argument on host.MainPanel.
func (h *Host) Bind(device, command, argument int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bindings[binding{device, command}] = Arg{host.MainPanel, argument}
}

// SetDump fixes an indication dump.
func (h *Host) SetDump(device int, dump string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dumps[device] = dump
}

// ScriptDump makes a dump return fn(n) on its n-th read (from 1).
func (h *Host) ScriptDump(device int, fn func(n int) string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dumpScripts[device] = fn
}

// SetCockpitParams fixes the cockpit parameter listing.
func (h *Host) SetCockpitParams(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.params = s
}

// SetTime sets the simulation clock.
func (h *Host) SetTime(t float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = t
}

// SetPaused sets the pause flag.
func (h *Host) SetPaused(p bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.paused = p
}

// SetOwnship sets the aircraft type name.
func (h *Host) SetOwnship(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ownship = name
}

// Fail makes the named method (e.g. "ReadArgument") return err until cleared
// with a nil err.
func (h *Host) Fail(method string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.errs, method)
		return
	}
	h.errs[method] = err
}

// FailDevice makes clicks on device return err until cleared with a nil err.
func (h *Host) FailDevice(device int, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.deviceErrs, device)
		return
	}
	h.deviceErrs[device] = err
}

// Actions returns a copy of every click performed so far.
func (h *Host) Actions() []Action {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Action, len(h.actions))
	copy(out, h.actions)
	return out
}

// Commands returns every SetCommand issued so far.
func (h *Host) Commands() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]int, len(h.commands))
	copy(out, h.commands)
	return out
}

// Reads returns how many times an argument has been read.
func (h *Host) Reads(device, argument int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reads[Arg{device, argument}]
}

func (h *Host) failure(method string) error {
	if err, ok := h.errs[method]; ok {
		return host.OperationError(method, err)
	}
	return nil
}

func (h *Host) PerformAction(device, command int, value float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failure("PerformAction"); err != nil {
		return err
	}
	if err, ok := h.deviceErrs[device]; ok {
		return host.OperationError("PerformAction", err)
	}
	h.actions = append(h.actions, Action{device, command, value})
	if a, ok := h.bindings[binding{device, command}]; ok {
		h.args[a] = value
	}
	return nil
}

func (h *Host) ReadArgument(device, argument int) (float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failure("ReadArgument"); err != nil {
		return 0, err
	}
	a := Arg{device, argument}
	h.reads[a]++
	if fn, ok := h.argScripts[a]; ok {
		return fn(h.reads[a]), nil
	}
	return h.args[a], nil
}

func (h *Host) ReadTextDump(device int) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failure("ReadTextDump"); err != nil {
		return "", err
	}
	h.dumpReads[device]++
	if fn, ok := h.dumpScripts[device]; ok {
		return fn(h.dumpReads[device]), nil
	}
	return h.dumps[device], nil
}

func (h *Host) SimulationTime() (float64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now, h.failure("SimulationTime")
}

func (h *Host) IsPaused() (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.paused, h.failure("IsPaused")
}

func (h *Host) ListCockpitParams() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.params, h.failure("ListCockpitParams")
}

func (h *Host) SetCommand(command int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.failure("SetCommand"); err != nil {
		return err
	}
	h.commands = append(h.commands, command)
	return nil
}

func (h *Host) OwnshipType() (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ownship == "" {
		return "", host.OperationError("OwnshipType", fmt.Errorf("no ownship"))
	}
	return h.ownship, h.failure("OwnshipType")
}

// Serve drains the receivers against h on a background goroutine until the
// test ends, standing in for the simulator's frame callbacks.
func Serve(tb testing.TB, h host.Host, receivers ...*offload.Receiver[host.Host]) {
	tb.Helper()
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case <-done:
				return
			default:
			}
			for _, r := range receivers {
				r.Drain(h)
			}
			time.Sleep(200 * time.Microsecond)
		}
	}()
	tb.Cleanup(func() {
		close(done)
		<-finished
	})
}

// NewClient returns a client whose channels are served against h for the
// lifetime of the test.
func NewClient(tb testing.TB, h host.Host) *host.Client {
	tb.Helper()
	itx, irx := offload.NewChannel[host.Host]()
	etx, erx := offload.NewChannel[host.Host]()
	Serve(tb, h, irx, erx)
	c := host.NewClient(itx, etx)
	tb.Cleanup(c.Close)
	return c
}
