package luahost

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/nerrad567/preflight/internal/host"
)

//go:embed scripts/bench.lua
var benchScript string

// BenchName is the script name reported for the embedded bench.
const BenchName = "bench.lua"

var (
	errNotFunction = errors.New("not a function")
	errNoOwnship   = errors.New("no ownship")
)

// Logger defines the logging interface used by the Host.
type Logger interface {
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}

// Options configures a Host. Path wins over Source; with neither the bench
// script is loaded.
type Options struct {
	Path   string
	Source string
	Logger Logger
}

// Host is a host.Host backed by a Lua state.
type Host struct {
	L      *lua.LState
	name   string
	logger Logger
}

var _ host.Host = (*Host)(nil)

// New creates a Lua state and runs the configured script in it.
func New(opts Options) (*Host, error) {
	h := &Host{L: lua.NewState(), logger: opts.Logger}
	if h.logger == nil {
		h.logger = noopLogger{}
	}
	h.L.SetGlobal("print", h.L.NewFunction(h.print))

	var err error
	switch {
	case opts.Path != "":
		h.name = opts.Path
		err = h.L.DoFile(opts.Path)
	case opts.Source != "":
		h.name = "inline"
		err = h.L.DoString(opts.Source)
	default:
		h.name = BenchName
		err = h.L.DoString(benchScript)
	}
	if err != nil {
		h.L.Close()
		return nil, fmt.Errorf("loading script %s: %w", h.name, err)
	}
	return h, nil
}

// Name returns the loaded script's name.
func (h *Host) Name() string { return h.name }

// Close releases the Lua state.
func (h *Host) Close() { h.L.Close() }

// Call calls a global Lua function with numeric, string or boolean arguments
// and returns its first result.
func (h *Host) Call(name string, args ...any) (lua.LValue, error) {
	largs := make([]lua.LValue, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case int:
			largs[i] = lua.LNumber(v)
		case float64:
			largs[i] = lua.LNumber(v)
		case string:
			largs[i] = lua.LString(v)
		case bool:
			largs[i] = lua.LBool(v)
		default:
			return lua.LNil, fmt.Errorf("calling %s: unsupported argument type %T", name, a)
		}
	}
	ret, err := h.call(h.L.GetGlobal(name), 1, largs...)
	if err != nil {
		return lua.LNil, fmt.Errorf("calling %s: %w", name, err)
	}
	return ret[0], nil
}

// Frame calls the script's on_frame(dt) if it defines one.
func (h *Host) Frame(dt float64) error {
	fn := h.L.GetGlobal("on_frame")
	if fn.Type() == lua.LTNil {
		return nil
	}
	if _, err := h.call(fn, 0, lua.LNumber(dt)); err != nil {
		return fmt.Errorf("on_frame: %w", err)
	}
	return nil
}

func (h *Host) PerformAction(device, command int, value float64) error {
	dev, err := h.device(device)
	if err != nil {
		return host.OperationError("PerformAction", err)
	}
	fn := h.L.GetField(dev, "performClickableAction")
	if _, err := h.call(fn, 0, dev, lua.LNumber(command), lua.LNumber(value)); err != nil {
		return host.OperationError("PerformAction", err)
	}
	return nil
}

func (h *Host) ReadArgument(device, argument int) (float64, error) {
	dev, err := h.device(device)
	if err != nil {
		return 0, host.OperationError("ReadArgument", err)
	}
	ret, err := h.call(h.L.GetField(dev, "get_argument_value"), 1, dev, lua.LNumber(argument))
	if err != nil {
		return 0, host.OperationError("ReadArgument", err)
	}
	n, ok := ret[0].(lua.LNumber)
	if !ok {
		return 0, host.OperationError("ReadArgument", fmt.Errorf("argument %d is %s", argument, ret[0].Type()))
	}
	return float64(n), nil
}

func (h *Host) ReadTextDump(device int) (string, error) {
	ret, err := h.call(h.L.GetGlobal("list_indication"), 1, lua.LNumber(device))
	if err != nil {
		return "", host.OperationError("ReadTextDump", err)
	}
	return stringOf(ret[0]), nil
}

func (h *Host) SimulationTime() (float64, error) {
	ret, err := h.call(h.lookup("DCS", "getModelTime"), 1)
	if err != nil {
		return 0, host.OperationError("SimulationTime", err)
	}
	n, ok := ret[0].(lua.LNumber)
	if !ok {
		return 0, host.OperationError("SimulationTime", fmt.Errorf("model time is %s", ret[0].Type()))
	}
	return float64(n), nil
}

func (h *Host) IsPaused() (bool, error) {
	ret, err := h.call(h.lookup("DCS", "getPause"), 1)
	if err != nil {
		return false, host.OperationError("IsPaused", err)
	}
	return lua.LVAsBool(ret[0]), nil
}

func (h *Host) ListCockpitParams() (string, error) {
	ret, err := h.call(h.L.GetGlobal("list_cockpit_params"), 1)
	if err != nil {
		return "", host.OperationError("ListCockpitParams", err)
	}
	return stringOf(ret[0]), nil
}

func (h *Host) SetCommand(command int) error {
	if _, err := h.call(h.lookup("Export", "LoSetCommand"), 0, lua.LNumber(command)); err != nil {
		return host.OperationError("SetCommand", err)
	}
	return nil
}

func (h *Host) OwnshipType() (string, error) {
	ret, err := h.call(h.lookup("Export", "LoGetSelfData"), 1)
	if err != nil {
		return "", host.OperationError("OwnshipType", err)
	}
	if ret[0].Type() != lua.LTTable {
		return "", host.OperationError("OwnshipType", errNoOwnship)
	}
	name := stringOf(h.L.GetField(ret[0], "Name"))
	if name == "" {
		return "", host.OperationError("OwnshipType", errNoOwnship)
	}
	return name, nil
}

func (h *Host) device(id int) (lua.LValue, error) {
	ret, err := h.call(h.lookup("Export", "GetDevice"), 1, lua.LNumber(id))
	if err != nil {
		return lua.LNil, err
	}
	if ret[0].Type() != lua.LTTable {
		return lua.LNil, fmt.Errorf("no device %d", id)
	}
	return ret[0], nil
}

// lookup walks a dotted path of globals, returning nil when a link is missing.
func (h *Host) lookup(path ...string) lua.LValue {
	v := h.L.GetGlobal(path[0])
	for _, field := range path[1:] {
		if v.Type() != lua.LTTable {
			return lua.LNil
		}
		v = h.L.GetField(v, field)
	}
	return v
}

func (h *Host) call(fn lua.LValue, nret int, args ...lua.LValue) ([]lua.LValue, error) {
	if fn.Type() != lua.LTFunction {
		return nil, errNotFunction
	}
	if err := h.L.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
		return nil, err
	}
	out := make([]lua.LValue, nret)
	for i := nret - 1; i >= 0; i-- {
		out[i] = h.L.Get(-1)
		h.L.Pop(1)
	}
	return out, nil
}

func (h *Host) print(L *lua.LState) int {
	parts := make([]string, L.GetTop())
	for i := range parts {
		parts[i] = L.Get(i + 1).String()
	}
	h.logger.Info("script output", "script", h.name, "text", strings.Join(parts, "\t"))
	return 0
}

func stringOf(v lua.LValue) string {
	switch v := v.(type) {
	case lua.LString:
		return string(v)
	case lua.LNumber:
		return v.String()
	}
	return ""
}
