package host

import (
	"context"

	"github.com/nerrad567/preflight/internal/offload"
)

// Client sends host operations over the interactive and export channels.
type Client struct {
	interactive *offload.Sender[Host]
	export      *offload.Sender[Host]
}

// NewClient wraps the two producer handles. The Client takes ownership of
// them and releases them on Close.
func NewClient(interactive, export *offload.Sender[Host]) *Client {
	return &Client{interactive: interactive, export: export}
}

// Clone returns a Client with its own producer handles on the same channels.
func (c *Client) Clone() *Client {
	return &Client{interactive: c.interactive.Clone(), export: c.export.Clone()}
}

// Close releases the producer handles.
func (c *Client) Close() {
	c.interactive.Close()
	c.export.Close()
}

// Do sends ops as one interactive job. They run back to back in one frame.
func (c *Client) Do(ops ...Op) *offload.Future[Result] {
	return offload.Submit(c.interactive, func(h Host) Result { return Batch(h, ops...) })
}

// DoExport sends ops as one export job.
func (c *Client) DoExport(ops ...Op) *offload.Future[Result] {
	return offload.Submit(c.export, func(h Host) Result { return Batch(h, ops...) })
}

// Exec runs fn on the interactive channel.
func (c *Client) Exec(fn func(Host) error) *offload.Future[error] {
	return offload.Submit(c.interactive, fn)
}

// Await waits for f and folds the host error into the returned error.
func Await(ctx context.Context, f *offload.Future[Result]) (Result, error) {
	res, err := f.WaitContext(ctx)
	if err != nil {
		return Result{}, err
	}
	return res, res.Err
}

// ReadArgument reads a drawing argument.
func (c *Client) ReadArgument(ctx context.Context, device, argument int) (float64, error) {
	res, err := Await(ctx, c.Do(ReadArgument{Device: device, Argument: argument}))
	return res.Value, err
}

// SimulationTime reads the simulation clock.
func (c *Client) SimulationTime(ctx context.Context) (float64, error) {
	res, err := Await(ctx, c.Do(SimTime{}))
	return res.Value, err
}

// IsPaused reads the pause flag.
func (c *Client) IsPaused(ctx context.Context) (bool, error) {
	res, err := Await(ctx, c.Do(Paused{}))
	return res.Flag, err
}

// ReadTextDump fetches an indication dump over the export channel.
func (c *Client) ReadTextDump(ctx context.Context, device int) (string, error) {
	res, err := Await(ctx, c.DoExport(ReadDump{Device: device}))
	return res.Text, err
}

// CockpitParams fetches the cockpit parameter listing over the export channel.
func (c *Client) CockpitParams(ctx context.Context) (string, error) {
	res, err := Await(ctx, c.DoExport(ReadCockpitParams{}))
	return res.Text, err
}

// WaitFrame returns after the host goroutine has processed one interactive
// drain.
func (c *Client) WaitFrame(ctx context.Context) error {
	_, err := Await(ctx, c.Do(Barrier{}))
	return err
}
