// Package executor runs queued host jobs on the host goroutine.
//
// The scripting host can only be touched from inside its own callbacks. An
// Executor owns the consuming ends of two job channels and is driven by those
// callbacks:
//
//   - OnFrame drains every pending interactive job (actuation, readback, sim
//     time), detects ownship changes and then wakes the sequencer.
//   - OnExportFrame drains every pending export job (indication dumps,
//     cockpit parameter listings).
//   - OnStart, OnPause and OnResume track the simulation's pause state.
//
// Jobs submitted between frames run on the next frame. FIFO order holds per
// channel; there is no ordering between the two channels. When a single
// callback drives both (the Driver), interactive jobs run first.
//
// A Driver stands in for the simulator's frame callbacks when the host runs
// in-process: it calls the executor at a fixed frame rate on its own
// goroutine, which then is the host goroutine.
//
// Example usage:
//
//	exec, client := executor.New(executor.Options{
//	    OnTarget: orch.TargetChanged,
//	    OnWake:   orch.Wake,
//	})
//	drv := executor.NewDriver(exec, luaHost, executor.DriverConfig{FrameRate: 30})
//	if err := drv.Start(ctx); err != nil {
//	    return err
//	}
//	defer exec.Stop()
//	defer drv.Stop()
package executor
