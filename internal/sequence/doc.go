// Package sequence runs start-up procedures as poll-driven state machines.
//
// A Procedure is an ordered list of Steps. Each Step is one state: it names
// what it waits for (a start event, a readback crossing a threshold, a cockpit
// parameter, a settle timer or an avionics text) and the actions to issue once
// that wait is satisfied. The Engine is advanced once per wake-up by its
// owner; every Advance evaluates the current step exactly once and makes at
// most one transition, so a single wake never stalls the host.
//
//	Advance(event, now)
//	     │
//	     ▼
//	┌──────────┐  wait satisfied   ┌─────────────┐   ┌───────────┐
//	│ Step[i]  │──────────────────▶│ run actions │──▶│ Step[i+1] │ ... ▶ Done
//	└──────────┘                   └─────────────┘   └───────────┘
//	     │ not yet / read failed
//	     ▼
//	   stay (retry next Advance)
//
// # Actions
//
// Actions are batches of host.Op values sent as one job. By default they are
// fire-and-continue; Confirm waits for the job, Verify additionally polls a
// readback until it shows the expected value, and Hold pauses afterwards.
//
// # Errors
//
// Read failures inside a wait are logged and treated as "not yet". There is no
// failure state: a procedure that cannot progress simply stays where it is.
//
// # Thread Safety
//
// An Engine is owned by one goroutine (the orchestrator's) and is not safe for
// concurrent use. It must never be advanced on the host goroutine.
package sequence
