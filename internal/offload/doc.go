// Package offload moves work onto a single designated goroutine and hands
// typed results back to whoever asked for them.
//
// The designated goroutine (the "host" goroutine) owns a value of type H that
// must never be touched from anywhere else, typically a scripting interpreter
// that is only valid inside its own callbacks. Producers on any goroutine
// submit closures over H; the host goroutine periodically calls Tick, TryTick
// or Drain on the Receiver to execute them.
//
// # Architecture
//
//	producer goroutines                    host goroutine
//	───────────────────                    ──────────────
//	Submit(sender, fn) ──► [ FIFO queue ] ──► Receiver.Drain(h)
//	        │                                      │
//	        ▼                                      ▼
//	   *Future[T] ◄──────── result slot ◄──── fn(h) returns T
//
// # Key Types
//
//   - Sender[H]: producer handle, cheap to Clone; the channel disconnects once
//     every Sender is closed and the queue is empty
//   - Receiver[H]: the single consumer, only ever used on the host goroutine
//   - Future[T]: one-shot result slot, written at most once
//
// # Thread Safety
//
// Submit never blocks and is safe from any goroutine. Jobs from one producer
// run in submission order. Future.Wait blocks and therefore must never be
// called on the host goroutine itself, because the job it waits for can only
// run there.
//
// # Usage
//
//	tx, rx := offload.NewChannel[*Interp]()
//	go func() {
//	    n, err := offload.Run(tx, func(i *Interp) int { return i.Count() })
//	    ...
//	}()
//	// inside the host callback:
//	rx.Drain(interp)
package offload
