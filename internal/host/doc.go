// Package host defines what the automation may ask of the simulation's
// scripting host, and how those requests travel to the host goroutine.
//
// The Host interface is the capability surface: click a cockpit control, read
// a control's argument, dump an avionics indication, read the simulation clock
// and pause flag. Implementations are only valid on the goroutine that owns the
// interpreter (see package luahost for the embedded one).
//
// Requests are expressed as Op values, a closed vocabulary of tagged variants
// that each know how to Apply themselves to a Host. A Client sends Ops (or, for
// anything the vocabulary lacks, raw closures via Exec) over an offload
// channel and returns typed results.
//
// # Key Types
//
//   - Host: capability interface, host goroutine only
//   - Op / Result: operation vocabulary and its uniform result
//   - Client: typed, goroutine-safe front end over an offload.Sender
//
// # Thread Safety
//
// Client methods are safe from any goroutine but block on the host goroutine's
// next frame; never call them from the host goroutine itself.
package host
