// Package aircraft holds per-aircraft cockpit knowledge: switch catalogs and
// the start-up procedures built from them.
//
// Each aircraft is described by a YAML profile naming the ownship type strings
// it applies to, a table of switches (device, command, argument, kind) and an
// ordered list of steps. Compile turns a profile into a sequence.Procedure,
// checking every switch reference against its kind.
//
// Profiles for the MiG-21Bis and the F-16C block 50 are embedded. A profile
// directory can add aircraft or override the embedded ones; a Watcher reloads
// the Registry when files in it change.
//
// # Thread Safety
//
// Registry is safe for concurrent use. Profiles and compiled procedures are
// immutable once registered.
package aircraft
