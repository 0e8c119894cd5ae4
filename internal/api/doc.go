// Package api serves the HTTP control surface and the WebSocket progress
// feed.
//
// Routes live under /api/v1:
//   - GET  /health             component health, no auth
//   - GET  /system/metrics     runtime and sequencer snapshot, no auth
//   - GET  /status             current sequencer status
//   - POST /sequence/start     queue a start request (202, or 503 when busy)
//   - POST /sequence/interrupt queue an interrupt request
//   - GET  /runs, /runs/{id}   run history
//   - GET  /aircraft           loaded aircraft profiles
//   - GET  /ws                 WebSocket upgrade
//
// Prometheus metrics are exposed at /metrics.
//
// # WebSocket
//
// Clients send {"type":"subscribe","payload":{"channels":["sequence.progress"]}}
// and receive the current status straight away, then an event for every
// progress, target, pause and run update.
//
// # Security
//
// With security.jwt.enabled the control routes require an HS256 bearer
// token signed with the configured secret. The WebSocket route also accepts
// the token as a ?token= query parameter. Use NewToken (or the preflight
// token subcommand) to mint one.
package api
