// Package mqttpanel lets MQTT control panels drive the start-up sequencer.
//
// A panel (stream deck plugin, tablet dashboard, home automation rule)
// publishes an empty or JSON message to
//
//	preflight/command/sequence/start
//	preflight/command/sequence/interrupt
//
// and the bridge forwards it to the orchestrator's inbox. In the other
// direction every orchestrator update is republished:
//
//	preflight/core/sequence/progress   retained, ProgressMessage
//	preflight/core/target              retained, TargetMessage
//	preflight/core/paused              retained, PausedMessage
//	preflight/core/sequence/run        RunMessage when a run ends
//
// A HealthReporter publishes the bridge's own status on
// preflight/system/panel at a fixed interval.
package mqttpanel
