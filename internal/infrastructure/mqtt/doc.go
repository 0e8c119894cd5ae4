// Package mqtt connects preflight to an MQTT broker.
//
// The broker is how external control panels (stream decks, tablets, home
// automation) drive the start-up sequencer without the HTTP API. The core
// subscribes to commands under preflight/command and publishes its state
// under preflight/core:
//
//	panel ── preflight/command/sequence/start ──► broker ──► core
//	panel ◄── preflight/core/sequence/progress ── broker ◄── core
//
// The client reconnects on its own with backoff, restores its subscriptions
// afterwards and keeps a retained status on preflight/system/status. A last
// will marks the core offline if it dies without disconnecting.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllSequenceCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        return nil
//	    })
package mqtt
