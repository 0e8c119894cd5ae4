package mqtt

import "fmt"

// Topic prefixes for the preflight MQTT hierarchy.
//
// Control panels publish commands under preflight/command and the core
// publishes its state under preflight/core.
const (
	// TopicPrefix is the root of every preflight topic.
	TopicPrefix = "preflight"

	// TopicPrefixCommand is the base for commands sent to the core.
	TopicPrefixCommand = "preflight/command"

	// TopicPrefixCore is the base for state published by the core.
	TopicPrefixCore = "preflight/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "preflight/system"
)

// Topics provides builders for preflight MQTT topics.
//
//	topics := mqtt.Topics{}
//	t := topics.SequenceCommand("start")
//	// Returns: "preflight/command/sequence/start"
type Topics struct{}

// SequenceCommand returns the topic a panel publishes a sequence command to.
//
// Example: preflight/command/sequence/start
func (Topics) SequenceCommand(command string) string {
	return fmt.Sprintf("%s/sequence/%s", TopicPrefixCommand, command)
}

// AllSequenceCommands returns a pattern matching every sequence command.
//
// Pattern: preflight/command/sequence/+
func (Topics) AllSequenceCommands() string {
	return fmt.Sprintf("%s/sequence/+", TopicPrefixCommand)
}

// SequenceProgress returns the topic progress reports are published on.
//
// Example: preflight/core/sequence/progress
func (Topics) SequenceProgress() string {
	return fmt.Sprintf("%s/sequence/progress", TopicPrefixCore)
}

// SequenceRun returns the topic run outcomes are published on.
//
// Example: preflight/core/sequence/run
func (Topics) SequenceRun() string {
	return fmt.Sprintf("%s/sequence/run", TopicPrefixCore)
}

// Target returns the topic the current aircraft is published on.
//
// Example: preflight/core/target
func (Topics) Target() string {
	return fmt.Sprintf("%s/target", TopicPrefixCore)
}

// Paused returns the topic the simulator pause state is published on.
//
// Example: preflight/core/paused
func (Topics) Paused() string {
	return fmt.Sprintf("%s/paused", TopicPrefixCore)
}

// SystemStatus returns the system status topic. It carries the online
// message and the last will.
//
// Example: preflight/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// PanelHealth returns the topic the control-panel bridge reports its
// health on.
//
// Example: preflight/system/panel
func (Topics) PanelHealth() string {
	return fmt.Sprintf("%s/panel", TopicPrefixSystem)
}

// AllTopics returns a pattern matching every preflight topic.
//
// Pattern: preflight/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
