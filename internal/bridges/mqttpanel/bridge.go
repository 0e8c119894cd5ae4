package mqttpanel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/preflight/internal/infrastructure/mqtt"
	"github.com/nerrad567/preflight/internal/orchestrator"
)

// Command names accepted under preflight/command/sequence.
const (
	CommandStart     = "start"
	CommandInterrupt = "interrupt"
)

// Bridge connects MQTT control panels to the orchestrator.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	mqtt      MQTTClient
	sequencer Sequencer
	health    *HealthReporter
	qos       byte

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
	unsub    func()

	logger   Logger
	loggerMu sync.RWMutex
}

// MQTTClient is the interface for MQTT operations.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	IsConnected() bool
}

// Sequencer is the part of the orchestrator panels can drive.
type Sequencer interface {
	RequestStart() error
	RequestInterrupt() error
	Subscribe() (<-chan orchestrator.Update, func())
	Status() orchestrator.Status
}

// Logger is the structured logger used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	MQTTClient MQTTClient
	Sequencer  Sequencer

	// Instance and Version identify this core in health messages.
	Instance string
	Version  string

	// QoS for published state. Commands are always subscribed at QoS 1.
	QoS byte

	// HealthInterval defaults to 30 seconds.
	HealthInterval time.Duration

	Logger Logger
}

// NewBridge creates a bridge. Call Start to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Sequencer == nil {
		return nil, fmt.Errorf("sequencer is required")
	}

	b := &Bridge{
		mqtt:      opts.MQTTClient,
		sequencer: opts.Sequencer,
		qos:       opts.QoS,
		done:      make(chan struct{}),
		logger:    opts.Logger,
	}
	b.health = NewHealthReporter(HealthReporterConfig{
		Instance:  opts.Instance,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTTClient,
		Sequencer: opts.Sequencer,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}
	return b, nil
}

// Start subscribes to panel commands, publishes the current state and
// begins forwarding orchestrator updates.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	topic := mqtt.Topics{}.AllSequenceCommands()
	if err := b.mqtt.Subscribe(topic, 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", topic)

	updates, unsub := b.sequencer.Subscribe()
	b.unsub = unsub

	// Retained topics start out with the current state.
	st := b.sequencer.Status()
	b.publishTarget(st)
	b.publishProgress(st)
	b.publishPaused(st)

	b.wg.Add(1)
	go b.forward(ctx, updates)

	b.health.Start(ctx)
	if err := b.health.PublishNow(); err != nil {
		b.logError("failed to publish healthy status", err)
	}

	b.logInfo("panel bridge started", "target", st.Target)
	return nil
}

// Stop stops forwarding and health reporting. Safe to call more than once.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		if b.unsub != nil {
			b.unsub()
		}
		b.wg.Wait()
		b.health.Stop()
		b.logInfo("panel bridge stopped")
	})
}

func (b *Bridge) forward(ctx context.Context, updates <-chan orchestrator.Update) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.done:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(u)
		}
	}
}

func (b *Bridge) handleUpdate(u orchestrator.Update) {
	switch u.Kind {
	case orchestrator.UpdateProgress:
		b.publishProgress(u.Status)
	case orchestrator.UpdateTarget:
		b.publishTarget(u.Status)
		b.publishProgress(u.Status)
	case orchestrator.UpdatePaused:
		b.publishPaused(u.Status)
	case orchestrator.UpdateRun:
		if u.Run != nil {
			b.publishJSON(mqtt.Topics{}.SequenceRun(), newRunMessage(u.Run), false)
		}
	default:
		b.logDebug("ignoring update", "kind", string(u.Kind))
	}
}

// handleMQTTMessage receives everything under preflight/command/sequence.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	command := topic[strings.LastIndex(topic, "/")+1:]

	var msg CommandMessage
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &msg); err != nil {
			b.logError("invalid command payload", fmt.Errorf("topic %s: %w", topic, err))
			return
		}
	}

	var err error
	switch command {
	case CommandStart:
		err = b.sequencer.RequestStart()
	case CommandInterrupt:
		err = b.sequencer.RequestInterrupt()
	default:
		b.logError("unknown command", fmt.Errorf("command: %s", command))
		return
	}

	switch {
	case errors.Is(err, orchestrator.ErrQueueFull):
		b.logWarn("command dropped, sequencer busy", "command", command, "source", msg.Source)
	case err != nil:
		b.logError("command failed", err)
	default:
		b.logDebug("command forwarded", "command", command, "source", msg.Source)
	}
}

func (b *Bridge) publishProgress(st orchestrator.Status) {
	b.publishJSON(mqtt.Topics{}.SequenceProgress(), newProgressMessage(st), true)
}

func (b *Bridge) publishTarget(st orchestrator.Status) {
	b.publishJSON(mqtt.Topics{}.Target(), newTargetMessage(st), true)
}

func (b *Bridge) publishPaused(st orchestrator.Status) {
	b.publishJSON(mqtt.Topics{}.Paused(), PausedMessage{Paused: st.Paused, Timestamp: stamp(st.UpdatedAt)}, true)
}

func (b *Bridge) publishJSON(topic string, v any, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.logError("marshal message", err)
		return
	}
	if err := b.mqtt.Publish(topic, payload, b.qos, retained); err != nil {
		b.logError("publish failed", fmt.Errorf("topic %s: %w", topic, err))
	}
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}
