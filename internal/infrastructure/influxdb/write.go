package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	measurementProgress = "sequence_progress"
	measurementRun      = "sequence_run"
)

// WriteSequenceProgress records one progress report of a start-up run,
// tagged by aircraft, procedure and step.
//
//	client.WriteSequenceProgress("F-16C_50", "f16c50", "wait_jfs", "running", 0.42)
func (c *Client) WriteSequenceProgress(target, procedure, step, status string, value float64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(progressPoint(target, procedure, step, status, value, time.Now()))
}

// WriteRunOutcome records how a run ended and, for completed runs, how
// much simulation time it took.
func (c *Client) WriteRunOutcome(target, procedure, outcome string, simSeconds *float64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(runPoint(target, procedure, outcome, simSeconds, time.Now()))
}

func progressPoint(target, procedure, step, status string, value float64, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementProgress,
		map[string]string{
			"target":    target,
			"procedure": procedure,
			"step":      step,
			"status":    status,
		},
		map[string]any{
			"value": value,
		},
		ts,
	)
}

func runPoint(target, procedure, outcome string, simSeconds *float64, ts time.Time) *write.Point {
	fields := map[string]any{"count": 1}
	if simSeconds != nil {
		fields["sim_seconds"] = *simSeconds
	}
	return write.NewPoint(
		measurementRun,
		map[string]string{
			"target":    target,
			"procedure": procedure,
			"outcome":   outcome,
		},
		fields,
		ts,
	)
}
