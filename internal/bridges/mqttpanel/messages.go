package mqttpanel

import (
	"time"

	"github.com/nerrad567/preflight/internal/orchestrator"
)

// ProgressMessage is published on every progress report.
type ProgressMessage struct {
	Value     float64   `json:"value"`
	Text      string    `json:"text"`
	State     string    `json:"state"`
	Step      string    `json:"step,omitempty"`
	Target    string    `json:"target"`
	Timestamp time.Time `json:"timestamp"`
}

// TargetMessage is published when the flown aircraft changes.
type TargetMessage struct {
	Target    string    `json:"target"`
	Supported bool      `json:"supported"`
	Aircraft  string    `json:"aircraft,omitempty"`
	Procedure string    `json:"procedure,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PausedMessage is published when the simulator pauses or resumes.
type PausedMessage struct {
	Paused    bool      `json:"paused"`
	Timestamp time.Time `json:"timestamp"`
}

// RunMessage is published when a run finishes.
type RunMessage struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	Procedure  string    `json:"procedure"`
	Outcome    string    `json:"outcome"`
	LastStep   string    `json:"last_step,omitempty"`
	Progress   float64   `json:"progress"`
	SimSeconds *float64  `json:"sim_seconds,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// CommandMessage is the optional body of a command. An empty payload is
// accepted as well.
type CommandMessage struct {
	Source string `json:"source,omitempty"`
}

func newProgressMessage(st orchestrator.Status) ProgressMessage {
	return ProgressMessage{
		Value:     st.Progress,
		Text:      st.Text,
		State:     string(st.State),
		Step:      st.Step,
		Target:    st.Target,
		Timestamp: stamp(st.UpdatedAt),
	}
}

func newTargetMessage(st orchestrator.Status) TargetMessage {
	return TargetMessage{
		Target:    st.Target,
		Supported: st.Supported,
		Aircraft:  st.Aircraft,
		Procedure: st.Procedure,
		Timestamp: stamp(st.UpdatedAt),
	}
}

func newRunMessage(run *orchestrator.Run) RunMessage {
	ts := run.StartedAt
	if run.FinishedAt != nil {
		ts = *run.FinishedAt
	}
	return RunMessage{
		ID:         run.ID,
		Target:     run.Target,
		Procedure:  run.Procedure,
		Outcome:    string(run.Status),
		LastStep:   run.LastStep,
		Progress:   run.Progress,
		SimSeconds: run.SimSeconds,
		Timestamp:  ts.UTC(),
	}
}

// stamp falls back to now for snapshots that were never updated.
func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
