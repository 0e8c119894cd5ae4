package orchestrator

import "github.com/prometheus/client_golang/prometheus"

// Run outcome label values.
const (
	outcomeStarted     = "started"
	outcomeCompleted   = "completed"
	outcomeInterrupted = "interrupted"
	outcomeAbandoned   = "abandoned"
)

var (
	runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "preflight_sequence_runs_total",
		Help: "Start-up runs by outcome.",
	}, []string{"outcome"})

	runSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "preflight_sequence_run_sim_seconds",
		Help:    "Simulation seconds taken by completed start-up runs.",
		Buckets: []float64{15, 30, 60, 90, 120, 180, 240, 360, 600},
	})

	sequenceProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "preflight_sequence_progress_ratio",
		Help: "Progress of the active start-up sequence, 0 to 1.",
	})

	updatesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "preflight_orchestrator_updates_dropped_total",
		Help: "Updates dropped because a subscriber fell behind.",
	})
)

func init() {
	prometheus.MustRegister(runsTotal, runSeconds, sequenceProgress, updatesDropped)

	for _, o := range []string{outcomeStarted, outcomeCompleted, outcomeInterrupted, outcomeAbandoned} {
		runsTotal.WithLabelValues(o)
	}
}
