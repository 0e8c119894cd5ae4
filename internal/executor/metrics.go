package executor

import "github.com/prometheus/client_golang/prometheus"

// Channel label values.
const (
	channelInteractive = "interactive"
	channelExport      = "export"
)

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preflight_executor_jobs_total",
			Help: "Total number of host jobs executed.",
		},
		[]string{"channel"},
	)

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "preflight_executor_frames_total",
			Help: "Total number of frame callbacks handled.",
		},
		[]string{"channel"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "preflight_executor_queue_depth",
			Help: "Jobs waiting at the start of the last frame.",
		},
		[]string{"channel"},
	)

	drainDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "preflight_executor_drain_seconds",
			Help:    "Time spent draining a channel in one frame, in seconds.",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
		[]string{"channel"},
	)
)

func init() {
	prometheus.MustRegister(jobsTotal)
	prometheus.MustRegister(framesTotal)
	prometheus.MustRegister(queueDepth)
	prometheus.MustRegister(drainDuration)

	for _, ch := range []string{channelInteractive, channelExport} {
		jobsTotal.WithLabelValues(ch)
		framesTotal.WithLabelValues(ch)
		queueDepth.WithLabelValues(ch)
	}
}
