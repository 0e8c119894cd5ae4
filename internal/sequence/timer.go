package sequence

// Timer measures simulation time from a captured start.
type Timer struct {
	Start    float64
	Duration float64
}

// NewTimer starts a timer of the given duration at now.
func NewTimer(duration, now float64) Timer {
	return Timer{Start: now, Duration: duration}
}

// Elapsed is the time since Start.
func (t Timer) Elapsed(now float64) float64 {
	return now - t.Start
}

// Expired reports whether Duration has fully elapsed. The boundary counts.
func (t Timer) Expired(now float64) bool {
	return t.Elapsed(now) >= t.Duration
}
