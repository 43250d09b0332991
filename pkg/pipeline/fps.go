package pipeline

import "time"

// Smoothing is the weight kept from the previous frame-rate estimate.
const Smoothing = 0.95

// FPSMeter keeps an exponentially smoothed frame rate. The zero value is
// ready to use; an estimate of 0 means no rate has been observed yet.
type FPSMeter struct {
	fps  float64
	last time.Time
}

// Start records the reference timestamp for the first elapsed-time
// measurement.
func (m *FPSMeter) Start(now time.Time) {
	m.last = now
}

// Tick measures the time since the previous tick (or Start) and folds the
// instantaneous rate into the estimate. Non-positive intervals leave the
// estimate unchanged.
func (m *FPSMeter) Tick(now time.Time) float64 {
	if m.last.IsZero() {
		m.last = now
		return m.fps
	}

	elapsed := now.Sub(m.last)
	m.last = now
	if elapsed <= 0 {
		return m.fps
	}
	return m.Observe(1 / elapsed.Seconds())
}

// Observe folds one instantaneous rate into the estimate and returns it.
// The first observed rate replaces the unset estimate outright.
func (m *FPSMeter) Observe(rate float64) float64 {
	if m.fps == 0 {
		m.fps = rate
	} else {
		m.fps = Smoothing*m.fps + (1-Smoothing)*rate
	}
	return m.fps
}

// FPS returns the current estimate
func (m *FPSMeter) FPS() float64 {
	return m.fps
}
