// Package clockest implements the client's server-clock estimator: a
// bounded sample buffer of (wall-time, server tick) pairs, averaged to
// smooth jitter without rewinding (§4.7).
package clockest

import (
	"time"

	"github.com/andersfylling/predictsim/internal/simulation"
)

// DefaultSampleBufferSize is the default cap on the sample deque (§6).
const DefaultSampleBufferSize = 32

// sample is one (real-time, server tick) observation, recorded every time
// an UpdateServerTick message is received.
type sample struct {
	receivedAt time.Time
	tick       simulation.Tick
}

// Estimator keeps up to capacity samples and estimates the server's
// current wall-time as their arithmetic mean of
// sample.tick*Δ + (now - sample.wallclock).
type Estimator struct {
	step     time.Duration
	capacity int
	samples  []sample

	// target is the last computed ClientMain target; it only ever moves
	// forward (§4.7 "updated only monotonically").
	target time.Duration
	// blend, if non-zero, applies an exponential blend toward the desired
	// target instead of a strict monotonic assignment (§4.7, optional).
	blend float64
}

// New creates an estimator for a scheme with the given fixed step interval
// and sample buffer capacity.
func New(step time.Duration, capacity int) *Estimator {
	if capacity <= 0 {
		capacity = DefaultSampleBufferSize
	}
	return &Estimator{step: step, capacity: capacity}
}

// SetBlend configures an exponential-style blend weight alpha (0 disables
// blending and uses strict monotonic assignment).
func (e *Estimator) SetBlend(alpha float64) {
	e.blend = alpha
}

// Push records a new sample. Called on every UpdateServerTick.
func (e *Estimator) Push(now time.Time, tick simulation.Tick) {
	e.samples = append(e.samples, sample{receivedAt: now, tick: tick})
	if len(e.samples) > e.capacity {
		e.samples = e.samples[len(e.samples)-e.capacity:]
	}
}

// Reset wipes the sample buffer and re-seeds it with one sample, as
// happens on ResetClientSimulation (§4.4 step 1).
func (e *Estimator) Reset(now time.Time, tick simulation.Tick) {
	e.samples = e.samples[:0]
	e.target = e.step * time.Duration(tick)
	e.Push(now, tick)
}

// Len reports the number of buffered samples.
func (e *Estimator) Len() int { return len(e.samples) }

// EstimatedServerElapsed returns the mean, across the sample buffer, of
// sample.tick*Δ + (now - sample.wallclock): the estimated current server
// wall-time (§4.7).
func (e *Estimator) EstimatedServerElapsed(now time.Time) time.Duration {
	if len(e.samples) == 0 {
		return 0
	}

	var sum time.Duration
	for _, s := range e.samples {
		sum += e.step*time.Duration(s.tick) + now.Sub(s.receivedAt)
	}
	return sum / time.Duration(len(e.samples))
}

// ClientMainTarget returns the wall-time ClientMain should target: the
// server-time estimate plus predictionInterval, updated only
// monotonically (P8), optionally dampened by an exponential blend toward
// the desired value.
func (e *Estimator) ClientMainTarget(now time.Time, predictionInterval time.Duration) time.Duration {
	desired := e.EstimatedServerElapsed(now) + predictionInterval

	if e.blend > 0 {
		if desired > e.target {
			delta := desired - e.target
			e.target += time.Duration(float64(delta) * e.blend)
		}
		return e.target
	}

	if desired > e.target {
		e.target = desired
	}
	return e.target
}
