// Package simulation implements the fixed-step tick clock, the ordered
// world-update queue, and the simulation-instance schedule skeleton shared
// by the server and all three client-side worlds.
package simulation

import "time"

// Tick is a monotonically increasing simulation step counter. It resets
// only on an explicit server-issued reset.
type Tick uint32

// Time tracks the clock of a single simulation instance: the next tick to
// execute and the tick the scheduler is driving toward.
//
// Outside of a Update pass, CurrentTick refers to the next tick that will
// execute.
type Time struct {
	step        time.Duration
	currentTick Tick
	targetTick  Tick
	elapsed     time.Duration
	// firstStepDelta is the wall-time delta reported for the first tick
	// observed after FromTick, so delta-sensitive systems see a correct
	// first step instead of a zero or unbounded delta.
	firstStepDelta time.Duration
	steppedOnce    bool
}

// NewTime creates a clock for a simulation lineage with the given fixed
// step interval, starting at tick 0.
func NewTime(step time.Duration) *Time {
	return &Time{step: step}
}

// FromTick constructs a clock whose wall-time delta for the first observed
// step is exactly Δ, matching the behavior of a freshly reset instance.
func FromTick(step time.Duration, tick Tick) *Time {
	t := &Time{
		step:           step,
		currentTick:    tick,
		targetTick:     tick,
		elapsed:        step * time.Duration(tick),
		firstStepDelta: step,
	}
	return t
}

// StepInterval returns Δ, fixed for the lifetime of the simulation lineage.
func (t *Time) StepInterval() time.Duration { return t.step }

// CurrentTick returns the next tick to execute (the tick already completed
// plus one), or, while inside Advance, the tick currently being stepped.
func (t *Time) CurrentTick() Tick { return t.currentTick }

// TargetTick returns the tick the scheduler is driving toward.
func (t *Time) TargetTick() Tick { return t.targetTick }

// Elapsed returns current_tick * Δ, the derived wall-time of this clock.
func (t *Time) Elapsed() time.Duration { return t.elapsed }

// QueueTicks increments the target tick by n, requesting n more ticks be
// run the next time Advance is called.
func (t *Time) QueueTicks(n uint32) {
	t.targetTick += Tick(n)
}

// SetTargetElapsed advances the target tick to whatever whole multiple of Δ
// fits under the given wall-clock duration, never retreating it.
func (t *Time) SetTargetElapsed(elapsed time.Duration) {
	if elapsed <= t.targetElapsed() {
		return
	}
	want := Tick(elapsed / t.step)
	if want > t.targetTick {
		t.targetTick = want
	}
}

func (t *Time) targetElapsed() time.Duration {
	return t.step * time.Duration(t.targetTick)
}

// ClearTarget collapses the target tick onto the current tick, discarding
// any queued-but-not-yet-run ticks. Used when the Prediction world
// restarts from a fresh Template extraction (§4.4 step 5): a stale target
// from before the restart must not cause it to race ahead immediately.
func (t *Time) ClearTarget() {
	t.targetTick = t.currentTick
}

// TicksOutstanding returns how many ticks remain to reach the target.
func (t *Time) TicksOutstanding() uint32 {
	if t.targetTick <= t.currentTick {
		return 0
	}
	return uint32(t.targetTick - t.currentTick)
}

// Reset replaces the clock wholesale, as happens on an explicit
// server-issued reset to tick r.
func (t *Time) Reset(r Tick) {
	t.currentTick = r
	t.targetTick = r
	t.elapsed = t.step * time.Duration(r)
	t.firstStepDelta = t.step
	t.steppedOnce = false
}

// CopyElapsedFrom copies src's wall-clock position (current tick and
// elapsed duration) onto t, while preserving t's own target tick — so the
// target retains its pending catch-up plan (§4.5 step 3).
func (t *Time) CopyElapsedFrom(src *Time) {
	t.currentTick = src.currentTick
	t.elapsed = src.elapsed
	t.steppedOnce = src.steppedOnce
}

// stepDelta returns the wall-clock delta attributed to the step currently
// being advanced.
func (t *Time) stepDelta() time.Duration {
	if !t.steppedOnce && t.firstStepDelta != 0 {
		return t.firstStepDelta
	}
	return t.step
}

// Advance runs budget ticks (or fewer, if fewer are outstanding), invoking
// runTick once per tick with the tick number being executed and the
// step's wall-clock delta. It returns the number of ticks actually run.
//
// Per I1, a tick n is executed at most once and always after tick n-1:
// Advance increments currentTick strictly after runTick returns, and
// budget exhaustion simply leaves currentTick < targetTick to be caught up
// on a later call.
func (t *Time) Advance(budget uint32, runTick func(tick Tick, delta time.Duration)) uint32 {
	var ran uint32
	for ran < budget && t.currentTick < t.targetTick {
		tick := t.currentTick
		delta := t.stepDelta()

		runTick(tick, delta)

		t.steppedOnce = true
		t.currentTick++
		t.elapsed += t.step
		ran++
	}
	return ran
}
