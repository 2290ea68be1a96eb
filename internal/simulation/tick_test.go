package simulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeAdvanceMonotonic(t *testing.T) {
	// P1: current_tick is non-decreasing across observed snapshots.
	clock := NewTime(50 * time.Millisecond)
	clock.QueueTicks(5)

	var seen []Tick
	clock.Advance(10, func(tick Tick, _ time.Duration) {
		seen = append(seen, tick)
	})

	require.Equal(t, []Tick{0, 1, 2, 3, 4}, seen)
	require.Equal(t, Tick(5), clock.CurrentTick())
}

func TestTimeAdvanceBudgetExhaustion(t *testing.T) {
	clock := NewTime(50 * time.Millisecond)
	clock.QueueTicks(10)

	ran := clock.Advance(3, func(Tick, time.Duration) {})
	require.Equal(t, uint32(3), ran)
	require.Equal(t, Tick(3), clock.CurrentTick())
	require.Equal(t, uint32(7), clock.TicksOutstanding())

	// Catches up next frame without needing a fresh budget allocation call.
	ran = clock.Advance(100, func(Tick, time.Duration) {})
	require.Equal(t, uint32(7), ran)
	require.Equal(t, Tick(10), clock.CurrentTick())
}

func TestTimeReset(t *testing.T) {
	clock := NewTime(50 * time.Millisecond)
	clock.QueueTicks(20)
	clock.Advance(20, func(Tick, time.Duration) {})

	clock.Reset(100)
	require.Equal(t, Tick(100), clock.CurrentTick())
	require.Equal(t, Tick(100), clock.TargetTick())
	require.Equal(t, 50*time.Millisecond*100, clock.Elapsed())
}

func TestFromTickFirstStepDelta(t *testing.T) {
	clock := FromTick(50*time.Millisecond, 10)
	clock.QueueTicks(2)

	var deltas []time.Duration
	clock.Advance(5, func(_ Tick, delta time.Duration) {
		deltas = append(deltas, delta)
	})

	require.Len(t, deltas, 2)
	require.Equal(t, 50*time.Millisecond, deltas[0])
	require.Equal(t, 50*time.Millisecond, deltas[1])
}

func TestSetTargetElapsedNeverRetreats(t *testing.T) {
	clock := NewTime(50 * time.Millisecond)
	clock.SetTargetElapsed(500 * time.Millisecond)
	require.Equal(t, Tick(10), clock.TargetTick())

	clock.SetTargetElapsed(100 * time.Millisecond)
	require.Equal(t, Tick(10), clock.TargetTick(), "target must never retreat")

	clock.SetTargetElapsed(750 * time.Millisecond)
	require.Equal(t, Tick(15), clock.TargetTick())
}
