package simulation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueInsertionOrderStableForEqualTicks(t *testing.T) {
	// P3: insertion-order stability for equal ticks.
	q := NewUpdateExecutionQueue[string]("test", nil)
	q.Insert(WorldUpdate[string]{Tick: 5, Payload: "A"})
	q.Insert(WorldUpdate[string]{Tick: 5, Payload: "B"})
	q.Insert(WorldUpdate[string]{Tick: 3, Payload: "earlier"})

	got := q.DrainDue(5)
	require.Equal(t, []string{"earlier", "A", "B"}, got)
}

func TestQueueDrainDueExactlyOnce(t *testing.T) {
	// P2: exactly-once delivery at a tick >= t.
	q := NewUpdateExecutionQueue[int]("test", nil)
	q.Insert(WorldUpdate[int]{Tick: 4, Payload: 42})

	require.Empty(t, q.DrainDue(3))
	got := q.DrainDue(4)
	require.Equal(t, []int{42}, got)
	require.Empty(t, q.DrainDue(10))
}

func TestQueueLateUpdateStillApplied(t *testing.T) {
	q := NewUpdateExecutionQueue[int]("test", nil)
	q.Insert(WorldUpdate[int]{Tick: 5, Payload: 1})

	got := q.DrainDue(8)
	require.Equal(t, []int{1}, got, "late updates are applied, not dropped")
}

func TestQueueReset(t *testing.T) {
	q := NewUpdateExecutionQueue[int]("test", nil)
	q.Insert(WorldUpdate[int]{Tick: 1, Payload: 1})
	q.Insert(WorldUpdate[int]{Tick: 2, Payload: 2})

	q.Reset()
	require.Equal(t, 0, q.Len())
	require.Empty(t, q.DrainDue(100))
}
