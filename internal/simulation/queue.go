package simulation

import (
	"log/slog"
)

// WorldUpdate is a tick-stamped mutation record: created by a producer,
// inserted into one UpdateExecutionQueue, and consumed exactly once during
// the tick equal to Tick (or the next drain after, if it arrives late).
type WorldUpdate[T any] struct {
	Tick    Tick
	Payload T
}

// UpdateExecutionQueue is a per-instance, per-update-type ordered queue of
// WorldUpdate records, sorted by tick with insertion order preserved for
// ties (P3).
type UpdateExecutionQueue[T any] struct {
	updates []WorldUpdate[T]
	log     *slog.Logger
	name    string
}

// NewUpdateExecutionQueue creates an empty queue. name is used only to
// label "late update" log lines for the update type T.
func NewUpdateExecutionQueue[T any](name string, log *slog.Logger) *UpdateExecutionQueue[T] {
	if log == nil {
		log = slog.Default()
	}
	return &UpdateExecutionQueue[T]{log: log, name: name}
}

// Insert performs a sorted insert keyed by tick; ties are broken by
// insertion order, with the new entry placed after existing equal-tick
// entries.
func (q *UpdateExecutionQueue[T]) Insert(update WorldUpdate[T]) {
	idx := q.upperBound(update.Tick)
	q.updates = append(q.updates, WorldUpdate[T]{})
	copy(q.updates[idx+1:], q.updates[idx:])
	q.updates[idx] = update
}

// upperBound returns the index of the first entry whose tick is strictly
// greater than tick, i.e. the position a new same-tick entry should be
// inserted at to land after existing ties.
func (q *UpdateExecutionQueue[T]) upperBound(tick Tick) int {
	lo, hi := 0, len(q.updates)
	for lo < hi {
		mid := (lo + hi) / 2
		if q.updates[mid].Tick <= tick {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// DrainDue removes and returns, in order, every update whose tick is
// <= currentTick. An update drained with tick strictly less than
// currentTick is logged as late and still applied (§7 "late update").
func (q *UpdateExecutionQueue[T]) DrainDue(currentTick Tick) []T {
	n := 0
	for n < len(q.updates) && q.updates[n].Tick <= currentTick {
		n++
	}
	if n == 0 {
		return nil
	}

	due := q.updates[:n]
	out := make([]T, n)
	for i, u := range due {
		if u.Tick < currentTick {
			q.log.Warn("late update applied",
				"update_type", q.name,
				"update_tick", u.Tick,
				"current_tick", currentTick,
				"late_by", currentTick-u.Tick,
			)
		}
		out[i] = u.Payload
	}

	q.updates = append(q.updates[:0:0], q.updates[n:]...)
	return out
}

// Len reports the number of queued, not-yet-drained updates.
func (q *UpdateExecutionQueue[T]) Len() int { return len(q.updates) }

// Reset empties the queue. Idempotent, as required of every registered
// update type's reset hook.
func (q *UpdateExecutionQueue[T]) Reset() {
	q.updates = q.updates[:0]
}

// Peek returns the tick of the earliest queued update, and whether one
// exists.
func (q *UpdateExecutionQueue[T]) Peek() (Tick, bool) {
	if len(q.updates) == 0 {
		return 0, false
	}
	return q.updates[0].Tick, true
}

// All returns every queued-but-undrained update without removing them,
// in tick/insertion order. The returned slice is a copy.
func (q *UpdateExecutionQueue[T]) All() []WorldUpdate[T] {
	out := make([]WorldUpdate[T], len(q.updates))
	copy(out, q.updates)
	return out
}
