package client

import (
	"github.com/andersfylling/predictsim/internal/protocol"
	"github.com/andersfylling/predictsim/internal/simulation"
)

// InputBuffer stores recent local input frames, tagged by the tick they
// were produced for, so they can be attached to ClientRequest envelopes
// sent to the server and replayed into the Prediction world. Unlike the
// teacher's prediction buffer, it holds no world snapshots: there is no
// rollback here, only forward replay via extraction (§9 Non-goals).
type InputBuffer struct {
	inputs   []protocol.InputFrame
	capacity int
}

// NewInputBuffer creates an input buffer retaining at most capacity
// frames.
func NewInputBuffer(capacity int) *InputBuffer {
	return &InputBuffer{inputs: make([]protocol.InputFrame, 0, capacity), capacity: capacity}
}

// Record stores an input frame, evicting the oldest if at capacity.
func (b *InputBuffer) Record(frame protocol.InputFrame) {
	if len(b.inputs) >= b.capacity {
		b.inputs = b.inputs[1:]
	}
	b.inputs = append(b.inputs, frame)
}

// Since returns every input frame at or after tick, oldest first.
func (b *InputBuffer) Since(tick simulation.Tick) []protocol.InputFrame {
	var result []protocol.InputFrame
	for _, input := range b.inputs {
		if input.Tick >= uint64(tick) {
			result = append(result, input)
		}
	}
	return result
}

// PruneBefore discards every input frame strictly older than tick.
func (b *InputBuffer) PruneBefore(tick simulation.Tick) {
	i := 0
	for i < len(b.inputs) && b.inputs[i].Tick < uint64(tick) {
		i++
	}
	if i > 0 {
		b.inputs = b.inputs[i:]
	}
}

// Len returns the number of stored input frames.
func (b *InputBuffer) Len() int { return len(b.inputs) }

// Clear empties the buffer, e.g. on a ResetClientSimulation.
func (b *InputBuffer) Clear() {
	b.inputs = b.inputs[:0]
}
