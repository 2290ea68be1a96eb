package client

import "github.com/andersfylling/predictsim/internal/simulation"

// PredictionUpdates is the per-T FIFO of locally-created updates not yet
// reconciled with Template (§3 PredictionUpdates<T>). Every locally
// predicted change to T is pushed here rather than queued into the
// Prediction world directly: Push inserts it into the live queue when
// Prediction is running, it is replayed into a fresh Prediction world after
// each extraction from Template, and it is forgotten once Template has
// caught up past it.
type PredictionUpdates[T any] struct {
	queue    *simulation.UpdateExecutionQueue[T]
	buffered []simulation.WorldUpdate[T]
}

// RegisterPredictionUpdates registers a PredictionUpdates[T] against the
// Prediction world's live queue for T, and against the pipeline so its
// drain/seed hooks run as part of Frame.
func RegisterPredictionUpdates[T any](p *Pipeline, queue *simulation.UpdateExecutionQueue[T]) *PredictionUpdates[T] {
	pu := &PredictionUpdates[T]{queue: queue}
	p.registerPredictionUpdates(pu)
	return pu
}

// Push records a locally-predicted update. If Prediction is currently
// running, it is inserted into the live queue immediately; otherwise it
// waits to be seeded in on the next Idle->Running transition.
func (pu *PredictionUpdates[T]) Push(update simulation.WorldUpdate[T], running bool) {
	pu.buffered = append(pu.buffered, update)
	if running {
		pu.queue.Insert(update)
	}
}

// Len reports how many locally-predicted updates are still unreconciled.
func (pu *PredictionUpdates[T]) Len() int { return len(pu.buffered) }

func (pu *PredictionUpdates[T]) drainReconciled(before simulation.Tick) {
	n := 0
	for n < len(pu.buffered) && pu.buffered[n].Tick < before {
		n++
	}
	if n == 0 {
		return
	}
	pu.buffered = append(pu.buffered[:0:0], pu.buffered[n:]...)
}

func (pu *PredictionUpdates[T]) seedPrediction() {
	for _, u := range pu.buffered {
		pu.queue.Insert(u)
	}
}
