package client

import "github.com/andersfylling/predictsim/internal/simulation"

// Divergence reports how far the locally predicted state drifted from the
// server's authoritative state at the moment Prediction last restarted
// from Template. There is no rollback-and-replay here (§9 Non-goals): the
// Prediction world is simply re-extracted from Template and allowed to run
// ahead again, so any visible correction is whatever the render layer
// chooses to show between the previous and the extracted state.
type Divergence struct {
	Tick           simulation.Tick
	EntityCount    int
	PriorChecksum  uint64
	RestartedCount int
}

// Checksum hashes a set of entity snapshots into a single value cheap
// enough to compare every restart, without needing a full state diff.
// Package game owns the concrete hashing of its own components.
type Checksum func() uint64

// Tracker accumulates Divergence observations across the lifetime of a
// Pipeline, for diagnostics/telemetry only.
type Tracker struct {
	checksum Checksum
	last     uint64
	restarts int
	history  []Divergence
	limit    int
}

// NewTracker creates a divergence tracker that calls checksum() each time
// Observe is invoked, recording the previous call's result as
// PriorChecksum.
func NewTracker(checksum Checksum, historyLimit int) *Tracker {
	if historyLimit <= 0 {
		historyLimit = 64
	}
	return &Tracker{checksum: checksum, limit: historyLimit}
}

// Observe should be called right after Pipeline.transitionPrediction
// extracts Template into Prediction (i.e. once per Idle->Running edge).
func (t *Tracker) Observe(tick simulation.Tick, entityCount int) Divergence {
	t.restarts++
	cur := t.checksum()
	d := Divergence{
		Tick:           tick,
		EntityCount:    entityCount,
		PriorChecksum:  t.last,
		RestartedCount: t.restarts,
	}
	t.last = cur

	t.history = append(t.history, d)
	if len(t.history) > t.limit {
		t.history = t.history[len(t.history)-t.limit:]
	}
	return d
}

// History returns the most recent divergence observations, oldest first.
func (t *Tracker) History() []Divergence { return t.history }

// Restarts returns how many times Prediction has restarted from Template.
func (t *Tracker) Restarts() int { return t.restarts }
