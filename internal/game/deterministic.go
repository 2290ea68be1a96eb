package game

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/mlange-42/ark/ecs"

	"github.com/andersfylling/predictsim/internal/protocol"
	"github.com/andersfylling/predictsim/internal/simulation"
)

// checksumPhysics hashes every live physics entity's position and velocity
// into a single value, in ascending simulation-entity-id order so the
// result is independent of ark's internal storage order. Used as a cheap
// divergence signal (client.Tracker), not for rollback: this repo has no
// rollback path (§9 Non-goals).
func checksumPhysics(w *World) uint64 {
	var ids []simulation.Entity
	w.Instance.Entities.Each(func(id simulation.Entity, _ ecs.Entity) {
		ids = append(ids, id)
	})
	sortEntities(ids)

	h := xxhash.New()
	var buf [8]byte
	for _, id := range ids {
		p, ok := w.Physics(id)
		if !ok {
			continue
		}
		writeFloat(h, buf[:], p.Position[0])
		writeFloat(h, buf[:], p.Position[1])
		writeFloat(h, buf[:], p.Velocity[0])
		writeFloat(h, buf[:], p.Velocity[1])
	}
	return h.Sum64()
}

func writeFloat(h *xxhash.Digest, buf []byte, f float64) {
	binary.BigEndian.PutUint64(buf, uint64(int64(f*1000)))
	h.Write(buf)
}

func sortEntities(ids []simulation.Entity) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j-1] > ids[j]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// ToProtocolSnapshot builds a full-state protocol.StateSnapshot of every
// physics entity in w. The server builds one on every sync and diffs it
// against each session's baseline; a session's first sync receives it
// whole.
func ToProtocolSnapshot(w *World, tick simulation.Tick) protocol.StateSnapshot {
	snapshot := protocol.StateSnapshot{
		Tick: uint64(tick),
		Full: true,
	}

	w.Instance.Entities.Each(func(id simulation.Entity, _ ecs.Entity) {
		p, ok := w.Physics(id)
		if !ok {
			return
		}
		data := make([]byte, 0, 32)
		data = appendInt64(data, int64(p.Position[0]*1000))
		data = appendInt64(data, int64(p.Position[1]*1000))
		data = appendInt64(data, int64(p.Velocity[0]*1000))
		data = appendInt64(data, int64(p.Velocity[1]*1000))
		snapshot.Entities = append(snapshot.Entities, protocol.EntityState{
			ID:         protocol.EntityID(id),
			Components: data,
		})
	})

	return snapshot
}

func appendInt64(data []byte, v int64) []byte {
	return append(data,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56),
	)
}
