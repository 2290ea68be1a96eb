package simulation

import (
	"github.com/brentp/intintmap"
	"github.com/mlange-42/ark/ecs"
)

// Entity is a globally-unique 64-bit id, allocated only by the server and
// otherwise only ever observed by clients. It is stable across an entity's
// lifetime and is the only identifier that crosses the wire.
type Entity uint64

// EntityAllocator hands out monotonically increasing Entity ids. Only the
// server instance owns one.
type EntityAllocator struct {
	next uint64
}

// Next returns the next unused Entity id.
func (a *EntityAllocator) Next() Entity {
	a.next++
	return Entity(a.next)
}

// EntityMap maintains the bijection (I3) between simulation entities and
// local ECS handles for one instance. The id -> slot index is backed by
// intintmap for O(1) lookup keyed by the raw 64-bit id; the slot holds the
// id and local entity so the map stays a true bijection without needing to
// encode/decode ark.Entity through the int64 index itself.
type EntityMap struct {
	index *intintmap.Map
	ids   []Entity
	ents  []ecs.Entity
	free  []int32
}

// NewEntityMap creates an empty entity map sized for an expected live-entity
// count.
func NewEntityMap(sizeHint int) *EntityMap {
	if sizeHint < 16 {
		sizeHint = 16
	}
	return &EntityMap{
		index: intintmap.New(sizeHint, 0.75),
	}
}

// Insert indexes a local entity under a simulation entity id. It must fire
// synchronously with the id component's lifecycle (on spawn / on component
// insert), matching the hook contract of §4.3.
func (m *EntityMap) Insert(id Entity, local ecs.Entity) {
	if slot, ok := m.index.Get(int64(id)); ok {
		m.ents[slot] = local
		return
	}

	var slot int32
	if n := len(m.free); n > 0 {
		slot = m.free[n-1]
		m.free = m.free[:n-1]
		m.ids[slot] = id
		m.ents[slot] = local
	} else {
		slot = int32(len(m.ids))
		m.ids = append(m.ids, id)
		m.ents = append(m.ents, local)
	}

	m.index.Put(int64(id), int64(slot))
}

// Remove deindexes a simulation entity id, matching the "on replace/remove"
// half of the id component's lifecycle hooks.
func (m *EntityMap) Remove(id Entity) {
	slot, ok := m.index.Get(int64(id))
	if !ok {
		return
	}
	m.index.Del(int64(id))
	m.ids[slot] = 0
	m.ents[slot] = ecs.Entity{}
	m.free = append(m.free, int32(slot))
}

// Get returns the local entity mapped to id, if it is currently live.
func (m *EntityMap) Get(id Entity) (ecs.Entity, bool) {
	slot, ok := m.index.Get(int64(id))
	if !ok {
		return ecs.Entity{}, false
	}
	return m.ents[slot], true
}

// Len reports the number of currently mapped (live) entities.
func (m *EntityMap) Len() int {
	return m.index.Size()
}

// Reset clears every mapping, as happens when a reset despawns every
// id-bearing entity (I4).
func (m *EntityMap) Reset() {
	m.index = intintmap.New(16, 0.75)
	m.ids = m.ids[:0]
	m.ents = m.ents[:0]
	m.free = m.free[:0]
}

// Each calls fn for every currently live (Entity, local entity) pair. The
// iteration order is undefined.
func (m *EntityMap) Each(fn func(id Entity, local ecs.Entity)) {
	for slot, id := range m.ids {
		if id == 0 {
			continue
		}
		fn(id, m.ents[slot])
	}
}
