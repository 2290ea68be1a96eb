package simulation

import (
	"github.com/mlange-42/ark/ecs"
)

// DespawnSimulationEntity despawns the local entity mapped to Entity.
// A late or unknown target is a soft warning (§4.2).
type DespawnSimulationEntity struct {
	Target Entity
}

// despawnQueueType is the built-in UpdateType for DespawnSimulationEntity.
// It is registered once per instance and its drainer runs last within
// SimulationUpdate, after all UpdateComponentSystems and user systems
// (§4.2 ordering rule 3).
type despawnQueueType struct {
	queue *UpdateExecutionQueue[DespawnSimulationEntity]
}

// RegisterDespawn installs the built-in DespawnSimulationEntity queue and
// drainer on inst. Call once per instance during simulation-plugin setup.
func RegisterDespawn(inst *Instance) *UpdateExecutionQueue[DespawnSimulationEntity] {
	q := NewUpdateExecutionQueue[DespawnSimulationEntity]("despawn_simulation_entity", inst.Log)
	t := &despawnQueueType{queue: q}
	inst.RegisterUpdateType(t)
	inst.setDespawnSystem(func(inst *Instance) {
		t.Drain(inst, inst.Time.CurrentTick())
	})
	return q
}

func (t *despawnQueueType) Tag() string { return "despawn_simulation_entity" }

func (t *despawnQueueType) Drain(inst *Instance, tick Tick) {
	for _, d := range t.queue.DrainDue(tick) {
		local, ok := inst.Entities.Get(d.Target)
		if !ok {
			inst.Log.Warn("despawn targets unknown simulation entity",
				"entity", d.Target, "tick", tick)
			continue
		}
		inst.World.RemoveEntity(local)
		inst.Entities.Remove(d.Target)
	}
}

func (t *despawnQueueType) Reset() { t.queue.Reset() }

// UpdateComponent sets/inserts component C on the mapped entity. An
// unknown entity is a soft warning (§4.2).
type UpdateComponent[C any] struct {
	Target    Entity
	Component C
}

// ComponentSetter abstracts "set or insert component C on this local
// entity" so updateComponentQueueType doesn't need to know the concrete ECS
// mapper type for C. Content plugins supply one per component type.
type ComponentSetter[C any] func(inst *Instance, local ecs.Entity, value C) error

type updateComponentQueueType[C any] struct {
	name   string
	queue  *UpdateExecutionQueue[UpdateComponent[C]]
	setter ComponentSetter[C]
}

// RegisterUpdateComponent installs a Component's UpdateComponent[C] queue
// and drainer, run within the UpdateComponentSystems group (ordering rule
// 1). name identifies the component type for logging, e.g. "Velocity".
func RegisterUpdateComponent[C any](inst *Instance, name string, setter ComponentSetter[C]) *UpdateExecutionQueue[UpdateComponent[C]] {
	q := NewUpdateExecutionQueue[UpdateComponent[C]]("update_component:"+name, inst.Log)
	t := &updateComponentQueueType[C]{name: name, queue: q, setter: setter}
	inst.RegisterUpdateType(t)
	inst.addComponentSystem(func(inst *Instance) {
		t.Drain(inst, inst.Time.CurrentTick())
	})
	return q
}

func (t *updateComponentQueueType[C]) Tag() string { return "update_component:" + t.name }

func (t *updateComponentQueueType[C]) Drain(inst *Instance, tick Tick) {
	for _, u := range t.queue.DrainDue(tick) {
		local, ok := inst.Entities.Get(u.Target)
		if !ok {
			inst.Log.Warn("component update targets unknown simulation entity",
				"component", t.name, "entity", u.Target, "tick", tick)
			continue
		}
		if err := t.setter(inst, local, u.Component); err != nil {
			inst.Log.Warn("component update failed to apply",
				"component", t.name, "entity", u.Target, "tick", tick,
				"error", err)
		}
	}
}

func (t *updateComponentQueueType[C]) Reset() { t.queue.Reset() }
