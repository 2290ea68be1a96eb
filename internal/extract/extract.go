// Package extract implements the extraction protocol (§4.5): a
// synchronous, single-threaded snapshot copy of state from a source
// simulation instance into a target instance, without allocating a new id
// space. It never advances a tick.
package extract

import (
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/andersfylling/predictsim/internal/simulation"
)

// DespawnPriority ranks a target-world entity for despawn ordering during
// entity extraction; lower values despawn first, so a user can make
// parents outlive children by giving parents a higher priority. Entities
// with no registered function use priority 0.
type DespawnPriority func(local ecs.Entity) int

// Config configures one Run of the extraction protocol.
type Config struct {
	DespawnPriority DespawnPriority

	// OnDespawn, when set, is called for each target entity as it is
	// removed during step 1c, in the same ascending-priority order used
	// for removal. Production callers have no need for it; it exists so
	// despawn ordering is observable without reaching into target's
	// entity map mid-extraction.
	OnDespawn func(id simulation.Entity)
}

// Run copies target <- source: entity set, then every registered
// ExtractSystem (components, relations, resources), then the simulation
// clock. Must not be called from inside a tick.
func Run(target, source *simulation.Instance, cfg Config) {
	extractEntities(target, source, cfg)

	for _, sys := range target.ExtractSystems() {
		sys(target, source)
	}

	target.Time.CopyElapsedFrom(source.Time)
}

type despawnCandidate struct {
	id       simulation.Entity
	local    ecs.Entity
	priority int
}

// extractEntities implements §4.5 step 1:
//
//	a. tag every id-bearing target entity "removed"
//	b. for every source id: clear the target's marker, or spawn a new
//	   target entity carrying that id
//	c. despawn any still-marked entities, in ascending DespawnPriority order
func extractEntities(target, source *simulation.Instance, cfg Config) {
	marked := make(map[simulation.Entity]struct{})
	target.Entities.Each(func(id simulation.Entity, _ ecs.Entity) {
		marked[id] = struct{}{}
	})

	source.Entities.Each(func(id simulation.Entity, _ ecs.Entity) {
		if _, ok := marked[id]; ok {
			delete(marked, id)
			return
		}

		local := target.World.NewEntity()
		target.Entities.Insert(id, local)
	})

	if len(marked) == 0 {
		return
	}

	candidates := make([]despawnCandidate, 0, len(marked))
	for id := range marked {
		local, ok := target.Entities.Get(id)
		if !ok {
			continue
		}
		priority := 0
		if cfg.DespawnPriority != nil {
			priority = cfg.DespawnPriority(local)
		}
		candidates = append(candidates, despawnCandidate{id: id, local: local, priority: priority})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].priority < candidates[j].priority
	})

	for _, c := range candidates {
		target.World.RemoveEntity(c.local)
		target.Entities.Remove(c.id)
		if cfg.OnDespawn != nil {
			cfg.OnDespawn(c.id)
		}
	}
}

// ExtractComponent builds an ExtractSystem that copies component C from
// every source id-bearing entity onto its mapped target entity. set
// should update the component if present, or insert it if absent
// (matching "update or insert" semantics, §4.5 step 2). Removal of the
// component on source does not remove it on target: set is only called
// for entities whose get reports the component present, so a plugin that
// wants removal to propagate has get report a zero value as present and
// set special-case it — matching the "removal does not propagate unless
// the plugin opts in" rule.
func ExtractComponent[C any](
	get func(src *simulation.Instance, local ecs.Entity) (C, bool),
	set func(tgt *simulation.Instance, local ecs.Entity, value C),
) simulation.ExtractSystem {
	return func(target, source *simulation.Instance) {
		source.Entities.Each(func(id simulation.Entity, srcLocal ecs.Entity) {
			value, ok := get(source, srcLocal)
			if !ok {
				return
			}

			tgtLocal, ok := target.Entities.Get(id)
			if !ok {
				// Entity extraction runs first; this should not happen,
				// but a missing target entity is harmless to skip.
				return
			}

			set(target, tgtLocal, value)
		})
	}
}

// ExtractRelation builds an ExtractSystem that copies relation R from
// source, remapping its target through the entity map. Unlike components,
// relations are always removed on target when absent on source (§4.5
// step 2).
func ExtractRelation[R any](
	get func(src *simulation.Instance, local ecs.Entity) (value R, relTarget simulation.Entity, present bool),
	set func(tgt *simulation.Instance, local ecs.Entity, value R, relTarget ecs.Entity),
	remove func(tgt *simulation.Instance, local ecs.Entity),
) simulation.ExtractSystem {
	return func(target, source *simulation.Instance) {
		source.Entities.Each(func(id simulation.Entity, srcLocal ecs.Entity) {
			tgtLocal, ok := target.Entities.Get(id)
			if !ok {
				return
			}

			value, relTargetID, present := get(source, srcLocal)
			if !present {
				remove(target, tgtLocal)
				return
			}

			relTargetLocal, ok := target.Entities.Get(relTargetID)
			if !ok {
				remove(target, tgtLocal)
				return
			}

			set(target, tgtLocal, value, relTargetLocal)
		})
	}
}

// ExtractResource builds an ExtractSystem that copies a single
// world-global value (not tied to any entity) from source to target, e.g.
// a level seed or a match-phase enum.
func ExtractResource[R any](
	get func(src *simulation.Instance) R,
	set func(tgt *simulation.Instance, value R),
) simulation.ExtractSystem {
	return func(target, source *simulation.Instance) {
		set(target, get(source))
	}
}
