package extract_test

import (
	"testing"
	"time"

	"github.com/mlange-42/ark/ecs"
	"github.com/stretchr/testify/require"

	"github.com/andersfylling/predictsim/internal/extract"
	"github.com/andersfylling/predictsim/internal/simulation"
)

// healthStore is a minimal stand-in for an ark component map, keyed by the
// local ECS entity, so this test can exercise the extraction protocol
// without depending on ark's concrete generic component API.
type healthStore map[ecs.Entity]int

func newInstance(role simulation.Role) *simulation.Instance {
	return simulation.NewInstance(role, 50*time.Millisecond, nil)
}

func TestExtractionRoundTrip(t *testing.T) {
	// P6: extraction round-trip — every source id appears exactly once in
	// target, and every extracted component type is equal on both sides.
	source := newInstance(simulation.RoleServer)
	target := newInstance(simulation.RoleClientTemplate)

	srcHealth := healthStore{}

	e1 := source.World.NewEntity()
	source.Entities.Insert(1, e1)
	srcHealth[e1] = 100

	e2 := source.World.NewEntity()
	source.Entities.Insert(2, e2)
	srcHealth[e2] = 50

	tgtHealth := healthStore{}
	target.AddExtractSystem(extract.ExtractComponent(
		func(src *simulation.Instance, local ecs.Entity) (int, bool) {
			v, ok := srcHealth[local]
			return v, ok
		},
		func(tgt *simulation.Instance, local ecs.Entity, value int) {
			tgtHealth[local] = value
		},
	))

	extract.Run(target, source, extract.Config{})

	require.Equal(t, 2, target.Entities.Len())

	for _, id := range []simulation.Entity{1, 2} {
		srcLocal, ok := source.Entities.Get(id)
		require.True(t, ok)
		tgtLocal, ok := target.Entities.Get(id)
		require.True(t, ok)
		require.Equal(t, srcHealth[srcLocal], tgtHealth[tgtLocal])
	}
}

func TestExtractionDespawnsMissingEntities(t *testing.T) {
	source := newInstance(simulation.RoleServer)
	target := newInstance(simulation.RoleClientTemplate)

	e1 := source.World.NewEntity()
	source.Entities.Insert(1, e1)
	extract.Run(target, source, extract.Config{})
	require.Equal(t, 1, target.Entities.Len())

	source.World.RemoveEntity(e1)
	source.Entities.Remove(1)
	extract.Run(target, source, extract.Config{})
	require.Equal(t, 0, target.Entities.Len())
}

func TestExtractionDespawnPriorityOrdering(t *testing.T) {
	source := newInstance(simulation.RoleServer)
	target := newInstance(simulation.RoleClientTemplate)

	parent := source.World.NewEntity()
	child := source.World.NewEntity()
	source.Entities.Insert(1, parent)
	source.Entities.Insert(2, child)
	extract.Run(target, source, extract.Config{})

	targetParent, ok := target.Entities.Get(1)
	require.True(t, ok)

	priority := func(local ecs.Entity) int {
		if local == targetParent {
			return 1 // parents despawn after children
		}
		return 0
	}

	source.World.RemoveEntity(parent)
	source.Entities.Remove(1)
	source.World.RemoveEntity(child)
	source.Entities.Remove(2)

	var despawnOrder []simulation.Entity
	extract.Run(target, source, extract.Config{
		DespawnPriority: priority,
		OnDespawn: func(id simulation.Entity) {
			despawnOrder = append(despawnOrder, id)
		},
	})

	require.Equal(t, 0, target.Entities.Len())
	require.Equal(t, []simulation.Entity{2, 1}, despawnOrder,
		"child (priority 0) must despawn before parent (priority 1)")
}

func TestExtractionPreservesTargetTargetTick(t *testing.T) {
	source := newInstance(simulation.RoleServer)
	target := newInstance(simulation.RoleClientTemplate)

	source.Time.QueueTicks(5)
	source.TickNow(5)

	target.Time.QueueTicks(100)

	extract.Run(target, source, extract.Config{})

	require.Equal(t, source.Time.CurrentTick(), target.Time.CurrentTick())
	require.Equal(t, simulation.Tick(100), target.Time.TargetTick(),
		"target's own pending catch-up plan must be preserved")
}
