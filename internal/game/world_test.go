package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/andersfylling/predictsim/internal/extract"
	"github.com/andersfylling/predictsim/internal/simulation"
)

func newTestWorld() (*simulation.Instance, *World) {
	inst := simulation.NewInstance(simulation.RoleServer, 50*time.Millisecond, nil)
	w := NewWorld(inst)
	inst.RunStartup()
	return inst, w
}

func TestGravityPullsUngroundedEntitiesDown(t *testing.T) {
	inst, w := newTestWorld()
	id := w.SpawnPlayer("Test", 1, 10, 10)

	inst.Time.QueueTicks(5)
	inst.TickNow(5)

	p, ok := w.Physics(id)
	require.True(t, ok)
	require.Less(t, p.Velocity[1], 0.0, "gravity should have pulled velocity negative")
	require.NotEqual(t, 10.0, p.Position[1], "position should have integrated velocity")
}

func TestGroundedEntityIsNotAffectedByGravity(t *testing.T) {
	inst, w := newTestWorld()
	id := w.SpawnPlayer("Test", 1, 10, 10)

	p, ok := w.Physics(id)
	require.True(t, ok)
	p.Grounded = true

	inst.Time.QueueTicks(10)
	inst.TickNow(10)

	p, ok = w.Physics(id)
	require.True(t, ok)
	require.Equal(t, 0.0, p.Velocity[1])
}

func TestResetDespawnsEveryEntity(t *testing.T) {
	inst, w := newTestWorld()
	w.SpawnPlayer("Test", 1, 10, 10)
	w.SpawnEnemy("slime", 10, 20, 20)
	require.Equal(t, 2, inst.Entities.Len())

	inst.Reset(0)
	require.Equal(t, 0, inst.Entities.Len())
}

func TestChecksumReflectsPosition(t *testing.T) {
	inst, w := newTestWorld()
	w.SpawnPlayer("Test", 1, 10, 10)

	before := w.Checksum()

	inst.Time.QueueTicks(3)
	inst.TickNow(3)

	after := w.Checksum()
	require.NotEqual(t, before, after, "checksum should change once gravity moves the entity")
}

func TestExtractCopiesGameComponentsBetweenWorlds(t *testing.T) {
	srcInst, src := newTestWorld()
	id := src.SpawnPlayer("Test", 7, 3, 4)
	src.SpawnEnemy("slime", 10, 8, 9)

	dstInst := simulation.NewInstance(simulation.RoleClientTemplate, 50*time.Millisecond, nil)
	dst := NewWorld(dstInst)
	dstInst.RunStartup()

	extract.Run(dstInst, srcInst, extract.Config{})

	p, ok := dst.Physics(id)
	require.True(t, ok)
	require.Equal(t, 3.0, p.Position[0])
	require.Equal(t, 4.0, p.Position[1])

	x, y, ok := dst.PlayerPosition(7)
	require.True(t, ok)
	require.Equal(t, 3.0, x)
	require.Equal(t, 4.0, y)

	require.Equal(t, 2, dstInst.Entities.Len())
}
