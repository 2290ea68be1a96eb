package simulation

import (
	"testing"

	"github.com/mlange-42/ark/ecs"
	"github.com/stretchr/testify/require"
)

func TestEntityMapBijection(t *testing.T) {
	// P4: map bijection on currently-live id-bearing entities.
	m := NewEntityMap(4)

	m.Insert(1, ecs.Entity{})
	_, ok := m.Get(1)
	require.True(t, ok)

	m.Remove(1)
	_, ok = m.Get(1)
	require.False(t, ok)
	require.Equal(t, 0, m.Len())
}

func TestEntityMapReuseSlotsAfterRemove(t *testing.T) {
	m := NewEntityMap(4)

	for i := Entity(1); i <= 10; i++ {
		m.Insert(i, ecs.Entity{})
	}
	require.Equal(t, 10, m.Len())

	for i := Entity(1); i <= 5; i++ {
		m.Remove(i)
	}
	require.Equal(t, 5, m.Len())

	m.Insert(100, ecs.Entity{})
	require.Equal(t, 6, m.Len())

	_, ok := m.Get(100)
	require.True(t, ok)
}

func TestEntityMapResetClearsEverything(t *testing.T) {
	// P5 (applied to the map): reset produces an indistinguishable-from-fresh state.
	m := NewEntityMap(4)
	m.Insert(1, ecs.Entity{})
	m.Insert(2, ecs.Entity{})

	m.Reset()
	require.Equal(t, 0, m.Len())
	_, ok := m.Get(1)
	require.False(t, ok)
}

func TestEntityAllocatorMonotonic(t *testing.T) {
	a := &EntityAllocator{}
	first := a.Next()
	second := a.Next()
	require.Less(t, uint64(first), uint64(second))
}
