package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/registry"
)

func TestNewSeedsLife(t *testing.T) {
	r := registry.New()
	d, ok := r.Lookup(ecs.LifeComponentTypeID)
	require.True(t, ok)
	assert.Equal(t, "life", d.Name)
	assert.Equal(t, uint32(ecs.LifeSize), d.Size)
}

func TestRegisterAndLock(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(registry.TypeDescriptor{
		ID: ecs.FirstUserComponentTypeID, Name: "position", Size: 12, MaxPerEntity: 1,
	}))
	assert.False(t, r.Locked())
	require.NoError(t, r.Lock())
	assert.True(t, r.Locked())

	d, ok := r.Lookup(ecs.FirstUserComponentTypeID)
	require.True(t, ok)
	assert.Equal(t, "position", d.Name)
}

func TestRegisterAfterLockFails(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Lock())
	err := r.Register(registry.TypeDescriptor{ID: ecs.FirstUserComponentTypeID, Name: "x", Size: 1, MaxPerEntity: 1})
	require.Error(t, err)
	var pe *ecs.ProgrammerError
	assert.ErrorAs(t, err, &pe)
}

func TestRegisterDuplicateIDFails(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(registry.TypeDescriptor{ID: 33, Name: "a", Size: 1, MaxPerEntity: 1}))
	err := r.Register(registry.TypeDescriptor{ID: 33, Name: "b", Size: 1, MaxPerEntity: 1})
	require.Error(t, err)
}

func TestDoubleLockFails(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Lock())
	require.Error(t, r.Lock())
}

func TestMaxEntityBytesAndComponents(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(registry.TypeDescriptor{ID: 33, Name: "a", Size: 4, MaxPerEntity: 2}))
	require.NoError(t, r.Register(registry.TypeDescriptor{ID: 34, Name: "b", Size: 8, MaxPerEntity: 1}))
	require.NoError(t, r.Lock())

	// life(1 byte * 1) + a(4*2) + b(8*1)
	assert.Equal(t, uint64(1+8+8), r.MaxEntityBytes())
	assert.Equal(t, uint32(1+2+1), r.MaxEntityComponents())
}

func TestTypesIsSparseByID(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Register(registry.TypeDescriptor{ID: 40, Name: "a", Size: 1, MaxPerEntity: 1}))
	require.NoError(t, r.Lock())

	types := r.Types()
	assert.Len(t, types, 41)
	assert.Equal(t, "a", types[40].Name)
	assert.Equal(t, ecs.NoComponentType, types[20].ID)
}
