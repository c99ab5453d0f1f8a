package prototype_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/prototype"
)

func TestAddThenLock(t *testing.T) {
	p := prototype.New("unit")
	require.NoError(t, p.Add(33, []byte{1, 2, 3}, 1))
	require.NoError(t, p.Lock())
	assert.True(t, p.Locked())

	comps := p.Components()
	require.Len(t, comps, 1)
	assert.Equal(t, ecs.ComponentTypeID(33), comps[0].Type)
	assert.Equal(t, []byte{1, 2, 3}, comps[0].Payload)
	assert.Equal(t, uint32(1), comps[0].Count)
}

func TestAddAfterLockFails(t *testing.T) {
	p := prototype.New("unit")
	require.NoError(t, p.Lock())
	err := p.Add(33, []byte{1}, 1)
	require.Error(t, err)
}

func TestDoubleLockFails(t *testing.T) {
	p := prototype.New("unit")
	require.NoError(t, p.Lock())
	require.Error(t, p.Lock())
}

func TestAddCopiesPayload(t *testing.T) {
	p := prototype.New("unit")
	payload := []byte{9, 9}
	require.NoError(t, p.Add(33, payload, 1))
	payload[0] = 0 // mutating the original must not affect the stored copy

	comps := p.Components()
	assert.Equal(t, byte(9), comps[0].Payload[0])
}
