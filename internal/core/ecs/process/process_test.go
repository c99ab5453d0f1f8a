package process_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/process"
)

const (
	typeA ecs.ComponentTypeID = 33
	typeB ecs.ComponentTypeID = 34
	typeC ecs.ComponentTypeID = 35
	typeF ecs.ComponentTypeID = 36
)

func noopRun(process.Args) process.Result { return process.Result{} }

func TestAmbiguousOverloadsRejected(t *testing.T) {
	reg := process.NewRegistry()
	p := &process.Process{
		Name: "ambiguous",
		Overloads: []process.Overload{
			{PastTypes: []ecs.ComponentTypeID{typeA, typeB}, Run: noopRun},
			{PastTypes: []ecs.ComponentTypeID{typeB, typeC}, Run: noopRun},
		},
	}
	err := reg.Register(p)
	require.Error(t, err)
	var pe *ecs.ProgrammerError
	assert.ErrorAs(t, err, &pe)
}

func TestUnambiguousOverloadsAccepted(t *testing.T) {
	reg := process.NewRegistry()
	p := &process.Process{
		Name: "covered",
		Overloads: []process.Overload{
			{PastTypes: []ecs.ComponentTypeID{typeA, typeB}, Run: noopRun},
			{PastTypes: []ecs.ComponentTypeID{typeB, typeC}, Run: noopRun},
			{PastTypes: []ecs.ComponentTypeID{typeA, typeB, typeC}, Run: noopRun},
		},
	}
	require.NoError(t, reg.Register(p))
}

func TestTwoProcessesCannotShareFutureType(t *testing.T) {
	reg := process.NewRegistry()
	require.NoError(t, reg.Register(&process.Process{
		Name:      "first",
		Overloads: []process.Overload{{PastTypes: []ecs.ComponentTypeID{typeA}, FutureType: typeF, Shape: process.FutureAlways, Run: noopRun}},
	}))
	err := reg.Register(&process.Process{
		Name:      "second",
		Overloads: []process.Overload{{PastTypes: []ecs.ComponentTypeID{typeB}, FutureType: typeF, Shape: process.FutureAlways, Run: noopRun}},
	})
	require.Error(t, err)
}

func TestSelectPrefersHigherCardinality(t *testing.T) {
	reg := process.NewRegistry()
	p := &process.Process{
		Name: "layered",
		Overloads: []process.Overload{
			{PastTypes: []ecs.ComponentTypeID{typeA}, Run: noopRun},
			{PastTypes: []ecs.ComponentTypeID{typeA, typeB}, Run: noopRun},
		},
	}
	require.NoError(t, reg.Register(p))

	has := map[ecs.ComponentTypeID]bool{typeA: true, typeB: true}
	o, ok := process.Select(p, func(t ecs.ComponentTypeID) bool { return has[t] })
	require.True(t, ok)
	assert.ElementsMatch(t, []ecs.ComponentTypeID{typeA, typeB}, o.PastTypes)
}

func TestSelectFallsBackToSmallerOverload(t *testing.T) {
	reg := process.NewRegistry()
	p := &process.Process{
		Name: "layered2",
		Overloads: []process.Overload{
			{PastTypes: []ecs.ComponentTypeID{typeA}, Run: noopRun},
			{PastTypes: []ecs.ComponentTypeID{typeA, typeB}, Run: noopRun},
		},
	}
	require.NoError(t, reg.Register(p))

	has := map[ecs.ComponentTypeID]bool{typeA: true}
	o, ok := process.Select(p, func(t ecs.ComponentTypeID) bool { return has[t] })
	require.True(t, ok)
	assert.Equal(t, []ecs.ComponentTypeID{typeA}, o.PastTypes)
}

func TestSelectNoMatch(t *testing.T) {
	reg := process.NewRegistry()
	p := &process.Process{
		Name:      "strict",
		Overloads: []process.Overload{{PastTypes: []ecs.ComponentTypeID{typeA, typeB}, Run: noopRun}},
	}
	require.NoError(t, reg.Register(p))

	_, ok := process.Select(p, func(ecs.ComponentTypeID) bool { return false })
	assert.False(t, ok)
}
