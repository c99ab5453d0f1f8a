// Command demo wires a registry, a columnar store, a process dispatcher
// and the frame engine together and runs a handful of frames against a
// small hand-built scene, exercising the copy-preserve pattern: without a
// process that reads a past component and re-emits it as a future
// component of the same type, components do not survive a frame boundary.
package main

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/config"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/engine"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/entitytable"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/process"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/prototype"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/registry"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/resource"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/store"
	"github.com/kiith-sa/tharsis-core-go/internal/diag"
)

// meshDescriptor names one mesh asset by a stable id, the way a prototype
// would reference an externally loaded resource rather than embedding it.
type meshDescriptor struct {
	id   uuid.UUID
	name string
}

// meshLibrary stands in for whatever asset store a deployment plugs in;
// it holds one entry, and the demo's second descriptor names a mesh that is
// missing from it on purpose to exercise StateLoadFailed.
var meshLibrary = map[string][]byte{
	"crate": {0xDE, 0xAD, 0xBE, 0xEF},
}

func loadMesh(d *meshDescriptor) ([]byte, bool) {
	data, ok := meshLibrary[d.name]
	return data, ok
}

// positionTypeID is the first available user component id; the demo's
// Position{X, Y, Z float32} component lives here.
const positionTypeID = ecs.FirstUserComponentTypeID

const positionSize = 12 // 3 × float32

func encodePosition(x, y, z float32) []byte {
	buf := make([]byte, positionSize)
	putF32(buf[0:4], x)
	putF32(buf[4:8], y)
	putF32(buf[8:12], z)
	return buf
}

func decodePosition(b []byte) (x, y, z float32) {
	return getF32(b[0:4]), getF32(b[4:8]), getF32(b[8:12])
}

func putF32(b []byte, v float32) {
	bits := math.Float32bits(v)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}

func getF32(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panicf("building logger: %v", err)
	}
	defer logger.Sync()

	reg := registry.New()
	if err := reg.Register(registry.TypeDescriptor{
		ID:           positionTypeID,
		Name:         "position",
		Size:         positionSize,
		MaxPerEntity: 1,
		MinPrealloc:  16,
	}); err != nil {
		panicf("registering position: %v", err)
	}
	if err := reg.Lock(); err != nil {
		panicf("locking registry: %v", err)
	}

	procs := process.NewRegistry()
	if err := procs.Register(copyPreserveProcess()); err != nil {
		panicf("registering copy-preserve process: %v", err)
	}
	if err := procs.Register(lifePreserveProcess()); err != nil {
		panicf("registering life-preserve process: %v", err)
	}
	procs.Lock()

	policy := config.Default()
	dc := diag.New(logger)
	st, err := store.New[uint32](reg, store.Policy{
		MinComponentPrealloc:          policy.MinComponentPrealloc,
		MinComponentPerEntityPrealloc: policy.MinComponentPerEntityPrealloc,
		ReallocationMultiplier:        policy.ReallocationMultiplier,
		PreallocMultiplier:            policy.PreallocMultiplier,
	}, dc, 0)
	if err != nil {
		panicf("building store: %v", err)
	}

	births := entitytable.NewBirthQueue(policy.MaxNewEntitiesPerFrame)

	eng := engine.New(reg, procs, st, births, dc, policy)

	meshes := resource.New[*meshDescriptor, []byte](loadMesh)
	eng.RegisterResource(meshes)
	crate := meshes.Handle(&meshDescriptor{id: uuid.New(), name: "crate"})
	missing := meshes.Handle(&meshDescriptor{id: uuid.New(), name: "statue"})

	p := prototype.New("unit")
	if err := p.Add(positionTypeID, encodePosition(1, 2, 3), 1); err != nil {
		panicf("building prototype: %v", err)
	}
	if err := p.Lock(); err != nil {
		panicf("locking prototype: %v", err)
	}

	id := births.Enqueue(p)
	if id == ecs.NoEntity {
		panicf("birth queue full on first enqueue")
	}

	for frame := 1; frame <= 5; frame++ {
		if err := eng.Frame(context.Background()); err != nil {
			panicf("frame %d: %v", frame, err)
		}
		for _, s := range st.Stats() {
			if s.Type == positionTypeID {
				fmt.Printf("frame %d: position column has %d committed instance(s)\n", frame, s.Committed)
			}
		}
	}

	if b, ok := st.PastComponent(positionTypeID, 0); ok {
		x, y, z := decodePosition(b)
		fmt.Printf("entity %d position after 5 frames: (%.0f, %.0f, %.0f)\n", id, x, y, z)
	}

	fmt.Printf("crate mesh: %s\n", meshes.State(crate))
	fmt.Printf("statue mesh: %s (failed descriptors: %v)\n", meshes.State(missing), meshes.FailedDescriptors())

	if warnings := dc.Warnings(); warnings != nil {
		logger.Warn("diagnostics recorded during run", zap.Error(warnings))
	}
}

// copyPreserveProcess returns a process with a single overload that reads
// Position and writes it back unchanged, the minimal pattern needed to
// keep a component alive across frame boundaries.
func copyPreserveProcess() *process.Process {
	return &process.Process{
		Name: "copy-preserve-position",
		Overloads: []process.Overload{
			{
				PastTypes:  []ecs.ComponentTypeID{positionTypeID},
				FutureType: positionTypeID,
				Shape:      process.FutureAlways,
				Run: func(a process.Args) process.Result {
					copy(a.Future, a.Past[0])
					return process.Result{FutureCount: 1}
				},
			},
		},
	}
}

// lifePreserveProcess keeps every entity alive unless something else
// removes it: like position, Life is not special-cased by the engine, so
// anything that should survive a frame needs a process re-emitting it.
func lifePreserveProcess() *process.Process {
	return &process.Process{
		Name: "life-preserve",
		Overloads: []process.Overload{
			{
				PastTypes:  []ecs.ComponentTypeID{ecs.LifeComponentTypeID},
				FutureType: ecs.LifeComponentTypeID,
				Shape:      process.FutureAlways,
				Run: func(a process.Args) process.Result {
					copy(a.Future, a.Past[0])
					return process.Result{FutureCount: 1}
				},
			},
		},
	}
}

func panicf(format string, args ...any) {
	log.Fatalf(format, args...)
}
