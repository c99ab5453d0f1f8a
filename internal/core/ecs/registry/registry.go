// Package registry implements the component type registry (spec §4.1):
// metadata per registered component type, validated and locked before any
// engine instance is built from it.
//
// Grounded on the teacher's storage.ComponentStore registration map
// (RegisterComponentType/IsRegistered/GetRegisteredTypes), generalized
// from a runtime string-keyed map to a pre-lock/post-lock id-indexed
// table, since spec §4.1 requires registration to close over before any
// frame runs.
package registry

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/source"
)

// ComponentCountMax is the largest max_per_entity value a type may declare
// (spec §4.1 "max_per_entity ≤ COMPONENT_COUNT_MAX"); it tracks the widest
// ComponentCount instantiation the store supports.
const ComponentCountMax = 1<<32 - 1

// Loader populates dst (exactly Size bytes, or MaxPerEntity*Size bytes for
// a multi type's n instances) from a source fragment, returning false on
// failure (spec §7: loaders never throw). n is always 1 for non-multi
// types.
type Loader func(src source.Source, dst []byte, n int) bool

// TypeDescriptor is a component type's registration-time metadata (spec §3
// "Component type", §4.1).
type TypeDescriptor struct {
	ID                   ecs.ComponentTypeID `validate:"required"`
	Name                 string              `validate:"required"`
	Size                 uint32              `validate:"gte=1"`
	MaxPerEntity         uint16              `validate:"gte=1"`
	MinPrealloc          uint32
	MinPreallocPerEntity uint32
	Loader               Loader
}

// IsMulti reports whether more than one instance of this type may be
// attached to a single entity.
func (d TypeDescriptor) IsMulti() bool { return d.MaxPerEntity > 1 }

// Registry holds component type metadata. It starts mutable and becomes
// permanently immutable after Lock (spec §4.1); constructing a frame
// engine requires a locked registry.
type Registry struct {
	mu       sync.Mutex
	locked   bool
	validate *validator.Validate
	byID     map[ecs.ComponentTypeID]TypeDescriptor
	maxID    ecs.ComponentTypeID
}

// New returns a registry pre-seeded with the built-in Life component type
// (spec §3: "a small contiguous range is reserved for built-ins, notably
// the Life component at a fixed low id").
func New() *Registry {
	r := &Registry{
		validate: validator.New(),
		byID:     make(map[ecs.ComponentTypeID]TypeDescriptor),
	}
	// Life has no Loader: it is never populated from a prototype source,
	// only synthesized at birth (spec §3 Lifecycle) and copied frame to
	// frame by whichever process declares it as a future type.
	r.byID[ecs.LifeComponentTypeID] = TypeDescriptor{
		ID:           ecs.LifeComponentTypeID,
		Name:         "life",
		Size:         ecs.LifeSize,
		MaxPerEntity: 1,
	}
	r.maxID = ecs.LifeComponentTypeID
	return r
}

// Register adds a component type. Pre-lock only; rejects duplicate ids and
// out-of-range ids (spec §4.1). A violation is a programmer error: it
// fails fast and is never surfaced at frame-execution time (spec §7).
func (r *Registry) Register(d TypeDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.locked {
		return &ecs.ProgrammerError{Op: "registry.Register", Message: "registry is already locked"}
	}
	if err := r.validate.Struct(d); err != nil {
		return &ecs.ProgrammerError{Op: "registry.Register", Message: err.Error()}
	}
	if _, exists := r.byID[d.ID]; exists {
		return &ecs.ProgrammerError{Op: "registry.Register", Message: fmt.Sprintf("duplicate component type id %d", d.ID)}
	}
	if !(d.ID.IsBuiltin() || d.ID.IsDefault() || d.ID.IsUser()) {
		return &ecs.ProgrammerError{Op: "registry.Register", Message: fmt.Sprintf("component type id %d is out of range", d.ID)}
	}
	if uint64(d.MaxPerEntity) > ComponentCountMax {
		return &ecs.ProgrammerError{Op: "registry.Register", Message: "max_per_entity exceeds COMPONENT_COUNT_MAX"}
	}

	r.byID[d.ID] = d
	if d.ID > r.maxID {
		r.maxID = d.ID
	}
	return nil
}

// Lock freezes the registry. Double-locking is a programmer error.
func (r *Registry) Lock() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.locked {
		return &ecs.ProgrammerError{Op: "registry.Lock", Message: "registry is already locked"}
	}
	r.locked = true
	return nil
}

// Locked reports whether Lock has been called.
func (r *Registry) Locked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locked
}

// Types returns the full metadata array indexed by component type id,
// sparse with zero-value slots for unassigned ids (spec §4.1 types()).
func (r *Registry) Types() []TypeDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TypeDescriptor, r.maxID+1)
	for id, d := range r.byID {
		out[id] = d
	}
	return out
}

// Lookup returns the descriptor for id, if registered.
func (r *Registry) Lookup(id ecs.ComponentTypeID) (TypeDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	return d, ok
}

// MaxID returns the highest registered component type id.
func (r *Registry) MaxID() ecs.ComponentTypeID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxID
}

// MaxEntityBytes sums size*max_per_entity across all registered types
// (spec §4.1); used to size prototype buffers. Valid only post-lock.
func (r *Registry) MaxEntityBytes() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total uint64
	for _, d := range r.byID {
		total += uint64(d.Size) * uint64(d.MaxPerEntity)
	}
	return total
}

// MaxEntityComponents sums max_per_entity across all registered types
// (spec §4.1). Valid only post-lock.
func (r *Registry) MaxEntityComponents() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total uint32
	for _, d := range r.byID {
		total += uint32(d.MaxPerEntity)
	}
	return total
}
