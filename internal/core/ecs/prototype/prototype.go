// Package prototype implements immutable, pre-baked entity templates (spec
// §3 "Prototype"): a list of component payloads, each tagged with the type
// it belongs to and its instance count, built once via Add calls and then
// frozen with Lock. Each payload is held in its own copied buffer; the
// payloads are not packed into one contiguous block.
//
// Grounded on the teacher's storage.MemoryPool (grow-only backing buffer,
// acquire-then-fix-size pattern); generalized from a generic object pool
// to a single-entity payload blob, since spec §3 requires a prototype's
// memory layout to match exactly what gets copied into the store at birth.
package prototype

import (
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs"
)

// component is one payload packed into a Prototype, before locking.
type component struct {
	typ     ecs.ComponentTypeID
	payload []byte
	count   uint32 // number of instances this payload represents (multi types)
}

// Prototype is an immutable, pre-baked component bundle (spec §3). It is
// built with Add, then frozen with Lock; only a locked Prototype may be
// enqueued for birth.
type Prototype struct {
	name       string
	components []component
	locked     bool
}

// New returns an empty, unlocked Prototype identified by name (used only
// in diagnostics).
func New(name string) *Prototype {
	return &Prototype{name: name}
}

// Name returns the prototype's diagnostic name.
func (p *Prototype) Name() string { return p.name }

// Add appends a component payload of the given type. count is the number
// of packed instances payload holds (1 for non-multi types). Add on a
// locked Prototype is a programmer error.
func (p *Prototype) Add(typ ecs.ComponentTypeID, payload []byte, count uint32) error {
	if p.locked {
		return &ecs.ProgrammerError{Op: "Prototype.Add", Message: "prototype is already locked"}
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	p.components = append(p.components, component{typ: typ, payload: buf, count: count})
	return nil
}

// Lock freezes the prototype; it becomes safe to share across goroutines
// and to enqueue for birth. Double-locking is a programmer error.
func (p *Prototype) Lock() error {
	if p.locked {
		return &ecs.ProgrammerError{Op: "Prototype.Lock", Message: "prototype is already locked"}
	}
	p.locked = true
	return nil
}

// Locked reports whether Lock has been called.
func (p *Prototype) Locked() bool { return p.locked }

// Component is one type/payload/count triple read back out of a locked
// Prototype by the admission pass.
type Component struct {
	Type    ecs.ComponentTypeID
	Payload []byte
	Count   uint32
}

// Components returns every payload in this prototype. Valid only once
// locked.
func (p *Prototype) Components() []Component {
	out := make([]Component, len(p.components))
	for i, c := range p.components {
		out[i] = Component{Type: c.typ, Payload: c.payload, Count: c.count}
	}
	return out
}
