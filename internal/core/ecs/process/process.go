// Package process implements the process registry and overload dispatcher
// (spec §4.5): a process exposes one or more overloads differing by their
// past-component signature; the registry checks the overload set is
// unambiguous, and each frame the frame engine calls Select for every
// alive entity to pick the overload it runs.
//
// Grounded on the teacher's system_manager.go (registered systems iterated
// once per frame against matching entities); generalized from a single
// fixed signature per system to multiple competing overloads per process,
// since spec §4.5 requires overload-set ambiguity checking that the
// teacher's one-signature-per-system model never needed.
package process

import (
	"fmt"
	"sort"

	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs"
)

// FutureShape describes how an overload's future parameter is written
// (spec §4.5, Design Note §9 "collapse to three explicit call shapes").
type FutureShape int

const (
	// FutureNone means the overload declares no future output.
	FutureNone FutureShape = iota
	// FutureAlways means the overload always writes exactly one future
	// component (out-reference).
	FutureAlways
	// FutureOptional means the overload may write one future component or
	// decline (reference-to-pointer / written-or-skipped).
	FutureOptional
	// FutureMulti means the overload writes 0..max_per_entity future
	// components as a count (mutable slice the process shortens).
	FutureMulti
)

// Context lets an overload look up any past component of any past entity
// by id, not just the entity currently being dispatched (spec §4.5
// "optionally a context parameter").
type Context interface {
	// Lookup returns the single (non-multi) past component of type t
	// belonging to entity id, or ok=false if it has none or id is not in
	// this frame's past entity table.
	Lookup(id ecs.EntityID, t ecs.ComponentTypeID) (data []byte, ok bool)
	// LookupMulti returns every past component of type t belonging to
	// entity id.
	LookupMulti(id ecs.EntityID, t ecs.ComponentTypeID) []byte
}

// Args is what an overload's Run function receives for one dispatched
// entity (spec §4.5 "per-entity dispatch").
type Args struct {
	Entity ecs.EntityID
	// Past holds each declared past-component parameter's bytes, indexed
	// in the same order as the overload's PastTypes; for multi types this
	// is the full contiguous slice, for non-multi a single-element view.
	Past [][]byte
	// Future is the writable reservation for this overload's declared
	// future type, sized for up to FutureMax components (1 unless
	// FutureMulti).
	Future []byte
	Ctx    Context
}

// Result is what an overload's Run function reports back: how many future
// components it actually wrote (spec §4.5 "the dispatcher interprets the
// written future component count").
type Result struct {
	FutureCount uint32
}

// RunFunc is an overload's step function body.
type RunFunc func(Args) Result

// Overload is one signature variant of a process's step function (spec
// §4.5).
type Overload struct {
	// PastTypes are the past-component types this overload requires,
	// matched against an entity's non-zero component counts.
	PastTypes []ecs.ComponentTypeID
	// FutureType is the single future component type this overload may
	// write, or ecs.NoComponentType if it writes none.
	FutureType ecs.ComponentTypeID
	Shape      FutureShape
	// FutureMax bounds how many future components FutureMulti may write;
	// ignored for other shapes (always 1 or 0).
	FutureMax uint32
	// UsesContext reports whether Run expects a non-nil Args.Ctx.
	UsesContext bool
	Run         RunFunc

	pastSet map[ecs.ComponentTypeID]struct{}
}

func (o *Overload) pastSetOf() map[ecs.ComponentTypeID]struct{} {
	if o.pastSet == nil {
		o.pastSet = make(map[ecs.ComponentTypeID]struct{}, len(o.PastTypes))
		for _, t := range o.PastTypes {
			o.pastSet[t] = struct{}{}
		}
	}
	return o.pastSet
}

func sameSet(a, b map[ecs.ComponentTypeID]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func unionSet(a, b map[ecs.ComponentTypeID]struct{}) map[ecs.ComponentTypeID]struct{} {
	u := make(map[ecs.ComponentTypeID]struct{}, len(a)+len(b))
	for k := range a {
		u[k] = struct{}{}
	}
	for k := range b {
		u[k] = struct{}{}
	}
	return u
}

// PreStepper is implemented by a process that wants a hook invoked once
// before any entity is dispatched this frame (spec §4.6 step 7).
type PreStepper interface {
	PreStep()
}

// PostStepper is implemented by a process that wants a hook invoked once
// after every entity has been dispatched this frame.
type PostStepper interface {
	PostStep()
}

// Process is a named, registered unit of behavior: one or more Overloads
// sharing a single declared future component type (spec §4.5).
type Process struct {
	Name      string
	Overloads []Overload

	// Optional hooks, each invoked once per frame: PreStep before this
	// process's entities are dispatched, PostStep after.
	PreStep  func()
	PostStep func()

	ordered []Overload // Overloads sorted by descending |PastTypes|, set at Register
}

func (p *Process) futureType() ecs.ComponentTypeID {
	for _, o := range p.Overloads {
		if o.FutureType != ecs.NoComponentType {
			return o.FutureType
		}
	}
	return ecs.NoComponentType
}

// Registry holds every registered process, in registration order, and the
// one-writer-per-future-type invariant across all of them (spec §4.5
// "at most one process declares any given future component type").
type Registry struct {
	locked    bool
	processes []*Process
	byFuture  map[ecs.ComponentTypeID]string
}

// NewRegistry returns an empty process registry.
func NewRegistry() *Registry {
	return &Registry{byFuture: make(map[ecs.ComponentTypeID]string)}
}

// Register validates and adds p (spec §4.5):
//   - all of p's overloads agree on a single future component type;
//   - no other registered process already writes that future type;
//   - the overload set is unambiguous: for every pair of overloads whose
//     past sets differ, some overload's past set equals their union.
//
// All violations are programmer errors, reported at registration time.
func (r *Registry) Register(p *Process) error {
	if r.locked {
		return &ecs.ProgrammerError{Op: "process.Register", Message: "process registry is already locked"}
	}
	if len(p.Overloads) == 0 {
		return &ecs.ProgrammerError{Op: "process.Register", Message: fmt.Sprintf("process %q declares no overloads", p.Name)}
	}

	future := ecs.NoComponentType
	haveFuture := false
	for i := range p.Overloads {
		o := &p.Overloads[i]
		if o.FutureType == ecs.NoComponentType {
			continue
		}
		if !haveFuture {
			future = o.FutureType
			haveFuture = true
			continue
		}
		if o.FutureType != future {
			return &ecs.ProgrammerError{Op: "process.Register",
				Message: fmt.Sprintf("process %q: overloads disagree on future type (%s vs %s)", p.Name, future, o.FutureType)}
		}
	}
	if haveFuture {
		if owner, exists := r.byFuture[future]; exists {
			return &ecs.ProgrammerError{Op: "process.Register",
				Message: fmt.Sprintf("future type %s already written by process %q", future, owner)}
		}
	}

	if err := checkAmbiguity(p); err != nil {
		return err
	}

	ordered := make([]Overload, len(p.Overloads))
	copy(ordered, p.Overloads)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].PastTypes) > len(ordered[j].PastTypes)
	})
	p.ordered = ordered

	r.processes = append(r.processes, p)
	if haveFuture {
		r.byFuture[future] = p.Name
	}
	return nil
}

// checkAmbiguity implements spec §4.5's pairwise-union rule: for every
// pair of overloads (i,j), the union of their past sets must be exactly
// matched by some overload's past set (which may be i or j itself, when
// one's set is a superset of the other's).
func checkAmbiguity(p *Process) error {
	n := len(p.Overloads)
	for i := 0; i < n; i++ {
		si := p.Overloads[i].pastSetOf()
		for j := i + 1; j < n; j++ {
			sj := p.Overloads[j].pastSetOf()
			if sameSet(si, sj) {
				return &ecs.ProgrammerError{Op: "process.Register",
					Message: fmt.Sprintf("process %q: overloads %d and %d declare identical past-component sets", p.Name, i, j)}
			}
			u := unionSet(si, sj)
			found := false
			for k := 0; k < n; k++ {
				if sameSet(p.Overloads[k].pastSetOf(), u) {
					found = true
					break
				}
			}
			if !found {
				return &ecs.ProgrammerError{Op: "process.Register",
					Message: fmt.Sprintf("process %q: ambiguous overloads %d and %d require an overload covering their union of past types", p.Name, i, j)}
			}
		}
	}
	return nil
}

// Lock freezes the registry; no further processes may be registered.
func (r *Registry) Lock() { r.locked = true }

// Processes returns every registered process, in registration order.
func (r *Registry) Processes() []*Process { return r.processes }

// HasWriter reports whether some registered process declares t as its
// future component type (spec §4.6 step 1 diagnostics pass).
func (r *Registry) HasWriter(t ecs.ComponentTypeID) bool {
	_, ok := r.byFuture[t]
	return ok
}

// Select returns the overload a process should use for an entity with the
// given non-zero-count set, by trying overloads in descending cardinality
// order and taking the first whose every required type has a non-zero
// count (spec §4.5 "the first whose required component counts are all
// non-zero on the current past entity wins"). ok is false if none match.
func Select(p *Process, hasCount func(ecs.ComponentTypeID) bool) (*Overload, bool) {
	for i := range p.ordered {
		o := &p.ordered[i]
		match := true
		for _, t := range o.PastTypes {
			if !hasCount(t) {
				match = false
				break
			}
		}
		if match {
			return o, true
		}
	}
	return nil, false
}
