// Package store implements the columnar, double-buffered component store
// (spec §3 "Columnar store", §4.2). For each registered component type it
// keeps a tightly packed byte buffer plus two parallel per-entity arrays —
// a count and an offset — and maintains two generations (past/future) that
// are swapped by flipping an index rather than copying memory.
//
// Grounded on the teacher's storage.ComponentStore (map-of-maps component
// storage) and storage.SparseSet (dense, append/swap-remove indexing),
// generalized: the teacher keyed components by a boxed Component interface
// per entity; spec §3 requires tightly packed raw bytes keyed by array
// position, with components of a type stored contiguously in entity order.
// storage.MemoryPool's acquire/grow pattern is the model for column growth
// here (grow by a multiplier, never shrink mid-frame).
package store

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/registry"
	"github.com/kiith-sa/tharsis-core-go/internal/diag"
)

// Policy configures preallocation and growth (spec §4.2, §6).
type Policy struct {
	MinComponentPrealloc          uint32
	MinComponentPerEntityPrealloc uint32
	ReallocationMultiplier        float64
	PreallocMultiplier            float64
}

// column is one registered type's per-generation storage.
type column[C ecs.ComponentCount] struct {
	size      uint32 // instance size in bytes
	maxPer    uint16 // max_per_entity, for multi growth bookkeeping
	data      []byte // backing buffer; only the first committed*size bytes are live
	committed uint32 // components committed so far in this generation
	counts    []C    // counts[i]: number of components entity i has
	offsets   []uint32
}

func newColumn[C ecs.ComponentCount](d registry.TypeDescriptor, entities int) *column[C] {
	c := &column[C]{size: d.Size, maxPer: d.MaxPerEntity}
	c.counts = make([]C, entities)
	c.offsets = make([]uint32, entities)
	for i := range c.offsets {
		c.offsets[i] = ecs.SentinelOffset
	}
	return c
}

func (c *column[C]) capComponents() uint32 {
	if c.size == 0 {
		return 0
	}
	return uint32(len(c.data)) / c.size
}

// grow ensures the column can hold at least min additional components
// beyond what's committed, multiplying capacity by mult (spec §4.2
// "growth is reallocation_multiplier × current").
func (c *column[C]) grow(min uint32, mult float64, dc *diag.Channel, name string) {
	need := c.committed + min
	cap := c.capComponents()
	if need <= cap {
		return
	}
	newCap := cap
	if newCap == 0 {
		newCap = need
	}
	for newCap < need {
		grown := uint32(float64(newCap) * mult)
		if grown <= newCap {
			grown = newCap + 1
		}
		newCap = grown
	}
	grownBytes := make([]byte, newCap*c.size)
	copy(grownBytes, c.data[:c.committed*c.size])
	if dc != nil {
		dc.Warn(ecs.SeverityInfo, "component column grown",
			zap.String("component_type", name),
			zap.Uint32("old_capacity", cap),
			zap.Uint32("new_capacity", newCap))
	}
	c.data = grownBytes
}

func (c *column[C]) growEntities(n int) {
	for len(c.counts) < n {
		c.counts = append(c.counts, 0)
	}
	for len(c.offsets) < n {
		c.offsets = append(c.offsets, ecs.SentinelOffset)
	}
	c.counts = c.counts[:n]
	c.offsets = c.offsets[:n]
}

// Stats reports a column's storage footprint; purely informational (spec
// §12 "storage statistics", generalized from the teacher's StorageStats).
type Stats struct {
	Type      ecs.ComponentTypeID
	Committed uint32
	Capacity  uint32
	Bytes     int
}

// Store is the double-buffered columnar component store (spec §3, §4.2). C
// is the per-entity component-count width (spec §6 component_count_type),
// a compile-time parameter per Design Note §9.
type Store[C ecs.ComponentCount] struct {
	reg    *registry.Registry
	policy Policy
	dc     *diag.Channel

	gen [2]map[ecs.ComponentTypeID]*column[C]
	cur int // 0 or 1: index of the "past" generation in gen
}

// New builds a Store for every type in reg (which must already be locked),
// with entities pre-sized to initialEntities in both generations.
func New[C ecs.ComponentCount](reg *registry.Registry, policy Policy, dc *diag.Channel, initialEntities int) (*Store[C], error) {
	if !reg.Locked() {
		return nil, &ecs.ProgrammerError{Op: "store.New", Message: "registry must be locked before constructing a store"}
	}
	s := &Store[C]{reg: reg, policy: policy, dc: dc}
	for g := 0; g < 2; g++ {
		s.gen[g] = make(map[ecs.ComponentTypeID]*column[C])
		for _, d := range reg.Types() {
			if d.ID == ecs.NoComponentType {
				continue
			}
			s.gen[g][d.ID] = newColumn[C](d, initialEntities)
		}
	}
	return s, nil
}

func (s *Store[C]) pastIdx() int   { return s.cur }
func (s *Store[C]) futureIdx() int { return 1 - s.cur }

func (s *Store[C]) pastCol(t ecs.ComponentTypeID) *column[C]   { return s.gen[s.pastIdx()][t] }
func (s *Store[C]) futureCol(t ecs.ComponentTypeID) *column[C] { return s.gen[s.futureIdx()][t] }

// PastCount returns the number of components of type t entity index i has
// in the past generation.
func (s *Store[C]) PastCount(t ecs.ComponentTypeID, i int) uint32 {
	c := s.pastCol(t)
	if c == nil || i >= len(c.counts) {
		return 0
	}
	return uint32(c.counts[i])
}

// FutureCount returns the number of components of type t entity index i
// has committed so far in the future generation.
func (s *Store[C]) FutureCount(t ecs.ComponentTypeID, i int) uint32 {
	c := s.futureCol(t)
	if c == nil || i >= len(c.counts) {
		return 0
	}
	return uint32(c.counts[i])
}

// PastComponent returns the single (non-multi) component of type t for
// entity index i in the past generation, or ok=false if it has none.
func (s *Store[C]) PastComponent(t ecs.ComponentTypeID, i int) (data []byte, ok bool) {
	c := s.pastCol(t)
	if c == nil || i >= len(c.counts) || c.counts[i] == 0 {
		return nil, false
	}
	off := c.offsets[i]
	return c.data[off*c.size : (off+1)*c.size], true
}

// PastComponents returns the full contiguous slice of type t's components
// for entity index i (multi types) in the past generation.
func (s *Store[C]) PastComponents(t ecs.ComponentTypeID, i int) []byte {
	c := s.pastCol(t)
	if c == nil || i >= len(c.counts) || c.counts[i] == 0 {
		return nil
	}
	off := c.offsets[i]
	n := uint32(c.counts[i])
	return c.data[off*c.size : (off+n)*c.size]
}

// ReserveFuture returns a writable slice of exactly max components' worth
// of space for type t, to be populated by a process and then finalized
// with CommitEntityFuture. It grows the future column if the request
// exceeds current capacity (spec §4.2 "Reallocation policy during a
// frame").
func (s *Store[C]) ReserveFuture(t ecs.ComponentTypeID, max uint32) []byte {
	c := s.futureCol(t)
	if c == nil {
		return nil
	}
	d, _ := s.reg.Lookup(t)
	c.grow(max, s.policy.ReallocationMultiplier, s.dc, d.Name)
	start := c.committed
	return c.data[start*c.size : (start+max)*c.size]
}

// CommitEntityFuture records that entity index i received n components of
// type t, contiguous with whatever was already committed (spec §3
// "components are stored contiguously in entity order"), and advances the
// column's committed count by n.
func (s *Store[C]) CommitEntityFuture(t ecs.ComponentTypeID, i int, n uint32) {
	c := s.futureCol(t)
	if c == nil {
		return
	}
	c.growEntities(i + 1)
	if n == 0 {
		c.counts[i] = 0
		c.offsets[i] = ecs.SentinelOffset
		return
	}
	c.counts[i] = C(n)
	c.offsets[i] = c.committed
	c.committed += n
}

// AppendPastBirth copies payload (n components' worth of raw bytes) into
// the *past* generation's column for type t at entity index i (spec §4.6
// step 5: births are admitted directly into past so the next frame sees
// them, mirrored into future's entity records by the caller).
func (s *Store[C]) AppendPastBirth(t ecs.ComponentTypeID, i int, payload []byte, n uint32) {
	c := s.pastCol(t)
	if c == nil {
		return
	}
	d, _ := s.reg.Lookup(t)
	c.grow(n, s.policy.ReallocationMultiplier, s.dc, d.Name)
	c.growEntities(i + 1)
	start := c.committed
	copy(c.data[start*c.size:(start+n)*c.size], payload)
	c.counts[i] = C(n)
	c.offsets[i] = start
	c.committed += n
}

// AppendFutureBirth mirrors a birth's payload directly into the *future*
// generation's column for type t at entity index i (spec §4.6 step 5
// "mirror the same entity record into future"), the same way
// AppendPastBirth does for past.
func (s *Store[C]) AppendFutureBirth(t ecs.ComponentTypeID, i int, payload []byte, n uint32) {
	c := s.futureCol(t)
	if c == nil {
		return
	}
	d, _ := s.reg.Lookup(t)
	c.grow(n, s.policy.ReallocationMultiplier, s.dc, d.Name)
	c.growEntities(i + 1)
	start := c.committed
	copy(c.data[start*c.size:(start+n)*c.size], payload)
	c.counts[i] = C(n)
	c.offsets[i] = start
	c.committed += n
}

// ResetFuture zeros committed counts for every type's future column and
// clears every entity's count/offset slot to (0, sentinel), leaving
// allocation in place (spec §4.2 reset_future).
func (s *Store[C]) ResetFuture() {
	for _, c := range s.gen[s.futureIdx()] {
		c.committed = 0
		for i := range c.counts {
			c.counts[i] = 0
			c.offsets[i] = ecs.SentinelOffset
		}
	}
}

// GrowEntityCount resizes every future column's count/offset arrays to n,
// with new slots initialized to (0, sentinel) (spec §4.2 grow_entity_count).
func (s *Store[C]) GrowEntityCount(n int) {
	for _, c := range s.gen[s.futureIdx()] {
		c.growEntities(n)
	}
}

// GrowPastEntityCount resizes the past generation's count/offset arrays to
// n, with new slots initialized to (0, sentinel).
func (s *Store[C]) GrowPastEntityCount(n int) {
	for _, c := range s.gen[s.pastIdx()] {
		c.growEntities(n)
	}
}

// Preallocate reserves (without initializing) prealloc components of every
// type ahead of a frame, per the §4.2 policy formula:
//
//	prealloc = alloc_mult × max(max(min_component_prealloc, t.min_prealloc),
//	               max(min_component_per_entity_prealloc, t.min_prealloc_per_entity) × E)
func (s *Store[C]) Preallocate(entityCount int) {
	e := float64(entityCount)
	for id, c := range s.gen[s.futureIdx()] {
		d, ok := s.reg.Lookup(id)
		if !ok {
			continue
		}
		floor := maxU32(s.policy.MinComponentPrealloc, d.MinPrealloc)
		perEntity := maxU32(s.policy.MinComponentPerEntityPrealloc, d.MinPreallocPerEntity)
		want := maxF(float64(floor), float64(perEntity)*e)
		prealloc := uint32(s.policy.PreallocMultiplier * want)
		if prealloc == 0 {
			continue
		}
		need := int64(prealloc) - (int64(c.capComponents()) - int64(c.committed))
		if need > 0 {
			c.grow(uint32(need), s.policy.ReallocationMultiplier, s.dc, d.Name)
		}
	}
}

// Swap flips past and future: the old future becomes the new past, and the
// old past (about to be overwritten as the new future) is handled by the
// caller via ResetFuture/GrowEntityCount (spec §4.6 step 3).
func (s *Store[C]) Swap() {
	s.cur = s.futureIdx()
}

// Stats reports per-type storage statistics for the past generation.
func (s *Store[C]) Stats() []Stats {
	out := make([]Stats, 0, len(s.gen[s.pastIdx()]))
	for id, c := range s.gen[s.pastIdx()] {
		out = append(out, Stats{
			Type:      id,
			Committed: c.committed,
			Capacity:  c.capComponents(),
			Bytes:     len(c.data),
		})
	}
	return out
}

// ValidateInvariants checks the bit-precise invariants spec §3/§8 demand
// hold at a frame boundary, for use by tests. It inspects the past
// generation (the one callers observe as "the" current state).
func (s *Store[C]) ValidateInvariants(entityCount int) error {
	for id, c := range s.gen[s.pastIdx()] {
		var sum uint64
		for i := 0; i < entityCount && i < len(c.counts); i++ {
			sum += uint64(c.counts[i])
		}
		if sum != uint64(c.committed) {
			return fmt.Errorf("type %d: counts sum to %d but %d components are committed", id, sum, c.committed)
		}
		var prevOffset uint32
		var prevCount C
		havePrev := false
		for i := 0; i < entityCount && i < len(c.counts); i++ {
			if c.counts[i] > C(0) {
				if havePrev && prevCount > 0 && c.offsets[i] != prevOffset+uint32(prevCount) {
					return fmt.Errorf("type %d: offsets not contiguous at entity %d", id, i)
				}
				prevOffset = c.offsets[i]
			}
			prevCount = c.counts[i]
			havePrev = true
		}
	}
	return nil
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
