// Package entitytable tracks which entity ids are alive and maps them to
// their dense array position in the columnar store, plus the bounded birth
// queue new entities wait in before admission (spec §3 "Entity table",
// §4.3 "Birth queue").
//
// Grounded on the teacher's storage.SparseSet (dense/sparse index pair,
// swap-remove compaction) and entity_manager.go's id-counter-under-lock
// pattern for minting ids; generalized because spec §4.3 requires the
// queue itself, not just id minting, to be bounded and thread-safe.
package entitytable

import (
	"sort"
	"sync"

	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs"
)

// Table is the sorted array of currently-alive entity ids; an entity's
// position in this array is its index into every store column (spec §3).
type Table struct {
	ids []ecs.EntityID
}

// New returns an empty Table.
func New() *Table { return &Table{} }

// Len returns the number of alive entities.
func (t *Table) Len() int { return len(t.ids) }

// At returns the entity id at array position i.
func (t *Table) At(i int) ecs.EntityID { return t.ids[i] }

// IDs exposes the backing slice read-only; callers must not retain it past
// the next Reset.
func (t *Table) IDs() []ecs.EntityID { return t.ids }

// IndexOf returns the array position of id, by binary search since ids are
// kept sorted, or ok=false if id is not currently alive.
func (t *Table) IndexOf(id ecs.EntityID) (int, bool) {
	i := sort.Search(len(t.ids), func(i int) bool { return t.ids[i] >= id })
	if i < len(t.ids) && t.ids[i] == id {
		return i, true
	}
	return 0, false
}

// Reset replaces the table's contents with ids, which must already be
// sorted ascending (spec §4.6 step 4 "compact": at the end of each frame
// the engine rebuilds the table from that frame's alive past entities plus
// admitted births, in future-generation order).
func (t *Table) Reset(ids []ecs.EntityID) {
	t.ids = ids
}

// Birth pairs a prototype reference with the id pre-assigned to it when it
// was enqueued (spec §4.3).
type Birth struct {
	Prototype any // *prototype.Prototype; kept as any to avoid an import cycle
	ID        ecs.EntityID
}

// BirthQueue is the bounded, thread-safe queue new entities wait in until
// the next frame's admission pass (spec §4.3). Enqueue never blocks: a
// full queue is back-pressure, signaled by returning ecs.NoEntity, not an
// error (spec §7 "capacity exhaustion").
type BirthQueue struct {
	mu       sync.Mutex
	capacity int
	pending  []Birth
	nextID   ecs.EntityID
}

// NewBirthQueue returns a BirthQueue bounded to capacity pending births,
// minting ids starting from 1 (0 is ecs.NoEntity).
func NewBirthQueue(capacity int) *BirthQueue {
	return &BirthQueue{capacity: capacity, nextID: 1}
}

// Enqueue reserves an id for prototype and queues the pair for the next
// admission pass, returning the assigned id, or ecs.NoEntity if the queue
// is already at capacity.
func (q *BirthQueue) Enqueue(prototype any) ecs.EntityID {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) >= q.capacity {
		return ecs.NoEntity
	}
	id := q.nextID
	q.nextID++
	q.pending = append(q.pending, Birth{Prototype: prototype, ID: id})
	return id
}

// Len reports the number of births currently queued.
func (q *BirthQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Capacity returns the queue's configured bound.
func (q *BirthQueue) Capacity() int { return q.capacity }

// Drain removes and returns every currently queued birth, in admission
// order (spec §4.6 step 5 admits births in the order they were enqueued).
func (q *BirthQueue) Drain() []Birth {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}
