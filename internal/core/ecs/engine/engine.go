// Package engine implements the frame execution engine (spec §4.6): the
// fixed seven-step sequence that advances the whole simulation by one
// frame, plus the process-to-thread scheduling described in spec §5.
//
// Grounded on the teacher's system_manager.go Update loop (iterate
// registered systems once per tick against the entity set); generalized
// from "walk a slice of systems" into the full swap/compact/admit/dispatch
// pipeline spec §4.6 requires, and parallelized across processes with
// golang.org/x/sync/errgroup and golang.org/x/sync/semaphore the way the
// rest of the retrieval pack reaches for that module for worker-pool
// fan-out.
package engine

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/config"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/entitytable"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/process"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/prototype"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/registry"
	"github.com/kiith-sa/tharsis-core-go/internal/core/ecs/store"
	"github.com/kiith-sa/tharsis-core-go/internal/diag"
)

// Engine ties a locked registry, a columnar store, the birth queue, the
// process dispatcher and zero or more resource managers into one
// advance-by-one-frame operation. C is the component-count width the
// store was built with.
type Engine[C ecs.ComponentCount] struct {
	reg    *registry.Registry
	procs  *process.Registry
	st     *store.Store[C]
	births *entitytable.BirthQueue
	dc     *diag.Channel
	policy config.Policy

	resources []resourceUpdater
	pins      map[string]int

	table   *entitytable.Table // this frame's past entity ids
	workers []sync.Mutex
	sem     *semaphore.Weighted
}

type resourceUpdater interface {
	Update()
}

// New builds an Engine. reg must already be locked; procs should have had
// Lock called once every process is registered.
func New[C ecs.ComponentCount](reg *registry.Registry, procs *process.Registry, st *store.Store[C], births *entitytable.BirthQueue, dc *diag.Channel, policy config.Policy) *Engine[C] {
	workers := policy.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine[C]{
		reg:     reg,
		procs:   procs,
		st:      st,
		births:  births,
		dc:      dc,
		policy:  policy,
		pins:    make(map[string]int),
		table:   entitytable.New(),
		workers: make([]sync.Mutex, workers),
		sem:     semaphore.NewWeighted(int64(workers)),
	}
}

// RegisterResource adds a resource manager to be drained every frame
// (spec §4.6 step 2). u is typically a *resource.Manager[D, R].
func (e *Engine[C]) RegisterResource(u resourceUpdater) {
	e.resources = append(e.resources, u)
}

// PinToThread pins processName to logical thread index idx, modulo the
// live worker count (spec §5 "users may pin a process to a logical thread
// index... to cope with thread-affine external APIs").
func (e *Engine[C]) PinToThread(processName string, idx int) {
	e.pins[processName] = idx
}

// engineContext implements process.Context by resolving entity ids
// against this frame's past table.
type engineContext[C ecs.ComponentCount] struct {
	st    *store.Store[C]
	table *entitytable.Table
}

func (c *engineContext[C]) Lookup(id ecs.EntityID, t ecs.ComponentTypeID) ([]byte, bool) {
	i, ok := c.table.IndexOf(id)
	if !ok {
		return nil, false
	}
	return c.st.PastComponent(t, i)
}

func (c *engineContext[C]) LookupMulti(id ecs.EntityID, t ecs.ComponentTypeID) []byte {
	i, ok := c.table.IndexOf(id)
	if !ok {
		return nil
	}
	return c.st.PastComponents(t, i)
}

// Frame advances the simulation by exactly one frame, performing the
// seven steps of spec §4.6 in order.
func (e *Engine[C]) Frame(ctx context.Context) error {
	// Step 1: diagnostics pass.
	e.dc.Reset()
	for _, d := range e.reg.Types() {
		if d.ID == ecs.NoComponentType {
			continue
		}
		if !e.procs.HasWriter(d.ID) {
			e.dc.Warn(ecs.SeverityWarning, "component type has no registered writer; it will vanish after one frame",
				zap.String("component_type", d.Name))
		}
	}

	// Step 2: resource update.
	for _, r := range e.resources {
		r.Update()
	}

	// Step 3: buffer swap.
	e.st.Swap()
	e.st.ResetFuture()

	// Step 4: compact & bloom.
	pastIDs := e.table.IDs()
	aliveIdx := make([]int, 0, len(pastIDs))
	aliveIDs := make([]ecs.EntityID, 0, len(pastIDs))
	for i, id := range pastIDs {
		if life, ok := e.st.PastComponent(ecs.LifeComponentTypeID, i); ok && ecs.DecodeLife(life).Alive {
			aliveIdx = append(aliveIdx, i)
			aliveIDs = append(aliveIDs, id)
		}
	}
	births := e.births.Drain()
	futureCount := len(aliveIdx) + len(births)
	e.st.GrowEntityCount(futureCount)

	// Step 5: admit births.
	pastLen := len(pastIDs)
	birthIDs := make([]ecs.EntityID, len(births))
	for k, b := range births {
		proto, _ := b.Prototype.(*prototype.Prototype)
		pastIdx := pastLen + k
		futureIdx := len(aliveIdx) + k
		if proto != nil {
			for _, comp := range proto.Components() {
				e.st.AppendPastBirth(comp.Type, pastIdx, comp.Payload, comp.Count)
				e.st.AppendFutureBirth(comp.Type, futureIdx, comp.Payload, comp.Count)
			}
		}
		lifeBytes := ecs.EncodeLife(ecs.Life{Alive: true})
		e.st.AppendPastBirth(ecs.LifeComponentTypeID, pastIdx, lifeBytes[:], 1)
		e.st.AppendFutureBirth(ecs.LifeComponentTypeID, futureIdx, lifeBytes[:], 1)
		birthIDs[k] = b.ID
	}

	// Step 6: preallocate future buffers.
	e.st.Preallocate(futureCount)

	// Step 7: dispatch processes.
	cctx := &engineContext[C]{st: e.st, table: e.table}
	g, _ := errgroup.WithContext(ctx)
	for _, p := range e.procs.Processes() {
		p := p
		g.Go(func() error {
			e.runProcess(p, aliveIdx, cctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Life gets no special casing here: like any other type, an entity
	// only stays alive if something committed a future Life for it. A
	// process that wants entities to persist has to read past Life and
	// re-emit it, exactly as copy-preserve does for any other component.
	// The next table lists every future entity in future-generation order,
	// so table positions keep matching store indices; an entity nobody
	// re-emitted Life for has no past Life next frame, so step 4 drops it
	// before dispatch, the same fate as a writerless component vanishing.
	e.table.Reset(append(aliveIDs, birthIDs...))
	return nil
}

// runProcess dispatches one process against every alive entity, honoring
// the single-thread-per-process scheduling of spec §5: a pinned process
// takes the mutex for its logical thread index; an unpinned one just
// holds a worker slot from the semaphore for its duration.
func (e *Engine[C]) runProcess(p *process.Process, aliveIdx []int, cctx process.Context) {
	if idx, pinned := e.pins[p.Name]; pinned {
		m := &e.workers[idx%len(e.workers)]
		m.Lock()
		defer m.Unlock()
	} else {
		_ = e.sem.Acquire(context.Background(), 1)
		defer e.sem.Release(1)
	}

	if pre, ok := any(p).(process.PreStepper); ok {
		pre.PreStep()
	} else if p.PreStep != nil {
		p.PreStep()
	}

	for j, i := range aliveIdx {
		overload, ok := process.Select(p, func(t ecs.ComponentTypeID) bool {
			return e.st.PastCount(t, i) > 0
		})
		if !ok {
			continue
		}
		e.dispatchOne(p, overload, i, j, cctx)
	}

	if post, ok := any(p).(process.PostStepper); ok {
		post.PostStep()
	} else if p.PostStep != nil {
		p.PostStep()
	}
}

func (e *Engine[C]) dispatchOne(p *process.Process, o *process.Overload, pastIdx, futureIdx int, cctx process.Context) {
	past := make([][]byte, len(o.PastTypes))
	for k, t := range o.PastTypes {
		d, _ := e.reg.Lookup(t)
		if d.IsMulti() {
			past[k] = e.st.PastComponents(t, pastIdx)
		} else if b, ok := e.st.PastComponent(t, pastIdx); ok {
			past[k] = b
		}
	}

	args := process.Args{Entity: e.table.At(pastIdx), Past: past}
	if o.UsesContext {
		args.Ctx = cctx
	}

	if o.FutureType != ecs.NoComponentType {
		max := o.FutureMax
		if o.Shape != process.FutureMulti {
			max = 1
		}
		args.Future = e.st.ReserveFuture(o.FutureType, max)
	}

	res := o.Run(args)

	if o.FutureType != ecs.NoComponentType {
		n := res.FutureCount
		switch o.Shape {
		case process.FutureAlways:
			n = 1
		case process.FutureOptional:
			if n > 1 {
				n = 1
			}
		case process.FutureMulti:
			if n > o.FutureMax {
				n = o.FutureMax
			}
		}
		e.st.CommitEntityFuture(o.FutureType, futureIdx, n)
	}
}
