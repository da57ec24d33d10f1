package prison

// guard.go provides the owned-handle counterpart to VisitRef/VisitMut: a
// guard acquires its reference at construction and releases it on an
// explicit Release() call, rather than for the duration of a callback. This
// stands in for RAII-style borrow guards in a language with no
// destructors -- Release must be called by hand, and a runtime.SetFinalizer
// is attached purely as a leak diagnostic (logged, never auto-released: a
// finalizer runs on an arbitrary goroutine with no safe way to touch state
// the owning goroutine may still be using).
//
// © 2025 prison authors. MIT License.

import (
	"runtime"

	"go.uber.org/zap"
)

// RefGuard is an owned shared reference to one element of an Arena.
type RefGuard[T any] struct {
	a        *Arena[T]
	idx      uint32
	released bool
}

// GuardRef acquires a shared reference to the value identified by k and
// returns a guard owning it. The caller must call Release when done.
func (a *Arena[T]) GuardRef(k Key) (*RefGuard[T], error) {
	i, err := a.validateKey(k)
	if err != nil {
		return nil, err
	}
	return a.guardRefIdx(i)
}

// GuardRefIdx is GuardRef by raw index.
func (a *Arena[T]) GuardRefIdx(i uint32) (*RefGuard[T], error) {
	if err := a.validateOccupied(i); err != nil {
		return nil, err
	}
	return a.guardRefIdx(i)
}

func (a *Arena[T]) guardRefIdx(i uint32) (*RefGuard[T], error) {
	if err := gateShared[T](&a.slots[i], i); err != nil {
		return nil, err
	}
	a.slots[i].AcquireShared()
	a.activeRefs++
	a.syncMetrics()
	g := &RefGuard[T]{a: a, idx: i}
	runtime.SetFinalizer(g, (*RefGuard[T]).finalize)
	return g, nil
}

// Val returns a pointer to the guarded value. It is only valid to
// dereference before Release is called.
func (g *RefGuard[T]) Val() *T { return &g.a.slots[g.idx].Val }

// Release releases the shared reference. Release is idempotent: calling it
// more than once is a no-op.
func (g *RefGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.a.slots[g.idx].ReleaseShared()
	g.a.activeRefs--
	g.a.syncMetrics()
	runtime.SetFinalizer(g, nil)
}

func (g *RefGuard[T]) finalize() {
	if g.released {
		return
	}
	g.a.logger.Warn("prison: RefGuard leaked without Release",
		zap.Uint32("index", g.idx))
}

// MutGuard is an owned exclusive reference to one element of an Arena.
type MutGuard[T any] struct {
	a        *Arena[T]
	idx      uint32
	released bool
}

// GuardMut acquires an exclusive reference to the value identified by k.
func (a *Arena[T]) GuardMut(k Key) (*MutGuard[T], error) {
	i, err := a.validateKey(k)
	if err != nil {
		return nil, err
	}
	return a.guardMutIdx(i)
}

// GuardMutIdx is GuardMut by raw index.
func (a *Arena[T]) GuardMutIdx(i uint32) (*MutGuard[T], error) {
	if err := a.validateOccupied(i); err != nil {
		return nil, err
	}
	return a.guardMutIdx(i)
}

func (a *Arena[T]) guardMutIdx(i uint32) (*MutGuard[T], error) {
	if err := gateExclusive[T](&a.slots[i], i); err != nil {
		return nil, err
	}
	a.slots[i].AcquireExclusive()
	a.activeRefs++
	a.syncMetrics()
	g := &MutGuard[T]{a: a, idx: i}
	runtime.SetFinalizer(g, (*MutGuard[T]).finalize)
	return g, nil
}

// Val returns a pointer to the guarded value.
func (g *MutGuard[T]) Val() *T { return &g.a.slots[g.idx].Val }

// Release releases the exclusive reference. Idempotent.
func (g *MutGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.a.slots[g.idx].ReleaseExclusive()
	g.a.activeRefs--
	g.a.syncMetrics()
	runtime.SetFinalizer(g, nil)
}

func (g *MutGuard[T]) finalize() {
	if g.released {
		return
	}
	g.a.logger.Warn("prison: MutGuard leaked without Release",
		zap.Uint32("index", g.idx))
}

// ManyRefGuard is an owned batch of shared references, the guard-handle
// counterpart to VisitManyRefIdx.
type ManyRefGuard[T any] struct {
	a        *Arena[T]
	ids      []uint32
	released bool
}

// GuardManyRefIdx acquires shared references to every slot in ids.
func (a *Arena[T]) GuardManyRefIdx(ids []uint32) (*ManyRefGuard[T], error) {
	if err := a.validateBatch(ids); err != nil {
		return nil, err
	}
	for _, i := range ids {
		if err := gateShared[T](&a.slots[i], i); err != nil {
			return nil, err
		}
	}
	for _, i := range ids {
		a.slots[i].AcquireShared()
		a.activeRefs++
	}
	a.syncMetrics()
	g := &ManyRefGuard[T]{a: a, ids: ids}
	runtime.SetFinalizer(g, (*ManyRefGuard[T]).finalize)
	return g, nil
}

// Vals returns pointers to every guarded value, in the order ids was given.
func (g *ManyRefGuard[T]) Vals() []*T {
	out := make([]*T, len(g.ids))
	for n, i := range g.ids {
		out[n] = &g.a.slots[i].Val
	}
	return out
}

// Release releases every shared reference the batch holds. Idempotent.
func (g *ManyRefGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	for _, i := range g.ids {
		g.a.slots[i].ReleaseShared()
		g.a.activeRefs--
	}
	g.a.syncMetrics()
	runtime.SetFinalizer(g, nil)
}

func (g *ManyRefGuard[T]) finalize() {
	if g.released {
		return
	}
	g.a.logger.Warn("prison: ManyRefGuard leaked without Release",
		zap.Int("count", len(g.ids)))
}

// ManyMutGuard is an owned batch of exclusive references, the guard-handle
// counterpart to VisitManyMutIdx.
type ManyMutGuard[T any] struct {
	a        *Arena[T]
	ids      []uint32
	released bool
}

// GuardManyMutIdx acquires exclusive references to every slot in ids.
func (a *Arena[T]) GuardManyMutIdx(ids []uint32) (*ManyMutGuard[T], error) {
	if err := a.validateBatch(ids); err != nil {
		return nil, err
	}
	for _, i := range ids {
		if err := gateExclusive[T](&a.slots[i], i); err != nil {
			return nil, err
		}
	}
	for _, i := range ids {
		a.slots[i].AcquireExclusive()
		a.activeRefs++
	}
	a.syncMetrics()
	g := &ManyMutGuard[T]{a: a, ids: ids}
	runtime.SetFinalizer(g, (*ManyMutGuard[T]).finalize)
	return g, nil
}

// Vals returns pointers to every guarded value, in the order ids was given.
func (g *ManyMutGuard[T]) Vals() []*T {
	out := make([]*T, len(g.ids))
	for n, i := range g.ids {
		out[n] = &g.a.slots[i].Val
	}
	return out
}

// Release releases every exclusive reference the batch holds. Idempotent.
func (g *ManyMutGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	for _, i := range g.ids {
		g.a.slots[i].ReleaseExclusive()
		g.a.activeRefs--
	}
	g.a.syncMetrics()
	runtime.SetFinalizer(g, nil)
}

func (g *ManyMutGuard[T]) finalize() {
	if g.released {
		return
	}
	g.a.logger.Warn("prison: ManyMutGuard leaked without Release",
		zap.Int("count", len(g.ids)))
}
