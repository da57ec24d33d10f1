// Package prison implements a generational arena: a container that hands
// out opaque (index, generation) Keys for inserted values and lets callers
// acquire shared or exclusive references to individual elements -- through a
// scoped callback (VisitRef/VisitMut) or an owned guard (GuardRef/GuardMut)
// -- concurrently with references to other elements. Aliasing rules are
// enforced dynamically by per-slot and arena-wide reference counts rather
// than by the host language's borrow checker, since Go doesn't have one.
//
// The package is named prison after grit-data-prison, the Rust crate whose
// design this container distills, whose own top-level type is literally
// called Prison.
//
// An Arena is not safe for concurrent use from multiple goroutines. Confine
// one Arena to one goroutine, or serialise access yourself at a layer above.
//
// © 2025 prison authors. MIT License.
package prison

import (
	"go.uber.org/zap"

	"github.com/Voskan/prison/internal/slotstore"
)

// Arena is a generational arena over elements of type T.
type Arena[T any] struct {
	slots    []slotstore.Slot[T]
	free     slotstore.FreeList
	gen      uint32
	occupied int

	// activeRefs is the sum of every slot's refcount (exclusive counts as
	// 1). Growth that would reallocate slots is refused while this is
	// nonzero, since reallocating would move every live pointer out from
	// under an outstanding guard or visit callback.
	activeRefs int64

	logger   *zap.Logger
	metrics  metricsSink
	malfMode MalfunctionMode
	cloner   Cloner[T]
}

// New constructs an empty arena.
func New[T any](opts ...Option[T]) *Arena[T] {
	cfg := defaultConfig[T]()
	applyOptions(cfg, opts)
	return &Arena[T]{
		free:     slotstore.NewFreeList(),
		logger:   cfg.logger,
		metrics:  newMetricsSink(cfg.registry),
		malfMode: cfg.malfMode,
		cloner:   cfg.cloner,
	}
}

// WithCapacity constructs an arena pre-allocated with n Free slots, linked
// into a list in increasing-index order (head = 0, each slot's next = i+1,
// the last slot's next = sentinel).
func WithCapacity[T any](n int, opts ...Option[T]) *Arena[T] {
	a := New[T](opts...)
	if n <= 0 {
		return a
	}
	a.slots = make([]slotstore.Slot[T], n)
	for i := 0; i < n; i++ {
		prev, next := slotstore.NoNeighbor, slotstore.NoNeighbor
		if i > 0 {
			prev = uint32(i - 1)
		}
		if i < n-1 {
			next = uint32(i + 1)
		}
		a.slots[i].SetFree(prev, next)
	}
	a.free = slotstore.FreeList{Head: 0, Len: n}
	return a
}

/* -------------------------------------------------------------------------
   Inspection
   ------------------------------------------------------------------------- */

// Len returns the number of occupied slots.
func (a *Arena[T]) Len() int { return a.occupied }

// Capacity returns the current backing buffer length (occupied + free).
func (a *Arena[T]) Capacity() int { return len(a.slots) }

// IsEmpty reports whether the arena holds no values.
func (a *Arena[T]) IsEmpty() bool { return a.occupied == 0 }

// IsValidKey reports whether k currently identifies an occupied slot.
func (a *Arena[T]) IsValidKey(k Key) bool {
	_, err := a.validateKey(k)
	return err == nil
}

// IsValidIndex reports whether i is within the backing buffer's bounds.
// It does not check occupancy -- use IsValidKey, or VisitRefIdx's error, for
// that.
func (a *Arena[T]) IsValidIndex(i uint32) bool { return a.validateIndex(i) == nil }

// Stats is a point-in-time snapshot of the arena's bookkeeping counters.
type Stats struct {
	Len         int
	Capacity    int
	ActiveRefs  int64
	Generation  uint32
	FreeListLen int
}

// Stats returns a snapshot of the arena's bookkeeping counters.
func (a *Arena[T]) Stats() Stats {
	return Stats{
		Len:         a.occupied,
		Capacity:    len(a.slots),
		ActiveRefs:  a.activeRefs,
		Generation:  a.gen,
		FreeListLen: a.free.Len,
	}
}

/* -------------------------------------------------------------------------
   Validation helpers (the gate, read side)
   ------------------------------------------------------------------------- */

func (a *Arena[T]) validateIndex(i uint32) error {
	if i >= uint32(len(a.slots)) {
		return errIndexOutOfRange(i, len(a.slots))
	}
	return nil
}

func (a *Arena[T]) validateOccupied(i uint32) error {
	if err := a.validateIndex(i); err != nil {
		return err
	}
	if a.slots[i].IsFree() {
		return errSlotIsFree(i)
	}
	return nil
}

func (a *Arena[T]) validateKey(k Key) (uint32, error) {
	if err := a.validateOccupied(k.index); err != nil {
		return 0, err
	}
	if g := a.slots[k.index].Generation(); g != k.generation {
		return 0, errGenerationMismatch(k.index, k.generation, g)
	}
	return k.index, nil
}

// validateBatch checks every index for bounds, occupancy and uniqueness
// before any counter is touched, so a batched acquire either takes every
// reference it asked for or none of them.
func (a *Arena[T]) validateBatch(ids []uint32) error {
	seen := make(map[uint32]struct{}, len(ids))
	for _, i := range ids {
		if _, dup := seen[i]; dup {
			return errDuplicateIndex(i)
		}
		seen[i] = struct{}{}
		if err := a.validateOccupied(i); err != nil {
			return err
		}
	}
	return nil
}

func gateShared[T any](s *slotstore.Slot[T], i uint32) error {
	if s.IsExclusive() {
		return errExclusiveAlreadyHeld(i)
	}
	if s.RefCount() >= slotstore.MaxRefCount {
		return errRefCountOverflow(i)
	}
	return nil
}

func gateExclusive[T any](s *slotstore.Slot[T], i uint32) error {
	if s.IsExclusive() {
		return errExclusiveAlreadyHeld(i)
	}
	if s.RefCount() > 0 {
		return errSharedOutstanding(i)
	}
	return nil
}

/* -------------------------------------------------------------------------
   Malfunction delivery and metrics sync
   ------------------------------------------------------------------------- */

func (a *Arena[T]) malfunction(reason string) error {
	err := errMajorMalfunction(reason)
	a.metrics.incMalfunction()
	switch a.malfMode {
	case MalfunctionPanic:
		a.logger.Error("prison: major malfunction", zap.String("reason", reason))
		panic(err)
	default:
		a.logger.Warn("prison: major malfunction", zap.String("reason", reason))
		return err
	}
}

func (a *Arena[T]) syncMetrics() {
	a.metrics.setOccupied(a.occupied)
	a.metrics.setActiveRefs(a.activeRefs)
	a.metrics.setGeneration(a.gen)
}

// bumpGenIfNeeded advances the monotonic generation counter when the slot
// being removed or overwritten carries the current generation, guarding
// against ABA reuse of a stale Key. It refuses via MajorMalfunction rather
// than wrapping when the counter has saturated (a decided choice, see
// DESIGN.md).
func (a *Arena[T]) bumpGenIfNeeded(oldGeneration uint32) error {
	if oldGeneration != a.gen {
		return nil
	}
	if a.gen == slotstore.MaxGeneration {
		return a.malfunction("generation counter exhausted")
	}
	a.gen++
	return nil
}

func (a *Arena[T]) cloneOf(v T) T {
	if a.cloner != nil {
		return a.cloner(v)
	}
	return v
}

/* -------------------------------------------------------------------------
   Mutation
   ------------------------------------------------------------------------- */

// allocSlot picks the index a new value will occupy: the free list head if
// one exists (grow-no-realloc is implicit, nothing grows), a spare slot
// within the backing slice's existing capacity (grow-no-realloc, always
// allowed since no pointer is invalidated), or a freshly appended slot that
// may reallocate the backing buffer (grow, refused while any reference is
// outstanding).
func (a *Arena[T]) allocSlot() (uint32, error) {
	if a.free.Len > 0 {
		return slotstore.PopFront(&a.free, a.slots), nil
	}
	if len(a.slots) < cap(a.slots) {
		i := uint32(len(a.slots))
		a.slots = a.slots[:len(a.slots)+1]
		return i, nil
	}
	if a.activeRefs != 0 {
		return 0, errAnyReferenceOutstanding()
	}
	i := uint32(len(a.slots))
	a.slots = append(a.slots, slotstore.Slot[T]{})
	return i, nil
}

// Insert places v in a free slot (reusing one if available, growing the
// backing buffer otherwise) and returns a fresh Key identifying it.
func (a *Arena[T]) Insert(v T) (Key, error) {
	i, err := a.allocSlot()
	if err != nil {
		return Key{}, err
	}
	a.slots[i].SetOccupied(a.gen, v)
	a.occupied++
	a.syncMetrics()
	return Key{index: i, generation: a.gen}, nil
}

// InsertAt places v at a specific free slot index, unlinking it from
// wherever it sits in the doubly linked free list -- the operation a
// singly linked free list cannot do in O(1).
func (a *Arena[T]) InsertAt(i uint32, v T) (Key, error) {
	if err := a.validateIndex(i); err != nil {
		return Key{}, err
	}
	if !a.slots[i].IsFree() {
		return Key{}, errSlotOccupied(i)
	}
	slotstore.Unlink(&a.free, a.slots, i)
	a.slots[i].SetOccupied(a.gen, v)
	a.occupied++
	a.syncMetrics()
	return Key{index: i, generation: a.gen}, nil
}

// Overwrite replaces the value at an already-occupied, unreferenced slot,
// minting the slot a new generation (so any key to the old value is no
// longer valid) and returning the fresh Key.
func (a *Arena[T]) Overwrite(k Key, v T) (Key, error) {
	i, err := a.validateKey(k)
	if err != nil {
		return Key{}, err
	}
	if !a.slots[i].IsUnreferenced() {
		return Key{}, errExtantReferenceOnSlot(i)
	}
	if err := a.bumpGenIfNeeded(a.slots[i].Generation()); err != nil {
		return Key{}, err
	}
	a.slots[i].SetOccupied(a.gen, v)
	a.syncMetrics()
	return Key{index: i, generation: a.gen}, nil
}

// removeChecked performs the shared Remove/RemoveIdx tail: refcount gate,
// generation bump, free-list push. Caller has already validated occupancy
// (and, for Remove, the key's generation).
func (a *Arena[T]) removeChecked(i uint32) (T, error) {
	var zero T
	if !a.slots[i].IsUnreferenced() {
		return zero, errExtantReferenceOnSlot(i)
	}
	if err := a.bumpGenIfNeeded(a.slots[i].Generation()); err != nil {
		return zero, err
	}
	val := a.slots[i].Val
	slotstore.PushFront(&a.free, a.slots, i)
	a.occupied--
	a.syncMetrics()
	return val, nil
}

// Remove deletes the value identified by k, returning it.
func (a *Arena[T]) Remove(k Key) (T, error) {
	var zero T
	i, err := a.validateKey(k)
	if err != nil {
		return zero, err
	}
	return a.removeChecked(i)
}

// RemoveIdx deletes the value at raw index i, returning it. Unlike Remove,
// no generation check is performed -- the caller is asserting they already
// know the slot's current occupant.
func (a *Arena[T]) RemoveIdx(i uint32) (T, error) {
	var zero T
	if err := a.validateOccupied(i); err != nil {
		return zero, err
	}
	return a.removeChecked(i)
}

// Clear removes every value from the arena. It is idempotent: calling Clear
// on an already-empty arena is a no-op. Clear requires every slot about to
// be freed to be unreferenced; otherwise it frees nothing and reports
// ExtantReferenceOnSlot for the first referenced slot.
func (a *Arena[T]) Clear() error {
	if a.activeRefs != 0 {
		for i := range a.slots {
			if !a.slots[i].IsFree() && !a.slots[i].IsUnreferenced() {
				return errExtantReferenceOnSlot(uint32(i))
			}
		}
	}
	if a.occupied == 0 {
		return nil
	}
	// At most one slot transition during a Clear can need to advance gen
	// (once a.gen advances past an occupied slot's generation, no other
	// occupied slot can still equal the new a.gen, since generations are
	// assigned monotonically and never reused). Check upfront so a
	// saturated counter refuses the whole Clear atomically
	// rather than leaving some slots freed and others not.
	if a.gen == slotstore.MaxGeneration {
		for i := range a.slots {
			if !a.slots[i].IsFree() && a.slots[i].Generation() == a.gen {
				return a.malfunction("generation counter exhausted")
			}
		}
	}
	for i := uint32(0); i < uint32(len(a.slots)); i++ {
		if !a.slots[i].IsFree() {
			if _, err := a.removeChecked(i); err != nil {
				// Unreachable given the pre-check above, but keep Clear
				// honest about not swallowing an error it can't recover
				// from mid-sweep.
				return err
			}
		}
	}
	return nil
}

/* -------------------------------------------------------------------------
   Read-copy (bypasses the refcount gate)
   ------------------------------------------------------------------------- */

// CloneVal returns a copy of the value identified by k. It succeeds even
// while the slot is exclusively guarded, since it neither hands out a
// borrow nor mutates.
func (a *Arena[T]) CloneVal(k Key) (T, error) {
	var zero T
	i, err := a.validateKey(k)
	if err != nil {
		return zero, err
	}
	return a.cloneOf(a.slots[i].Val), nil
}

// CloneValIdx is CloneVal by raw index.
func (a *Arena[T]) CloneValIdx(i uint32) (T, error) {
	var zero T
	if err := a.validateOccupied(i); err != nil {
		return zero, err
	}
	return a.cloneOf(a.slots[i].Val), nil
}

/* -------------------------------------------------------------------------
   Scoped visitors
   ------------------------------------------------------------------------- */

func (a *Arena[T]) visitSharedRaw(i uint32, f func(*T) error) error {
	if err := gateShared[T](&a.slots[i], i); err != nil {
		return err
	}
	a.slots[i].AcquireShared()
	a.activeRefs++
	a.syncMetrics()
	defer func() {
		a.slots[i].ReleaseShared()
		a.activeRefs--
		a.syncMetrics()
	}()
	return f(&a.slots[i].Val)
}

func (a *Arena[T]) visitExclusiveRaw(i uint32, f func(*T) error) error {
	if err := gateExclusive[T](&a.slots[i], i); err != nil {
		return err
	}
	a.slots[i].AcquireExclusive()
	a.activeRefs++
	a.syncMetrics()
	defer func() {
		a.slots[i].ReleaseExclusive()
		a.activeRefs--
		a.syncMetrics()
	}()
	return f(&a.slots[i].Val)
}

// VisitRef acquires a shared reference to the value identified by k, invokes
// f with it, and releases the reference on every exit path -- including a
// panic unwinding through f, via defer.
func (a *Arena[T]) VisitRef(k Key, f func(*T) error) error {
	i, err := a.validateKey(k)
	if err != nil {
		return err
	}
	return a.visitSharedRaw(i, f)
}

// VisitMut acquires an exclusive reference to the value identified by k and
// invokes f with it.
func (a *Arena[T]) VisitMut(k Key, f func(*T) error) error {
	i, err := a.validateKey(k)
	if err != nil {
		return err
	}
	return a.visitExclusiveRaw(i, f)
}

// VisitRefIdx is VisitRef by raw index.
func (a *Arena[T]) VisitRefIdx(i uint32, f func(*T) error) error {
	if err := a.validateOccupied(i); err != nil {
		return err
	}
	return a.visitSharedRaw(i, f)
}

// VisitMutIdx is VisitMut by raw index.
func (a *Arena[T]) VisitMutIdx(i uint32, f func(*T) error) error {
	if err := a.validateOccupied(i); err != nil {
		return err
	}
	return a.visitExclusiveRaw(i, f)
}

// VisitManyRefIdx acquires shared references to every slot in ids (rejecting
// the whole batch before touching any counter if ids contains a duplicate,
// an out-of-range index, or an index that is currently exclusively held),
// invokes f with the parallel slice of pointers, and releases all of them.
func (a *Arena[T]) VisitManyRefIdx(ids []uint32, f func([]*T) error) error {
	if err := a.validateBatch(ids); err != nil {
		return err
	}
	for _, i := range ids {
		if err := gateShared[T](&a.slots[i], i); err != nil {
			return err
		}
	}
	ptrs := make([]*T, len(ids))
	for idx, i := range ids {
		a.slots[i].AcquireShared()
		a.activeRefs++
		ptrs[idx] = &a.slots[i].Val
	}
	a.syncMetrics()
	defer func() {
		for _, i := range ids {
			a.slots[i].ReleaseShared()
			a.activeRefs--
		}
		a.syncMetrics()
	}()
	return f(ptrs)
}

// VisitManyMutIdx is VisitManyRefIdx with exclusive references: every listed
// slot must have a zero refcount.
func (a *Arena[T]) VisitManyMutIdx(ids []uint32, f func([]*T) error) error {
	if err := a.validateBatch(ids); err != nil {
		return err
	}
	for _, i := range ids {
		if err := gateExclusive[T](&a.slots[i], i); err != nil {
			return err
		}
	}
	ptrs := make([]*T, len(ids))
	for idx, i := range ids {
		a.slots[i].AcquireExclusive()
		a.activeRefs++
		ptrs[idx] = &a.slots[i].Val
	}
	a.syncMetrics()
	defer func() {
		for _, i := range ids {
			a.slots[i].ReleaseExclusive()
			a.activeRefs--
		}
		a.syncMetrics()
	}()
	return f(ptrs)
}

/* -------------------------------------------------------------------------
   Internal enumeration (not exported)
   ------------------------------------------------------------------------- */

// forEachOccupied invokes f with the index and a read-only-by-convention
// pointer for every occupied slot, in ascending index order. f must not
// retain the pointer past its call, and must not mutate through it. It is
// unexported and never exposed as a general iterator that could escape the
// refcount discipline -- this helper never produces an iterator value, only
// a scoped callback, same as VisitRef.
func (a *Arena[T]) forEachOccupied(f func(i uint32, v *T)) {
	for i := range a.slots {
		if !a.slots[i].IsFree() {
			f(uint32(i), &a.slots[i].Val)
		}
	}
}
