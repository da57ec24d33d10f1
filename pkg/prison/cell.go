package prison

// cell.go implements Cell[T], the degenerate single-element variant of
// Arena[T]: the same shared/exclusive refcount discipline as Arena, minus
// the slot table, free list and generational key -- there is
// only ever one element, so there is nothing for a generation to
// disambiguate. A Cell either holds a value or it doesn't; callers reach it
// by construction, not by Key.
//
// © 2025 prison authors. MIT License.

import (
	"runtime"

	"go.uber.org/zap"
)

// Cell is a single-element analogue of Arena: one value, guarded by the
// same shared/exclusive reference rules, with no index or generation to
// track.
type Cell[T any] struct {
	val      T
	occupied bool
	refs     uint32 // 0 = unreferenced, Exclusive sentinel, or a shared count
	logger   *zap.Logger
	cloner   Cloner[T]
}

// NewCell constructs an empty Cell.
func NewCell[T any](opts ...Option[T]) *Cell[T] {
	cfg := defaultConfig[T]()
	applyOptions(cfg, opts)
	return &Cell[T]{logger: cfg.logger, cloner: cfg.cloner}
}

// NewCellWithValue constructs a Cell already holding v.
func NewCellWithValue[T any](v T, opts ...Option[T]) *Cell[T] {
	c := NewCell[T](opts...)
	c.val = v
	c.occupied = true
	return c
}

const cellExclusive = ^uint32(0)

// IsOccupied reports whether the cell currently holds a value.
func (c *Cell[T]) IsOccupied() bool { return c.occupied }

// IsUnreferenced reports whether the cell has no outstanding reference.
func (c *Cell[T]) IsUnreferenced() bool { return c.refs == 0 }

// Set places v in the cell, overwriting whatever was there. It requires the
// cell be unreferenced.
func (c *Cell[T]) Set(v T) error {
	if !c.IsUnreferenced() {
		return errExtantReferenceOnSlot(0)
	}
	c.val = v
	c.occupied = true
	return nil
}

// Take removes and returns the cell's value, leaving it empty. It requires
// the cell be unreferenced and occupied.
func (c *Cell[T]) Take() (T, error) {
	var zero T
	if !c.occupied {
		return zero, errSlotIsFree(0)
	}
	if !c.IsUnreferenced() {
		return zero, errExtantReferenceOnSlot(0)
	}
	v := c.val
	c.val = zero
	c.occupied = false
	return v, nil
}

// CloneVal returns a copy of the cell's value. Bypasses the refcount gate,
// same as Arena.CloneVal.
func (c *Cell[T]) CloneVal() (T, error) {
	var zero T
	if !c.occupied {
		return zero, errSlotIsFree(0)
	}
	if c.cloner != nil {
		return c.cloner(c.val), nil
	}
	return c.val, nil
}

// VisitRef acquires a shared reference to the cell's value and invokes f
// with it, releasing on every exit path via defer.
func (c *Cell[T]) VisitRef(f func(*T) error) error {
	if !c.occupied {
		return errSlotIsFree(0)
	}
	if c.refs == cellExclusive {
		return errExclusiveAlreadyHeld(0)
	}
	if c.refs >= cellExclusive-1 {
		return errRefCountOverflow(0)
	}
	c.refs++
	defer func() { c.refs-- }()
	return f(&c.val)
}

// VisitMut acquires an exclusive reference to the cell's value and invokes f
// with it.
func (c *Cell[T]) VisitMut(f func(*T) error) error {
	if !c.occupied {
		return errSlotIsFree(0)
	}
	if c.refs == cellExclusive {
		return errExclusiveAlreadyHeld(0)
	}
	if c.refs > 0 {
		return errSharedOutstanding(0)
	}
	c.refs = cellExclusive
	defer func() { c.refs = 0 }()
	return f(&c.val)
}

// CellRefGuard is an owned shared reference into a Cell.
type CellRefGuard[T any] struct {
	c        *Cell[T]
	released bool
}

// GuardRef acquires a shared reference to the cell's value, returning a
// guard owning it.
func (c *Cell[T]) GuardRef() (*CellRefGuard[T], error) {
	if !c.occupied {
		return nil, errSlotIsFree(0)
	}
	if c.refs == cellExclusive {
		return nil, errExclusiveAlreadyHeld(0)
	}
	if c.refs >= cellExclusive-1 {
		return nil, errRefCountOverflow(0)
	}
	c.refs++
	g := &CellRefGuard[T]{c: c}
	runtime.SetFinalizer(g, (*CellRefGuard[T]).finalize)
	return g, nil
}

// Val returns a pointer to the guarded value.
func (g *CellRefGuard[T]) Val() *T { return &g.c.val }

// Release releases the shared reference. Idempotent.
func (g *CellRefGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.c.refs--
	runtime.SetFinalizer(g, nil)
}

func (g *CellRefGuard[T]) finalize() {
	if g.released {
		return
	}
	g.c.logger.Warn("prison: CellRefGuard leaked without Release")
}

// CellMutGuard is an owned exclusive reference into a Cell.
type CellMutGuard[T any] struct {
	c        *Cell[T]
	released bool
}

// GuardMut acquires an exclusive reference to the cell's value.
func (c *Cell[T]) GuardMut() (*CellMutGuard[T], error) {
	if !c.occupied {
		return nil, errSlotIsFree(0)
	}
	if c.refs == cellExclusive {
		return nil, errExclusiveAlreadyHeld(0)
	}
	if c.refs > 0 {
		return nil, errSharedOutstanding(0)
	}
	c.refs = cellExclusive
	g := &CellMutGuard[T]{c: c}
	runtime.SetFinalizer(g, (*CellMutGuard[T]).finalize)
	return g, nil
}

// Val returns a pointer to the guarded value.
func (g *CellMutGuard[T]) Val() *T { return &g.c.val }

// Release releases the exclusive reference. Idempotent.
func (g *CellMutGuard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.c.refs = 0
	runtime.SetFinalizer(g, nil)
}

func (g *CellMutGuard[T]) finalize() {
	if g.released {
		return
	}
	g.c.logger.Warn("prison: CellMutGuard leaked without Release")
}
