package prison

// errors.go defines the error taxonomy every public operation reports
// through. Kind is a small closed enum; Error wraps it with whatever
// contextual fields (index, generation) are available at the call site so
// that a caller doing errors.Is(err, &prison.Error{Kind: prison.KindSlotIsFree})
// still gets a message useful enough to paste into a bug report.
//
// MajorMalfunction is the only kind that signals an invariant violation
// rather than caller misuse; its delivery (return vs panic) is controlled by
// MalfunctionMode (see config.go) and it is additionally annotated with a
// stack trace via github.com/pkg/errors so that, however it is delivered, the
// point where the invariant broke is not lost.
//
// © 2025 prison authors. MIT License.

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind identifies the category of error a prison operation failed with.
type Kind uint8

const (
	_ Kind = iota
	KindIndexOutOfRange
	KindSlotIsFree
	KindGenerationMismatch
	KindExclusiveAlreadyHeld
	KindSharedOutstanding
	KindExtantReferenceOnSlot
	KindAnyReferenceOutstanding
	KindDuplicateIndex
	KindRefCountOverflow
	KindMajorMalfunction
	// KindSlotOccupied covers a case InsertAt needs that has no other home:
	// targeting a slot index that is not currently free.
	KindSlotOccupied
)

var kindNames = [...]string{
	"",
	"IndexOutOfRange",
	"SlotIsFree",
	"GenerationMismatch",
	"ExclusiveAlreadyHeld",
	"SharedOutstanding",
	"ExtantReferenceOnSlot",
	"AnyReferenceOutstanding",
	"DuplicateIndex",
	"RefCountOverflow",
	"MajorMalfunction",
	"SlotOccupied",
}

// String renders the Kind for diagnostics (REPL output, log fields, test
// failure messages).
func (k Kind) String() string {
	if int(k) < len(kindNames) && k != 0 {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// GoString renders k as a Go expression, for %#v in test failure output.
func (k Kind) GoString() string {
	if int(k) < len(kindNames) && k != 0 {
		return "prison.Kind" + kindNames[k]
	}
	return fmt.Sprintf("prison.Kind(%d)", uint8(k))
}

// Error is the concrete error type every public prison operation returns.
// It is comparable by Kind via errors.Is and carries enough context (Index,
// Generation) to reconstruct what was attempted without re-deriving it from
// the message string.
type Error struct {
	Kind       Kind
	Index      uint32
	Generation uint32
	msg        string
	cause      error
}

func (e *Error) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return e.Kind.String()
}

// Unwrap exposes the wrapped stack-trace cause (set only for
// MajorMalfunction) so callers using errors.As can still reach it.
func (e *Error) Unwrap() error { return e.cause }

// Is implements the errors.Is protocol by Kind: it matches any *Error target
// with the same Kind, so callers can write
// errors.Is(err, &prison.Error{Kind: prison.KindSlotIsFree}) without
// comparing Index, Generation or the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

func errIndexOutOfRange(i uint32, n int) *Error {
	e := newErr(KindIndexOutOfRange, "prison: index %d out of range (len %d)", i, n)
	e.Index = i
	return e
}

func errSlotIsFree(i uint32) *Error {
	e := newErr(KindSlotIsFree, "prison: slot %d is free", i)
	e.Index = i
	return e
}

func errGenerationMismatch(i, want, got uint32) *Error {
	e := newErr(KindGenerationMismatch, "prison: slot %d generation mismatch (key %d, slot %d)", i, want, got)
	e.Index, e.Generation = i, got
	return e
}

func errExclusiveAlreadyHeld(i uint32) *Error {
	e := newErr(KindExclusiveAlreadyHeld, "prison: slot %d already has an exclusive reference", i)
	e.Index = i
	return e
}

func errSharedOutstanding(i uint32) *Error {
	e := newErr(KindSharedOutstanding, "prison: slot %d has shared references outstanding", i)
	e.Index = i
	return e
}

func errExtantReferenceOnSlot(i uint32) *Error {
	e := newErr(KindExtantReferenceOnSlot, "prison: slot %d is referenced", i)
	e.Index = i
	return e
}

func errAnyReferenceOutstanding() *Error {
	return newErr(KindAnyReferenceOutstanding, "prison: cannot grow while references are outstanding")
}

func errDuplicateIndex(i uint32) *Error {
	e := newErr(KindDuplicateIndex, "prison: duplicate index %d in batch", i)
	e.Index = i
	return e
}

func errSlotOccupied(i uint32) *Error {
	e := newErr(KindSlotOccupied, "prison: slot %d is already occupied", i)
	e.Index = i
	return e
}

func errRefCountOverflow(i uint32) *Error {
	e := newErr(KindRefCountOverflow, "prison: slot %d refcount overflow", i)
	e.Index = i
	return e
}

// errMajorMalfunction builds a MajorMalfunction error, annotating it with a
// stack trace captured at the point the invariant was observed broken.
func errMajorMalfunction(reason string) *Error {
	e := newErr(KindMajorMalfunction, "prison: major malfunction: %s", reason)
	e.cause = pkgerrors.New(reason)
	return e
}
