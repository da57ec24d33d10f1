package prison

// config.go defines the internal configuration object and the set of
// functional options New[T] and WithCapacity[T] accept. A generic Option is
// used so that options taking a value-typed callback (WithCloner) retain
// full type-safety with respect to the concrete T chosen by the caller --
// the same shape a comparable cache module's own Option[K, V] uses.
//
// Design notes
// ------------
// * All fields are initialised with sensible defaults in defaultConfig().
// * Options never allocate unless strictly necessary -- they just capture
//   pointers to external objects (registry, logger).
// * The struct itself is unexported: callers can only influence behaviour
//   via Option[T], which keeps the door open for new knobs later without
//   breaking callers.
//
// © 2025 prison authors. MIT License.

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// MalfunctionMode selects how a MajorMalfunction (an invariant observed
// broken -- never a caller-input problem) is delivered. Go has no
// build-time "unreachable" elision, so delivery collapses to a two-way
// runtime switch: return the error, or log and panic.
type MalfunctionMode uint8

const (
	// MalfunctionError returns the MajorMalfunction as a normal error value.
	// Default.
	MalfunctionError MalfunctionMode = iota
	// MalfunctionPanic panics with the MajorMalfunction after logging it.
	MalfunctionPanic
)

// Cloner produces a deep-enough copy of v for CloneVal/CloneValIdx. When not
// supplied, a plain Go assignment (`cp := v`) is used, which is correct for
// any T whose zero-allocation copy already has correct value semantics
// (numbers, strings, arrays of such, struct of such) but will alias any
// pointer/slice/map fields -- exactly the same caveat a Rust #[derive(Clone)]
// would not have, which is why the option exists at all.
type Cloner[T any] func(T) T

// Option configures an Arena at construction time.
type Option[T any] func(*config[T])

type config[T any] struct {
	logger   *zap.Logger
	registry *prometheus.Registry
	malfMode MalfunctionMode
	cloner   Cloner[T]
}

func defaultConfig[T any]() *config[T] {
	return &config[T]{
		logger:   zap.NewNop(),
		malfMode: MalfunctionError,
	}
}

// WithLogger plugs an external zap.Logger. The arena never logs on the hot
// path; only MajorMalfunction and an un-released guard caught by its
// finalizer are logged.
func WithLogger[T any](l *zap.Logger) Option[T] {
	return func(c *config[T]) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection for the arena. Passing
// nil disables metrics (default).
func WithMetrics[T any](reg *prometheus.Registry) Option[T] {
	return func(c *config[T]) {
		c.registry = reg
	}
}

// WithMalfunctionMode overrides the default MalfunctionError delivery mode.
func WithMalfunctionMode[T any](mode MalfunctionMode) Option[T] {
	return func(c *config[T]) {
		c.malfMode = mode
	}
}

// WithCloner overrides the default shallow-assignment copy CloneVal and
// CloneValIdx use to produce their read-copies.
func WithCloner[T any](fn Cloner[T]) Option[T] {
	return func(c *config[T]) {
		if fn != nil {
			c.cloner = fn
		}
	}
}

func applyOptions[T any](cfg *config[T], opts []Option[T]) {
	for _, opt := range opts {
		opt(cfg)
	}
}
