// Package bench provides reproducible micro‑benchmarks for prison.
// Run via:  go test ./bench -bench=. -benchmem -cpu 1
//
// The benchmarks intentionally use a *single* value shape so results are
// comparable across versions:
//   • Value – 64‑byte struct (large enough to matter, small enough for cache)
//
// We measure:
//   1. Insert          – allocate-only workload against a warm free list
//   2. InsertRemove    – a single slot cycled through acquire/release
//   3. VisitRef        – scoped shared access
//   4. VisitMut        – scoped exclusive access
//   5. GuardRefRelease – owned shared handle, acquire+release pair
//   6. CloneVal        – read-copy that bypasses the refcount gate
//
// NOTE: property and scenario tests live in pkg/prison; this file is only
// for performance.
//
// © 2025 prison authors. MIT License.

package bench

import (
	"testing"

	"github.com/Voskan/prison/pkg/prison"
)

/* -------------------------------------------------------------------------
   Test harness helpers
   ------------------------------------------------------------------------- */

type value64 struct {
	_ [64]byte
}

const keys = 1 << 16 // 64K keys for dataset

func newFullArena() (*prison.Arena[value64], []prison.Key) {
	a := prison.WithCapacity[value64](keys)
	ks := make([]prison.Key, keys)
	for i := 0; i < keys; i++ {
		k, err := a.Insert(value64{})
		if err != nil {
			panic(err)
		}
		ks[i] = k
	}
	return a, ks
}

/* -------------------------------------------------------------------------
   Benchmarks
   ------------------------------------------------------------------------- */

func BenchmarkInsert(b *testing.B) {
	a := prison.WithCapacity[value64](b.N)
	val := value64{}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := a.Insert(val); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkInsertRemove(b *testing.B) {
	a := prison.WithCapacity[value64](1)
	val := value64{}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k, err := a.Insert(val)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := a.Remove(k); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkVisitRef(b *testing.B) {
	a, ks := newFullArena()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := ks[i&(keys-1)]
		_ = a.VisitRef(k, func(v *value64) error { return nil })
	}
}

func BenchmarkVisitMut(b *testing.B) {
	a, ks := newFullArena()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := ks[i&(keys-1)]
		_ = a.VisitMut(k, func(v *value64) error { return nil })
	}
}

func BenchmarkGuardRefRelease(b *testing.B) {
	a, ks := newFullArena()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := ks[i&(keys-1)]
		g, err := a.GuardRef(k)
		if err != nil {
			b.Fatal(err)
		}
		g.Release()
	}
}

func BenchmarkCloneVal(b *testing.B) {
	a, ks := newFullArena()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := ks[i&(keys-1)]
		if _, err := a.CloneVal(k); err != nil {
			b.Fatal(err)
		}
	}
}
