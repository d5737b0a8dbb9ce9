// Package reduce implements the engine's atomic and thread-local
// accumulator primitives: a float64 Reducer wrapping an atomically
// updated location, and a SubReducer that accumulates privately during
// a shard task and flushes its total into the parent exactly once.
//
// Go's sync/atomic has no relaxed/acquire-release distinction (§5 of
// the spec this engine implements): every Reducer op here is a full
// compare-and-swap loop, and it is the owning pool.TaskGroup's
// completion channel — not the reducer itself — that supplies the
// happens-before edge a caller reading Load() after Wait() relies on.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package reduce

import (
	"math"
	"sync/atomic"
)

// ReducePlus is the addition monoid: identity 0, update is ordinary
// sum. Reducer.Add and SubReducer perform this same sum inline rather
// than calling it.
type ReducePlus struct{}

func (ReducePlus) Identity() float64                 { return 0 }
func (ReducePlus) Update(acc, delta float64) float64 { return acc + delta }

// Reducer wraps a float64 behind a CAS loop so many goroutines can
// Add concurrently without a mutex. Used directly by algorithms that
// update a single scalar from every shard (e.g. a running edge count);
// algorithms that update per-shard-task should prefer a SubReducer to
// avoid CAS contention on the hot path.
type Reducer struct {
	bits atomic.Uint64
}

// NewReducer returns a Reducer holding initial.
func NewReducer(initial float64) *Reducer {
	r := &Reducer{}
	r.bits.Store(math.Float64bits(initial))
	return r
}

// Load returns the reducer's current value.
func (r *Reducer) Load() float64 { return math.Float64frombits(r.bits.Load()) }

// Add atomically adds delta to the reducer (the ReducePlus update).
func (r *Reducer) Add(delta float64) {
	for {
		old := r.bits.Load()
		next := math.Float64frombits(old) + delta
		if r.bits.CompareAndSwap(old, math.Float64bits(next)) {
			return
		}
	}
}

// SubReducer accumulates into an unsynchronized local total for the
// duration of one shard task, then Flush folds the total into its
// parent Reducer exactly once. This is the explicit stand-in for the
// source's thread-local accumulator that flushed on destruction — Go
// has no destructors, so the owner calls Flush itself (see
// client.deltaView's Apply, which flushes once per worker view after
// that worker's shards are done).
type SubReducer struct {
	parent *Reducer
	local  float64
}

// NewSubReducer returns a SubReducer that will flush into parent.
func NewSubReducer(parent *Reducer) *SubReducer {
	return &SubReducer{parent: parent}
}

// Add accumulates delta locally; no atomic operation is performed
// until Flush.
func (s *SubReducer) Add(delta float64) { s.local += delta }

// Flush folds the accumulated local total into the parent Reducer and
// resets the local total to zero. Safe to call more than once (a
// second call is a no-op if nothing was added since the last flush).
func (s *SubReducer) Flush() {
	if s.local == 0 {
		return
	}
	s.parent.Add(s.local)
	s.local = 0
}

// Int64Reducer is the integer counterpart used by algorithms folding
// counts rather than floating-point mass (e.g. a BFS level's frontier
// size, or connected-components' merge count).
type Int64Reducer struct {
	v atomic.Int64
}

// NewInt64Reducer returns an Int64Reducer holding initial.
func NewInt64Reducer(initial int64) *Int64Reducer {
	r := &Int64Reducer{}
	r.v.Store(initial)
	return r
}

func (r *Int64Reducer) Load() int64    { return r.v.Load() }
func (r *Int64Reducer) Add(delta int64) { r.v.Add(delta) }
