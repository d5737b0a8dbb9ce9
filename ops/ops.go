// Package ops implements the two operators every user algorithm
// composes into a fixed-point loop: VertexMap (per-shard, single-level
// filter/update over the active set) and EdgeMap (per-destination-shard
// outer level, per-source-shard inner level, frontier-driven traversal
// with a serialized reducer fold).
//
// Both operators reach into graph.Store's shard buffers directly, the
// "circular friendship between Operators and Graph" the spec calls out
// as a design tension; rather than introduce a ShardAccess interface
// for a single concrete Store implementation, this package simply
// imports graph and accepts that coupling, consistent with how the
// teacher's own packages (e.g. reb <-> core) reach into each other's
// concrete types when they are the only implementation that exists.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package ops

import (
	"github.com/zhykzhykzhyk/polymer/bitset"
	"github.com/zhykzhykzhyk/polymer/cmn/debug"
	"github.com/zhykzhykzhyk/polymer/graph"
	"github.com/zhykzhykzhyk/polymer/pool"
)

// ParallelShards runs f once per shard of g across the pool, blocking
// until every shard has been dispatched. It is the "start a task group
// over n_shards, submit, wait" helper spec.md assigns to the graph
// store (§4.E); it lives here instead because every caller of it is
// already an operator built the same way.
func ParallelShards(p *pool.ThreadPool, w *pool.Worker, priority int64, g *graph.Store, f func(w *pool.Worker, shard int)) error {
	tg := pool.New[*graph.Store, pool.Empty[*graph.Store]](g)
	tg.Start(g.NumShards(), func(w *pool.Worker, shard int, _ *pool.Empty[*graph.Store]) {
		f(w, shard)
	})
	return pool.SubmitAndJoin(p, w, priority, tg)
}

// ParallelShardsWait is the unprioritized form: submits at
// pool.MaxPriority from outside the pool (w == nil) and waits.
func ParallelShardsWait(p *pool.ThreadPool, g *graph.Store, f func(w *pool.Worker, shard int)) error {
	return ParallelShards(p, nil, pool.MaxPriority, g, f)
}

// ActiveAll sets every bit of every shard's active bitset, matching
// spec.md's "activeAll()": a parallel-shards task, not graph.Store's
// sequential ActiveAll (which Load uses during ingestion, before a
// pool even exists).
func ActiveAll(p *pool.ThreadPool, w *pool.Worker, priority int64, g *graph.Store) error {
	return ParallelShards(p, w, priority, g, func(_ *pool.Worker, shard int) {
		g.Active(shard).SetAll()
	})
}

// VertexFn is the per-vertex body of a VertexMap pass. It receives the
// TaskGroup's shared data (often unused — pool.Empty callers pass
// nil-shaped data), the calling goroutine's view (for cross-shard
// accumulation, e.g. a convergence delta), and the vertex's raw
// data payload by mutable slice. Its bool return is purely the active-
// set filter signal: false drops the vertex from active for the next
// round; it must not be conflated with any value the view accumulates.
type VertexFn[D any, V pool.View[D]] func(data D, view *V, vertexData []byte) bool

// VertexMap runs f over every active vertex of every shard in
// parallel. Per shard: the frontier is cleared, then every active
// local vertex's data is handed to f; a false return unsets that
// vertex from active. tg is supplied by the caller (not created here)
// so that algorithms needing cross-shard accumulation during the pass
// — the client package's fixed-point delta, for instance — can plug
// in a non-trivial View; callers with nothing to accumulate pass
// pool.New[D, pool.Empty[D]](data).
func VertexMap[D any, V pool.View[D]](p *pool.ThreadPool, w *pool.Worker, priority int64, g *graph.Store, tg *pool.TaskGroup[D, V], f VertexFn[D, V]) error {
	data := tg.Data()
	tg.Start(g.NumShards(), func(w *pool.Worker, shard int, view *V) {
		frontier := g.Frontiers(shard)
		frontier.Clear()

		vertexData := g.Data(shard)
		active := g.Active(shard)
		vdSize := uint64(g.VertexDataSize())

		active.ForEach(func(i uint64) {
			entry := vertexData[i*vdSize : (i+1)*vdSize]
			if !f(data, view, entry) {
				active.Unset(i)
			}
		})
	})
	return pool.SubmitAndJoin(p, w, priority, tg)
}

// Accumulator folds a per-destination-vertex contribution of type T,
// collected by EdgeFn across one or more source shards, into that
// vertex's persistent data. Zero must be T's identity with respect to
// however Combine is defined to fold repeated contributions — EdgeMap
// calls Zero once per (worker, destination shard) view and Combine
// once per destination vertex when that view is reduced, so Combine
// is only ever given one already-accumulated T per vertex per worker
// view, not one call per edge.
type Accumulator[T any] interface {
	Zero() T
	Combine(dstVertexData []byte, contribution T)
}

// EdgeFn is invoked once per edge whose source is active: srcData is
// the source vertex's payload, edgeData is that edge's fixed-size
// payload, and slot is the destination vertex's private accumulator
// cell for this worker's view (shared across every edge this worker
// processes into the same destination within its current shard task).
// Returning true sets the destination's bit in its shard's frontier
// bitset. Neither EdgeMap nor VertexMap copies the frontier into the
// active set.
type EdgeFn[T any] func(srcData, edgeData []byte, slot *T) bool

// destShard is the data shared by every inner-level (source-shard)
// task cooperating on one destination shard's EdgeMap pass.
type destShard[T any] struct {
	g            *graph.Store
	acc          Accumulator[T]
	data         []byte
	frontier     *bitset.Bitset
	vertices     uint64
	vertexSize   int
	edgesS       []byte
	vertsS       graph.VerticesView
	edgesLen     uint64
	edgeDataSize int
}

// shardView is the per-worker accumulator for one destination shard's
// inner TaskGroup: a dense slot per destination-local vertex plus a
// private frontier bitset, lazily sized to the destination shard on
// first touch (a worker that claims zero inner shards never touches
// slots/frontier and its Apply is a no-op).
type shardView[T any] struct {
	slots    []T
	frontier *bitset.Bitset
}

func (v *shardView[T]) ensure(d *destShard[T]) {
	if v.slots != nil {
		return
	}
	v.slots = make([]T, d.vertices)
	zero := d.acc.Zero()
	for i := range v.slots {
		v.slots[i] = zero
	}
	v.frontier = bitset.Create(d.vertices)
}

// Apply folds this worker's slots into the destination shard's vertex
// data and ORs its private frontier into the shard's frontier, all
// inside the single reducer closure the spec requires ("(a) folds
// every local View into data[s][i] ... (b) ORs its private frontier").
// Value receiver, matching pool.Empty/sumView's convention: the
// TaskGroup contract requires V itself (not *V) to satisfy View[D], so
// mutation happens only through the pointer the per-shard task closure
// receives (ensure, above), never through Apply.
func (v shardView[T]) Apply(d *destShard[T], reduce func(func())) {
	if v.slots == nil {
		return
	}
	reduce(func() {
		vdSize := uint64(d.vertexSize)
		for i, contribution := range v.slots {
			entry := d.data[uint64(i)*vdSize : (uint64(i)+1)*vdSize]
			d.acc.Combine(entry, contribution)
		}
		d.frontier.OR(v.frontier)
	})
}

// EdgeMap runs f over every edge whose source vertex is active,
// grouped by destination shard (outer level, parallel) and then by
// source shard (inner level, one nested TaskGroup per destination
// shard, submitted at a priority below the outer level by the pool's
// own re-entrant decrement — see pool.ThreadPool.Queue). acc combines
// each destination vertex's accumulated contributions, from all
// source shards that touched it, into that vertex's persistent data.
//
// Tie-breaking / ordering: contributions are folded through the
// reducer chain in whatever order workers finish, so acc.Combine must
// be associative for deterministic results (§4.F) — this is a
// documentation, not a runtime, requirement.
func EdgeMap[T any](p *pool.ThreadPool, w *pool.Worker, priority int64, g *graph.Store, acc Accumulator[T], f EdgeFn[T]) error {
	outer := pool.New[*graph.Store, pool.Empty[*graph.Store]](g)
	outer.Start(g.NumShards(), func(ow *pool.Worker, s int, _ *pool.Empty[*graph.Store]) {
		data := g.Data(s)
		frontier := g.Frontiers(s)
		frontier.Clear()
		edgesS := g.Edges(s)
		vertsS := graph.NewVerticesView(g.Vertices(s))

		ds := &destShard[T]{
			g:            g,
			acc:          acc,
			data:         data,
			frontier:     frontier,
			vertices:     g.VerticesOfShard(s),
			vertexSize:   g.VertexDataSize(),
			edgesS:       edgesS,
			vertsS:       vertsS,
			edgesLen:     uint64(len(edgesS)),
			edgeDataSize: g.EdgeDataSize(),
		}

		inner := pool.New[*destShard[T], shardView[T]](ds)
		inner.Start(g.NumShards(), func(iw *pool.Worker, r int, view *shardView[T]) {
			view.ensure(ds)

			activeR := g.Active(r)
			dataR := g.Data(r)
			vdSize := uint64(g.VertexDataSize())

			activeR.ForEach(func(i uint64) {
				globalFrom := g.LocalToGlobal(r, i)
				start, end := graph.AdjacencyRange(ds.vertsS, ds.edgesLen, globalFrom)
				if start == end {
					return
				}
				srcData := dataR[i*vdSize : (i+1)*vdSize]

				cursor := start
				for cursor < end {
					localIdx, edgeData, next := graph.DecodeEdge(ds.edgesS, cursor, ds.edgeDataSize)
					debug.Assert(uint64(localIdx) < ds.vertices, "edgeMap: destination local index out of range")
					if f(srcData, edgeData, &view.slots[localIdx]) {
						view.frontier.Set(uint64(localIdx))
					}
					cursor = next
				}
			})
		})
		if err := pool.SubmitAndJoin(p, ow, priority, inner); err != nil {
			panic(err)
		}
	})
	return pool.SubmitAndJoin(p, w, priority, outer)
}
