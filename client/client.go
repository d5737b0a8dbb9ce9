// Package client implements the engine's façade: activeAll/init
// helpers and the fixed-point driver (edgeMap -> vertexMap, repeated
// until a convergence delta drops below epsilon) that spec.md
// describes as the client driver pattern behind PageRank-style
// algorithms. The algorithm itself — what an edge contributes, how a
// vertex folds that contribution into its next value — is supplied by
// the caller; this package only owns the loop and its termination
// condition.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package client

import (
	"fmt"

	"github.com/zhykzhykzhyk/polymer/graph"
	"github.com/zhykzhykzhyk/polymer/ops"
	"github.com/zhykzhykzhyk/polymer/pool"
	"github.com/zhykzhykzhyk/polymer/reduce"
)

// ActiveAll marks every vertex of g participating in the first
// iteration, the graph-initialization step every client driver runs
// before its first edgeMap/vertexMap round.
func ActiveAll(p *pool.ThreadPool, g *graph.Store) error {
	return ops.ActiveAll(p, nil, pool.MaxPriority, g)
}

// InitUniform writes 1/N into every vertex via set, matching
// pagerank.cc's uniform rank initialization (1/N for N vertices). set
// isolates the driver from the caller's vertex_data layout, which the
// engine itself never interprets.
func InitUniform(p *pool.ThreadPool, g *graph.Store, set func(vertexData []byte, value float64)) error {
	n := g.NumVertices()
	if n == 0 {
		return nil
	}
	value := 1 / float64(n)
	return ops.ParallelShardsWait(p, g, func(_ *pool.Worker, shard int) {
		data := g.Data(shard)
		vdSize := uint64(g.VertexDataSize())
		nv := g.VerticesOfShard(shard)
		for i := uint64(0); i < nv; i++ {
			set(data[i*vdSize:(i+1)*vdSize], value)
		}
	})
}

// deltaView is the pool.View client.FixedPoint hands its per-round
// VertexMap call: a lazily-bound SubReducer that accumulates the
// round's L1 convergence delta and flushes it into the round's shared
// Reducer once, when this worker's shards are exhausted.
type deltaView struct {
	sub *reduce.SubReducer
}

func (v *deltaView) ensure(parent *reduce.Reducer) {
	if v.sub == nil {
		v.sub = reduce.NewSubReducer(parent)
	}
}

func (v deltaView) Apply(_ *reduce.Reducer, red func(func())) {
	if v.sub == nil {
		return
	}
	red(func() { v.sub.Flush() })
}

// VertexStep is the per-vertex body of FixedPoint's VertexMap round:
// given the round's delta accumulator and a vertex's raw data, it
// updates the vertex in place (e.g. folding a teleport term into
// "next" and copying it into "curr"), adds the resulting change to
// delta, and returns whether the vertex stays active next round.
type VertexStep func(delta *reduce.SubReducer, vertexData []byte) bool

// FixedPoint runs EdgeMap(acc, edgeFn) -> VertexMap(vertexStep)
// repeatedly, accumulating vertexStep's reported delta through a fresh
// reduce.Reducer each round, until that round's total delta drops
// below epsilon or maxIters rounds have run. spec.md's client loop is
// an unbounded "do {} while(1)"; maxIters is the safety bound a
// production port adds (cmn/config.Default().MaxIters) so a
// malformed or non-converging graph can't spin the pool forever.
func FixedPoint[T any](
	p *pool.ThreadPool, g *graph.Store,
	acc ops.Accumulator[T], edgeFn ops.EdgeFn[T],
	vertexStep VertexStep,
	epsilon float64, maxIters int,
) (iterations int, finalDelta float64, err error) {
	for iter := 1; iter <= maxIters; iter++ {
		if err := ops.EdgeMap(p, nil, pool.MaxPriority, g, acc, edgeFn); err != nil {
			return iter, 0, err
		}

		deltaR := reduce.NewReducer(0)
		tg := pool.New[*reduce.Reducer, deltaView](deltaR)
		wrapped := func(parent *reduce.Reducer, view *deltaView, data []byte) bool {
			view.ensure(parent)
			return vertexStep(view.sub, data)
		}
		if err := ops.VertexMap(p, nil, pool.MaxPriority, g, tg, wrapped); err != nil {
			return iter, 0, err
		}

		d := deltaR.Load()
		if d < epsilon {
			return iter, d, nil
		}
	}
	return maxIters, 0, fmt.Errorf("client: fixed point did not converge within %d iterations", maxIters)
}
