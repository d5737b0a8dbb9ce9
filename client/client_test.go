package client

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/zhykzhykzhyk/polymer/graph"
	"github.com/zhykzhykzhyk/polymer/ops"
	"github.com/zhykzhykzhyk/polymer/pool"
	"github.com/zhykzhykzhyk/polymer/reduce"
)

// vertex_data layout for every test below: {curr, next, outDegree float64}.
const (
	offCurr  = 0
	offNext  = 8
	offOut   = 16
	vdSize   = 24
)

func getF64(b []byte) float64    { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }
func putF64(b []byte, v float64) { binary.LittleEndian.PutUint64(b, math.Float64bits(v)) }

func newPageRankStore(t *testing.T, edges []graph.Edge, vertices uint64, shards int, outDegree map[uint64]float64) *graph.Store {
	t.Helper()
	g, err := graph.Load(edges, vertices, vdSize, 0, graph.LoadOptions{Shards: shards, SpillDir: t.TempDir()})
	if err != nil {
		t.Fatalf("graph.Load: %v", err)
	}
	t.Cleanup(g.Close)

	for v := uint64(0); v < vertices; v++ {
		shard, local := g.ShardOf(v), g.LocalOf(v)
		entry := g.Data(int(shard))[uint64(local)*vdSize : (uint64(local)+1)*vdSize]
		putF64(entry[offOut:offOut+8], outDegree[v])
	}
	return g
}

func pageRankEdgeFn(srcData, _ []byte, slot *float64) bool {
	out := getF64(srcData[offOut : offOut+8])
	if out > 0 {
		*slot += getF64(srcData[offCurr:offCurr+8]) / out
	}
	return true
}

type pageRankAcc struct{}

func (pageRankAcc) Zero() float64 { return 0 }
func (pageRankAcc) Combine(dst []byte, contribution float64) {
	next := dst[offNext : offNext+8]
	putF64(next, getF64(next)+contribution)
}

func pageRankVertexStep(damping float64, n uint64) VertexStep {
	teleport := (1 - damping) / float64(n)
	return func(delta *reduce.SubReducer, data []byte) bool {
		curr := getF64(data[offCurr : offCurr+8])
		next := getF64(data[offNext : offNext+8])
		newCurr := teleport + damping*next
		delta.Add(math.Abs(newCurr - curr))
		putF64(data[offCurr:offCurr+8], newCurr)
		putF64(data[offNext:offNext+8], 0)
		return true
	}
}

// S1: PageRank on 4 vertices, 2 shards, damping 0.85, epsilon 1e-7,
// uniform 1/4 init. Vertices 0 and 2 have no incoming edges, so every
// round their rank is exactly the teleport term (1-d)/N = 0.0375 —
// an exact invariant of the update below, independent of how many
// rounds run. Convergence must land within the documented 50-iteration
// bound.
func TestFixedPointPageRankS1(t *testing.T) {
	p := pool.NewPool()
	defer p.Close()

	edges := []graph.Edge{{From: 0, To: 1}, {From: 0, To: 3}, {From: 1, To: 3}, {From: 2, To: 1}}
	outDegree := map[uint64]float64{0: 2, 1: 1, 2: 1, 3: 0}
	g := newPageRankStore(t, edges, 4, 2, outDegree)

	if err := ActiveAll(p, g); err != nil {
		t.Fatalf("ActiveAll: %v", err)
	}
	if err := InitUniform(p, g, func(data []byte, value float64) { putF64(data[offCurr:offCurr+8], value) }); err != nil {
		t.Fatalf("InitUniform: %v", err)
	}

	const damping, epsilon = 0.85, 1e-7
	iters, _, err := FixedPoint[float64](p, g, pageRankAcc{}, pageRankEdgeFn, pageRankVertexStep(damping, g.NumVertices()), epsilon, 50)
	if err != nil {
		t.Fatalf("FixedPoint: %v", err)
	}
	if iters > 50 {
		t.Fatalf("converged in %d iterations, want <= 50", iters)
	}

	rank := func(v uint64) float64 {
		shard, local := g.ShardOf(v), g.LocalOf(v)
		entry := g.Data(int(shard))[uint64(local)*vdSize : (uint64(local)+1)*vdSize]
		return getF64(entry[offCurr : offCurr+8])
	}

	const teleport = 0.15 / 4
	for _, v := range []uint64{0, 2} {
		if got := rank(v); math.Abs(got-teleport) > 1e-9 {
			t.Errorf("rank(%d) = %v, want exactly the teleport term %v (no incoming edges)", v, got, teleport)
		}
	}
	if rank(1) <= teleport || rank(3) <= teleport {
		t.Errorf("rank(1)=%v, rank(3)=%v should both exceed the bare teleport term (they have incoming edges)", rank(1), rank(3))
	}
}

// S2 (client level): empty graph, activeAll + one VertexMap setting
// curr=1 leaves every vertex at curr==1 and triggers zero EdgeFn calls.
func TestActiveAllEmptyGraphS2(t *testing.T) {
	p := pool.NewPool()
	defer p.Close()

	g, err := graph.Load(nil, 10, vdSize, 0, graph.LoadOptions{Shards: 2, SpillDir: t.TempDir()})
	if err != nil {
		t.Fatalf("graph.Load: %v", err)
	}
	defer g.Close()

	if err := ActiveAll(p, g); err != nil {
		t.Fatalf("ActiveAll: %v", err)
	}

	tg := pool.New[*graph.Store, pool.Empty[*graph.Store]](g)
	err = ops.VertexMap(p, nil, pool.MaxPriority, g, tg, func(_ *graph.Store, _ *pool.Empty[*graph.Store], data []byte) bool {
		putF64(data[offCurr:offCurr+8], 1)
		return true
	})
	if err != nil {
		t.Fatalf("VertexMap: %v", err)
	}

	for v := uint64(0); v < 10; v++ {
		shard, local := g.ShardOf(v), g.LocalOf(v)
		entry := g.Data(int(shard))[uint64(local)*vdSize : (uint64(local)+1)*vdSize]
		if getF64(entry[offCurr:offCurr+8]) != 1 {
			t.Fatalf("vertex %d curr != 1 after VertexMap", v)
		}
	}
}
