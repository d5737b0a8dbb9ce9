// Command pagerank is the illustrative client program spec.md treats
// as an external collaborator: it reads a plain-text edge list, builds
// a graph.Store, and runs client.FixedPoint over the standard PageRank
// update. The engine's core (bitset/iobuf/pool/graph/ops/reduce) has
// no idea this program — or PageRank itself — exists.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"math"

	"github.com/zhykzhykzhyk/polymer/client"
	"github.com/zhykzhykzhyk/polymer/cmn"
	"github.com/zhykzhykzhyk/polymer/cmn/config"
	"github.com/zhykzhykzhyk/polymer/cmn/cos"
	"github.com/zhykzhykzhyk/polymer/cmn/nlog"
	"github.com/zhykzhykzhyk/polymer/graph"
	"github.com/zhykzhykzhyk/polymer/pool"
	"github.com/zhykzhykzhyk/polymer/reduce"
)

// vertex_data layout: {curr, next, outDegree float64}.
const (
	offCurr = 0
	offNext = 8
	offOut  = 16
	vdSize  = 24
)

func getF64(b []byte) float64    { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }
func putF64(b []byte, v float64) { binary.LittleEndian.PutUint64(b, math.Float64bits(v)) }

func main() {
	shards := flag.Int("shards", 0, "shard count (0 = config default)")
	damping := flag.Float64("damping", 0, "damping factor (0 = config default)")
	epsilon := flag.Float64("epsilon", 0, "convergence epsilon (0 = config default)")
	flag.Parse()

	cfg := config.Default()
	if *shards > 0 {
		cfg.Shards = *shards
	}
	if *damping > 0 {
		cfg.Damping = *damping
	}
	if *epsilon > 0 {
		cfg.Epsilon = *epsilon
	}
	cmn.SetRom(cfg)

	path := ""
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}
	edges, vertices, outDegree, err := loadEdgeFile(path)
	if err != nil {
		cos.Exitf("reason: %s", err)
	}

	g, err := graph.Load(edges, vertices, vdSize, 0, graph.LoadOptions{
		Shards: cfg.Shards, SpillDir: cfg.SpillDir,
	})
	if err != nil {
		cos.Exitf("reason: %s", err)
	}
	defer g.Close()

	for v := uint64(0); v < vertices; v++ {
		shard, local := g.ShardOf(v), g.LocalOf(v)
		entry := g.Data(int(shard))[uint64(local)*vdSize : (uint64(local)+1)*vdSize]
		putF64(entry[offOut:offOut+8], outDegree[v])
	}

	p := pool.NewPool()
	defer p.Close()

	if err := client.ActiveAll(p, g); err != nil {
		cos.Exitf("reason: %s", err)
	}
	if err := client.InitUniform(p, g, func(data []byte, value float64) { putF64(data[offCurr:offCurr+8], value) }); err != nil {
		cos.Exitf("reason: %s", err)
	}

	iters, delta, err := client.FixedPoint[float64](p, g, pageRankAcc{}, pageRankEdgeFn, pageRankVertexStep(cfg.Damping, g.NumVertices()), cfg.Epsilon, cfg.MaxIters)
	if err != nil {
		cos.Exitf("reason: %s", err)
	}
	nlog.Infof("converged after %d iterations, delta=%g", iters, delta)

	for v := uint64(0); v < vertices; v++ {
		shard, local := g.ShardOf(v), g.LocalOf(v)
		entry := g.Data(int(shard))[uint64(local)*vdSize : (uint64(local)+1)*vdSize]
		fmt.Printf("%d\t%g\n", v, getF64(entry[offCurr:offCurr+8]))
	}
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

func pageRankVertexStep(damping float64, n uint64) client.VertexStep {
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

// loadEdgeFile reads whitespace-separated "from to" pairs, one edge per
// line, and derives the vertex count and each vertex's out-degree from
// the edge list itself. An empty path reads a tiny built-in 4-vertex
// example (the one used by this engine's own S1 scenario).
func loadEdgeFile(path string) (edges []graph.Edge, vertices uint64, outDegree map[uint64]float64, err error) {
	var lines func(f func(string) error) error
	if path == "" {
		sample := []string{"0 1", "0 3", "1 3", "2 1"}
		lines = func(f func(string) error) error {
			for _, l := range sample {
				if err := f(l); err != nil {
					return err
				}
			}
			return nil
		}
	} else {
		lines = func(f func(string) error) error { return cos.ReadLines(path, f) }
	}

	outDegree = make(map[uint64]float64)
	err = lines(func(line string) error {
		var from, to uint64
		if _, scanErr := fmt.Sscanf(line, "%d %d", &from, &to); scanErr != nil {
			return scanErr
		}
		edges = append(edges, graph.Edge{From: from, To: to})
		outDegree[from]++
		if from+1 > vertices {
			vertices = from + 1
		}
		if to+1 > vertices {
			vertices = to + 1
		}
		return nil
	})
	return edges, vertices, outDegree, err
}
