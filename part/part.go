// Package part implements the vertex partitioners: pure functions
// mapping a global vertex id to the (shard, local index) pair that
// owns it. graph.Store uses one of these, fixed for the lifetime of a
// Load, to decide where every vertex's data lives and which shard an
// edge's destination routes its record into.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package part

import (
	"encoding/binary"

	"github.com/OneOfOne/xxhash"
)

// HashF maps a global vertex id to the shard that owns it and that
// vertex's local index within the shard. Implementations must be
// deterministic: the same v must always produce the same (shard,
// local) pair for the lifetime of a graph.
type HashF func(v uint64) (shard uint16, local uint32)

// DefaultHashF returns the striping partitioner: vertex v lives on
// shard v mod shards, at local index v div shards. It is O(1), needs
// no precomputation, and balances shard sizes to within one vertex
// regardless of how vertex ids are distributed.
func DefaultHashF(shards int) HashF {
	s := uint64(shards)
	return func(v uint64) (uint16, uint32) {
		return uint16(v % s), uint32(v / s)
	}
}

// LocalityHashF returns the contiguous-range partitioner: vertex v
// lives on shard v / perShard, at local index v % perShard. Unlike
// DefaultHashF this keeps runs of numerically adjacent vertex ids on
// the same shard, trading load balance (the last shard may be
// underfull) for locality when the caller's vertex numbering already
// groups related vertices together.
func LocalityHashF(shards int, vertices uint64) HashF {
	perShard := (vertices + uint64(shards) - 1) / uint64(shards)
	if perShard == 0 {
		perShard = 1
	}
	return func(v uint64) (uint16, uint32) {
		return uint16(v / perShard), uint32(v % perShard)
	}
}

// RendezvousHashF returns a highest-random-weight partitioner: each
// vertex independently picks the shard that maximizes
// xxhash(v, seed=shard), so adding or removing a shard only reassigns
// the vertices that specifically preferred the changed shard rather
// than reshuffling the whole graph. Because HRW doesn't produce a
// dense local index for free, this precomputes the full v -> local
// assignment for [0, vertices) up front (one xxhash per (v, shard)
// pair) and serves it from a table; unlike DefaultHashF/LocalityHashF
// it is not O(1) per call beyond that one-time cost.
func RendezvousHashF(shards int, vertices uint64) HashF {
	shardOf := make([]uint16, vertices)
	local := make([]uint32, vertices)
	counters := make([]uint32, shards)

	var buf [8]byte
	for v := uint64(0); v < vertices; v++ {
		binary.LittleEndian.PutUint64(buf[:], v)
		var best uint16
		var bestWeight uint64
		for s := 0; s < shards; s++ {
			w := xxhash.Checksum64S(buf[:], uint64(s))
			if w > bestWeight || s == 0 {
				bestWeight = w
				best = uint16(s)
			}
		}
		shardOf[v] = best
		local[v] = counters[best]
		counters[best]++
	}

	return func(v uint64) (uint16, uint32) {
		if v >= vertices {
			// Vertices beyond the table's range fall back to plain
			// striping so the partitioner stays total.
			return uint16(v % uint64(shards)), uint32(v / uint64(shards))
		}
		return shardOf[v], local[v]
	}
}
