// Package graph implements the out-of-core, shard-partitioned graph
// store: five mmap-backed arrays per shard (edges, vertices, vertex
// data, active set, frontier) and the ingestion/traversal primitives
// the ops package's vertexMap/edgeMap drive.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package graph

import "encoding/binary"

// Edge is one directed edge during ingestion: From and To are global
// vertex ids, Data is the edge's fixed-size payload (len(Data) must
// equal the store's EdgeDataSize for every edge in a given Load).
type Edge struct {
	From, To uint64
	Data     []byte
}

// VerticesView is a read-only overlay of a shard's frozen vertices
// buffer: a dense array of u64 byte-offsets into that shard's edges
// buffer, indexed directly by global "from" vertex id (not by a
// shard-local index — see DESIGN.md for why).
type VerticesView struct {
	b []byte
}

// NewVerticesView wraps a locked/frozen vertices buffer for reading.
func NewVerticesView(b []byte) VerticesView { return VerticesView{b: b} }

// Len reports how many u64 entries the view holds.
func (v VerticesView) Len() int { return len(v.b) / 8 }

// At returns the i'th entry. Callers must only call this with i <
// v.Len(); use AdjacencyRange for range lookups that safely fall
// outside the recorded entries.
func (v VerticesView) At(i uint64) uint64 {
	return binary.LittleEndian.Uint64(v.b[i*8:])
}

// AdjacencyRange returns the [start, end) byte range within a shard's
// edges buffer holding vertex globalFrom's outgoing-edge records. A
// globalFrom with no recorded entry (never appeared as an edge source
// landing in this shard) yields an empty range at edgesSize.
func AdjacencyRange(v VerticesView, edgesSize uint64, globalFrom uint64) (start, end uint64) {
	n := uint64(v.Len())
	if globalFrom >= n {
		return edgesSize, edgesSize
	}
	start = v.At(globalFrom)
	if globalFrom+1 >= n {
		end = edgesSize
	} else {
		end = v.At(globalFrom + 1)
	}
	return start, end
}

// DecodeEdge reads one (local destination index, edge data) record
// from a shard's edges buffer starting at cursor, returning the
// advanced cursor for the next record.
func DecodeEdge(edges []byte, cursor uint64, edgeDataSize int) (localIdx uint32, data []byte, next uint64) {
	localIdx = binary.LittleEndian.Uint32(edges[cursor:])
	next = cursor + 4
	if edgeDataSize > 0 {
		data = edges[next : next+uint64(edgeDataSize)]
	}
	next += uint64(edgeDataSize)
	return localIdx, data, next
}

// EncodeEdge appends one (local destination index, edge data) record
// to dst and returns the result, matching DecodeEdge's layout.
func EncodeEdge(dst []byte, localIdx uint32, data []byte) []byte {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], localIdx)
	dst = append(dst, hdr[:]...)
	dst = append(dst, data...)
	return dst
}
