package graph

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/zhykzhykzhyk/polymer/bitset"
	"github.com/zhykzhykzhyk/polymer/cmn/cos"
	"github.com/zhykzhykzhyk/polymer/cmn/metrics"
	"github.com/zhykzhykzhyk/polymer/iobuf"
	"github.com/zhykzhykzhyk/polymer/part"
)

// Store is the out-of-core graph: five mmap-backed FileBuffers per
// shard (edges, vertices, vertex data, active set, frontier), plus the
// global<->local vertex-id tables built from whichever part.HashF
// partitioned the graph.
type Store struct {
	nShards        int
	nVertices      uint64
	vertexDataSize int
	edgeDataSize   int

	edges     []*iobuf.FileBuffer
	vertices  []*iobuf.FileBuffer
	data      []*iobuf.FileBuffer
	active    []*iobuf.FileBuffer
	frontiers []*iobuf.FileBuffer

	// localToGlobal[s][i] is the global vertex id assigned to shard s's
	// local index i; shardOf/localOf are its inverse, indexed by global
	// vertex id.
	localToGlobal [][]uint64
	shardOf       []uint16
	localOf       []uint32

	dir    string
	nextID atomic.Int64
}

// NumShards returns the shard count fixed at Resize time.
func (s *Store) NumShards() int { return s.nShards }

// NumVertices returns the global vertex count fixed at Resize time.
func (s *Store) NumVertices() uint64 { return s.nVertices }

// EdgeDataSize returns the fixed per-edge payload size in bytes.
func (s *Store) EdgeDataSize() int { return s.edgeDataSize }

// VertexDataSize returns the fixed per-vertex payload size in bytes.
func (s *Store) VertexDataSize() int { return s.vertexDataSize }

// VerticesOfShard returns the number of vertices assigned to shard s
// by the partitioner used at Resize/Load time.
func (s *Store) VerticesOfShard(shard int) uint64 { return uint64(len(s.localToGlobal[shard])) }

// LocalToGlobal converts a shard-local vertex index back to its
// global id.
func (s *Store) LocalToGlobal(shard int, local uint64) uint64 { return s.localToGlobal[shard][local] }

// ShardOf and LocalOf return the partition assignment for a global
// vertex id, as computed by the HashF passed to Resize/Load.
func (s *Store) ShardOf(v uint64) uint16  { return s.shardOf[v] }
func (s *Store) LocalOf(v uint64) uint32  { return s.localOf[v] }

// Dir returns the per-Store spill directory (the caller's SpillDir
// plus this store's generated run-id subdirectory) that shard files
// and the manifest live under.
func (s *Store) Dir() string { return s.dir }

func (s *Store) nextFile() string {
	id := s.nextID.Add(1) - 1
	return filepath.Join(s.dir, fmt.Sprintf("%d", id))
}

// Resize allocates the per-shard buffers for a graph of the given
// vertex count and shard count under hashF, sizing the data/active/
// frontier arrays up front and leaving edges/vertices empty (they grow
// during PutEdge). dir is the directory spill files are created under;
// Resize creates one subdirectory per Store instance inside it to keep
// concurrently-running stores from colliding over shard filenames.
func (s *Store) Resize(shards int, vertices uint64, vertexDataSize, edgeDataSize int, hashF part.HashF, dir string) error {
	s.nShards = shards
	s.nVertices = vertices
	s.vertexDataSize = vertexDataSize
	s.edgeDataSize = edgeDataSize
	s.dir = filepath.Join(dir, cos.GenRunID())
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	s.edges = make([]*iobuf.FileBuffer, shards)
	s.vertices = make([]*iobuf.FileBuffer, shards)
	s.data = make([]*iobuf.FileBuffer, shards)
	s.active = make([]*iobuf.FileBuffer, shards)
	s.frontiers = make([]*iobuf.FileBuffer, shards)
	s.localToGlobal = make([][]uint64, shards)
	s.shardOf = make([]uint16, vertices)
	s.localOf = make([]uint32, vertices)

	for v := uint64(0); v < vertices; v++ {
		shard, local := hashF(v)
		s.shardOf[v] = shard
		s.localOf[v] = local
		for int(shard) >= len(s.localToGlobal) {
			return fmt.Errorf("graph: hashF returned shard %d, out of range [0,%d)", shard, shards)
		}
		lst := s.localToGlobal[shard]
		for uint32(len(lst)) <= local {
			lst = append(lst, 0)
		}
		lst[local] = v
		s.localToGlobal[shard] = lst
	}

	for sh := 0; sh < shards; sh++ {
		s.edges[sh] = iobuf.New(s.nextFile())
		s.vertices[sh] = iobuf.New(s.nextFile())
		s.data[sh] = iobuf.New(s.nextFile())
		s.active[sh] = iobuf.New(s.nextFile())
		s.frontiers[sh] = iobuf.New(s.nextFile())

		nv := uint64(len(s.localToGlobal[sh]))
		s.data[sh].Resize(nv * uint64(vertexDataSize))

		s.active[sh].Resize(bitset.AllocateSize(nv))
		bitset.Overlay(s.active[sh].Lock()).Resize(nv)

		s.frontiers[sh].Resize(bitset.AllocateSize(nv))
		bitset.Overlay(s.frontiers[sh].Lock()).Resize(nv)
	}
	return nil
}

// PutEdge appends one edge into the shard that owns its destination.
// shard/localOffset are the destination's (shard, local index) pair,
// i.e. hashF(edge.To) — computed by the caller (graph.Load) rather
// than by PutEdge itself, since ingestion already has the partitioner
// in hand and PutEdge has no other use for it.
//
// Edges for a single source (From) must be inserted contiguously and
// in non-decreasing From order within a shard; PutEdge pads
// vertices[shard] up to From with the running edges-offset so later
// lookups for any from-id in between land correctly on an empty range.
func (s *Store) PutEdge(shard uint16, localOffset uint32, e Edge) {
	vbuf := s.vertices[shard]
	ebuf := s.edges[shard]

	vid := vbuf.Size() / 8
	cur := ebuf.Size()
	for vid <= e.From {
		var word [8]byte
		putU64(word[:], cur)
		vbuf.Write(word[:])
		vid++
	}

	rec := EncodeEdge(nil, localOffset, e.Data)
	ebuf.Write(rec)
}

func putU64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// Edges locks (sequential-access advice) and returns shard s's raw
// edges buffer.
func (s *Store) Edges(shard int) []byte { return s.edges[shard].LockSeq() }

// Vertices locks (sequential-access advice) and returns shard s's raw
// vertices buffer, ready to wrap in a VerticesView.
func (s *Store) Vertices(shard int) []byte { return s.vertices[shard].LockSeq() }

// Data locks (random-access advice, since vertexMap mutates through
// active vertices in no particular order) and returns shard s's raw
// vertex-data buffer.
func (s *Store) Data(shard int) []byte { return s.data[shard].Lock() }

// GetEdge reads one edge record from shard s's edges buffer at cursor,
// returning the destination vertex's shard-local index, its payload,
// and the advanced cursor. A thin, shard-scoped convenience wrapper
// around the package-level DecodeEdge/AdjacencyRange pair ops.EdgeMap
// itself calls directly when it already holds the raw buffers locked
// across an entire inner traversal.
func (s *Store) GetEdge(shard int, cursor uint64) (localDst uint32, data []byte, next uint64) {
	return DecodeEdge(s.Edges(shard), cursor, s.edgeDataSize)
}

// Active returns shard s's active-vertex bitset, locking its backing
// buffer for random access first.
func (s *Store) Active(shard int) *bitset.Bitset { return bitset.Overlay(s.lockActive(shard)) }

func (s *Store) lockActive(shard int) []byte { return s.active[shard].Lock() }

// Frontiers returns shard s's frontier bitset, locking its backing
// buffer for random access first.
func (s *Store) Frontiers(shard int) *bitset.Bitset { return bitset.Overlay(s.frontiers[shard].Lock()) }

// ActiveAll sets every vertex in every shard's active bitset, matching
// the client façade's graph-initialization step.
func (s *Store) ActiveAll() {
	for sh := 0; sh < s.nShards; sh++ {
		s.Active(sh).SetAll()
	}
}

// Freeze transitions every shard's five buffers to their read-only
// mmap'd state without removing the spill files, so the store can be
// handed to operators for traversal.
func (s *Store) Freeze() {
	for sh := 0; sh < s.nShards; sh++ {
		s.edges[sh].Freeze()
		s.vertices[sh].Freeze()
		s.data[sh].Freeze()
		s.active[sh].Freeze()
		s.frontiers[sh].Freeze()
		metrics.ShardsFrozen.Add(5)
	}
}

// Close releases every shard's mapping and removes its spill file.
func (s *Store) Close() {
	for sh := 0; sh < s.nShards; sh++ {
		s.edges[sh].Close()
		s.vertices[sh].Close()
		s.data[sh].Close()
		s.active[sh].Close()
		s.frontiers[sh].Close()
	}
}
