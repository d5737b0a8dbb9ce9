package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/sync/errgroup"

	"github.com/zhykzhykzhyk/polymer/cmn/nlog"
	"github.com/zhykzhykzhyk/polymer/part"
)

// Manifest is the jsoniter sidecar written next to a Load's spill
// directory, letting a later diag pass or a restarted driver describe a
// store without re-reading its shard files.
type Manifest struct {
	Shards         int       `json:"shards"`
	Vertices       uint64    `json:"vertices"`
	VertexDataSize int       `json:"vertex_data_size"`
	EdgeDataSize   int       `json:"edge_data_size"`
	CreatedAt      time.Time `json:"created_at"`
}

const manifestName = "manifest.json"

func (s *Store) writeManifest() error {
	m := Manifest{
		Shards:         s.nShards,
		Vertices:       s.nVertices,
		VertexDataSize: s.vertexDataSize,
		EdgeDataSize:   s.edgeDataSize,
		CreatedAt:      time.Now(),
	}
	b, err := jsoniter.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, manifestName), b, 0o644)
}

// ReadManifest loads the sidecar written by a prior Load, without
// opening any of the shard spill files themselves.
func ReadManifest(dir string) (Manifest, error) {
	var m Manifest
	b, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return m, err
	}
	err = jsoniter.Unmarshal(b, &m)
	return m, err
}

// LoadOptions controls Load's ingestion pass.
type LoadOptions struct {
	// Shards is the partition count; zero means config.Default().Shards.
	Shards int
	// HashF overrides the default striping partitioner.
	HashF func(shards int, vertices uint64) part.HashF
	// SpillDir is the directory shard files are created under; empty
	// means the process's working directory.
	SpillDir string
	// Validate runs a post-load sanity pass (see Validate) concurrently
	// across shards before returning.
	Validate bool
}

func (o LoadOptions) hashF(shards int, vertices uint64) part.HashF {
	if o.HashF != nil {
		return o.HashF(shards, vertices)
	}
	return part.DefaultHashF(shards)
}

// Load builds a Store from an in-memory edge list for the given vertex
// count and per-vertex/per-edge payload sizes: it partitions every edge
// by hashF(edge.To) and requires the edges landing in each destination
// shard to already be in non-decreasing From order (it returns an error
// otherwise) — Polymer-style
// ingestion assumes a single upstream sort pass rather than sorting
// shard-side, so PutEdge can stream straight to append-only spill
// files without buffering.
func Load(edges []Edge, vertices uint64, vertexDataSize, edgeDataSize int, opts LoadOptions) (*Store, error) {
	shards := opts.Shards
	if shards <= 0 {
		shards = 1
	}
	hashF := opts.hashF(shards, vertices)

	s := &Store{}
	if err := s.Resize(shards, vertices, vertexDataSize, edgeDataSize, hashF, spillRoot(opts.SpillDir)); err != nil {
		return nil, err
	}

	var lastFrom = make([]int64, shards)
	for i := range lastFrom {
		lastFrom[i] = -1
	}
	for i, e := range edges {
		if len(e.Data) != edgeDataSize {
			s.Close()
			return nil, fmt.Errorf("graph: edge %d has data length %d, want %d", i, len(e.Data), edgeDataSize)
		}
		if e.From >= vertices || e.To >= vertices {
			s.Close()
			return nil, fmt.Errorf("graph: edge %d references vertex >= %d", i, vertices)
		}
		toShard, toLocal := hashF(e.To)
		if int64(e.From) < lastFrom[toShard] {
			s.Close()
			return nil, fmt.Errorf("graph: edges into shard %d are not sorted by From (edge %d)", toShard, i)
		}
		lastFrom[toShard] = int64(e.From)
		s.PutEdge(toShard, toLocal, e)
	}

	s.Freeze()
	s.ActiveAll()
	if err := s.writeManifest(); err != nil {
		nlog.Warningf("graph: failed to write manifest for %s: %v", s.dir, err)
	}

	if opts.Validate {
		if err := s.Validate(context.Background()); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

func spillRoot(dir string) string {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "."
		}
		return wd
	}
	return dir
}

// Validate runs a per-shard sanity pass concurrently — each shard's
// vertices array must be non-decreasing (PutEdge's own invariant,
// re-checked here for stores rebuilt from raw spill files rather than
// through Load) and every edge record's local destination index must
// fall inside that shard's vertex count. It returns the first error
// encountered across all shards, via errgroup the same way the pool
// package's callers fan out independent per-shard work.
func (s *Store) Validate(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for sh := 0; sh < s.nShards; sh++ {
		sh := sh
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			return s.validateShard(sh)
		})
	}
	return g.Wait()
}

func (s *Store) validateShard(shard int) error {
	vv := NewVerticesView(s.Vertices(shard))
	var prev uint64
	for i := 0; i < vv.Len(); i++ {
		cur := vv.At(uint64(i))
		if cur < prev {
			return fmt.Errorf("graph: shard %d vertices array not monotonic at index %d", shard, i)
		}
		prev = cur
	}

	edges := s.Edges(shard)
	nv := s.VerticesOfShard(shard)
	edgesSize := uint64(len(edges))
	var cursor uint64
	for cursor < edgesSize {
		localIdx, _, next := DecodeEdge(edges, cursor, s.edgeDataSize)
		if uint64(localIdx) >= nv {
			return fmt.Errorf("graph: shard %d edge at offset %d references local index %d, out of range [0,%d)", shard, cursor, localIdx, nv)
		}
		cursor = next
	}
	return nil
}
