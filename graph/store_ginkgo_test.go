package graph_test

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/zhykzhykzhyk/polymer/graph"
)

var _ = Describe("Store", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "polymer-store-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	Describe("Load", func() {
		It("partitions every edge into the shard owning its destination vertex, findable from its source", func() {
			edges := []graph.Edge{
				{From: 0, To: 1}, {From: 0, To: 3},
				{From: 1, To: 3}, {From: 2, To: 1},
			}
			g, err := graph.Load(edges, 4, 0, 0, graph.LoadOptions{Shards: 2, SpillDir: dir})
			Expect(err).NotTo(HaveOccurred())
			defer g.Close()

			for _, e := range edges {
				shard := int(g.ShardOf(e.To))
				edgesBuf := g.Edges(shard)
				vv := graph.NewVerticesView(g.Vertices(shard))
				start, end := graph.AdjacencyRange(vv, uint64(len(edgesBuf)), e.From)

				wantLocal := g.LocalOf(e.To)
				found := false
				for cursor := start; cursor < end; {
					localIdx, _, next := g.GetEdge(shard, cursor)
					if localIdx == wantLocal {
						found = true
					}
					cursor = next
				}
				Expect(found).To(BeTrue(), "edge %d->%d not found in its destination shard's adjacency range", e.From, e.To)
			}
		})

		It("round-trips ShardOf/LocalOf for every vertex", func() {
			g, err := graph.Load(nil, 37, 0, 0, graph.LoadOptions{Shards: 4, SpillDir: dir})
			Expect(err).NotTo(HaveOccurred())
			defer g.Close()

			for v := uint64(0); v < 37; v++ {
				shard, local := g.ShardOf(v), g.LocalOf(v)
				Expect(g.LocalToGlobal(int(shard), uint64(local))).To(Equal(v))
			}
		})

		It("rejects edges whose data length does not match edgeDataSize", func() {
			edges := []graph.Edge{{From: 0, To: 1, Data: []byte{1, 2, 3}}}
			_, err := graph.Load(edges, 2, 0, 8, graph.LoadOptions{Shards: 1, SpillDir: dir})
			Expect(err).To(HaveOccurred())
		})

		It("rejects edges referencing an out-of-range vertex", func() {
			edges := []graph.Edge{{From: 0, To: 99}}
			_, err := graph.Load(edges, 2, 0, 0, graph.LoadOptions{Shards: 1, SpillDir: dir})
			Expect(err).To(HaveOccurred())
		})

		It("rejects edges into the same destination shard that are not sorted by From", func() {
			edges := []graph.Edge{{From: 2, To: 0}, {From: 1, To: 0}}
			_, err := graph.Load(edges, 3, 0, 0, graph.LoadOptions{Shards: 1, SpillDir: dir})
			Expect(err).To(HaveOccurred())
		})

		It("passes Validate when Validate: true is requested", func() {
			edges := []graph.Edge{{From: 0, To: 1}, {From: 1, To: 2}, {From: 2, To: 0}}
			g, err := graph.Load(edges, 3, 0, 0, graph.LoadOptions{Shards: 3, SpillDir: dir, Validate: true})
			Expect(err).NotTo(HaveOccurred())
			defer g.Close()
			Expect(g.Validate(context.Background())).To(Succeed())
		})
	})

	Describe("ReadManifest", func() {
		It("reflects the shard/vertex/data sizes passed to Load", func() {
			g, err := graph.Load(nil, 12, 16, 4, graph.LoadOptions{Shards: 3, SpillDir: dir})
			Expect(err).NotTo(HaveOccurred())
			defer g.Close()

			m, err := graph.ReadManifest(g.Dir())
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Shards).To(Equal(3))
			Expect(m.Vertices).To(Equal(uint64(12)))
			Expect(m.VertexDataSize).To(Equal(16))
			Expect(m.EdgeDataSize).To(Equal(4))
		})
	})
})
