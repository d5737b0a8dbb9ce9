package diag

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zhykzhykzhyk/polymer/graph"
	"github.com/zhykzhykzhyk/polymer/pool"
)

func TestSpillReportFindsShardFiles(t *testing.T) {
	dir := t.TempDir()
	g, err := graph.Load([]graph.Edge{{From: 0, To: 1}}, 2, 8, 0, graph.LoadOptions{Shards: 2, SpillDir: dir})
	if err != nil {
		t.Fatalf("graph.Load: %v", err)
	}
	defer g.Close()

	reports, err := SpillReport(dir)
	if err != nil {
		t.Fatalf("SpillReport: %v", err)
	}
	if len(reports) == 0 {
		t.Fatal("SpillReport found no files under a populated spill directory")
	}
	for i := 1; i < len(reports); i++ {
		if reports[i-1].Path > reports[i].Path {
			t.Fatalf("reports not sorted by path: %q before %q", reports[i-1].Path, reports[i].Path)
		}
	}

	manifest := filepath.Join(g.Dir(), "manifest.json")
	if _, err := os.Stat(manifest); err != nil {
		t.Fatalf("expected manifest.json to exist: %v", err)
	}
}

func TestActiveReportReflectsActiveAll(t *testing.T) {
	p := pool.NewPool()
	defer p.Close()

	g, err := graph.Load(nil, 6, 0, 0, graph.LoadOptions{Shards: 3, SpillDir: t.TempDir()})
	if err != nil {
		t.Fatalf("graph.Load: %v", err)
	}
	defer g.Close()

	reports := ActiveReport(g)
	if len(reports) != 3 {
		t.Fatalf("got %d shard reports, want 3", len(reports))
	}
	var total int
	for _, r := range reports {
		total += r.ActiveCount
	}
	if total != 6 {
		t.Fatalf("total active count = %d, want 6 (graph.Load calls ActiveAll)", total)
	}
}
