// Package diag provides read-only introspection over a running or
// completed Store: a walk of its spill directory reporting each
// shard file's size and age, and a snapshot of the frontier/active-set
// sizes a client driver can log between rounds. None of this is on the
// engine's hot path; everything here is safe to call from outside a
// TaskGroup round.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package diag

import (
	"os"
	"sort"
	"time"

	"github.com/karrick/godirwalk"
	"github.com/lufia/iostat"

	"github.com/zhykzhykzhyk/polymer/graph"
	"github.com/zhykzhykzhyk/polymer/sys"
)

// FileReport describes one spill file found under a Store's directory.
type FileReport struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// SpillReport walks dir (a Store's spill directory) and returns every
// regular file it contains sorted by path, the way a shard's five
// arrays sort lexically by their generated names. The walk uses
// godirwalk; each regular file it finds is then os.Stat'ed for its
// size and modification time.
func SpillReport(dir string) ([]FileReport, error) {
	var out []FileReport
	err := godirwalk.Walk(dir, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			out = append(out, FileReport{Path: path, Size: info.Size(), ModTime: info.ModTime()})
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// ShardReport summarizes the live size of a single shard's bitsets, for
// a driver that wants to log active/frontier cardinality between
// fixed-point rounds without reaching into graph.Store's lock methods
// itself.
type ShardReport struct {
	Shard           int
	ActiveCount     int
	FrontierCount   int
	VerticesOfShard uint64
}

// ActiveReport snapshots every shard's active/frontier bitset
// cardinality. Like graph.Store.ActiveAll, this is meant for use
// outside a TaskGroup round — it takes the same Lock a vertexMap round
// would, so calling it concurrently with one is a race on the
// underlying mmap's advice flags, not on the data itself.
func ActiveReport(g *graph.Store) []ShardReport {
	reports := make([]ShardReport, g.NumShards())
	for s := 0; s < g.NumShards(); s++ {
		active := g.Active(s)
		frontier := g.Frontiers(s)
		reports[s] = ShardReport{
			Shard:           s,
			ActiveCount:     active.Count(),
			FrontierCount:   frontier.Count(),
			VerticesOfShard: g.VerticesOfShard(s),
		}
	}
	return reports
}

// DiskActivity reports read/write activity for the drive backing dir's
// spill files, when the process has permission to read /proc/diskstats
// and dir's device name can be inferred from nameHint (e.g. the mount
// point's device name). An empty nameHint reports every drive. It
// passes through sys.DiskStats's own iostat.DriveStats values rather
// than re-wrapping them, since diag has nothing to add beyond picking
// the right drive.
func DiskActivity(nameHint string) ([]iostat.DriveStats, error) {
	return sys.DiskStats(nameHint)
}
