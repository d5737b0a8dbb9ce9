// Package sys provides methods to read system information.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package sys

import (
	"os"
	"strconv"
	"strings"

	"github.com/zhykzhykzhyk/polymer/cmn/cos"
	"github.com/zhykzhykzhyk/polymer/cmn/nlog"
)

func readDirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// Topology is the engine's view of NUMA nodes and the CPUs that belong
// to each, read from /sys/devices/system/node. There is no dependency
// on libnuma here: this engine reads the same sysfs the numactl/libnuma
// tooling itself reads from, and falls back to a single pseudo-node
// when that tree doesn't exist (containers without a mounted sysfs,
// non-Linux hosts, etc).
type Topology struct {
	NodeOf   []int         // NodeOf[cpu] -> NUMA node id
	NodeCPUs map[int][]int // node id -> CPUs belonging to it
}

// NodeCount reports how many NUMA nodes were discovered (always >= 1).
func (t *Topology) NodeCount() int { return len(t.NodeCPUs) }

// DiscoverTopology reads the NUMA topology of the host, falling back to
// a single node spanning every configured CPU when sysfs isn't
// available or doesn't describe a multi-node machine.
func DiscoverTopology() *Topology {
	topo, err := readSysfsTopology()
	if err != nil || topo.NodeCount() == 0 {
		if err != nil {
			nlog.Warningf("NUMA topology unavailable (%v), falling back to single node", err)
		}
		return singleNodeTopology()
	}
	return topo
}

func singleNodeTopology() *Topology {
	n := NumCPU()
	cpus := make([]int, n)
	nodeOf := make([]int, n)
	for i := range cpus {
		cpus[i] = i
	}
	return &Topology{NodeOf: nodeOf, NodeCPUs: map[int][]int{0: cpus}}
}

func readSysfsTopology() (*Topology, error) {
	entries, err := readDirNames(numaNodeDir)
	if err != nil {
		return nil, err
	}

	nodeCPUs := make(map[int][]int)
	maxCPU := -1
	for _, name := range entries {
		if !strings.HasPrefix(name, "node") {
			continue
		}
		nodeID, err := strconv.Atoi(name[len("node"):])
		if err != nil {
			continue
		}
		line, err := cos.ReadOneLine(numaNodeDir + "/" + name + "/cpulist")
		if err != nil {
			continue
		}
		cpus, err := parseCPUList(line)
		if err != nil {
			continue
		}
		nodeCPUs[nodeID] = cpus
		for _, c := range cpus {
			if c > maxCPU {
				maxCPU = c
			}
		}
	}
	if len(nodeCPUs) == 0 {
		return &Topology{}, nil
	}

	nodeOf := make([]int, maxCPU+1)
	for node, cpus := range nodeCPUs {
		for _, c := range cpus {
			nodeOf[c] = node
		}
	}
	return &Topology{NodeOf: nodeOf, NodeCPUs: nodeCPUs}, nil
}

// parseCPUList parses the sysfs "cpulist" format, e.g. "0-3,8,10-11".
func parseCPUList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(strings.TrimSpace(s), ",") {
		if part == "" {
			continue
		}
		if i := strings.IndexByte(part, '-'); i >= 0 {
			lo, err := strconv.Atoi(part[:i])
			if err != nil {
				return nil, err
			}
			hi, err := strconv.Atoi(part[i+1:])
			if err != nil {
				return nil, err
			}
			for c := lo; c <= hi; c++ {
				out = append(out, c)
			}
		} else {
			c, err := strconv.Atoi(part)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}
