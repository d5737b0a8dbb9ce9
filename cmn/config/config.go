// Package config holds the engine's tunables: shard count, convergence
// parameters for fixed-point client drivers, and NUMA overrides. Decoded
// with jsoniter, the same way the rest of the cmn tree decodes its
// on-disk JSON.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package config

import (
	"os"

	jsoniter "github.com/json-iterator/go"
)

type Config struct {
	// Shards is the default shard count used by graph.Load when the
	// caller doesn't pass an explicit count.
	Shards int `json:"shards"`

	// Damping and Epsilon are the fixed-point driver's defaults.
	Damping float64 `json:"damping"`
	Epsilon float64 `json:"epsilon"`

	// MaxIters bounds client.FixedPoint's loop. The reference PageRank
	// driver loops until delta < epsilon with no upper bound; this port
	// adds a safety ceiling so a malformed graph can't spin forever.
	MaxIters int `json:"max_iters"`

	// NUMA is decoded from the config file; pool.NewPool does not read
	// it, and workers are pinned to their CPUs whatever its value.
	NUMA bool `json:"numa"`

	// SpillDir overrides the working directory used for shard spill
	// files; empty means the process's CWD.
	SpillDir string `json:"spill_dir"`
}

// Default mirrors the values used by the worked PageRank example.
func Default() Config {
	return Config{
		Shards:   1,
		Damping:  0.85,
		Epsilon:  1e-7,
		MaxIters: 1000,
		NUMA:     true,
	}
}

// Load decodes a Config from a JSON file, filling in defaults for any
// zero-valued field the file doesn't set.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := jsoniter.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
