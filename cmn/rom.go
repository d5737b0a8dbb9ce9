// Package cmn provides common constants, types, and utilities shared
// across the engine's packages.
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package cmn

import (
	"sync/atomic"

	"github.com/zhykzhykzhyk/polymer/cmn/config"
)

// Rom is a read-mostly snapshot of the active config, set to
// config.Default() at init and replaced via SetRom (cmd/pagerank does
// so after applying its flags); readers load it without locking.
// client.FixedPoint does not read it: its caller passes epsilon and the
// iteration bound as arguments.
var romPtr atomic.Pointer[config.Config]

func init() {
	c := config.Default()
	romPtr.Store(&c)
}

// Rom returns the current read-mostly config snapshot.
func Rom() *config.Config { return romPtr.Load() }

// SetRom installs a new read-mostly snapshot, e.g. after config.Load.
func SetRom(c config.Config) { romPtr.Store(&c) }

func Damping() float64 { return romPtr.Load().Damping }
func Epsilon() float64 { return romPtr.Load().Epsilon }
func MaxIters() int    { return romPtr.Load().MaxIters }
