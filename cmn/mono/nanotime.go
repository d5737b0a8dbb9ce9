//go:build !mono

// Package mono provides low-level monotonic time.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import "time"

// NanoTime returns a monotonic timestamp in nanoseconds. Build with
// `-tags mono` to use the runtime.nanotime linkname trick instead.
func NanoTime() int64 { return time.Now().UnixNano() }

// Since returns the elapsed nanoseconds since a prior NanoTime() reading.
func Since(start int64) int64 { return NanoTime() - start }
