//go:build linux

/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package sys

import "golang.org/x/sys/unix"

// PinCurrentThread restricts the calling OS thread's CPU affinity to a
// single CPU, mirroring parallel.cc's sched_setaffinity call in the
// original Polymer ThreadPool constructor. The caller must already be
// locked to its OS thread (runtime.LockOSThread) or this pins whichever
// thread the goroutine happens to be scheduled on at the moment.
func PinCurrentThread(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	return unix.SchedSetaffinity(0, &set)
}
