//go:build !linux

/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package sys

// PinCurrentThread is a no-op outside Linux: there is no portable CPU
// affinity syscall, so the pool falls back to single-node, unpinned
// scheduling in that case.
func PinCurrentThread(int) error { return nil }
