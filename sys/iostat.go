// Package sys provides methods to read system information.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package sys

import (
	"strings"

	"github.com/lufia/iostat"
)

// DiskStats reports read/write activity for drives whose name contains
// the given substring (typically the device backing a Store's spill
// directory), for the diag package's reporting. The paging substrate
// is diagnostic-only here, so the engine goes through the ecosystem
// wrapper instead of reimplementing /proc/diskstats parsing by hand.
func DiskStats(nameContains string) ([]iostat.DriveStats, error) {
	all, err := iostat.ReadDriveStats()
	if err != nil {
		return nil, err
	}
	if nameContains == "" {
		out := make([]iostat.DriveStats, len(all))
		for i, d := range all {
			out[i] = *d
		}
		return out, nil
	}
	var out []iostat.DriveStats
	for _, d := range all {
		if strings.Contains(d.Name, nameContains) {
			out = append(out, *d)
		}
	}
	return out, nil
}
