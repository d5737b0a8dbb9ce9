// Package cos provides common low-level types and utilities shared by
// every package of the engine.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	"sync"
	"time"

	"github.com/teris-io/shortid"
)

// Short, filesystem-safe run IDs: each graph.Store gets one of these to
// namespace its spill-file directory so that two engine instances
// started in the same working directory never collide over the
// monotonically-numbered "0", "1", ... shard filenames.
const runIDABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

var (
	sidOnce sync.Once
	sid     *shortid.Shortid
)

func initShortID() {
	sid = shortid.MustNew(1, runIDABC, uint64(time.Now().UnixNano()))
}

// GenRunID returns a short, URL/path-safe identifier suitable for a
// directory name.
func GenRunID() string {
	sidOnce.Do(initShortID)
	return sid.MustGenerate()
}
