// Package debug provides build-tag gated invariant assertions.
//
// Build with `-tags debug` to turn assertions into panics; the default
// build compiles every call in this package down to a no-op, so the
// hot paths of vertexMap/edgeMap never pay for a disabled check.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package debug
