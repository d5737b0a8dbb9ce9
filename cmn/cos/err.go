// Package cos provides common low-level types and utilities shared by
// every package of the engine.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import (
	stderrors "errors"
	"fmt"
	"os"
	"sync"
	ratomic "sync/atomic"

	"github.com/pkg/errors"
)

// ErrOS wraps a filesystem/mmap failure that is always fatal to the
// task that raised it. Reason is a short static string
// identifying the failed call (e.g. "mmap", "ftruncate"); the wrapped
// cause carries the original errno via github.com/pkg/errors so callers
// can still unwrap/inspect it.
type ErrOS struct {
	Reason string
	cause  error
}

func NewErrOS(reason string, cause error) *ErrOS {
	return &ErrOS{Reason: reason, cause: errors.WithStack(cause)}
}

func (e *ErrOS) Error() string { return fmt.Sprintf("%s: %v", e.Reason, e.cause) }
func (e *ErrOS) Unwrap() error { return e.cause }

// ErrFrozen is raised when a write is attempted against a FileBuffer that
// has already transitioned to its read-only, frozen state. It is a
// programming error, not an OS failure.
type ErrFrozen struct {
	Path string
}

func (e *ErrFrozen) Error() string {
	return fmt.Sprintf("write to frozen buffer %q", e.Path)
}

// Errs is a bounded multi-error accumulator: it keeps the first maxErrs
// distinct errors (by message) and reports how many more were dropped.
// Used by ingestion/validation passes that want to report multiple
// problems from one pass without unbounded memory growth.
type Errs struct {
	errs []error
	cnt  int64
	mu   sync.Mutex
}

const maxErrs = 4

func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			e.mu.Unlock()
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
	}
	ratomic.AddInt64(&e.cnt, 1)
	e.mu.Unlock()
}

func (e *Errs) Cnt() int { return int(ratomic.LoadInt64(&e.cnt)) }

func (e *Errs) Err() error {
	cnt := e.Cnt()
	if cnt == 0 {
		return nil
	}
	e.mu.Lock()
	err := stderrors.Join(e.errs...)
	e.mu.Unlock()
	if cnt > maxErrs {
		err = fmt.Errorf("%w (and %d more)", err, cnt-maxErrs)
	}
	return err
}

const fatalPrefix = "FATAL ERROR: "

// Exitf prints a fatal diagnostic and terminates the process with a
// nonzero status, e.g. for an unrecovered OS error during ingest.
func Exitf(format string, a ...any) {
	fmt.Fprintln(os.Stderr, fatalPrefix+fmt.Sprintf(format, a...))
	os.Exit(1)
}
