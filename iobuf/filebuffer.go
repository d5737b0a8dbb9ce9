// Package iobuf implements FileBuffer, the growable, mmap-backed,
// append-then-freeze byte buffer every shard's five storage arrays are
// built on: a spill file written with plain append-at-offset writes
// while "appending", then mapped read-only and the descriptor closed
// once "frozen".
//
// FileBuffer panics on OS failures rather than returning an error for
// every call: an OS error aborts the current task and isn't locally
// recoverable, and Go's panic/recover models "abort the current
// goroutine's work, converted to a diagnostic by the caller" more
// directly than a threaded error return would. pool's TaskGroup
// recovers at the shard-task boundary and still signals completion —
// see DESIGN.md.
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package iobuf

import (
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/zhykzhykzhyk/polymer/cmn/cos"
)

type state int32

const (
	stateUnopened state = iota
	stateAppending
	stateFrozen
	stateLocked
	stateDestroyed
)

const minCapacity = 4096

// FileBuffer is a single growable-then-frozen mmap region. The zero
// value is ready to use (Unopened).
type FileBuffer struct {
	path string

	file *os.File
	fd   int

	size     uint64 // logical length (tell())
	capacity uint64 // ftruncate'd file size while appending

	mapping []byte // non-nil once Frozen/Locked

	st atomic.Int32
}

// New returns a FileBuffer that will open path lazily on first Write,
// or immediately on Resize(n) with n > 0.
func New(path string) *FileBuffer {
	return &FileBuffer{path: path}
}

func (b *FileBuffer) state() state { return state(b.st.Load()) }

// Path returns the backing spill-file path (diagnostic accessor).
func (b *FileBuffer) Path() string { return b.path }

// Stat reports the buffer's current logical size and backing path,
// without requiring the caller to go through Lock/LockSeq; it never
// touches the mapping.
func (b *FileBuffer) Stat() (size uint64, path string) { return b.size, b.path }

func raiseOS(reason string, err error) {
	panic(cos.NewErrOS(reason, err))
}

func (b *FileBuffer) open() {
	f, err := os.OpenFile(b.path, os.O_RDWR|os.O_CREAT|os.O_TRUNC, 0o600)
	if err != nil {
		raiseOS("open", err)
	}
	b.file = f
	b.fd = int(f.Fd())
	b.st.Store(int32(stateAppending))
}

// Write appends len(data) bytes, growing the backing file by geometric
// doubling (minimum minCapacity) when the logical size would exceed
// the current on-disk capacity. Panics with *cos.ErrFrozen if the
// buffer has already been frozen.
func (b *FileBuffer) Write(data []byte) {
	if b.state() >= stateFrozen {
		panic(&cos.ErrFrozen{Path: b.path})
	}
	if b.state() == stateUnopened {
		b.open()
	}

	need := b.size + uint64(len(data))
	if need > b.capacity {
		newCap := b.capacity
		if newCap == 0 {
			newCap = minCapacity
		}
		for newCap < need {
			newCap *= 2
		}
		if err := b.file.Truncate(int64(newCap)); err != nil {
			raiseOS("ftruncate", err)
		}
		b.capacity = newCap
	}

	if len(data) > 0 {
		if _, err := b.file.WriteAt(data, int64(b.size)); err != nil {
			raiseOS("write", err)
		}
	}
	b.size += uint64(len(data))
}

// Resize truncates/extends the backing file to exactly n bytes. A
// call with n == 0 on an unopened buffer succeeds without opening a
// spill file at all.
func (b *FileBuffer) Resize(n uint64) {
	if b.state() >= stateFrozen {
		panic(&cos.ErrFrozen{Path: b.path})
	}
	if n == 0 && b.state() == stateUnopened {
		return
	}
	if b.state() == stateUnopened {
		b.open()
	}
	if err := b.file.Truncate(int64(n)); err != nil {
		raiseOS("ftruncate", err)
	}
	b.size = n
	b.capacity = n
}

// Size returns the current logical length in bytes.
func (b *FileBuffer) Size() uint64 { return b.size }

// Tell is an alias for Size.
func (b *FileBuffer) Tell() uint64 { return b.size }

// Freeze transitions the buffer to a read-only MAP_SHARED mapping and
// closes the file descriptor. Idempotent: calling it again on an
// already-frozen or locked buffer is a no-op and returns the existing
// mapping. Calling Freeze on a buffer that was never written to (and
// never Resize'd past 0) returns nil.
func (b *FileBuffer) Freeze() []byte {
	switch b.state() {
	case stateFrozen, stateLocked:
		return b.mapping
	case stateUnopened:
		return nil
	}

	if b.size == 0 {
		b.closeFD()
		b.st.Store(int32(stateFrozen))
		return nil
	}

	m, err := unix.Mmap(b.fd, 0, int(b.size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		raiseOS("mmap", err)
	}
	b.mapping = m
	b.closeFD()
	b.st.Store(int32(stateFrozen))
	return b.mapping
}

func (b *FileBuffer) closeFD() {
	if b.file != nil {
		if err := b.file.Close(); err != nil {
			raiseOS("close", err)
		}
		b.file = nil
		b.fd = -1
	}
}

// Lock freezes (if needed), re-enables PROT_WRITE on the mapping, and
// advises MADV_RANDOM. Used by operators that may mutate vertex data
// in place during vertexMap.
func (b *FileBuffer) Lock() []byte { return b.lock(unix.MADV_RANDOM) }

// LockSeq is like Lock but advises MADV_SEQUENTIAL, for the edge
// arrays walked front-to-back during edgeMap's inner traversal.
func (b *FileBuffer) LockSeq() []byte { return b.lock(unix.MADV_SEQUENTIAL) }

func (b *FileBuffer) lock(advice int) []byte {
	b.Freeze()
	if b.mapping == nil {
		b.st.Store(int32(stateLocked))
		return nil
	}
	if err := unix.Mprotect(b.mapping, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		raiseOS("mprotect", err)
	}
	_ = unix.Madvise(b.mapping, advice) // advisory only; failures aren't fatal
	b.st.Store(int32(stateLocked))
	return b.mapping
}

// Unlock and UnlockSeq are advisory no-ops: this implementation does
// not restore PROT_READ on unlock (a documented choice — see
// DESIGN.md).
func (b *FileBuffer) Unlock()    {}
func (b *FileBuffer) UnlockSeq() {}

// Close releases the mapping (munmap) and removes the spill file. Safe
// to call multiple times.
func (b *FileBuffer) Close() {
	if b.state() == stateDestroyed {
		return
	}
	if b.mapping != nil {
		if err := unix.Munmap(b.mapping); err != nil {
			raiseOS("munmap", err)
		}
		b.mapping = nil
	}
	b.closeFD()
	b.st.Store(int32(stateDestroyed))
	_ = os.Remove(b.path)
}
