// Package bitset implements the dense, fixed-length bit vector used for
// every shard's active-set and frontier. Its on-disk layout lets it
// live directly inside an mmap'd iobuf.FileBuffer: an 8-byte bit count
// followed by the packed 64-bit words.
//
// Bitset is not safe for concurrent use by itself — callers serialize
// access the way the engine's operators do, by locking the owning
// FileBuffer for the duration of a shard task (see pool and ops).
/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package bitset

import (
	"fmt"
	"math/bits"
	"unsafe"
)

const wordBits = 64

// header is the on-disk prefix: the bit length, stored as a little/
// host-endian uint64 immediately followed by the packed words. A Bitset
// is either overlaid on bytes already owned by a FileBuffer (Overlay)
// or, for short-lived per-task views, on a private slice (Create).
type Bitset struct {
	size *uint64
	data []uint64
}

// AllocateSize returns the number of bytes a Bitset of the given bit
// length occupies on disk/in memory: 8 + 8*ceil(bits/64).
func AllocateSize(bits uint64) uint64 {
	return 8 + 8*wordsFor(bits)
}

func wordsFor(nbits uint64) uint64 { return (nbits + wordBits - 1) / wordBits }

// Overlay interprets a byte slice (typically the mmap'd region backing
// a FileBuffer) as a Bitset. The slice must be at least AllocateSize(n)
// bytes for whatever n is currently stored in its header; callers that
// are initializing fresh storage should zero it and call Resize first.
func Overlay(b []byte) *Bitset {
	if len(b) < 8 {
		panic("bitset: buffer too small for header")
	}
	sizePtr := (*uint64)(unsafe.Pointer(&b[0]))
	nwords := wordsFor(*sizePtr)
	var data []uint64
	if nwords > 0 {
		data = unsafe.Slice((*uint64)(unsafe.Pointer(&b[8])), nwords)
	}
	return &Bitset{size: sizePtr, data: data}
}

// Create allocates a standalone, zeroed Bitset of the given bit length.
// Used by operators for the short-lived, per-task frontier view that
// isn't backed by a FileBuffer.
func Create(nbits uint64) *Bitset {
	buf := make([]byte, AllocateSize(nbits))
	bs := Overlay(buf)
	bs.Resize(nbits)
	return bs
}

// Len returns the bit-vector's configured length.
func (b *Bitset) Len() uint64 {
	if b.size == nil {
		return 0
	}
	return *b.size
}

// Resize changes the logical bit length without reallocating; the
// caller is responsible for ensuring the underlying storage is at
// least AllocateSize(newLen) bytes (the FileBuffer was sized via
// AllocateSize before Overlay was called).
func (b *Bitset) Resize(newLen uint64) {
	*b.size = newLen
	nwords := wordsFor(newLen)
	if nwords == 0 {
		b.data = nil
		return
	}
	b.data = unsafe.Slice((*uint64)(unsafe.Add(unsafe.Pointer(b.size), 8)), nwords)
}

func (b *Bitset) checkRange(i uint64) {
	if i >= b.Len() {
		panic(fmt.Sprintf("bitset: index %d out of range (len %d)", i, b.Len()))
	}
}

func (b *Bitset) Set(i uint64) {
	b.checkRange(i)
	b.data[i/wordBits] |= 1 << (i % wordBits)
}

func (b *Bitset) Unset(i uint64) {
	b.checkRange(i)
	b.data[i/wordBits] &^= 1 << (i % wordBits)
}

func (b *Bitset) Get(i uint64) bool {
	b.checkRange(i)
	return b.data[i/wordBits]&(1<<(i%wordBits)) != 0
}

// SetAll sets every bit in [0, Len()), matching every bit up to but not
// including any padding in the final word.
func (b *Bitset) SetAll() {
	n := b.Len()
	full := n / wordBits
	for i := uint64(0); i < full; i++ {
		b.data[i] = ^uint64(0)
	}
	if rem := n % wordBits; rem != 0 {
		b.data[full] = (uint64(1) << rem) - 1
	}
}

// Clear zeroes every word, including any padding bits.
func (b *Bitset) Clear() {
	for i := range b.data {
		b.data[i] = 0
	}
}

// ForEach invokes f(i) for every set bit. Bits are visited in ascending
// order, since find-first-set walks low-to-high within each word, but
// callers should not depend on any particular order.
func (b *Bitset) ForEach(f func(i uint64)) {
	for wi, w := range b.data {
		base := uint64(wi) * wordBits
		for w != 0 {
			tz := bits.TrailingZeros64(w)
			f(base + uint64(tz))
			w &= w - 1
		}
	}
}

// OR merges src into b in place: b |= src. src must be the same length
// or shorter (a shorter src leaves b's high bits untouched). Used to
// fold a per-task frontier view into the shard's frontier under the
// reducer lock.
func (b *Bitset) OR(src *Bitset) {
	if src.Len() > b.Len() {
		panic("bitset: OR source longer than destination")
	}
	for i := range src.data {
		b.data[i] |= src.data[i]
	}
}

// Count returns the number of set bits; a read-only diagnostic
// accessor used by the diag package's spill reports.
func (b *Bitset) Count() int {
	n := 0
	for _, w := range b.data {
		n += bits.OnesCount64(w)
	}
	return n
}

func (b *Bitset) String() string {
	return fmt.Sprintf("Bitset{len=%d, set=%d}", b.Len(), b.Count())
}
