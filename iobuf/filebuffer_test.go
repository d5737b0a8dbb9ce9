/*
 * Copyright (c) 2018-2024, NVIDIA CORPORATION. All rights reserved.
 */
package iobuf

import (
	"path/filepath"
	"testing"
)

func mustNotPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	f()
}

// S6: append three blobs, freeze, verify concatenation, verify size,
// verify further write fails.
func TestFileBufferAppendFreezeS6(t *testing.T) {
	dir := t.TempDir()
	b := New(filepath.Join(dir, "0"))

	mustNotPanic(t, func() {
		b.Write([]byte("abc"))
		b.Write([]byte(""))
		b.Write([]byte("defgh"))
	})

	if b.Size() != 8 {
		t.Fatalf("Size() = %d, want 8", b.Size())
	}

	mapped := b.Freeze()
	if string(mapped) != "abcdefgh" {
		t.Fatalf("frozen contents = %q, want %q", mapped, "abcdefgh")
	}
	if b.Size() != 8 {
		t.Fatalf("Size() after freeze = %d, want 8", b.Size())
	}

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic writing to a frozen buffer")
		} else if _, ok := r.(interface{ Error() string }); !ok {
			t.Fatalf("expected an error-like panic value, got %T", r)
		}
	}()
	b.Write([]byte("x"))
}

func TestFileBufferGrowth(t *testing.T) {
	dir := t.TempDir()
	b := New(filepath.Join(dir, "0"))

	var total uint64
	chunks := [][]byte{
		make([]byte, 10),
		make([]byte, 5000), // forces at least one doubling past minCapacity
		make([]byte, 1),
	}
	for i, c := range chunks {
		for j := range c {
			c[j] = byte(i + j)
		}
		b.Write(c)
		total += uint64(len(c))
	}

	if b.Size() != total {
		t.Fatalf("Size() = %d, want %d", b.Size(), total)
	}

	mapped := b.Freeze()
	if uint64(len(mapped)) != total {
		t.Fatalf("frozen mapping length = %d, want %d", len(mapped), total)
	}
}

func TestFileBufferResizeZeroUnopened(t *testing.T) {
	dir := t.TempDir()
	b := New(filepath.Join(dir, "0"))
	mustNotPanic(t, func() { b.Resize(0) })
	if b.state() != stateUnopened {
		t.Fatalf("Resize(0) on a fresh buffer should not open it")
	}
}

func TestFileBufferLockSeqRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b := New(filepath.Join(dir, "0"))
	b.Write([]byte{1, 2, 3, 4})

	mapped := b.LockSeq()
	if len(mapped) != 4 {
		t.Fatalf("LockSeq mapping length = %d, want 4", len(mapped))
	}
	mapped[0] = 42 // Lock re-enables PROT_WRITE
	b.UnlockSeq()  // advisory no-op

	reFroze := b.Freeze()
	if reFroze[0] != 42 {
		t.Fatalf("write through locked mapping not visible: got %d", reFroze[0])
	}
}
