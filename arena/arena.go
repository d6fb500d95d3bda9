// {{{ Copyright (c) Paul R. Tagliamonte <paul@k3xec.com>, 2020-2024
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE. }}}

// Package arena implements a setup-time bump allocator: an Arena hands
// out zero-initialized byte ranges from one backing slice and is thrown
// away as a whole at shutdown. Nothing allocates from it on the hot path;
// all Alloc calls happen during pipeline setup. Its only client in this
// module is chunk.NewPool, which takes every chunk buffer from an Arena;
// queue backing arrays, the ring buffers and DSP stage buffers are
// allocated with make, not from an Arena.
package arena

import (
	"fmt"
)

// DefaultSize is the default Arena size, per spec.md §5 (16 MiB).
const DefaultSize = 16 * 1024 * 1024

// ErrExhausted is returned by Alloc when the Arena has no room left for
// the requested allocation.
var ErrExhausted = fmt.Errorf("arena: exhausted")

// Arena is a bump allocator: Alloc carves contiguous byte ranges off of a
// single backing slice, never returning memory to the pool until Reset or
// the whole Arena is dropped. It is not safe for concurrent use -- every
// caller allocates during single-threaded pipeline setup, per spec.md §5.
type Arena struct {
	buf    []byte
	offset int
}

// New creates an Arena backed by a single `size`-byte allocation.
func New(size int) *Arena {
	return &Arena{buf: make([]byte, size)}
}

// Alloc reserves n bytes from the arena, zero-initialized, and returns
// them. It returns ErrExhausted if fewer than n bytes remain.
func (a *Arena) Alloc(n int) ([]byte, error) {
	if a.offset+n > len(a.buf) {
		return nil, fmt.Errorf("%w: requested %d bytes, %d remain", ErrExhausted, n, len(a.buf)-a.offset)
	}
	b := a.buf[a.offset : a.offset+n : a.offset+n]
	a.offset += n
	return b, nil
}

// MustAlloc is like Alloc but panics on failure; intended for setup code
// where an exhausted arena is itself a fatal configuration error that the
// caller will have already sized the arena against.
func (a *Arena) MustAlloc(n int) []byte {
	b, err := a.Alloc(n)
	if err != nil {
		panic(err)
	}
	return b
}

// Used returns the number of bytes allocated so far.
func (a *Arena) Used() int {
	return a.offset
}

// Cap returns the Arena's total capacity in bytes.
func (a *Arena) Cap() int {
	return len(a.buf)
}

// Remaining returns the number of bytes still available.
func (a *Arena) Remaining() int {
	return len(a.buf) - a.offset
}

// Reset returns the Arena to empty, without releasing the backing slice.
// Callers must ensure nothing still holds a live reference to memory
// handed out by a prior Alloc before calling this.
func (a *Arena) Reset() {
	a.offset = 0
	for i := range a.buf {
		a.buf[i] = 0
	}
}

// vim: foldmethod=marker
