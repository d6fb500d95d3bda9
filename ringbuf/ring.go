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

// Package ringbuf implements the byte-oriented SPSC ring buffer spec.md
// §3/§4.2 describes, plus the packet codec layered on top of it. The ring
// is deliberately byte-addressed rather than typed: spec.md §9 explicitly
// argues against a typed queue here, since the variable-size packet
// payloads and burst-drop semantics of buffered-SDR mode don't fit a
// fixed-slot design. This generalizes the teacher's stream/ring.go
// (a fixed-slot, sdr.Samples-typed ring guarded by a sync.Cond) down to
// raw bytes with partial read/write semantics.
package ringbuf

import (
	"sync"
)

// DefaultSDRInputSize is the default sdr_input_buffer size, spec.md §3
// (256 MiB).
const DefaultSDRInputSize = 256 * 1024 * 1024

// DefaultFileWriteSize is the default file_write_buffer size, spec.md §3
// (1 GiB).
const DefaultFileWriteSize = 1024 * 1024 * 1024

// Ring is a single-producer/single-consumer byte-oriented bounded FIFO.
// Writes and reads are partial: Write returns the number of bytes it
// actually accepted (which may be 0 if the ring is full and shutting
// down); Read blocks until at least one byte is available, or until
// shutdown and drained, returning 0 on clean EOF.
type Ring struct {
	cond *sync.Cond
	lock sync.Mutex

	buf  []byte
	r, w int // byte offsets, mod len(buf)
	full bool

	eof    bool
	closed bool
}

// New creates a Ring backed by a size-byte buffer.
func New(size int) *Ring {
	r := &Ring{buf: make([]byte, size)}
	r.cond = sync.NewCond(&r.lock)
	return r
}

// unreadLocked returns the number of unread bytes. Caller must hold the
// lock.
func (r *Ring) unreadLocked() int {
	if r.full {
		return len(r.buf)
	}
	if r.w >= r.r {
		return r.w - r.r
	}
	return len(r.buf) - r.r + r.w
}

// freeLocked returns the number of bytes available to write. Caller must
// hold the lock.
func (r *Ring) freeLocked() int {
	return len(r.buf) - r.unreadLocked()
}

// Write appends up to len(p) bytes to the ring, blocking while the ring
// is full. It returns the number of bytes actually written, which is
// less than len(p) only if Close was called concurrently
// (signalling shutdown) before all of p fit.
func (r *Ring) Write(p []byte) int {
	r.lock.Lock()
	defer r.lock.Unlock()

	written := 0
	for written < len(p) {
		for r.freeLocked() == 0 && !r.closed {
			r.cond.Wait()
		}
		if r.closed {
			return written
		}
		n := r.freeLocked()
		if n > len(p)-written {
			n = len(p) - written
		}
		r.writeLocked(p[written : written+n])
		written += n
		r.cond.Broadcast()
	}
	return written
}

// TryWrite is the non-blocking form used by overrun-prone producers
// (spec.md §4.3's buffered-SDR capture worker): it writes as many bytes
// as currently fit and returns immediately, never blocking. The caller
// is responsible for counting a short write as a drop.
func (r *Ring) TryWrite(p []byte) int {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.closed {
		return 0
	}
	n := r.freeLocked()
	if n > len(p) {
		n = len(p)
	}
	if n == 0 {
		return 0
	}
	r.writeLocked(p[:n])
	r.cond.Broadcast()
	return n
}

// writeLocked copies p into the ring at the write cursor and advances it.
// Caller must hold the lock and must have already checked len(p) <=
// freeLocked().
func (r *Ring) writeLocked(p []byte) {
	n := copy(r.buf[r.w:], p)
	if n < len(p) {
		copy(r.buf, p[n:])
	}
	r.w = (r.w + len(p)) % len(r.buf)
	if len(p) > 0 && r.w == r.r {
		r.full = true
	}
}

// Read copies up to len(p) bytes out of the ring into p, blocking until
// at least one byte is available or the ring is closed and drained. It
// returns 0 only on clean EOF (closed and empty).
func (r *Ring) Read(p []byte) int {
	r.lock.Lock()
	defer r.lock.Unlock()

	for r.unreadLocked() == 0 && !(r.closed || r.eof) {
		r.cond.Wait()
	}
	if r.unreadLocked() == 0 {
		return 0
	}

	n := r.unreadLocked()
	if n > len(p) {
		n = len(p)
	}
	copied := copy(p, r.buf[r.r:])
	if copied < n {
		copy(p[copied:], r.buf[:n-copied])
	}
	r.r = (r.r + n) % len(r.buf)
	r.full = false
	r.cond.Broadcast()
	return n
}

// SignalEOF marks the writer side as done: once the ring drains, Read
// will return 0 rather than blocking further. Distinct from Close, which
// additionally unblocks any in-progress Write (used for hard shutdown
// rather than a clean end of stream).
func (r *Ring) SignalEOF() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.eof = true
	r.cond.Broadcast()
}

// Close signals shutdown: any blocked Write unblocks immediately
// (returning its partial count), and Read continues to drain remaining
// bytes before returning 0.
func (r *Ring) Close() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.closed = true
	r.cond.Broadcast()
}

// Len returns the number of unread bytes currently buffered.
func (r *Ring) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.unreadLocked()
}

// Free returns the number of bytes of free space currently available.
func (r *Ring) Free() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.freeLocked()
}

// vim: foldmethod=marker
