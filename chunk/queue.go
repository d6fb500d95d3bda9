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

package chunk

import (
	"sync"
)

// Queue is a bounded, blocking FIFO of *SampleChunk pointers, per
// spec.md §4.1. Capacity is fixed at construction; enqueue blocks while
// full, dequeue blocks while empty, and signalling shutdown wakes every
// blocked caller, mirroring the teacher's pipe.go use of a select over a
// channel and a cancellation signal rather than condition variables.
type Queue struct {
	ch        chan *SampleChunk
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue creates a Queue with room for `capacity` chunks in flight.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch:   make(chan *SampleChunk, capacity),
		done: make(chan struct{}),
	}
}

// Enqueue blocks while the queue is full. It returns true on success,
// false if shutdown was signalled before (or while) a slot became
// available.
func (q *Queue) Enqueue(c *SampleChunk) bool {
	select {
	case q.ch <- c:
		return true
	case <-q.done:
		return false
	}
}

// Dequeue blocks while the queue is empty. It returns (chunk, true) on
// success. Once shutdown has been signalled, Dequeue continues to drain
// whatever remains buffered before returning (nil, false) -- this is the
// "terminal drain" spec.md §4.1 describes, so no chunk enqueued before
// shutdown is lost.
func (q *Queue) Dequeue() (*SampleChunk, bool) {
	select {
	case c := <-q.ch:
		return c, true
	case <-q.done:
		select {
		case c := <-q.ch:
			return c, true
		default:
			return nil, false
		}
	}
}

// TryDequeue is the non-blocking form: it returns (nil, false)
// immediately if the queue is currently empty.
func (q *Queue) TryDequeue() (*SampleChunk, bool) {
	select {
	case c := <-q.ch:
		return c, true
	default:
		return nil, false
	}
}

// SignalShutdown sets the shutdown flag and wakes every blocked Enqueue
// and Dequeue caller. Idempotent.
func (q *Queue) SignalShutdown() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

// Len returns the number of chunks currently buffered, for diagnostics.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue's configured capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}

// vim: foldmethod=marker
