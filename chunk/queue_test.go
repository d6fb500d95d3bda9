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

package chunk_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hz.tools/iqproc/chunk"
)

func TestQueueFIFOOrder(t *testing.T) {
	q := chunk.NewQueue(4)
	c1, c2, c3 := &chunk.SampleChunk{}, &chunk.SampleChunk{}, &chunk.SampleChunk{}

	require.True(t, q.Enqueue(c1))
	require.True(t, q.Enqueue(c2))
	require.True(t, q.Enqueue(c3))

	got1, ok := q.Dequeue()
	require.True(t, ok)
	got2, ok := q.Dequeue()
	require.True(t, ok)
	got3, ok := q.Dequeue()
	require.True(t, ok)

	assert.Same(t, c1, got1)
	assert.Same(t, c2, got2)
	assert.Same(t, c3, got3)
}

func TestQueueEnqueueBlocksWhileFull(t *testing.T) {
	q := chunk.NewQueue(1)
	require.True(t, q.Enqueue(&chunk.SampleChunk{}))

	done := make(chan bool, 1)
	go func() {
		done <- q.Enqueue(&chunk.SampleChunk{})
	}()

	select {
	case <-done:
		t.Fatal("enqueue on a full queue should have blocked")
	case <-time.After(20 * time.Millisecond):
	}

	_, ok := q.Dequeue()
	require.True(t, ok)

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("enqueue never unblocked after a slot freed up")
	}
}

func TestQueueShutdownWakesBlockedEnqueue(t *testing.T) {
	q := chunk.NewQueue(1)
	require.True(t, q.Enqueue(&chunk.SampleChunk{}))

	done := make(chan bool, 1)
	go func() {
		done <- q.Enqueue(&chunk.SampleChunk{})
	}()

	q.SignalShutdown()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("shutdown did not wake a blocked enqueue")
	}
}

func TestQueueShutdownDrainsRemainingBeforeTerminal(t *testing.T) {
	q := chunk.NewQueue(2)
	c1 := &chunk.SampleChunk{}
	require.True(t, q.Enqueue(c1))
	q.SignalShutdown()

	got, ok := q.Dequeue()
	require.True(t, ok)
	assert.Same(t, c1, got)

	_, ok = q.Dequeue()
	assert.False(t, ok)
}

func TestQueueTryDequeueNonBlocking(t *testing.T) {
	q := chunk.NewQueue(1)
	_, ok := q.TryDequeue()
	assert.False(t, ok)

	c := &chunk.SampleChunk{}
	q.Enqueue(c)
	got, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Same(t, c, got)
}

// vim: foldmethod=marker
