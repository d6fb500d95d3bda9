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

package pipeline_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hz.tools/iqproc"
	"hz.tools/iqproc/pipeline"
	"hz.tools/iqproc/ringbuf"
)

// fakeFileWriter is a minimal iqproc.FileWriter test double recording
// every byte written and whether Close was called.
type fakeFileWriter struct {
	buf    bytes.Buffer
	closed bool
}

func (f *fakeFileWriter) Open(ctx context.Context, cfg iqproc.AppConfig) error { return nil }

func (f *fakeFileWriter) Write(b []byte) (int, error) {
	return f.buf.Write(b)
}

func (f *fakeFileWriter) Close() error {
	f.closed = true
	return nil
}

func (f *fakeFileWriter) TotalBytesWritten() int64 {
	return int64(f.buf.Len())
}

func TestWriterFileModeDrainsRingAndClosesSink(t *testing.T) {
	cfg := baseConfig()
	res := newTestResources(t, cfg)
	res.OutputRing = ringbuf.New(4096)

	sink := &fakeFileWriter{}
	w := pipeline.NewFileWriterStage(res, sink)

	payload := []byte("some output bytes for the sink to record")
	n := res.OutputRing.Write(payload)
	require.Equal(t, len(payload), res.OutputRing.Len())
	require.Equal(t, len(payload), n)
	res.OutputRing.SignalEOF()

	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, payload, sink.buf.Bytes())
	assert.True(t, sink.closed)
}

func TestWriterStdoutModeWritesAndRecyclesChunks(t *testing.T) {
	cfg := baseConfig()
	cfg.OutputToStdout = true
	res := newTestResources(t, cfg)

	var out bytes.Buffer
	w := pipeline.NewStdoutWriterStage(res, &out)

	c := freeChunk(t, res)
	samples := toneSamples(8)
	want, err := res.Converter.ConvertOut(nil, samples, cfg.OutputFormat)
	require.NoError(t, err)
	copy(c.FinalOutputData[:len(want)], want)
	c.FinalOutputData = c.FinalOutputData[:len(want)]
	c.IsLastChunk = true
	require.True(t, res.Queues.Stdout.Enqueue(c))

	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, want, out.Bytes())

	recycled, ok := res.Queues.Free.TryDequeue()
	require.True(t, ok)
	assert.Same(t, c, recycled)
}

func TestWriterStdoutModeStopsAfterLastChunkWithoutDrainingFurther(t *testing.T) {
	cfg := baseConfig()
	cfg.OutputToStdout = true
	res := newTestResources(t, cfg)

	var out bytes.Buffer
	w := pipeline.NewStdoutWriterStage(res, &out)

	last := freeChunk(t, res)
	last.FinalOutputData = last.FinalOutputData[:0]
	last.IsLastChunk = true
	require.True(t, res.Queues.Stdout.Enqueue(last))

	extra := freeChunk(t, res)
	extra.FinalOutputData = extra.FinalOutputData[:0]
	require.True(t, res.Queues.Stdout.Enqueue(extra))

	require.NoError(t, w.Run(context.Background()))

	assert.Equal(t, 1, res.Queues.Stdout.Len())
}

// vim: foldmethod=marker
