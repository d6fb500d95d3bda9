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
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hz.tools/iqproc"
	"hz.tools/iqproc/pipeline"
)

// fakeFileInputSource hands out the bytes of data in successive
// StartStream calls, each capped at buf's length, returning a clean
// short read with no error once data is exhausted.
type fakeFileInputSource struct {
	data   []byte
	offset int
}

func (f *fakeFileInputSource) Initialize(ctx context.Context) error { return nil }

func (f *fakeFileInputSource) StartStream(ctx context.Context, buf []byte) (int, error) {
	n := copy(buf, f.data[f.offset:])
	f.offset += n
	return n, nil
}

func (f *fakeFileInputSource) StopStream(ctx context.Context) error  { return nil }
func (f *fakeFileInputSource) Cleanup(ctx context.Context) error     { return nil }
func (f *fakeFileInputSource) GetSummaryInfo(ctx context.Context) (map[string]string, error) {
	return nil, nil
}
func (f *fakeFileInputSource) ValidateOptions(cfg iqproc.AppConfig) error { return nil }
func (f *fakeFileInputSource) SampleFormat() iqproc.SampleFormat          { return iqproc.SampleFormatCF32 }
func (f *fakeFileInputSource) SampleRate() uint32                        { return 48000 }
func (f *fakeFileInputSource) HasKnownLength() bool                      { return true }

// erroringInputSource always fails StartStream, to exercise the Reader's
// error-propagation path.
type erroringInputSource struct {
	fakeFileInputSource
	err error
}

func (e *erroringInputSource) StartStream(ctx context.Context, buf []byte) (int, error) {
	return 0, e.err
}

func TestReaderFileModeSplitsInputAcrossChunksAndMarksLastChunk(t *testing.T) {
	cfg := baseConfig()
	res := newTestResources(t, cfg)

	samples := toneSamples(testBaseSamples + 10) // more than one chunk's worth
	raw, err := res.Converter.ConvertOut(nil, samples, cfg.InputFormat)
	require.NoError(t, err)

	src := &fakeFileInputSource{data: raw}
	r := pipeline.NewReader(res, src, pipeline.ReaderModeFile)

	require.NoError(t, r.Run(context.Background()))

	first, ok := res.Queues.RawToPre.Dequeue()
	require.True(t, ok)
	assert.Equal(t, testBaseSamples, first.FramesRead)
	assert.False(t, first.IsLastChunk)

	second, ok := res.Queues.RawToPre.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 10, second.FramesRead)
	assert.True(t, second.IsLastChunk)
}

func TestReaderFileModeStopsOnSourceError(t *testing.T) {
	cfg := baseConfig()
	res := newTestResources(t, cfg)

	src := &erroringInputSource{err: io.ErrClosedPipe}
	r := pipeline.NewReader(res, src, pipeline.ReaderModeFile)

	err := r.Run(context.Background())
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.ErrorIs(t, res.Err(), io.ErrClosedPipe)
}

// vim: foldmethod=marker
