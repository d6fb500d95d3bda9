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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hz.tools/iqproc"
	"hz.tools/iqproc/dsp"
	"hz.tools/iqproc/pipeline"
	"hz.tools/rf"
)

func baseConfig() iqproc.AppConfig {
	return iqproc.AppConfig{
		InputRate:    48000,
		OutputRate:   48000,
		NoResample:   true,
		InputFormat:  iqproc.SampleFormatCF32,
		OutputFormat: iqproc.SampleFormatCF32,
		Gain:         1.0,
	}
}

func toneSamples(n int) iqproc.SamplesC64 {
	buf := make(iqproc.SamplesC64, n)
	for i := range buf {
		buf[i] = complex(float32(i%7)/10, float32((i+3)%5)/10)
	}
	return buf
}

func TestPreProcessorPassthroughWhenEverythingDisabled(t *testing.T) {
	cfg := baseConfig()
	res := newTestResources(t, cfg)
	pre := pipeline.NewPreProcessor(res)

	c := freeChunk(t, res)
	samples := toneSamples(32)
	raw, err := res.Converter.ConvertOut(nil, samples, cfg.InputFormat)
	require.NoError(t, err)
	copy(c.RawInputData, raw)
	c.FramesRead = len(samples)
	c.InputBytesPerSamplePair = cfg.InputFormat.BytesPerSamplePair()
	c.IsLastChunk = true

	require.True(t, res.Queues.RawToPre.Enqueue(c))
	require.NoError(t, pre.Run(context.Background()))

	got, ok := res.Queues.PreToRes.Dequeue()
	require.True(t, ok)
	require.Equal(t, len(samples), got.FramesToWrite)
	assert.Equal(t, []complex64(samples), []complex64(got.ComplexPreResampleData[:got.FramesToWrite]))
}

func TestPreProcessorAppliesGain(t *testing.T) {
	cfg := baseConfig()
	cfg.Gain = 2.0
	res := newTestResources(t, cfg)
	pre := pipeline.NewPreProcessor(res)

	c := freeChunk(t, res)
	samples := toneSamples(16)
	raw, err := res.Converter.ConvertOut(nil, samples, cfg.InputFormat)
	require.NoError(t, err)
	copy(c.RawInputData, raw)
	c.FramesRead = len(samples)
	c.InputBytesPerSamplePair = cfg.InputFormat.BytesPerSamplePair()
	c.IsLastChunk = true

	require.True(t, res.Queues.RawToPre.Enqueue(c))
	require.NoError(t, pre.Run(context.Background()))

	got, ok := res.Queues.PreToRes.Dequeue()
	require.True(t, ok)
	for i, s := range samples {
		assert.InDelta(t, real(s)*2, real(got.ComplexPreResampleData[i]), 1e-5)
		assert.InDelta(t, imag(s)*2, imag(got.ComplexPreResampleData[i]), 1e-5)
	}
}

func TestPreProcessorDiscontinuityResetsDCBlocker(t *testing.T) {
	cfg := baseConfig()
	cfg.EnableDCBlock = true
	res := newTestResources(t, cfg)
	pre := pipeline.NewPreProcessor(res)

	// Prime the DC blocker's memory with an offset block, then send a
	// second block flagged as a discontinuity: its output must match what
	// a brand new DCBlocker would produce on that same block, not what a
	// primed one would.
	primer := freeChunk(t, res)
	offsetSamples := make(iqproc.SamplesC64, 64)
	for i := range offsetSamples {
		offsetSamples[i] = complex(0.5, 0.5)
	}
	raw, err := res.Converter.ConvertOut(nil, offsetSamples, cfg.InputFormat)
	require.NoError(t, err)
	copy(primer.RawInputData, raw)
	primer.FramesRead = len(offsetSamples)
	primer.InputBytesPerSamplePair = cfg.InputFormat.BytesPerSamplePair()
	require.True(t, res.Queues.RawToPre.Enqueue(primer))

	probe := freeChunk(t, res)
	probeSamples := toneSamples(32)
	raw, err = res.Converter.ConvertOut(nil, probeSamples, cfg.InputFormat)
	require.NoError(t, err)
	copy(probe.RawInputData, raw)
	probe.FramesRead = len(probeSamples)
	probe.InputBytesPerSamplePair = cfg.InputFormat.BytesPerSamplePair()
	probe.StreamDiscontinuityEvent = true
	probe.IsLastChunk = true
	require.True(t, res.Queues.RawToPre.Enqueue(probe))

	require.NoError(t, pre.Run(context.Background()))

	res.Queues.PreToRes.Dequeue() // primer's output, discarded
	got, ok := res.Queues.PreToRes.Dequeue()
	require.True(t, ok)

	fresh := dsp.NewDCBlocker(cfg.InputRate, dsp.DefaultDCBlockCutoffHz)
	want := append(iqproc.SamplesC64{}, probeSamples...)
	fresh.Process(want)

	assert.Equal(t, []complex64(want), []complex64(got.ComplexPreResampleData[:got.FramesToWrite]))
}

func TestPreProcessorZeroFrameChunkIsPassedThrough(t *testing.T) {
	cfg := baseConfig()
	res := newTestResources(t, cfg)
	pre := pipeline.NewPreProcessor(res)

	c := freeChunk(t, res)
	c.FramesRead = 0
	c.InputBytesPerSamplePair = cfg.InputFormat.BytesPerSamplePair()
	c.IsLastChunk = true
	require.True(t, res.Queues.RawToPre.Enqueue(c))
	require.NoError(t, pre.Run(context.Background()))

	got, ok := res.Queues.PreToRes.Dequeue()
	require.True(t, ok)
	assert.Equal(t, 0, got.FramesToWrite)
	assert.True(t, got.IsLastChunk)
}

// TestPreProcessorFlushesFilterOnLastChunk confirms the last chunk's
// pre-resample filter backlog (spec.md §4.4 step 7's "flushes on last
// chunk") is appended rather than dropped: the chunk forwarded downstream
// must carry more frames than were read once the filter's queued tail is
// folded in.
func TestPreProcessorFlushesFilterOnLastChunk(t *testing.T) {
	cfg := baseConfig()
	cfg.ForceFFTFilter = true
	cfg.Filters = []iqproc.FilterSpec{{Kind: iqproc.FilterLowpass, Freq: rf.Hz(8000)}}
	res := newTestResources(t, cfg)
	require.NotNil(t, res.Filters)
	res.FilterPostResample = false // exercise the pre-resample branch
	pre := pipeline.NewPreProcessor(res)

	c := freeChunk(t, res)
	samples := toneSamples(64)
	raw, err := res.Converter.ConvertOut(nil, samples, cfg.InputFormat)
	require.NoError(t, err)
	copy(c.RawInputData, raw)
	c.FramesRead = len(samples)
	c.InputBytesPerSamplePair = cfg.InputFormat.BytesPerSamplePair()
	c.IsLastChunk = true

	require.True(t, res.Queues.RawToPre.Enqueue(c))
	require.NoError(t, pre.Run(context.Background()))

	got, ok := res.Queues.PreToRes.Dequeue()
	require.True(t, ok)
	assert.Greater(t, got.FramesToWrite, len(samples))
}

// vim: foldmethod=marker
