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

package dsp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hz.tools/iqproc"
	"hz.tools/iqproc/dsp"
	"hz.tools/iqproc/fft"
)

func TestFFTFilterIdentityKernelPassesThrough(t *testing.T) {
	taps := 1
	blockSize := 64
	kernel := []complex64{1}

	freq, err := dsp.BuildFFTResponse(fft.NaivePlanner, kernel, blockSize)
	require.NoError(t, err)

	f := dsp.NewFFTFilter(fft.NaivePlanner, freq, taps)

	src := make(iqproc.SamplesC64, blockSize)
	for i := range src {
		src[i] = complex(float32(i), 0)
	}
	dst := make(iqproc.SamplesC64, blockSize+dsp.ResamplerOutputSafetyMargin)

	out, err := f.Process(dst, src)
	require.NoError(t, err)
	require.Len(t, out, blockSize)
	for i := range out {
		assert.InDelta(t, real(src[i]), real(out[i]), 1e-3)
	}
}

// TestFFTFilterProcessIsAlwaysOneToOne confirms Process returns exactly
// len(src) samples on every call, even while the block is still filling up
// (spec.md §4.4: "frames_to_write is set equal to frames_read ... the block
// delay is absorbed by the remainder buffer"). The deficit during warm-up is
// absorbed as zero-padding rather than a short return.
func TestFFTFilterProcessIsAlwaysOneToOne(t *testing.T) {
	taps := 5
	blockSize := 16
	kernel := make([]complex64, taps)
	kernel[0] = 1 // identity-ish kernel (only the first tap is nonzero)

	freq, err := dsp.BuildFFTResponse(fft.NaivePlanner, kernel, blockSize)
	require.NoError(t, err)
	f := dsp.NewFFTFilter(fft.NaivePlanner, freq, taps)

	dst := make(iqproc.SamplesC64, 64)

	// Feed fewer samples than a full block: still must return 4 samples.
	small := make(iqproc.SamplesC64, 4)
	out, err := f.Process(dst, small)
	require.NoError(t, err)
	require.Len(t, out, 4)

	// A second call that completes the block plus a bit more must still
	// return exactly as many samples as were passed in.
	rest := make(iqproc.SamplesC64, blockSize)
	out, err = f.Process(dst, rest)
	require.NoError(t, err)
	require.Len(t, out, blockSize)
}

// TestFFTFilterFlushDrainsBacklog confirms the filter's queued backlog (the
// block delay that Process absorbed as zero-padding) is recovered via
// Flush at end of stream, bounded by FlushCapacity, and that a second Flush
// call with nothing left queued is a no-op.
func TestFFTFilterFlushDrainsBacklog(t *testing.T) {
	taps := 5
	blockSize := 16
	kernel := make([]complex64, taps)
	kernel[0] = 1

	freq, err := dsp.BuildFFTResponse(fft.NaivePlanner, kernel, blockSize)
	require.NoError(t, err)
	f := dsp.NewFFTFilter(fft.NaivePlanner, freq, taps)

	dst := make(iqproc.SamplesC64, 64)
	src := make(iqproc.SamplesC64, blockSize+5)
	out, err := f.Process(dst, src)
	require.NoError(t, err)
	require.Len(t, out, len(src))

	tail, err := f.Flush()
	require.NoError(t, err)
	assert.NotEmpty(t, tail)
	assert.LessOrEqual(t, len(tail), f.FlushCapacity())

	again, err := f.Flush()
	require.NoError(t, err)
	assert.Len(t, again, 0)
}

// vim: foldmethod=marker
