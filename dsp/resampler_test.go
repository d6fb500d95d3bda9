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
)

func TestResamplerPassthroughWhenRatioIsOne(t *testing.T) {
	r, err := dsp.NewResampler(48000, 48000)
	require.NoError(t, err)

	src := iqproc.SamplesC64{1, 2, 3, 4}
	dst := make(iqproc.SamplesC64, dsp.MaxOutputFrames(len(src), 1.0))
	out, err := r.Process(dst, src)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestResamplerRejectsOutOfRangeRatio(t *testing.T) {
	_, err := dsp.NewResampler(48000, 0)
	assert.Error(t, err)

	_, err = dsp.NewResampler(0, 48000)
	assert.Error(t, err)
}

func TestResamplerOutputContract(t *testing.T) {
	r, err := dsp.NewResampler(48000, 96000)
	require.NoError(t, err)

	n := 512
	src := make(iqproc.SamplesC64, n)
	for i := range src {
		src[i] = complex(1, 0)
	}
	maxOut := dsp.MaxOutputFrames(n, 2.0)
	dst := make(iqproc.SamplesC64, maxOut)

	out, err := r.Process(dst, src)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), maxOut)
}

func TestResamplerResetClearsHistoryAndPhase(t *testing.T) {
	r, err := dsp.NewResampler(48000, 24000)
	require.NoError(t, err)

	src := make(iqproc.SamplesC64, 256)
	for i := range src {
		src[i] = complex(1, 0)
	}
	dst := make(iqproc.SamplesC64, dsp.MaxOutputFrames(len(src), 0.5))
	_, err = r.Process(dst, src)
	require.NoError(t, err)

	r.Reset()

	fresh, err := dsp.NewResampler(48000, 24000)
	require.NoError(t, err)

	smallSrc := iqproc.SamplesC64{1}
	dstA := make(iqproc.SamplesC64, dsp.MaxOutputFrames(1, 0.5))
	dstB := make(iqproc.SamplesC64, dsp.MaxOutputFrames(1, 0.5))
	outA, _ := r.Process(dstA, smallSrc)
	outB, _ := fresh.Process(dstB, smallSrc)
	assert.Equal(t, len(outB), len(outA))
}

// vim: foldmethod=marker
