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

	"github.com/stretchr/testify/require"

	"hz.tools/iqproc"
	"hz.tools/iqproc/dsp"
	"hz.tools/iqproc/fft"
	"hz.tools/rf"
)

func TestBuildFilterChainLowpassIsFIR(t *testing.T) {
	chain, err := dsp.BuildFilterChain(fft.NaivePlanner, 48000, []iqproc.FilterSpec{
		{Kind: iqproc.FilterLowpass, Freq: rf.Hz(8000)},
	}, false, 0)
	require.NoError(t, err)
	require.NotNil(t, chain)

	src := make(iqproc.SamplesC64, 256)
	for i := range src {
		src[i] = complex(1, 0)
	}
	scratch := make(iqproc.SamplesC64, 256)
	out, err := chain.Process(src, scratch)
	require.NoError(t, err)
	require.Len(t, out, 256)
}

func TestBuildFilterChainBandpassIsFFT(t *testing.T) {
	chain, err := dsp.BuildFilterChain(fft.NaivePlanner, 48000, []iqproc.FilterSpec{
		{Kind: iqproc.FilterBandpass, Freq: rf.Hz(5000), Bandwidth: rf.Hz(2000)},
	}, false, 0)
	require.NoError(t, err)
	require.NotNil(t, chain)
}

func TestBuildFilterChainRejectsTooManyFilters(t *testing.T) {
	specs := make([]iqproc.FilterSpec, iqproc.MaxFilterChain+1)
	for i := range specs {
		specs[i] = iqproc.FilterSpec{Kind: iqproc.FilterLowpass, Freq: rf.Hz(1000)}
	}
	_, err := dsp.BuildFilterChain(fft.NaivePlanner, 48000, specs, false, 0)
	require.Error(t, err)
}

func TestCompositeMaxPassbandHzLowpassBounds(t *testing.T) {
	edge := dsp.CompositeMaxPassbandHz([]iqproc.FilterSpec{
		{Kind: iqproc.FilterLowpass, Freq: rf.Hz(8000)},
	}, 48000)
	require.Equal(t, rf.Hz(8000), edge)
}

func TestCompositeMaxPassbandHzTakesTightestBound(t *testing.T) {
	edge := dsp.CompositeMaxPassbandHz([]iqproc.FilterSpec{
		{Kind: iqproc.FilterLowpass, Freq: rf.Hz(8000)},
		{Kind: iqproc.FilterBandpass, Freq: rf.Hz(3000), Bandwidth: rf.Hz(1000)},
	}, 48000)
	require.Equal(t, rf.Hz(3500), edge)
}

func TestCompositeMaxPassbandHzHighpassIsUnbounded(t *testing.T) {
	edge := dsp.CompositeMaxPassbandHz([]iqproc.FilterSpec{
		{Kind: iqproc.FilterHighpass, Freq: rf.Hz(1000)},
	}, 48000)
	require.Equal(t, rf.Hz(24000), edge)
}

// vim: foldmethod=marker
