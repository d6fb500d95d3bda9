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

func TestFIRFilterIdentityKernel(t *testing.T) {
	// A single-tap [1] kernel is the identity filter.
	f := dsp.NewFIRFilter([]float32{1})
	src := iqproc.SamplesC64{1, 2, 3, 4}
	dst := make(iqproc.SamplesC64, len(src))

	out, err := f.Process(dst, src)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestFIRFilterHistoryCarriesAcrossCalls(t *testing.T) {
	// A simple 2-tap moving average: y[n] = 0.5*x[n] + 0.5*x[n-1].
	f := dsp.NewFIRFilter([]float32{0.5, 0.5})

	src1 := iqproc.SamplesC64{2, 4}
	dst1 := make(iqproc.SamplesC64, 2)
	out1, err := f.Process(dst1, src1)
	require.NoError(t, err)
	// First sample has no history (implicit zero), so y[0] = 0.5*2 = 1.
	assert.Equal(t, complex64(1), out1[0])
	assert.Equal(t, complex64(3), out1[1]) // 0.5*4 + 0.5*2

	src2 := iqproc.SamplesC64{6}
	dst2 := make(iqproc.SamplesC64, 1)
	out2, err := f.Process(dst2, src2)
	require.NoError(t, err)
	assert.Equal(t, complex64(5), out2[0]) // 0.5*6 + 0.5*4, history carried over
}

func TestFIRFilterResetClearsHistory(t *testing.T) {
	f := dsp.NewFIRFilter([]float32{0.5, 0.5})
	src := iqproc.SamplesC64{10}
	dst := make(iqproc.SamplesC64, 1)
	f.Process(dst, src)
	f.Reset()

	fresh := dsp.NewFIRFilter([]float32{0.5, 0.5})
	src2 := iqproc.SamplesC64{7}
	dst2a := make(iqproc.SamplesC64, 1)
	dst2b := make(iqproc.SamplesC64, 1)
	out1, _ := f.Process(dst2a, src2)
	out2, _ := fresh.Process(dst2b, src2)
	assert.Equal(t, out2[0], out1[0])
}

// vim: foldmethod=marker
