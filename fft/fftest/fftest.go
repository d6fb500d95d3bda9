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

// Package fftest is a reusable conformance suite for fft.Planner
// implementations. In this module it is run against fft.NaivePlanner;
// any other Planner can be passed to Run.
package fftest

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"

	"hz.tools/iqproc"
	"hz.tools/iqproc/fft"
	"hz.tools/rf"
)

func generateCw(buf iqproc.SamplesC64, freq rf.Hz, sampleRate int, phase float64) {
	carrierFreq := float64(freq)
	tau := math.Pi * 2
	for i := range buf {
		now := float64(i) / float64(sampleRate)
		buf[i] = complex64(complex(
			math.Cos(tau*carrierFreq*now+phase),
			math.Sin(tau*carrierFreq*now+phase),
		))
	}
}

type testFrequency struct {
	Frequency rf.Hz
	Index     int
}

// Run runs the standard FFT conformance tests against the provided Planner.
func Run(t *testing.T, planner fft.Planner) {
	t.Run("ForwardFFT", func(t *testing.T) {
		testForwardFFT(t, planner)
	})
	t.Run("BackwardFFT", func(t *testing.T) {
		testBackwardFFT(t, planner)
	})
	t.Run("MismatchedSamples", func(t *testing.T) {
		testMismatchDstFFT(t, planner)
	})
}

func testForwardFFT(t *testing.T, planner fft.Planner) {
	cwPhase0 := make(iqproc.SamplesC64, 1024)
	out := make([]complex64, 1024)

	for _, tfreq := range []testFrequency{
		{Frequency: rf.Hz(10), Index: 0},
		{Frequency: rf.Hz(900000), Index: 512},
		{Frequency: rf.Hz(450000), Index: 256},
		{Frequency: rf.Hz(225000), Index: 128},
	} {
		generateCw(cwPhase0, tfreq.Frequency, 1.8e6, 0)

		plan, err := planner(cwPhase0, out, fft.Forward)
		assert.NoError(t, err)
		assert.NoError(t, plan.Transform())
		assert.NoError(t, plan.Close())

		powerMax := 0.0
		powerI := -1
		for i := range out {
			p := cmplx.Abs(complex128(out[i]))
			if p > powerMax {
				powerMax = p
				powerI = i
			}
		}
		assert.Equal(t, tfreq.Index, powerI)
	}
}

func testBackwardFFT(t *testing.T, planner fft.Planner) {
	for _, bin := range []int{5, 10, 127, 522, 242, 415, 825} {
		iq := make(iqproc.SamplesC64, 1024)
		freq := make([]complex64, 1024)
		freq[bin] = 1 + 1i

		plan, err := planner(iq, freq, fft.Backward)
		assert.NoError(t, err)
		assert.NoError(t, plan.Transform())
		assert.NoError(t, plan.Close())

		freq[bin] = 0
		plan, err = planner(iq, freq, fft.Forward)
		assert.NoError(t, err)
		assert.NoError(t, plan.Transform())
		assert.NoError(t, plan.Close())

		powerMax := 0.0
		powerI := -1
		for i := range freq {
			p := cmplx.Abs(complex128(freq[i]))
			if p > powerMax {
				powerMax = p
				powerI = i
			}
		}
		assert.Equal(t, bin, powerI)
	}
}

func testMismatchDstFFT(t *testing.T, planner fft.Planner) {
	iq := make(iqproc.SamplesC64, 1024)
	freq := make([]complex64, 128)
	_, err := planner(iq, freq, fft.Forward)
	assert.Equal(t, fft.ErrDstTooSmall, err)

	iq = make(iqproc.SamplesC64, 128)
	freq = make([]complex64, 1024)
	_, err = planner(iq, freq, fft.Backward)
	assert.Equal(t, fft.ErrDstTooSmall, err)
}

// vim: foldmethod=marker
