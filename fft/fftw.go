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

package fft

import (
	"hz.tools/fftw"
	"hz.tools/iqproc"
	"hz.tools/sdr"
	sdrfft "hz.tools/sdr/fft"
)

// FFTWPlanner adapts hz.tools/fftw.Plan -- the cgo-backed FFTW planner
// hztools-go-fm wires straight into its sdr/fft.Planner slot -- to this
// package's Planner type. It is the production default: dsp.BuildFilterChain
// and dsp.NewFFTFilter expect a Planner that doesn't allocate per-call, and
// NaivePlanner's O(n^2) DFT is only fast enough for test-sized buffers.
//
// The conversions below are plain type conversions, not copies: iqproc's
// and hz.tools/sdr's SamplesC64/Direction types share an underlying
// []complex64/bool representation, so this adapter costs nothing beyond
// the function call itself.
func FFTWPlanner(iq iqproc.SamplesC64, frequency []complex64, direction Direction) (Plan, error) {
	plan, err := fftw.Plan(sdr.SamplesC64(iq), frequency, sdrfft.Direction(direction))
	if err != nil {
		return nil, err
	}
	return fftwPlanAdapter{plan}, nil
}

type fftwPlanAdapter struct {
	plan sdrfft.Plan
}

func (a fftwPlanAdapter) Transform() error {
	return a.plan.Transform()
}

func (a fftwPlanAdapter) Close() error {
	return a.plan.Close()
}

// vim: foldmethod=marker
