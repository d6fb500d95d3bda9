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

package dsp

import (
	"hz.tools/iqproc"
)

// FIRFilter is a direct-form time-domain FIR filter over real, symmetric
// taps, selected by the filter chain (spec.md §4.8) whenever a filter's
// taps are real and symmetric: cheaper per-sample than an FFT block filter
// at the tap counts a lowpass/highpass corner typically needs.
//
// FIRFilter keeps a taps-1-sample history line across Process calls so
// filtering is continuous across SampleChunk boundaries; Reset clears it
// on a stream discontinuity.
type FIRFilter struct {
	taps    []float32
	history []complex64
}

// NewFIRFilter builds a FIRFilter from the given real tap coefficients.
func NewFIRFilter(taps []float32) *FIRFilter {
	return &FIRFilter{
		taps:    taps,
		history: make([]complex64, len(taps)-1),
	}
}

// Reset clears the filter's history line.
func (f *FIRFilter) Reset() {
	for i := range f.history {
		f.history[i] = 0
	}
}

// Len returns the number of taps.
func (f *FIRFilter) Len() int {
	return len(f.taps)
}

// Process filters src into dst (which may alias src), using and updating
// the filter's history line. len(dst) must be >= len(src). The returned
// slice is dst[:len(src)]; FIRFilter never changes sample count, matching
// the FFTFilter.Process signature so the filter chain can treat both
// uniformly.
func (f *FIRFilter) Process(dst, src iqproc.SamplesC64) (iqproc.SamplesC64, error) {
	n := len(src)
	h := len(f.history)

	// Build a working window of history ++ src so indexing is uniform;
	// avoids a from-scratch history/tap convolution split per sample.
	window := make([]complex64, h+n)
	copy(window, f.history)
	copy(window[h:], src)

	for i := 0; i < n; i++ {
		var acc complex64
		for k, tap := range f.taps {
			acc += window[i+h-k] * complex(tap, 0)
		}
		dst[i] = acc
	}

	if h > 0 {
		copy(f.history, window[n:n+h])
	}
	return dst[:n], nil
}

// FlushCapacity is always 0: FIRFilter's history line affects the
// *content* of later output, but never owes any additional samples the
// way a block filter's remainder buffer does.
func (f *FIRFilter) FlushCapacity() int {
	return 0
}

// Flush is a no-op; FIRFilter never queues output behind Process's 1:1
// return.
func (f *FIRFilter) Flush() (iqproc.SamplesC64, error) {
	return nil, nil
}

// vim: foldmethod=marker
