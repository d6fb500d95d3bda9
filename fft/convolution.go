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
	"fmt"
)

// ConvolveFreq plans a convolution of frequency-domain taps against
// time-series I/Q data, returning a function that repeatedly performs the
// convolution. The result is written to dst; dst may safely be src.
//
// This is the overlap-save FFT filter's core (dsp package, spec.md §4.8):
// src is one zero-padded block of input samples, freq is the filter's
// precomputed frequency-domain response (the same length as src), and dst
// receives the filtered, still-overlapping block for the caller to trim.
func ConvolveFreq(
	planner Planner,
	dst []complex64,
	src []complex64,
	freq []complex64,
) (func() error, error) {
	if len(src) != len(dst) || len(src) != len(freq) {
		return nil, fmt.Errorf("fft.ConvolveFreq: lengths do not match exactly")
	}

	scratch := make([]complex64, len(src))

	planForward, err := planner(src, scratch, Forward)
	if err != nil {
		return nil, err
	}
	planBackward, err := planner(dst, scratch, Backward)
	if err != nil {
		return nil, err
	}

	return func() error {
		if err := planForward.Transform(); err != nil {
			return err
		}
		for i := range scratch {
			scratch[i] = scratch[i] * freq[i]
		}
		return planBackward.Transform()
	}, nil
}

// ConvolveFreqOnce performs a one-off frequency-domain convolution. If this
// is called repeatedly against buffers of the same length, prefer
// ConvolveFreq directly and reuse the returned closure: FFTW-backed
// planners amortize planning cost across repeated Transform calls.
func ConvolveFreqOnce(
	planner Planner,
	dst []complex64,
	src []complex64,
	freq []complex64,
) error {
	conv, err := ConvolveFreq(planner, dst, src, freq)
	if err != nil {
		return err
	}
	return conv()
}

// vim: foldmethod=marker
