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
	"math"

	"hz.tools/iqproc"
)

// ErrDstTooSmall is returned by NaivePlanner when the time and frequency
// domain buffers it was handed are not the same length.
var ErrDstTooSmall = fmt.Errorf("fft: destination buffer too small")

// NaivePlanner is a dependency-free O(n^2) DFT Planner. It is used by the
// package's own tests (so fft's conformance suite, and dsp's filter tests,
// don't require cgo-backed FFTW), and is available as a correctness
// reference for any other Planner.
//
// FFTWPlanner (which wraps hz.tools/fftw.Plan) is the production planner
// wired in by pipeline.Run; NaivePlanner is not registered anywhere at
// runtime.
func NaivePlanner(
	iq iqproc.SamplesC64, frequency []complex64,
	direction Direction,
) (Plan, error) {
	if len(iq) != len(frequency) {
		return nil, ErrDstTooSmall
	}
	return &naivePlan{iq: iq, frequency: frequency, direction: direction}, nil
}

type naivePlan struct {
	iq        iqproc.SamplesC64
	frequency []complex64
	direction Direction
}

func (p *naivePlan) Close() error { return nil }

func (p *naivePlan) Transform() error {
	n := len(p.iq)
	if n == 0 {
		return nil
	}
	if p.direction == Forward {
		naiveDFT(p.iq, p.frequency, -1)
		return nil
	}
	naiveDFT(p.frequency, p.iq, 1)
	for i := range p.iq {
		p.iq[i] /= complex(float32(n), 0)
	}
	return nil
}

// naiveDFT computes out[k] = sum_n in[n] * exp(sign*2*pi*i*k*n/N).
func naiveDFT(in []complex64, out []complex64, sign float64) {
	n := len(in)
	for k := 0; k < n; k++ {
		var sum complex128
		for t := 0; t < n; t++ {
			theta := sign * 2 * math.Pi * float64(k) * float64(t) / float64(n)
			sum += complex128(in[t]) * complex(math.Cos(theta), math.Sin(theta))
		}
		out[k] = complex64(sum)
	}
}

// vim: foldmethod=marker
