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
	"math"

	"hz.tools/iqproc"
)

// DefaultDCBlockCutoffHz is the DC blocker's single-pole corner frequency,
// spec.md §4.4 step 2.
const DefaultDCBlockCutoffHz = 10.0

// DCBlocker is a single-pole complex high-pass filter used to remove the DC
// spike SDR front ends leave at 0 Hz, spec.md §4.4 step 2. It carries state
// (the previous input and output sample) across Process calls and must be
// Reset on a stream discontinuity.
type DCBlocker struct {
	alpha  float32
	prevIn complex64
	prevOu complex64
}

// NewDCBlocker builds a DCBlocker for the given sample rate, with corner
// frequency cutoffHz.
func NewDCBlocker(sampleRate uint32, cutoffHz float64) *DCBlocker {
	w := 2 * math.Pi * cutoffHz / float64(sampleRate)
	alpha := float32(1 / (1 + w))
	return &DCBlocker{alpha: alpha}
}

// Reset clears the filter's memory; called on StreamDiscontinuityEvent.
func (d *DCBlocker) Reset() {
	d.prevIn = 0
	d.prevOu = 0
}

// Process runs the DC blocker over buf in place.
//
// y[n] = x[n] - x[n-1] + alpha*y[n-1]
func (d *DCBlocker) Process(buf iqproc.SamplesC64) {
	for i := range buf {
		x := buf[i]
		y := x - d.prevIn + complex(d.alpha, 0)*d.prevOu
		d.prevIn = x
		d.prevOu = y
		buf[i] = y
	}
}

// vim: foldmethod=marker
