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
	"math/cmplx"

	"hz.tools/iqproc"
	"hz.tools/rf"
)

// NCO is a numerically-controlled oscillator used for frequency shifting,
// spec.md §4.4 step 4 and §4.6 step 1 (ShiftAfterResample). It generalizes
// the teacher's shiftReader's phase-accumulator loop into a stateful,
// resettable component that the PreProcessor or PostProcessor stage can
// drive directly against a SampleChunk's buffer, rather than through a
// Reader adapter.
type NCO struct {
	inc   float64
	phase float64
	shift float64
}

// NewNCO builds an NCO that shifts a stream sampled at sampleRate by shift
// Hz: every component moves up by shift Hz, so a carrier at -shift Hz
// lands on DC.
func NewNCO(sampleRate uint32, shift rf.Hz) *NCO {
	return &NCO{
		inc:   1 / float64(sampleRate),
		shift: float64(shift),
	}
}

// Reset zeroes the phase accumulator; called on StreamDiscontinuityEvent so
// the shift doesn't carry a phase jump across the discontinuity.
func (n *NCO) Reset() {
	n.phase = 0
}

// SetShift changes the shift frequency without resetting phase continuity.
func (n *NCO) SetShift(shift rf.Hz) {
	n.shift = float64(shift)
}

// Process multiplies buf in place by e^(j*2*pi*shift*t), advancing the
// internal phase accumulator sample-by-sample. The accumulator tracks
// phase directly (radians, wrapped mod 2*pi) rather than elapsed time, so
// wrapping never injects a discontinuity into the generated carrier.
func (n *NCO) Process(buf iqproc.SamplesC64) {
	tau := math.Pi * 2
	for i := range buf {
		buf[i] = buf[i] * complex64(cmplx.Exp(complex(0, n.phase)))
		n.phase += tau * n.shift * n.inc
		if n.phase > tau {
			n.phase -= tau
		} else if n.phase < -tau {
			n.phase += tau
		}
	}
}

// vim: foldmethod=marker
