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
	"sync/atomic"

	"hz.tools/iqproc"
)

// iqCorrection holds one immutable (magnitude, phase) correction pair. A
// *iqCorrection is swapped in atomically by the IqOptimizer stage so the
// PreProcessor never blocks on a lock to read the live correction factors,
// per spec.md §4.4 step 6 / §4.9 / §5's double-buffered update discipline.
type iqCorrection struct {
	magnitude float32
	phase     float32
	sinPhase  float32
	cosPhase  float32
}

// IQCorrector applies gain/phase I/Q imbalance correction, spec.md §4.4
// step 6: Q' = (Q - magnitude*I*sin(phase)) / cos(phase).
type IQCorrector struct {
	current atomic.Pointer[iqCorrection]
}

// NewIQCorrector builds an IQCorrector with the identity correction
// (magnitude 1, phase 0 -- a no-op until the IqOptimizer converges).
func NewIQCorrector() *IQCorrector {
	c := &IQCorrector{}
	c.Set(1, 0)
	return c
}

// Set atomically installs a new correction pair. Called by the IqOptimizer
// stage (spec.md §4.9) after each gradient-descent pass; never blocks a
// concurrent Process call.
func (c *IQCorrector) Set(magnitude, phase float32) {
	c.current.Store(&iqCorrection{
		magnitude: magnitude,
		phase:     phase,
		sinPhase:  float32(math.Sin(float64(phase))),
		cosPhase:  float32(math.Cos(float64(phase))),
	})
}

// Get returns the currently installed (magnitude, phase) pair.
func (c *IQCorrector) Get() (magnitude, phase float32) {
	cur := c.current.Load()
	return cur.magnitude, cur.phase
}

// Process applies the live correction factors to buf in place.
func (c *IQCorrector) Process(buf iqproc.SamplesC64) {
	cur := c.current.Load()
	if cur.magnitude == 1 && cur.phase == 0 {
		return
	}
	for i := range buf {
		s := buf[i]
		i0 := real(s)
		q0 := imag(s)
		q1 := (q0 - cur.magnitude*i0*cur.sinPhase) / cur.cosPhase
		buf[i] = complex(i0, q1)
	}
}

// vim: foldmethod=marker
