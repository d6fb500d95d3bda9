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
	"fmt"
	"math"

	"hz.tools/iqproc"
	"hz.tools/rf"
)

// ResamplerOutputSafetyMargin is the number of extra output frames a
// Resampler's output buffer must have room for beyond the ideal
// ceil(n*ratio), spec.md §4.5: rational rate conversion doesn't land on an
// exact integer output count, and the polyphase accumulator's phase
// carries fractional position across Process calls.
const ResamplerOutputSafetyMargin = 128

// MaxOutputFrames returns the output contract Resampler.Process guarantees
// never to exceed for n input frames at the given ratio: spec.md §4.5's
// ceil(n*max(1,ratio)) + 128.
func MaxOutputFrames(n int, ratio float64) int {
	r := ratio
	if r < 1 {
		r = 1
	}
	return int(math.Ceil(float64(n)*r)) + ResamplerOutputSafetyMargin
}

// ErrInvalidRatio is returned by NewResampler for a non-positive or
// out-of-range resample ratio.
var ErrInvalidRatio = fmt.Errorf("dsp: resample ratio must be in [0.001, 1000]")

// Resampler performs rational-rate sample rate conversion using windowed-
// sinc polyphase interpolation, spec.md §4.5. A Resampler with ratio ==
// 1.0 is a passthrough (spec.md §4.5's NoResample/ratio==1 fast path):
// Process simply copies input to output with no filtering overhead.
type Resampler struct {
	ratio float64
	taps  []float32
	// fracPos is the resampler's current fractional read position into
	// the (conceptual) infinite input stream, carried across Process
	// calls so the output phase is continuous.
	fracPos float64
	history []complex64
	taplen  int
}

// NewResampler builds a Resampler converting inputRate to outputRate. A
// ratio of exactly 1.0 (or inputRate == outputRate) yields a passthrough
// resampler with no filtering cost.
func NewResampler(inputRate, outputRate uint32) (*Resampler, error) {
	if inputRate == 0 || outputRate == 0 {
		return nil, ErrInvalidRatio
	}
	ratio := float64(outputRate) / float64(inputRate)
	if ratio < 0.001 || ratio > 1000 {
		return nil, ErrInvalidRatio
	}
	if ratio == 1.0 {
		return &Resampler{ratio: 1.0}, nil
	}

	// Low-pass prototype at the tighter of the two Nyquist rates, to
	// reject images on upsampling and prevent aliasing on downsampling.
	cutoffRate := inputRate
	if outputRate < inputRate {
		cutoffRate = outputRate
	}
	taps := DesignLowpass(rf.Hz(cutoffRate)/2.2, inputRate, 63)
	r := &Resampler{ratio: ratio, taps: taps, taplen: len(taps)}
	r.history = make([]complex64, len(taps)-1)
	return r, nil
}

// Reset clears the resampler's internal phase and history, called on
// StreamDiscontinuityEvent.
func (r *Resampler) Reset() {
	r.fracPos = 0
	for i := range r.history {
		r.history[i] = 0
	}
}

// Process resamples src into dst, returning the slice of dst actually
// written. len(dst) must be at least MaxOutputFrames(len(src), ratio).
func (r *Resampler) Process(dst, src iqproc.SamplesC64) (iqproc.SamplesC64, error) {
	if r.ratio == 1.0 {
		n := copy(dst, src)
		return dst[:n], nil
	}

	h := len(r.history)
	window := make([]complex64, h+len(src))
	copy(window, r.history)
	copy(window[h:], src)

	var out int
	// Walk the output timeline; each output sample reads from a
	// fractional position in `window`, interpolated by the lowpass
	// prototype's nearest taps (zero-order-hold tap selection -- no
	// further fractional-delay interpolation within a tap).
	pos := r.fracPos
	step := 1.0 / r.ratio
	mid := r.taplen / 2

	for {
		center := h + pos
		ci := int(center)
		if ci+mid >= len(window) {
			break
		}
		var acc complex64
		for k, tap := range r.taps {
			idx := ci - mid + k
			if idx < 0 || idx >= len(window) {
				continue
			}
			acc += window[idx] * complex(tap, 0)
		}
		if out >= len(dst) {
			break
		}
		dst[out] = acc
		out++
		pos += step
	}

	consumed := len(src)
	r.fracPos = pos - float64(consumed)
	if h > 0 && len(src) >= h {
		copy(r.history, src[len(src)-h:])
	} else if h > 0 {
		copy(r.history, window[len(window)-h:])
	}

	return dst[:out], nil
}

// vim: foldmethod=marker
