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

// Package fft contains a common interface to perform FFTs between frequency
// and time-series complex data, used by the FFT overlap-save filter (dsp
// package, spec.md §4.8) and the IqOptimizer's forward FFT (spec.md §4.9).
//
// The Planner indirection is carried forward unchanged from the teacher: it
// lets the default, hz.tools/fftw-backed Plan function be swapped for a
// pure-Go planner in tests without either caller knowing the difference.
package fft

import (
	"fmt"

	"hz.tools/iqproc"
	"hz.tools/rf"
)

// Direction indicates if this is either a Forward or Backward FFT.
type Direction bool

var (
	// Forward reads the time-series 'iq' buffer, writing the computed
	// frequency-domain data into the 'frequency' slice.
	Forward Direction = true

	// Backward reads the 'frequency' slice, writing the generated
	// time-domain IQ data into the 'iq' buffer.
	Backward Direction = false
)

// Planner computes an FFT plan for the provided time-series and
// frequency-domain buffers. hz.tools/fftw.Plan is built on hz.tools/sdr
// types and does not satisfy this signature as-is; FFTWPlanner adapts it
// and is the planner pipeline.Run wires in.
type Planner func(
	iq iqproc.SamplesC64, frequency []complex64,
	direction Direction,
) (Plan, error)

// Plan performs an FFT or inverse FFT between the buffers it was created
// against.
type Plan interface {
	// Transform executes the generated plan.
	Transform() error

	// Close frees any resources or handles the plan allocated.
	Close() error
}

// TransformOnce performs either a time-to-frequency or frequency-to-time
// transform a single time. If called repeatedly, use the Planner directly
// and keep the Plan around: for FFTW-backed planners especially, planning
// is the expensive part.
func TransformOnce(
	planner Planner,
	iq iqproc.SamplesC64,
	frequency []complex64,
	direction Direction,
) error {
	plan, err := planner(iq, frequency, direction)
	if err != nil {
		return err
	}
	defer plan.Close()
	return plan.Transform()
}

// ErrFrequencyOutOfSamplingRange is returned when a target frequency falls
// outside the sampling rate's Nyquist range.
var ErrFrequencyOutOfSamplingRange = fmt.Errorf("fft: target frequency is out of sampling rate")

// Nyquist is half the sampling rate.
func Nyquist(sampleRate uint32) rf.Hz {
	return rf.Hz(sampleRate) / 2
}

// BinBandwidth is the frequency span, in Hz, represented by a single FFT
// bin of the given length at the given sample rate.
func BinBandwidth(length int, sampleRate uint32) rf.Hz {
	return rf.Hz(float32(sampleRate) / float32(length))
}

// BinByFreq returns the zero-first-order bin index (0 at DC, increasing
// through positive frequencies, wrapping to negative frequencies past the
// midpoint) nearest the given frequency.
func BinByFreq(length int, sampleRate uint32, freq rf.Hz) (int, error) {
	nyquist := Nyquist(sampleRate)
	if freq > nyquist || freq <= -nyquist {
		return 0, ErrFrequencyOutOfSamplingRange
	}
	bin := int(freq / BinBandwidth(length, sampleRate))
	if bin < 0 {
		return length + bin, nil
	}
	return bin, nil
}

// SymmetricBin returns the image bin for a zero-first-order bin index: the
// bin an I/Q imbalance mirrors energy into. Used by the IqOptimizer
// (spec.md §4.9 step 3) to measure image-to-signal ratio.
func SymmetricBin(length, bin int) int {
	if bin == 0 {
		return 0
	}
	return length - bin
}

// vim: foldmethod=marker
