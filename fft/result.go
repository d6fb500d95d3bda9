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

	"hz.tools/rf"
)

// Order specifies what order an FFT result slice is in.
type Order bool

var (
	// ZeroFirst indicates the slice starts at 0 Hz, increases through
	// positive frequencies to the positive Nyquist edge, then continues
	// from the negative Nyquist edge back to 0 -- the native layout most
	// FFT implementations (including FFTW) produce.
	ZeroFirst Order = false

	// NegativeFirst is the human-readable layout, negative Nyquist edge
	// through to the positive Nyquist edge with 0 Hz centered.
	NegativeFirst Order = true
)

// FrequencySlice wraps a frequency-domain result with the sample rate and
// bin order needed to make sense of it.
type FrequencySlice struct {
	Frequency  []complex64
	SampleRate uint32
	Order      Order
}

// NewFrequencySlice wraps a forward-FFT result.
func NewFrequencySlice(frequency []complex64, sampleRate uint32, order Order) FrequencySlice {
	return FrequencySlice{Frequency: frequency, SampleRate: sampleRate, Order: order}
}

// Shift toggles a FrequencySlice between ZeroFirst and NegativeFirst order
// in place, swapping the two halves of the buffer.
func (r FrequencySlice) Shift() (FrequencySlice, error) {
	switch r.Order {
	case ZeroFirst, NegativeFirst:
	default:
		return r, fmt.Errorf("fft.FrequencySlice.Shift: unknown fft layout")
	}
	zero := len(r.Frequency) / 2
	for i := 0; i < zero; i++ {
		r.Frequency[i], r.Frequency[i+zero] = r.Frequency[i+zero], r.Frequency[i]
	}
	r.Order = !r.Order
	return r, nil
}

// BinByFreq returns the bin index nearest freq, honoring this slice's
// Order.
func (r FrequencySlice) BinByFreq(freq rf.Hz) (int, error) {
	switch r.Order {
	case ZeroFirst:
		return BinByFreq(len(r.Frequency), r.SampleRate, freq)
	case NegativeFirst:
		nyquist := Nyquist(r.SampleRate)
		if freq > nyquist || freq <= -nyquist {
			return 0, ErrFrequencyOutOfSamplingRange
		}
		bin := int(freq / BinBandwidth(len(r.Frequency), r.SampleRate))
		return len(r.Frequency)/2 + bin, nil
	default:
		return 0, fmt.Errorf("fft.FrequencySlice.BinByFreq: unknown fft layout")
	}
}

// vim: foldmethod=marker
