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

	"hz.tools/rf"
)

// BlackmanWindow generates a size-length Blackman window, the same
// windowing function the teacher's (experimental) stream.WindowWriter
// applies to a block of samples. Used both to taper a windowed-sinc
// filter kernel's edges and by the IqOptimizer
// (spec.md §4.9 step 2) to window an accumulated sample block before its
// forward FFT.
func BlackmanWindow(size int) []float32 {
	return blackmanWindow(size)
}

func blackmanWindow(size int) []float32 {
	buf := make([]float32, size)
	const (
		a0 = 0.42
		a1 = 0.5
		a2 = 0.08
	)
	for i := range buf {
		buf[i] = float32(a0 -
			a1*math.Cos((2*math.Pi*float64(i))/float64(size-1)) +
			a2*math.Cos((4*math.Pi*float64(i))/float64(size-1)))
	}
	return buf
}

// sinc is the normalized sinc function, sin(pi*x)/(pi*x), with sinc(0)=1.
func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	return math.Sin(math.Pi*x) / (math.Pi * x)
}

// DesignLowpass builds a real, symmetric windowed-sinc lowpass FIR kernel
// with the given corner frequency and odd tap count, spec.md §4.8.
func DesignLowpass(cutoff rf.Hz, sampleRate uint32, taps int) []float32 {
	if taps%2 == 0 {
		taps++
	}
	fc := float64(cutoff) / float64(sampleRate)
	mid := (taps - 1) / 2
	kernel := make([]float64, taps)
	for i := 0; i < taps; i++ {
		n := i - mid
		kernel[i] = 2 * fc * sinc(2*fc*float64(n))
	}
	window := blackmanWindow(taps)

	var sum float64
	out := make([]float32, taps)
	for i := range kernel {
		out[i] = float32(kernel[i]) * window[i]
		sum += float64(out[i])
	}
	// Normalize DC gain to unity.
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// DesignHighpass builds a real, symmetric FIR highpass kernel by spectral
// inversion of a lowpass kernel of the same length, spec.md §4.8.
func DesignHighpass(cutoff rf.Hz, sampleRate uint32, taps int) []float32 {
	lp := DesignLowpass(cutoff, sampleRate, taps)
	out := make([]float32, len(lp))
	mid := len(lp) / 2
	for i := range lp {
		out[i] = -lp[i]
	}
	out[mid] += 1
	return out
}

// vim: foldmethod=marker
