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

	"hz.tools/iqproc"
	"hz.tools/iqproc/fft"
	"hz.tools/rf"
)

// Filter is the common shape of a single FIR or FFT-block filter stage, so
// FilterChain can drive either uniformly, spec.md §4.8. Process always
// returns exactly len(src) samples; a filter with internal latency queues
// any backlog instead of varying its return length, and surfaces that
// backlog only through Flush at end of stream.
type Filter interface {
	Reset()
	Process(dst, src iqproc.SamplesC64) (iqproc.SamplesC64, error)

	// Flush drains whatever output this filter still owes beyond what
	// Process has already returned. Called once, on the last chunk.
	Flush() (iqproc.SamplesC64, error)

	// FlushCapacity upper-bounds Flush's return length, so callers can
	// size a destination buffer's spare capacity up front.
	FlushCapacity() int
}

// DefaultFFTFilterTaps is the kernel length the chain designs for every
// filter, FIR and FFT alike. AppConfig.FilterBlockSize changes only an FFT
// filter's block size, never this tap count.
const DefaultFFTFilterTaps = 127

// FilterChain runs up to iqproc.MaxFilterChain filters in series, spec.md
// §4.8. Each FilterSpec is independently placed on FIR or FFT based on its
// kind: Lowpass/Highpass produce real symmetric taps (FIR-eligible);
// Bandpass/Bandstop are built from a complex (frequency-shifted) kernel and
// always run as FFT blocks, since a real symmetric FIR cannot express an
// asymmetric passband. ForceFFTFilter overrides every filter to FFT,
// regardless of kind, for callers that want to benchmark or prefer FFT's
// flatter CPU profile at high tap counts.
type FilterChain struct {
	filters []Filter
}

// BuildFilterChain designs and constructs the filter chain for the given
// specs, sample rate, planner and block size override (0 means "use
// DefaultFFTFilterTaps's next-power-of-two block").
func BuildFilterChain(
	planner fft.Planner,
	sampleRate uint32,
	specs []iqproc.FilterSpec,
	forceFFT bool,
	blockSizeOverride int,
) (*FilterChain, error) {
	if len(specs) > iqproc.MaxFilterChain {
		return nil, fmt.Errorf("dsp: filter chain exceeds maximum of %d filters", iqproc.MaxFilterChain)
	}

	chain := &FilterChain{}
	for _, spec := range specs {
		filter, err := buildFilter(planner, sampleRate, spec, forceFFT, blockSizeOverride)
		if err != nil {
			return nil, err
		}
		chain.filters = append(chain.filters, filter)
	}
	return chain, nil
}

func buildFilter(
	planner fft.Planner,
	sampleRate uint32,
	spec iqproc.FilterSpec,
	forceFFT bool,
	blockSizeOverride int,
) (Filter, error) {
	symmetric := spec.Kind == iqproc.FilterLowpass || spec.Kind == iqproc.FilterHighpass

	taps := DefaultFFTFilterTaps
	var realTaps []float32
	switch spec.Kind {
	case iqproc.FilterLowpass:
		realTaps = DesignLowpass(spec.Freq, sampleRate, taps)
	case iqproc.FilterHighpass:
		realTaps = DesignHighpass(spec.Freq, sampleRate, taps)
	case iqproc.FilterBandpass, iqproc.FilterBandstop:
		realTaps = DesignLowpass(spec.Bandwidth/2, sampleRate, taps)
	default:
		return nil, fmt.Errorf("dsp: unknown filter kind %d", spec.Kind)
	}
	taps = len(realTaps)

	if symmetric && !forceFFT {
		return NewFIRFilter(realTaps), nil
	}

	blockSize := blockSizeOverride
	if blockSize == 0 {
		blockSize = nextPowerOfTwo(2 * (taps - 1))
	}

	complexTaps := make([]complex64, taps)
	for i, v := range realTaps {
		complexTaps[i] = complex(v, 0)
	}
	if spec.Kind == iqproc.FilterBandpass || spec.Kind == iqproc.FilterBandstop {
		shiftComplexKernel(complexTaps, spec.Freq, sampleRate)
	}
	if spec.Kind == iqproc.FilterBandstop {
		spectralInvert(complexTaps)
	}

	freqResponse, err := BuildFFTResponse(planner, complexTaps, blockSize)
	if err != nil {
		return nil, err
	}
	return NewFFTFilter(planner, freqResponse, taps), nil
}

// shiftComplexKernel modulates a real lowpass prototype kernel up to the
// bandpass/bandstop center frequency, producing a complex, asymmetric
// kernel -- the reason bandpass/bandstop filters are never FIR-eligible
// here.
func shiftComplexKernel(taps []complex64, centerFreq rf.Hz, sampleRate uint32) {
	nco := NewNCO(sampleRate, centerFreq)
	asC64 := iqproc.SamplesC64(taps)
	nco.Process(asC64)
}

// spectralInvert turns a lowpass-prototype kernel into a bandstop kernel:
// negate every tap, then add 1 at the center tap.
func spectralInvert(taps []complex64) {
	mid := len(taps) / 2
	for i := range taps {
		taps[i] = -taps[i]
	}
	taps[mid] += 1
}

// Reset resets every filter in the chain, called on StreamDiscontinuityEvent.
func (c *FilterChain) Reset() {
	for _, f := range c.filters {
		f.Reset()
	}
}

// MaxFlushSamples upper-bounds how many extra samples Flush can return
// beyond the chain's normal 1:1 output, the sum of each stage's own
// backlog capacity. A flushed tail that passes through a later stage's
// Process doesn't grow further, since Process is always 1:1 -- only each
// stage's own Flush call adds net-new samples.
func (c *FilterChain) MaxFlushSamples() int {
	var n int
	for _, f := range c.filters {
		n += f.FlushCapacity()
	}
	return n
}

// Flush drains every filter's trailing backlog in series: each stage's
// own Flush tail is pushed through every later stage's Process (since
// those samples never got a chance to run the gauntlet while the stream
// was live), and that later stage's own Flush is appended after. Called
// once, on the last chunk.
func (c *FilterChain) Flush() (iqproc.SamplesC64, error) {
	var cur iqproc.SamplesC64
	for _, f := range c.filters {
		if len(cur) > 0 {
			processed, err := f.Process(make(iqproc.SamplesC64, len(cur)), cur)
			if err != nil {
				return nil, err
			}
			cur = append(iqproc.SamplesC64{}, processed...)
		}
		tail, err := f.Flush()
		if err != nil {
			return nil, err
		}
		cur = append(cur, tail...)
	}
	return cur, nil
}

// CompositeMaxPassbandHz returns the highest frequency the filter chain
// specs collectively still pass, used by the pipeline orchestrator to
// decide pre- vs post-resample placement per spec.md §4.8: a lowpass or
// bandpass stage bounds the upper passband edge; a highpass or bandstop
// stage is treated as passing everything up to the input Nyquist rate,
// since neither bounds it. The composite edge is the tightest bound any
// single stage in the series imposes.
func CompositeMaxPassbandHz(specs []iqproc.FilterSpec, sampleRate uint32) rf.Hz {
	nyquist := rf.Hz(sampleRate) / 2
	maxFreq := nyquist
	for _, spec := range specs {
		edge := nyquist
		switch spec.Kind {
		case iqproc.FilterLowpass:
			edge = spec.Freq
		case iqproc.FilterBandpass:
			edge = spec.Freq + spec.Bandwidth/2
		}
		if edge < maxFreq {
			maxFreq = edge
		}
	}
	return maxFreq
}

// Process runs buf through every filter in the chain in series, using
// scratch as FFT filters' intermediate output buffer. Returns the final
// filtered slice, which may alias buf or scratch depending on chain length.
func (c *FilterChain) Process(buf, scratch iqproc.SamplesC64) (iqproc.SamplesC64, error) {
	cur := buf
	other := scratch
	for _, f := range c.filters {
		out, err := f.Process(other[:len(cur)], cur)
		if err != nil {
			return nil, err
		}
		cur, other = out, cur
	}
	return cur, nil
}

// vim: foldmethod=marker
