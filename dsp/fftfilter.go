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
)

// nextPowerOfTwo returns the smallest power of two >= n.
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// FFTFilter is an overlap-save block convolution filter, selected by the
// filter chain (spec.md §4.8) whenever a filter's taps are complex or
// asymmetric (a frequency shift folded into the filter, for instance), or
// when ForceFFTFilter is set. Block size is the next power of two >=
// 2*(taps-1), per spec.md §4.8.
//
// FFTFilter keeps two internal queues across Process calls so its output
// count always matches its input count (spec.md §4.4's "frames_to_write
// is set equal to frames_read"): remainder holds raw input not yet enough
// to fill a block, and pending holds filtered output produced but not yet
// handed back to the caller. The two queues are what let the block delay
// be absorbed silently instead of surfacing as a variable-length return.
type FFTFilter struct {
	planner   fft.Planner
	freq      []complex64 // precomputed frequency-domain response
	blockSize int
	taps      int

	remainder []complex64
	pending   []complex64
	scratch   []complex64
}

// NewFFTFilter builds an FFTFilter from complex frequency-domain taps
// (time-domain taps already zero-padded and forward-transformed to
// blockSize by the caller -- see BuildFFTResponse).
func NewFFTFilter(planner fft.Planner, freqResponse []complex64, taps int) *FFTFilter {
	return &FFTFilter{
		planner:   planner,
		freq:      freqResponse,
		blockSize: len(freqResponse),
		taps:      taps,
		scratch:   make([]complex64, len(freqResponse)),
	}
}

// BuildFFTResponse zero-pads timeDomainTaps to blockSize and forward
// transforms them into a frequency-domain response suitable for
// NewFFTFilter.
func BuildFFTResponse(planner fft.Planner, timeDomainTaps []complex64, blockSize int) ([]complex64, error) {
	if len(timeDomainTaps) > blockSize {
		return nil, fmt.Errorf("dsp: filter has more taps than the block size")
	}
	padded := make(iqproc.SamplesC64, blockSize)
	copy(padded, timeDomainTaps)
	freq := make([]complex64, blockSize)
	if err := fft.TransformOnce(planner, padded, freq, fft.Forward); err != nil {
		return nil, err
	}
	return freq, nil
}

// Reset clears the overlap-save remainder, the pending output queue, and
// scratch state on a stream discontinuity.
func (f *FFTFilter) Reset() {
	f.remainder = f.remainder[:0]
	f.pending = f.pending[:0]
}

// runBlocks filters as many whole blocks as the remainder provides,
// appending their valid output to the pending queue and leaving whatever
// doesn't fill a full block in the remainder for the next call.
func (f *FFTFilter) runBlocks() error {
	overlap := f.taps - 1
	hop := f.blockSize - overlap

	var pos int
	for pos+f.blockSize <= len(f.remainder) {
		block := f.remainder[pos : pos+f.blockSize]
		copy(f.scratch, block)

		conv, err := fft.ConvolveFreq(f.planner, f.scratch, f.scratch, f.freq)
		if err != nil {
			return err
		}
		if err := conv(); err != nil {
			return err
		}

		// Overlap-save: the first `overlap` outputs are corrupted by
		// wraparound and are discarded; the remaining `hop` samples are
		// valid filtered output.
		f.pending = append(f.pending, f.scratch[overlap:]...)
		pos += hop
	}

	f.remainder = append(f.remainder[:0], f.remainder[pos:]...)
	return nil
}

// Process queues src onto the remainder, runs every whole block that
// unlocks, and returns exactly len(src) samples drawn from the pending
// queue -- the 1:1 length invariant spec.md §4.4 requires. While the
// queue hasn't built up a full block's worth of output yet (stream
// startup), the deficit is filled with silence rather than shorting the
// caller; Flush later reconciles the backlog at end of stream.
func (f *FFTFilter) Process(dst iqproc.SamplesC64, src iqproc.SamplesC64) (iqproc.SamplesC64, error) {
	f.remainder = append(f.remainder, src...)
	if err := f.runBlocks(); err != nil {
		return nil, err
	}

	need := len(src)
	take := need
	if take > len(f.pending) {
		take = len(f.pending)
	}

	out := append(dst[:0], f.pending[:take]...)
	f.pending = append(f.pending[:0], f.pending[take:]...)
	for len(out) < need {
		out = append(out, 0)
	}
	return out, nil
}

// FlushCapacity is the maximum number of samples Flush can still produce:
// the final, zero-padded partial block plus whatever was already queued
// in pending. Callers size their destination buffer's spare capacity
// against this so the end-of-stream flush never overruns it.
func (f *FFTFilter) FlushCapacity() int {
	return 2 * f.blockSize
}

// Flush forces any leftover remainder through one final, zero-padded
// block and returns every sample still queued: that block's valid output
// plus whatever was already sitting in pending. Called once, on the last
// chunk (spec.md §4.4 step 7's "flushes on last chunk"); a second call
// with nothing left queued is a no-op.
func (f *FFTFilter) Flush() (iqproc.SamplesC64, error) {
	if len(f.remainder) > 0 {
		padded := make([]complex64, f.blockSize)
		copy(padded, f.remainder)
		copy(f.scratch, padded)

		conv, err := fft.ConvolveFreq(f.planner, f.scratch, f.scratch, f.freq)
		if err != nil {
			return nil, err
		}
		if err := conv(); err != nil {
			return nil, err
		}

		overlap := f.taps - 1
		f.pending = append(f.pending, f.scratch[overlap:]...)
		f.remainder = f.remainder[:0]
	}

	out := f.pending
	f.pending = nil
	return out, nil
}

// vim: foldmethod=marker
