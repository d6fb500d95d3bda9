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

// Package chunk implements the pipeline's unit of work (SampleChunk), its
// pre-allocated pool, and the bounded blocking queues that shuttle chunk
// pointers between stages, per spec.md §3 and §4.1.
package chunk

import (
	"hz.tools/iqproc"
)

// SampleChunk is the unit of work that flows through the pipeline: a set
// of co-allocated buffers plus metadata, per spec.md §3.
//
// The four complex buffers and the final output buffer never alias across
// chunks; a SampleChunk is owned by exactly one stage at any time.
type SampleChunk struct {
	// RawInputData holds raw bytes in the input SampleFormat, filled by
	// the Reader. Capacity is BaseSamples * input pair bytes.
	RawInputData []byte

	// ComplexPreResampleData, ComplexResampledData,
	// ComplexPostResampleData and ComplexScratchData are interleaved
	// complex64 buffers, capacity MaxOutSamples, co-located in one
	// contiguous arena region per chunk for cache locality.
	ComplexPreResampleData  iqproc.SamplesC64
	ComplexResampledData    iqproc.SamplesC64
	ComplexPostResampleData iqproc.SamplesC64
	ComplexScratchData      iqproc.SamplesC64

	// FinalOutputData holds raw bytes in the output SampleFormat,
	// capacity MaxOutSamples * output pair bytes.
	FinalOutputData []byte

	// FramesRead is the number of I/Q pairs currently valid in
	// RawInputData.
	FramesRead int

	// FramesToWrite is the number of I/Q pairs currently valid in the
	// last-populated complex buffer, or in FinalOutputData.
	FramesToWrite int

	// IsLastChunk is set by the Reader when the InputSource signalled
	// end-of-stream; this chunk is a sentinel flushed through every
	// stage.
	IsLastChunk bool

	// StreamDiscontinuityEvent is set when the upstream signalled a
	// reset (SDR overrun/restart); every stateful DSP stage must reset
	// its internal state before processing this chunk's payload.
	StreamDiscontinuityEvent bool

	// InputBytesPerSamplePair is carried per chunk so the codec and the
	// PreProcessor are self-contained and never need to consult global
	// config to know how to interpret RawInputData.
	InputBytesPerSamplePair int
}

// Reset restores a chunk to its pristine, reusable state without
// reallocating any buffer; called when a chunk returns to the free queue.
func (c *SampleChunk) Reset() {
	c.FramesRead = 0
	c.FramesToWrite = 0
	c.IsLastChunk = false
	c.StreamDiscontinuityEvent = false
	c.InputBytesPerSamplePair = 0
}

// vim: foldmethod=marker
