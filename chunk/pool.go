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

package chunk

import (
	"fmt"
	"unsafe"

	"hz.tools/iqproc"
	"hz.tools/iqproc/arena"
)

// NumChunks is the default PIPELINE_NUM_CHUNKS from spec.md §3.
const NumChunks = 512

// BaseSamples is the default BASE_SAMPLES from spec.md §4.1/§4.2/§4.3.
const BaseSamples = 16384

// ResamplerOutputSafetyMargin is RESAMPLER_OUTPUT_SAFETY_MARGIN, spec.md
// §4.5.
const ResamplerOutputSafetyMargin = 128

// PoolConfig describes the sizing of a chunk Pool. Unlike a sync.Pool,
// every chunk here is allocated once, up front, from a single Arena; the
// Pool never grows and never returns memory to Go's allocator, per
// spec.md §3's "Lifecycle" and §5's "Resource discipline".
type PoolConfig struct {
	// Count is the number of chunks to allocate; defaults to NumChunks.
	Count int

	// BaseSamples is the capacity, in frames, of RawInputData; defaults
	// to BaseSamples.
	BaseSamples int

	// MaxOutSamples is the capacity, in frames, of the four complex
	// buffers and of FinalOutputData. Callers compute this from the
	// resampler's worst-case output contract, spec.md §4.5:
	// ceil(BaseSamples * max(1, ratio)) + ResamplerOutputSafetyMargin.
	MaxOutSamples int

	// InputBytesPerSamplePair is the wire size of one input sample.
	InputBytesPerSamplePair int

	// OutputBytesPerSamplePair is the wire size of one output sample.
	OutputBytesPerSamplePair int
}

// Pool owns every SampleChunk allocated for one pipeline run.
type Pool struct {
	chunks []*SampleChunk
}

// NewPool allocates cfg.Count chunks from a, sizing every buffer per cfg.
// All allocations happen here, during setup; nothing in this function's
// callers should run it again once the pipeline's workers are started.
func NewPool(a *arena.Arena, cfg PoolConfig) (*Pool, error) {
	if cfg.Count <= 0 {
		cfg.Count = NumChunks
	}
	if cfg.BaseSamples <= 0 {
		cfg.BaseSamples = BaseSamples
	}
	if cfg.MaxOutSamples <= 0 {
		return nil, fmt.Errorf("chunk: MaxOutSamples must be positive")
	}
	if cfg.InputBytesPerSamplePair <= 0 || cfg.OutputBytesPerSamplePair <= 0 {
		return nil, fmt.Errorf("chunk: input/output bytes-per-sample-pair must be positive")
	}

	p := &Pool{chunks: make([]*SampleChunk, cfg.Count)}
	complexBufBytes := cfg.MaxOutSamples * 8 // complex64 = 8 bytes

	for i := range p.chunks {
		rawBuf, err := a.Alloc(cfg.BaseSamples * cfg.InputBytesPerSamplePair)
		if err != nil {
			return nil, fmt.Errorf("chunk: allocating raw_input_data for chunk %d: %w", i, err)
		}
		// The four complex buffers are allocated from one contiguous
		// arena region, per spec.md §3 ("co-located ... for cache
		// locality"), then sliced into four complex64 views.
		complexRegion, err := a.Alloc(4 * complexBufBytes)
		if err != nil {
			return nil, fmt.Errorf("chunk: allocating complex buffers for chunk %d: %w", i, err)
		}
		outBuf, err := a.Alloc(cfg.MaxOutSamples * cfg.OutputBytesPerSamplePair)
		if err != nil {
			return nil, fmt.Errorf("chunk: allocating final_output_data for chunk %d: %w", i, err)
		}

		p.chunks[i] = &SampleChunk{
			RawInputData:            rawBuf,
			ComplexPreResampleData:  bytesToC64(complexRegion[0*complexBufBytes : 1*complexBufBytes]),
			ComplexResampledData:    bytesToC64(complexRegion[1*complexBufBytes : 2*complexBufBytes]),
			ComplexPostResampleData: bytesToC64(complexRegion[2*complexBufBytes : 3*complexBufBytes]),
			ComplexScratchData:      bytesToC64(complexRegion[3*complexBufBytes : 4*complexBufBytes]),
			FinalOutputData:         outBuf,
			InputBytesPerSamplePair: cfg.InputBytesPerSamplePair,
		}
	}
	return p, nil
}

// bytesToC64 reinterprets a byte slice, whose length is a multiple of 8
// and which came from the arena (so it is never freed out from under
// this view), as a []complex64. This is the same unsafe reinterpretation
// the teacher's internal/yikes package performs at I/O boundaries,
// applied here so the arena can hand out one contiguous region per chunk
// instead of four separate allocations.
func bytesToC64(b []byte) iqproc.SamplesC64 {
	if len(b) == 0 {
		return nil
	}
	n := len(b) / 8
	return unsafe.Slice((*complex64)(unsafe.Pointer(&b[0])), n)
}

// Chunks returns every chunk in the pool, in allocation order. Used by
// the pipeline orchestrator to seed the free queue at startup.
func (p *Pool) Chunks() []*SampleChunk {
	return p.chunks
}

// Len returns the number of chunks in the pool.
func (p *Pool) Len() int {
	return len(p.chunks)
}

// vim: foldmethod=marker
