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

package chunk_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hz.tools/iqproc/arena"
	"hz.tools/iqproc/chunk"
)

func testPoolConfig() chunk.PoolConfig {
	return chunk.PoolConfig{
		Count:                    4,
		BaseSamples:              256,
		MaxOutSamples:            256 + chunk.ResamplerOutputSafetyMargin,
		InputBytesPerSamplePair:  4,
		OutputBytesPerSamplePair: 4,
	}
}

func TestNewPoolSizesBuffers(t *testing.T) {
	cfg := testPoolConfig()
	a := arena.New(16 * 1024 * 1024)
	p, err := chunk.NewPool(a, cfg)
	require.NoError(t, err)
	require.Equal(t, cfg.Count, p.Len())

	for _, c := range p.Chunks() {
		assert.Len(t, c.RawInputData, cfg.BaseSamples*cfg.InputBytesPerSamplePair)
		assert.Len(t, c.ComplexPreResampleData, cfg.MaxOutSamples)
		assert.Len(t, c.ComplexResampledData, cfg.MaxOutSamples)
		assert.Len(t, c.ComplexPostResampleData, cfg.MaxOutSamples)
		assert.Len(t, c.ComplexScratchData, cfg.MaxOutSamples)
		assert.Len(t, c.FinalOutputData, cfg.MaxOutSamples*cfg.OutputBytesPerSamplePair)
	}
}

func TestNewPoolChunksDoNotAlias(t *testing.T) {
	cfg := testPoolConfig()
	a := arena.New(16 * 1024 * 1024)
	p, err := chunk.NewPool(a, cfg)
	require.NoError(t, err)

	chunks := p.Chunks()
	chunks[0].ComplexPreResampleData[0] = 1 + 2i
	assert.NotEqual(t, complex64(1+2i), chunks[1].ComplexPreResampleData[0])

	chunks[0].RawInputData[0] = 0xff
	assert.NotEqual(t, byte(0xff), chunks[1].RawInputData[0])
}

func TestNewPoolExhaustsArena(t *testing.T) {
	cfg := testPoolConfig()
	cfg.Count = 1_000_000
	a := arena.New(1024)
	_, err := chunk.NewPool(a, cfg)
	require.Error(t, err)
}

// vim: foldmethod=marker
