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

package pipeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hz.tools/iqproc"
	"hz.tools/iqproc/arena"
	"hz.tools/iqproc/chunk"
	"hz.tools/iqproc/dsp"
	"hz.tools/iqproc/fft"
	"hz.tools/iqproc/pipeline"
	"hz.tools/iqproc/source"
	"hz.tools/rf"
)

// testBaseSamples is a deliberately small stand-in for chunk.BaseSamples,
// so every pool allocation in these tests stays well under a megabyte
// rather than the production 16384-frame default. It must stay larger
// than pipeline.IQCorrectionFFTSize, since the IqOptimizer tests fill a
// whole FFT-sized block into one chunk's complex buffer.
const testBaseSamples = 2048

// newTestResources builds an AppResources with a small, arena-backed chunk
// pool sized for cfg, wiring the same DSP components the orchestrator does
// but against fft.NaivePlanner rather than FFTW, so these tests never
// depend on cgo.
func newTestResources(t *testing.T, cfg iqproc.AppConfig) *pipeline.AppResources {
	t.Helper()

	ratio := 1.0
	if !cfg.NoResample && cfg.OutputRate != cfg.InputRate {
		ratio = float64(cfg.OutputRate) / float64(cfg.InputRate)
	}
	outputRate := cfg.OutputRate
	if cfg.NoResample || outputRate == 0 {
		outputRate = cfg.InputRate
	}

	planner := fft.Planner(fft.NaivePlanner)

	var filters *dsp.FilterChain
	if len(cfg.Filters) > 0 {
		var err error
		filters, err = dsp.BuildFilterChain(planner, cfg.InputRate, cfg.Filters, cfg.ForceFFTFilter, cfg.FilterBlockSize)
		require.NoError(t, err)
	}

	// Mirrors Run's placement decision (spec.md §4.8) and flush-margin
	// sizing, so a test chunk's buffers are always large enough to hold a
	// filter's end-of-stream flush tail.
	filterPostResample := true
	if filters != nil {
		targetNyquist := rf.Hz(outputRate) / 2
		if dsp.CompositeMaxPassbandHz(cfg.Filters, cfg.InputRate) > targetNyquist {
			filterPostResample = false
		}
	}

	maxOut := dsp.MaxOutputFrames(testBaseSamples, ratio)
	if filters != nil {
		flushMargin := filters.MaxFlushSamples()
		if filterPostResample {
			if postMax := maxOut + flushMargin; postMax > maxOut {
				maxOut = postMax
			}
		} else {
			preMax := testBaseSamples + flushMargin
			resampledMax := dsp.MaxOutputFrames(preMax, ratio)
			if preMax > maxOut {
				maxOut = preMax
			}
			if resampledMax > maxOut {
				maxOut = resampledMax
			}
		}
	}

	a := arena.New(4 * 1024 * 1024)
	pool, err := chunk.NewPool(a, chunk.PoolConfig{
		Count:                    8,
		BaseSamples:              testBaseSamples,
		MaxOutSamples:            maxOut,
		InputBytesPerSamplePair:  cfg.InputFormat.BytesPerSamplePair(),
		OutputBytesPerSamplePair: cfg.OutputFormat.BytesPerSamplePair(),
	})
	require.NoError(t, err)

	resampler, err := dsp.NewResampler(cfg.InputRate, outputRate)
	require.NoError(t, err)

	res := &pipeline.AppResources{
		Cfg:                cfg,
		Pool:                pool,
		DCBlock:            dsp.NewDCBlocker(cfg.InputRate, dsp.DefaultDCBlockCutoffHz),
		PreNCO:             dsp.NewNCO(cfg.InputRate, cfg.FreqShift),
		PostNCO:            dsp.NewNCO(outputRate, cfg.FreqShift),
		IQCorrector:        dsp.NewIQCorrector(),
		Filters:            filters,
		FilterPostResample: filterPostResample,
		Resampler:          resampler,
		Converter:          source.NewConverter(),
		Planner:            planner,
		Progress:           pipeline.NewProgress(time.Now()),
	}
	res.Queues = pipeline.NewQueues(pool)
	return res
}

// freeChunk dequeues one chunk from res's free queue, failing the test if
// none is available.
func freeChunk(t *testing.T, res *pipeline.AppResources) *chunk.SampleChunk {
	t.Helper()
	c, ok := res.Queues.Free.TryDequeue()
	require.True(t, ok, "no free chunk available")
	return c
}

// vim: foldmethod=marker
