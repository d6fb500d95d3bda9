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

package pipeline

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"hz.tools/iqproc"
	"hz.tools/iqproc/arena"
	"hz.tools/iqproc/chunk"
	"hz.tools/iqproc/dsp"
	"hz.tools/iqproc/fft"
	"hz.tools/iqproc/ringbuf"
	"hz.tools/iqproc/source"
	"hz.tools/rf"
)

// DefaultProgressInterval is used when AppConfig.ProgressInterval is left
// at zero.
const DefaultProgressInterval = 1.0

// Run wires one AppResources and one goroutine per stage, drives them to
// completion, and returns the pipeline's first fatal error, if any. It is
// the single entry point cmd/iqproc's main calls once its flags and preset
// have resolved into an AppConfig, InputSource and FileWriter.
func Run(ctx context.Context, cfg iqproc.AppConfig, src iqproc.InputSource, sink iqproc.FileWriter, logger *log.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := src.ValidateOptions(cfg); err != nil {
		return err
	}
	if logger == nil {
		logger = log.New(os.Stderr)
	}

	if err := src.Initialize(ctx); err != nil {
		return fmt.Errorf("pipeline: initializing input source: %w", err)
	}
	defer src.Cleanup(ctx)

	a := arena.New(arena.DefaultSize)

	effectiveOutputRate := cfg.OutputRate
	ratio := float64(cfg.OutputRate) / float64(cfg.InputRate)
	if cfg.NoResample || cfg.InputRate == cfg.OutputRate {
		effectiveOutputRate = cfg.InputRate
		ratio = 1.0
	}

	planner := fft.Planner(fft.FFTWPlanner)

	var filters *dsp.FilterChain
	if len(cfg.Filters) > 0 {
		built, err := dsp.BuildFilterChain(planner, cfg.InputRate, cfg.Filters, cfg.ForceFFTFilter, cfg.FilterBlockSize)
		if err != nil {
			return fmt.Errorf("pipeline: building filter chain: %w", err)
		}
		filters = built
	}

	// Placement (spec.md §4.8): pre-resample only if the composite
	// passband would alias against the target Nyquist rate; otherwise
	// post-resample, where the lower rate is cheaper to filter at.
	filterPostResample := true
	if filters != nil {
		targetNyquist := rf.Hz(effectiveOutputRate) / 2
		if dsp.CompositeMaxPassbandHz(cfg.Filters, cfg.InputRate) > targetNyquist {
			filterPostResample = false
		}
	}

	maxOut := dsp.MaxOutputFrames(chunk.BaseSamples, ratio)
	if filters != nil {
		flushMargin := filters.MaxFlushSamples()
		if filterPostResample {
			// The filter's own flush tail lands after resampling.
			if postMax := maxOut + flushMargin; postMax > maxOut {
				maxOut = postMax
			}
		} else {
			// The filter's flush tail lands before resampling, so both
			// the pre-resample buffer and the resampler's own worst-case
			// output (now sized against the larger input) must fit.
			preMax := chunk.BaseSamples + flushMargin
			resampledMax := dsp.MaxOutputFrames(preMax, ratio)
			if preMax > maxOut {
				maxOut = preMax
			}
			if resampledMax > maxOut {
				maxOut = resampledMax
			}
		}
	}

	// The chunk pool is the large data-plane allocation, so it gets its
	// own arena sized to hold exactly the pool's buffers; the 16 MiB
	// arena.DefaultSize arena cannot hold 512 chunks.
	inPair := cfg.InputFormat.BytesPerSamplePair()
	outPair := cfg.OutputFormat.BytesPerSamplePair()
	a = arena.New(chunk.NumChunks * (chunk.BaseSamples*inPair + 4*maxOut*8 + maxOut*outPair))

	pool, err := chunk.NewPool(a, chunk.PoolConfig{
		Count:                    chunk.NumChunks,
		BaseSamples:              chunk.BaseSamples,
		MaxOutSamples:            maxOut,
		InputBytesPerSamplePair:  inPair,
		OutputBytesPerSamplePair: outPair,
	})
	if err != nil {
		return fmt.Errorf("pipeline: allocating chunk pool: %w", err)
	}

	resampler, err := dsp.NewResampler(cfg.InputRate, effectiveOutputRate)
	if err != nil {
		return fmt.Errorf("pipeline: building resampler: %w", err)
	}

	res := &AppResources{
		Cfg:    cfg,
		Pool:   pool,
		Logger: logger,

		DCBlock:            dsp.NewDCBlocker(cfg.InputRate, dsp.DefaultDCBlockCutoffHz),
		PreNCO:             dsp.NewNCO(cfg.InputRate, cfg.FreqShift),
		PostNCO:            dsp.NewNCO(effectiveOutputRate, cfg.FreqShift),
		IQCorrector:        dsp.NewIQCorrector(),
		Filters:            filters,
		FilterPostResample: filterPostResample,
		Resampler:          resampler,
		Converter:          source.NewConverter(),
		Planner:            planner,
		Progress:           NewProgress(time.Now()),
	}
	res.Queues = NewQueues(pool)

	mode, ringSize := readerMode(src, cfg)
	if mode == ReaderModeBufferedSDR {
		res.SDRRing = ringbuf.New(ringSize)
	}

	if !cfg.OutputToStdout {
		if err := sink.Open(ctx, cfg); err != nil {
			return fmt.Errorf("pipeline: opening output sink: %w", err)
		}
		res.OutputRing = ringbuf.New(ringbuf.DefaultFileWriteSize)
	}

	reader := NewReader(res, src, mode)
	pre := NewPreProcessor(res)
	rs := NewResampler(res)
	post := NewPostProcessor(res)
	var writer *Writer
	if cfg.OutputToStdout {
		writer = NewStdoutWriterStage(res, nil)
	} else {
		writer = NewFileWriterStage(res, sink)
	}

	stages := []func(context.Context) error{
		reader.Run, pre.Run, rs.Run, post.Run, writer.Run,
	}
	if cfg.EnableIQCorrection {
		stages = append(stages, NewIqOptimizer(res).Run)
	}

	progressCtx, stopProgress := context.WithCancel(ctx)
	defer stopProgress()
	if cfg.Progress != nil {
		go runProgress(progressCtx, res, cfg)
	}

	var wg sync.WaitGroup
	for _, stage := range stages {
		stage := stage
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := stage(ctx); err != nil {
				res.Fail(err)
			}
		}()
	}
	wg.Wait()

	return res.Err()
}

// readerMode picks the Reader mode spec.md §4.3 names, and the SDR ring
// size when that mode needs one. A source reporting a known length (a
// file) always runs direct, back-pressured reads; a source without a
// known length (a live radio) runs through the large buffered ring in
// file-output mode, which absorbs downstream stalls (a packet that does
// not fit is dropped and counted as an overrun), and drops whole
// chunks on overrun in stdout mode, where a live listener cares about
// catching up more than about a gap-free recording.
func readerMode(src iqproc.InputSource, cfg iqproc.AppConfig) (ReaderMode, int) {
	if src.HasKnownLength() {
		return ReaderModeFile, 0
	}
	if cfg.OutputToStdout {
		return ReaderModeRealtimeSDR, 0
	}
	return ReaderModeBufferedSDR, ringbuf.DefaultSDRInputSize
}

func runProgress(ctx context.Context, res *AppResources, cfg iqproc.AppConfig) {
	interval := cfg.ProgressInterval
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	ticker := time.NewTicker(time.Duration(interval * float64(time.Second)))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			cfg.Progress(res.Progress.Snapshot(t))
		}
	}
}

// vim: foldmethod=marker
