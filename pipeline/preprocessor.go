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

	"hz.tools/iqproc/chunk"
)

// IQCorrectionDefaultPeriod is IQ_CORRECTION_DEFAULT_PERIOD, spec.md §4.4
// step 5: the PreProcessor forwards a post-correction snapshot to the
// IqOptimizer every this-many samples.
const IQCorrectionDefaultPeriod = 2_000_000

// PreProcessor is the pipeline's second stage, spec.md §4.4's seven steps.
type PreProcessor struct {
	res *AppResources

	iqAccum int
}

// NewPreProcessor builds a PreProcessor.
func NewPreProcessor(res *AppResources) *PreProcessor {
	return &PreProcessor{res: res}
}

// Run drains raw->pre, processes each chunk in place, and forwards it to
// pre->resampler until shutdown or the last chunk is seen.
func (p *PreProcessor) Run(ctx context.Context) error {
	for {
		c, ok := p.res.Queues.RawToPre.Dequeue()
		if !ok {
			return nil
		}
		if err := p.process(c); err != nil {
			p.res.Fail(err)
			return err
		}
		if !p.res.Queues.PreToRes.Enqueue(c) {
			return nil
		}
		if c.IsLastChunk {
			return nil
		}
	}
}

func (p *PreProcessor) process(c *chunk.SampleChunk) error {
	if c.StreamDiscontinuityEvent {
		p.res.DCBlock.Reset()
		p.res.PreNCO.Reset()
		if !p.res.FilterPostResample && p.res.Filters != nil {
			p.res.Filters.Reset()
		}
	}

	if c.FramesRead == 0 {
		c.FramesToWrite = 0
		return nil
	}

	cfg := p.res.Cfg

	// Step 1: format conversion into the chunk's own pre-resample buffer.
	buf, err := p.res.Converter.ConvertIn(
		c.ComplexPreResampleData[:0],
		c.RawInputData[:c.FramesRead*c.InputBytesPerSamplePair],
		cfg.InputFormat,
	)
	if err != nil {
		return err
	}

	// Step 2: gain.
	if cfg.Gain != 1.0 {
		g := complex(cfg.Gain, 0)
		for i := range buf {
			buf[i] *= g
		}
	}

	// Step 3: DC blocker.
	if cfg.EnableDCBlock {
		p.res.DCBlock.Process(buf)
	}

	// Step 4: I/Q imbalance correction.
	if cfg.EnableIQCorrection {
		p.res.IQCorrector.Process(buf)
		p.forwardToIQOptimizer(buf)
	}

	// Step 6: pre-resample NCO shift.
	if !cfg.ShiftAfterResample && cfg.FreqShift != 0 {
		p.res.PreNCO.Process(buf)
	}

	// Step 7: pre-resample filter.
	if p.res.Filters != nil && !p.res.FilterPostResample {
		out, err := p.res.Filters.Process(buf, c.ComplexScratchData[:len(buf)])
		if err != nil {
			return err
		}
		copy(c.ComplexPreResampleData[:len(out)], out)
		buf = c.ComplexPreResampleData[:len(out)]

		if c.IsLastChunk {
			tail, err := p.res.Filters.Flush()
			if err != nil {
				return err
			}
			if len(tail) > 0 {
				end := len(buf)
				copy(c.ComplexPreResampleData[end:end+len(tail)], tail)
				buf = c.ComplexPreResampleData[:end+len(tail)]
			}
		}
	}

	c.FramesToWrite = len(buf)
	return nil
}

// forwardToIQOptimizer periodically snapshots post-correction samples
// into a spare chunk and forwards it to the IqOptimizer, spec.md §4.4
// step 5. It never blocks the hot path on a stalled IqOptimizer: if no
// free chunk is available right now, this round's snapshot is simply
// skipped, since the optimizer will get another chance in
// IQCorrectionDefaultPeriod more samples.
func (p *PreProcessor) forwardToIQOptimizer(buf []complex64) {
	p.iqAccum += len(buf)
	if p.iqAccum < IQCorrectionDefaultPeriod {
		return
	}
	p.iqAccum = 0

	snap, ok := p.res.Queues.Free.TryDequeue()
	if !ok {
		return
	}
	snap.Reset()
	n := len(buf)
	if n > cap(snap.ComplexPreResampleData) {
		n = cap(snap.ComplexPreResampleData)
	}
	copy(snap.ComplexPreResampleData[:n], buf[:n])
	snap.FramesToWrite = n

	if !p.res.Queues.IQOpt.Enqueue(snap) {
		p.res.Queues.Free.Enqueue(snap)
	}
}

// vim: foldmethod=marker
