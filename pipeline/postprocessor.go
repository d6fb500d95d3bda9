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

// PostProcessor is the pipeline's fourth stage, spec.md §4.6's three
// steps. In file-output mode it also owns handing finished bytes to the
// output ring and recycling the chunk immediately, decoupling disk I/O
// from the DSP stages upstream (spec.md §4.6's closing note); in stdout
// mode it instead forwards the chunk itself to the Writer via stdout_q.
type PostProcessor struct {
	res *AppResources
}

// NewPostProcessor builds a PostProcessor.
func NewPostProcessor(res *AppResources) *PostProcessor {
	return &PostProcessor{res: res}
}

// Run drains resampler->post, finalizes each chunk's output bytes, and
// either hands them to the output ring (file mode) or forwards the chunk
// to stdout_q (stdout mode).
func (p *PostProcessor) Run(ctx context.Context) error {
	for {
		c, ok := p.res.Queues.ResToPost.Dequeue()
		if !ok {
			return nil
		}

		if err := p.process(c); err != nil {
			p.res.Fail(err)
			return err
		}
		p.res.Progress.AddOutputFrames(c.FramesToWrite)

		last := c.IsLastChunk
		if p.res.Cfg.OutputToStdout {
			if !p.res.Queues.Stdout.Enqueue(c) {
				return nil
			}
		} else {
			if len(c.FinalOutputData) > 0 {
				p.res.OutputRing.Write(c.FinalOutputData)
			}
			c.Reset()
			if !p.res.Queues.Free.Enqueue(c) {
				return nil
			}
			if last {
				p.res.OutputRing.SignalEOF()
			}
		}
		if last {
			return nil
		}
	}
}

func (p *PostProcessor) process(c *chunk.SampleChunk) error {
	if c.StreamDiscontinuityEvent {
		p.res.PostNCO.Reset()
		if p.res.FilterPostResample && p.res.Filters != nil {
			p.res.Filters.Reset()
		}
	}

	if c.FramesToWrite == 0 {
		c.FinalOutputData = c.FinalOutputData[:0]
		return nil
	}

	buf := c.ComplexResampledData[:c.FramesToWrite]

	// Step 1: post-resample FFT filter, if deferred here.
	if p.res.Filters != nil && p.res.FilterPostResample {
		out, err := p.res.Filters.Process(buf, c.ComplexScratchData[:len(buf)])
		if err != nil {
			return err
		}
		copy(c.ComplexPostResampleData[:len(out)], out)
		buf = c.ComplexPostResampleData[:len(out)]

		if c.IsLastChunk {
			tail, err := p.res.Filters.Flush()
			if err != nil {
				return err
			}
			if len(tail) > 0 {
				end := len(buf)
				copy(c.ComplexPostResampleData[end:end+len(tail)], tail)
				buf = c.ComplexPostResampleData[:end+len(tail)]
			}
		}
	} else {
		copy(c.ComplexPostResampleData[:len(buf)], buf)
		buf = c.ComplexPostResampleData[:len(buf)]
	}

	// Step 2: post-resample NCO shift.
	if p.res.Cfg.ShiftAfterResample && p.res.Cfg.FreqShift != 0 {
		p.res.PostNCO.Process(buf)
	}

	// Step 3: final format conversion.
	out, err := p.res.Converter.ConvertOut(c.FinalOutputData[:0], buf, p.res.Cfg.OutputFormat)
	if err != nil {
		return err
	}
	c.FinalOutputData = out
	c.FramesToWrite = len(buf)
	return nil
}

// vim: foldmethod=marker
