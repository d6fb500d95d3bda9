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
)

// Resampler is the pipeline's third stage, spec.md §4.5. The rate
// conversion itself lives in dsp.Resampler (shared with AppResources);
// this type is just the queue-draining loop around it, including the
// passthrough fast path dsp.Resampler already implements internally when
// NoResample is set or the ratio is exactly 1.0.
type Resampler struct {
	res *AppResources
}

// NewResampler builds the Resampler stage.
func NewResampler(res *AppResources) *Resampler {
	return &Resampler{res: res}
}

// Run drains pre->resampler, resamples each chunk's payload into its
// resampled-data buffer, and forwards to resampler->post until shutdown
// or the last chunk is seen.
func (r *Resampler) Run(ctx context.Context) error {
	for {
		c, ok := r.res.Queues.PreToRes.Dequeue()
		if !ok {
			return nil
		}

		if c.StreamDiscontinuityEvent {
			r.res.Resampler.Reset()
		}

		if c.FramesToWrite == 0 {
			c.FramesToWrite = 0
		} else {
			out, err := r.res.Resampler.Process(
				c.ComplexResampledData[:cap(c.ComplexResampledData)],
				c.ComplexPreResampleData[:c.FramesToWrite],
			)
			if err != nil {
				r.res.Fail(err)
				return err
			}
			c.FramesToWrite = len(out)
		}

		if !r.res.Queues.ResToPost.Enqueue(c) {
			return nil
		}
		if c.IsLastChunk {
			return nil
		}
	}
}

// vim: foldmethod=marker
