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
	"time"

	"hz.tools/iqproc"
	"hz.tools/iqproc/chunk"
	"hz.tools/iqproc/ringbuf"
)

// ReaderMode selects which of spec.md §4.3's three Reader behaviors this
// Reader runs.
type ReaderMode int

const (
	// ReaderModeFile drives InputSource.StartStream directly against each
	// free chunk's raw buffer; backpressure comes naturally from the
	// bounded queue chain, since nothing reads ahead of demand.
	ReaderModeFile ReaderMode = iota + 1

	// ReaderModeBufferedSDR runs a dedicated capture goroutine that
	// writes packets into a ringbuf.Ring via the packet codec; this
	// Reader drains the ring and decodes packets into chunks.
	ReaderModeBufferedSDR

	// ReaderModeRealtimeSDR runs a capture goroutine that enqueues chunks
	// directly, dropping a whole chunk on overrun rather than buffering.
	ReaderModeRealtimeSDR
)

// Reader is the pipeline's first stage, spec.md §4.3.
type Reader struct {
	res    *AppResources
	source iqproc.InputSource
	mode   ReaderMode
}

// NewReader builds a Reader driving source in the given mode.
func NewReader(res *AppResources, source iqproc.InputSource, mode ReaderMode) *Reader {
	return &Reader{res: res, source: source, mode: mode}
}

// Run drives the configured mode until end-of-stream, a fatal error, or
// shutdown. It always returns after enqueuing exactly one is_last_chunk
// sentinel downstream (unless shutdown preempted it), per spec.md §4.1.
func (r *Reader) Run(ctx context.Context) error {
	switch r.mode {
	case ReaderModeBufferedSDR:
		return r.runBufferedSDR(ctx)
	case ReaderModeRealtimeSDR:
		return r.runRealtimeSDR(ctx)
	default:
		return r.runFile(ctx)
	}
}

func (r *Reader) pairBytes() int {
	return r.res.Cfg.InputFormat.BytesPerSamplePair()
}

// runFile implements spec.md §4.3 mode 1: direct start_stream calls, one
// per free chunk, with natural back-pressure from the bounded queues.
func (r *Reader) runFile(ctx context.Context) error {
	pairBytes := r.pairBytes()
	for {
		c, ok := r.res.Queues.Free.Dequeue()
		if !ok {
			return nil
		}
		c.Reset()
		c.InputBytesPerSamplePair = pairBytes

		n, err := r.source.StartStream(ctx, c.RawInputData)
		if err != nil {
			r.res.Fail(err)
			return err
		}

		c.FramesRead = n / pairBytes
		r.res.Progress.AddFramesRead(c.FramesRead)
		if n < len(c.RawInputData) {
			c.IsLastChunk = true
		}

		if !r.res.Queues.RawToPre.Enqueue(c) {
			return nil
		}
		if c.IsLastChunk {
			return nil
		}
	}
}

// runBufferedSDR implements spec.md §4.3 mode 2: a dedicated capture
// goroutine feeds a ringbuf.Ring via the packet codec (TryWrite, so the
// capture thread never blocks on a stalled consumer); this goroutine
// decodes packets back into chunks.
func (r *Reader) runBufferedSDR(ctx context.Context) error {
	ring := r.res.SDRRing
	pairBytes := r.pairBytes()
	writer := ringbuf.NewWriter(ring)
	reader := ringbuf.NewReader(ring, chunk.BaseSamples, pairBytes)

	captureDone := make(chan struct{})
	go func() {
		defer close(captureDone)
		r.captureLoop(ctx, writer, pairBytes)
	}()

	temp := make([]byte, chunk.BaseSamples*2)
	for {
		c, ok := r.res.Queues.Free.Dequeue()
		if !ok {
			<-captureDone
			return nil
		}
		c.Reset()
		c.InputBytesPerSamplePair = pairBytes

		frames, isReset, err := reader.ReadPacket(c.RawInputData, temp)
		if err != nil {
			r.res.Fail(err)
			r.source.StopStream(ctx)
			<-captureDone
			return err
		}
		if isReset {
			// Event packets carry no payload; recycle the chunk we
			// borrowed and mark the next data-bearing chunk instead.
			r.res.Queues.Free.Enqueue(c)
			c, ok = r.res.Queues.Free.Dequeue()
			if !ok {
				<-captureDone
				return nil
			}
			c.Reset()
			c.InputBytesPerSamplePair = pairBytes
			frames, isReset, err = reader.ReadPacket(c.RawInputData, temp)
			if err != nil {
				r.res.Fail(err)
				r.source.StopStream(ctx)
				<-captureDone
				return err
			}
			c.StreamDiscontinuityEvent = true
		}
		if frames == 0 && !isReset {
			c.IsLastChunk = true
			c.FramesRead = 0
			r.res.Queues.RawToPre.Enqueue(c)
			r.source.StopStream(ctx)
			<-captureDone
			return nil
		}

		c.FramesRead = frames
		r.res.Progress.AddFramesRead(frames)
		if !r.res.Queues.RawToPre.Enqueue(c) {
			<-captureDone
			return nil
		}
	}
}

// captureLoop is the dedicated hardware-facing goroutine spec.md §4.3
// mode 2 and §5 describe: it owns the source directly and never touches
// the chunk pool, so a stalled downstream can never block the radio.
func (r *Reader) captureLoop(ctx context.Context, writer *ringbuf.Writer, pairBytes int) {
	scratch := make([]byte, chunk.BaseSamples*pairBytes)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		n, err := r.source.StartStream(ctx, scratch)
		if err != nil {
			r.res.Fail(err)
			return
		}
		frames := uint32(n / pairBytes)
		if frames == 0 {
			r.res.SDRRing.SignalEOF()
			return
		}
		written := writer.WriteInterleavedChunk(frames, scratch[:n], pairBytes)
		if written < ringbuf.HeaderSize+n {
			r.res.RecordOverrun(time.Now(), uint64(frames))
		}
	}
}

// runRealtimeSDR implements spec.md §4.3 mode 3: a capture goroutine
// enqueues chunks directly onto raw->pre with no ring in between; an
// overrun drops the whole chunk rather than a partial packet, since
// there is no buffering layer left to partially fill.
func (r *Reader) runRealtimeSDR(ctx context.Context) error {
	pairBytes := r.pairBytes()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		c, ok := r.res.Queues.Free.TryDequeue()
		if !ok {
			// No free chunk available right now: this whole read's
			// worth of data is dropped, spec.md §4.3 mode 3's "overruns
			// drop whole chunks" policy.
			scratch := make([]byte, chunk.BaseSamples*pairBytes)
			n, err := r.source.StartStream(ctx, scratch)
			if err != nil {
				r.res.Fail(err)
				return err
			}
			if n > 0 {
				r.res.RecordOverrun(time.Now(), uint64(n/pairBytes))
				continue
			}
			// End of stream: wait for a chunk to carry the sentinel.
			c, ok = r.res.Queues.Free.Dequeue()
			if !ok {
				return nil
			}
			c.Reset()
			c.InputBytesPerSamplePair = pairBytes
			c.IsLastChunk = true
			r.res.Queues.RawToPre.Enqueue(c)
			return nil
		}

		c.Reset()
		c.InputBytesPerSamplePair = pairBytes
		n, err := r.source.StartStream(ctx, c.RawInputData)
		if err != nil {
			r.res.Queues.Free.Enqueue(c)
			r.res.Fail(err)
			return err
		}
		c.FramesRead = n / pairBytes
		r.res.Progress.AddFramesRead(c.FramesRead)
		if n < len(c.RawInputData) {
			c.IsLastChunk = true
		}
		if !r.res.Queues.RawToPre.Enqueue(c) {
			return nil
		}
		if c.IsLastChunk {
			return nil
		}
	}
}

// vim: foldmethod=marker
