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

// Package pipeline wires the chunk pool, queues and DSP stages from the
// arena/chunk/ringbuf/dsp/fft/source packages into the six-stage worker
// pipeline spec.md §4/§5 describes: one goroutine per stage, communicating
// exclusively through bounded chunk queues, with a single AppResources
// struct as the shared read-mostly state every stage is built against.
package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"hz.tools/iqproc"
	"hz.tools/iqproc/chunk"
	"hz.tools/iqproc/dsp"
	"hz.tools/iqproc/fft"
	"hz.tools/iqproc/ringbuf"
)

// DefaultQueueCapacity bounds the in-flight chunk count of every
// inter-stage queue except the free pool (which is sized to the whole
// chunk.Pool). A handful of chunks per queue is enough slack to absorb
// stage-to-stage jitter without either stalling or hoarding chunks away
// from stages further down the line.
const DefaultQueueCapacity = 8

// IQOptQueueCapacity bounds the side-channel queue the PreProcessor
// forwards periodic correction snapshots into, spec.md §4.4 step 5 /
// §4.9. Small: a stalled IqOptimizer should never be able to starve the
// free pool of more than a couple of chunks.
const IQOptQueueCapacity = 2

// Queues groups every bounded chunk queue chained between pipeline
// stages, spec.md §3's "Queues" list.
type Queues struct {
	Free      *chunk.Queue
	RawToPre  *chunk.Queue
	PreToRes  *chunk.Queue
	ResToPost *chunk.Queue
	IQOpt     *chunk.Queue
	Stdout    *chunk.Queue
}

// NewQueues builds every queue at its spec-appropriate capacity, seeding
// Free with every chunk in pool.
func NewQueues(pool *chunk.Pool) *Queues {
	q := &Queues{
		Free:      chunk.NewQueue(pool.Len()),
		RawToPre:  chunk.NewQueue(DefaultQueueCapacity),
		PreToRes:  chunk.NewQueue(DefaultQueueCapacity),
		ResToPost: chunk.NewQueue(DefaultQueueCapacity),
		IQOpt:     chunk.NewQueue(IQOptQueueCapacity),
		Stdout:    chunk.NewQueue(DefaultQueueCapacity),
	}
	for _, c := range pool.Chunks() {
		q.Free.Enqueue(c)
	}
	return q
}

// SignalShutdown broadcasts shutdown to every queue, per spec.md §5's
// "global shutdown flag ... broadcast to every queue's signal_shutdown()".
func (q *Queues) SignalShutdown() {
	q.Free.SignalShutdown()
	q.RawToPre.SignalShutdown()
	q.PreToRes.SignalShutdown()
	q.ResToPost.SignalShutdown()
	q.IQOpt.SignalShutdown()
	q.Stdout.SignalShutdown()
}

// Progress tracks the counters spec.md §5 requires be updated under a
// single mutex (progress_mutex) rather than scattered atomics, since a
// consistent snapshot across TotalFramesRead/TotalOutputFrames matters
// more than per-field update cost on this low-frequency path.
type Progress struct {
	mu                sync.Mutex
	start             time.Time
	totalFramesRead   uint64
	totalOutputFrames uint64
	chunksDropped     uint64
}

// NewProgress creates a Progress tracker, starting its elapsed-time clock
// now.
func NewProgress(now time.Time) *Progress {
	return &Progress{start: now}
}

// AddFramesRead records n additional frames accepted by the Reader.
func (p *Progress) AddFramesRead(n int) {
	p.mu.Lock()
	p.totalFramesRead += uint64(n)
	p.mu.Unlock()
}

// AddOutputFrames records n additional frames emitted by the
// PostProcessor.
func (p *Progress) AddOutputFrames(n int) {
	p.mu.Lock()
	p.totalOutputFrames += uint64(n)
	p.mu.Unlock()
}

// AddDropped records n additional frames (or chunks, in realtime-SDR
// mode) dropped to an overrun.
func (p *Progress) AddDropped(n uint64) {
	p.mu.Lock()
	p.chunksDropped += n
	p.mu.Unlock()
}

// Snapshot returns a consistent, point-in-time copy of every counter.
func (p *Progress) Snapshot(now time.Time) iqproc.ProgressSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return iqproc.ProgressSnapshot{
		TotalFramesRead:   p.totalFramesRead,
		TotalOutputFrames: p.totalOutputFrames,
		ChunksDropped:     p.chunksDropped,
		Elapsed:           now.Sub(p.start).Seconds(),
	}
}

// AppResources is the shared, mostly-read-only struct every pipeline
// stage is constructed against: one DSP object per stateful stage (owned
// by that stage alone, so no internal locking is needed beyond what
// IQCorrector's atomic publish/read already provides), the chunk pool and
// queues, and the handful of counters stages other than their owner must
// observe. Mirrors spec.md §3/§5's AppResources.
type AppResources struct {
	Cfg    iqproc.AppConfig
	Pool   *chunk.Pool
	Queues *Queues
	Logger *log.Logger

	OutputRing *ringbuf.Ring // file-output mode only
	SDRRing    *ringbuf.Ring // buffered-SDR mode only

	DCBlock            *dsp.DCBlocker
	PreNCO             *dsp.NCO
	PostNCO            *dsp.NCO
	IQCorrector        *dsp.IQCorrector
	Filters            *dsp.FilterChain
	FilterPostResample bool
	Resampler          *dsp.Resampler
	Converter          iqproc.SampleConverter

	// Planner is the FFT planner the IqOptimizer's forward FFT uses to
	// measure image-to-signal ratio, spec.md §4.9 step 2. Shared with
	// whatever planner built Filters, so the process only ever holds one
	// live FFTW plan cache.
	Planner fft.Planner

	Progress *Progress

	shutdownOnce sync.Once
	failed       atomic.Bool
	firstErr     atomic.Pointer[error]

	overrunMu      sync.Mutex
	lastOverrunLog time.Time
	droppedSince   uint64
}

// Fail records the first fatal pipeline error (spec.md §7: source read,
// codec/parse, and writer errors are all fatal) and broadcasts shutdown
// to every queue exactly once. Safe to call concurrently from multiple
// stages; only the first call's error is retained.
func (r *AppResources) Fail(err error) {
	if err == nil {
		return
	}
	if r.failed.CompareAndSwap(false, true) {
		r.firstErr.Store(&err)
	}
	r.shutdownOnce.Do(func() {
		r.Queues.SignalShutdown()
		if r.OutputRing != nil {
			r.OutputRing.Close()
		}
		if r.SDRRing != nil {
			r.SDRRing.Close()
		}
	})
}

// Shutdown broadcasts a clean shutdown (user cancel or normal EOF
// drain-to-completion) without recording an error, spec.md §7's "user
// cancel is not an error" path.
func (r *AppResources) Shutdown() {
	r.shutdownOnce.Do(func() {
		r.Queues.SignalShutdown()
		if r.OutputRing != nil {
			r.OutputRing.Close()
		}
		if r.SDRRing != nil {
			r.SDRRing.Close()
		}
	})
}

// Err returns the first fatal error recorded by Fail, or nil.
func (r *AppResources) Err() error {
	p := r.firstErr.Load()
	if p == nil {
		return nil
	}
	return *p
}

// RecordOverrun accounts for n dropped frames (or whole chunks) and logs
// at most once per second, per spec.md §4.3/§7's rate-limited overrun
// logging requirement -- an SDR capture thread running at full tilt into
// a stalled consumer would otherwise log thousands of times a second.
func (r *AppResources) RecordOverrun(now time.Time, n uint64) {
	r.Progress.AddDropped(n)

	r.overrunMu.Lock()
	r.droppedSince += n
	due := now.Sub(r.lastOverrunLog) >= time.Second
	var total uint64
	if due {
		total = r.droppedSince
		r.droppedSince = 0
		r.lastOverrunLog = now
	}
	r.overrunMu.Unlock()

	if due && r.Logger != nil {
		r.Logger.Warn("input overrun, dropping samples", "frames_or_chunks", total)
	}
}

// vim: foldmethod=marker
