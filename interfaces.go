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

package iqproc

import (
	"context"
)

// InputSource is the collaborator the Reader drives to obtain raw sample
// frames, whether that's a file on disk or a live radio. Per-device driver
// code implements this interface; none of that code lives in this package.
type InputSource interface {
	// Initialize prepares the source (opening a file, probing a device)
	// but does not yet start streaming.
	Initialize(ctx context.Context) error

	// StartStream begins filling buf with raw bytes in the source's native
	// SampleFormat, blocking until either buf is full, the source signals
	// a clean end of stream (returning a short read with no error), or an
	// error occurs. It is called repeatedly by the Reader.
	StartStream(ctx context.Context, buf []byte) (n int, err error)

	// StopStream requests the source halt streaming at its next
	// opportunity; safe to call concurrently with StartStream.
	StopStream(ctx context.Context) error

	// Cleanup releases any resources held by the source. Called exactly
	// once, after the Reader has observed end-of-stream or a fatal error.
	Cleanup(ctx context.Context) error

	// GetSummaryInfo returns free-form key/value diagnostic information
	// about the source (device serial, center frequency, file path) for
	// logging at startup.
	GetSummaryInfo(ctx context.Context) (map[string]string, error)

	// ValidateOptions checks the resolved AppConfig against whatever this
	// source supports, returning an error for anything it cannot honor.
	ValidateOptions(cfg AppConfig) error

	// SampleFormat returns the format StartStream fills buf with.
	SampleFormat() SampleFormat

	// SampleRate returns the source's native sample rate in samples/sec.
	SampleRate() uint32

	// HasKnownLength returns true when the total number of frames the
	// source will produce is known in advance (a file), false when it is
	// not (a live radio) -- this governs whether progress reporting can
	// show a percentage or only a running count.
	HasKnownLength() bool
}

// SampleConverter is the collaborator the PreProcessor and PostProcessor
// use to move between a format's on-the-wire byte layout and the pipeline's
// internal SamplesC64 representation.
type SampleConverter interface {
	// BytesPerSamplePair returns the number of bytes one interleaved
	// sample (for complex formats: one I and one Q scalar) occupies.
	BytesPerSamplePair(format SampleFormat) int

	// ConvertIn decodes raw bytes in the given format into complex64
	// samples, appending to dst and returning the extended slice.
	// Integer formats are normalized to [-1.0, 1.0); float passes through.
	ConvertIn(dst SamplesC64, raw []byte, format SampleFormat) (SamplesC64, error)

	// ConvertOut encodes complex64 samples into the given format's byte
	// layout, appending to dst and returning the extended slice. Integer
	// formats are clamped and rounded to nearest; unsigned formats use a
	// zero-biased representation.
	ConvertOut(dst []byte, samples SamplesC64, format SampleFormat) ([]byte, error)
}

// FileWriter is the collaborator the Writer stage drains output bytes
// into. Three implementations are named by spec.md §6: raw passthrough,
// WAV (32-bit RIFF sizes), and RF64-WAV (64-bit sizes, for files that
// exceed 4 GiB). This package ships a Raw and a Wav implementation in the
// source subpackage; RF64 is left to a caller wanting >4GiB output, since
// its only difference from Wav is the trailer format.
type FileWriter interface {
	// Open prepares the sink for writing, given the resolved config and
	// the SampleFormat/rate that will be written.
	Open(ctx context.Context, cfg AppConfig) error

	// Write appends bytes to the sink, returning the number actually
	// written (less than len(b) only on error).
	Write(b []byte) (int, error)

	// Close finalizes any container trailers (frame counts, RIFF sizes)
	// and releases the underlying handle.
	Close() error

	// TotalBytesWritten returns the cumulative count of bytes accepted by
	// Write, independent of container framing overhead.
	TotalBytesWritten() int64
}

// vim: foldmethod=marker
