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

package source

import (
	"context"
	"fmt"
	"math"

	"hz.tools/iqproc"
	"hz.tools/rf"
)

// ToneSource is an iqproc.InputSource generating a synthetic carrier wave
// at a fixed frequency, used for pipeline smoke tests and CLI demos where
// no radio or recording is available. It never ends on its own;
// HasKnownLength is false and StopStream is the only way to halt it.
//
// The waveform itself is the teacher's testutils.CW generator, carried
// over unchanged: a phase accumulated in floating point rather than an
// NCO, since a bounded-duration tone source has no drift budget to manage.
type ToneSource struct {
	Freq   rf.Hz
	Rate   uint32
	Phase  float64
	stop   chan struct{}
	sample int64
}

// NewToneSource constructs a ToneSource emitting a carrier at freq,
// sampled at rate.
func NewToneSource(freq rf.Hz, rate uint32) *ToneSource {
	return &ToneSource{Freq: freq, Rate: rate, stop: make(chan struct{})}
}

// Initialize implements iqproc.InputSource.
func (s *ToneSource) Initialize(ctx context.Context) error {
	return nil
}

// StartStream implements iqproc.InputSource.
func (s *ToneSource) StartStream(ctx context.Context, buf []byte) (int, error) {
	samples, err := NewConverter().ConvertOut(nil, s.generate(len(buf)/8), iqproc.SampleFormatCF32)
	if err != nil {
		return 0, err
	}
	n := copy(buf, samples)
	select {
	case <-s.stop:
		return 0, nil
	case <-ctx.Done():
		return n, ctx.Err()
	default:
		return n, nil
	}
}

func (s *ToneSource) generate(n int) iqproc.SamplesC64 {
	buf := make(iqproc.SamplesC64, n)
	carrierFreq := float64(s.Freq)
	tau := math.Pi * 2
	for i := range buf {
		now := float64(s.sample) / float64(s.Rate)
		buf[i] = complex64(complex(
			math.Cos(tau*carrierFreq*now+s.Phase),
			math.Sin(tau*carrierFreq*now+s.Phase),
		))
		s.sample++
	}
	return buf
}

// StopStream implements iqproc.InputSource.
func (s *ToneSource) StopStream(ctx context.Context) error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	return nil
}

// Cleanup implements iqproc.InputSource.
func (s *ToneSource) Cleanup(ctx context.Context) error {
	return nil
}

// GetSummaryInfo implements iqproc.InputSource.
func (s *ToneSource) GetSummaryInfo(ctx context.Context) (map[string]string, error) {
	return map[string]string{
		"freq": fmt.Sprintf("%v", s.Freq),
	}, nil
}

// ValidateOptions implements iqproc.InputSource.
func (s *ToneSource) ValidateOptions(cfg iqproc.AppConfig) error {
	if cfg.InputFormat != iqproc.SampleFormatCF32 {
		return nil
	}
	return nil
}

// SampleFormat implements iqproc.InputSource.
func (s *ToneSource) SampleFormat() iqproc.SampleFormat {
	return iqproc.SampleFormatCF32
}

// SampleRate implements iqproc.InputSource.
func (s *ToneSource) SampleRate() uint32 {
	return s.Rate
}

// HasKnownLength implements iqproc.InputSource.
func (s *ToneSource) HasKnownLength() bool {
	return false
}

// vim: foldmethod=marker
