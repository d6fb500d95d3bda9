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
	"fmt"

	"hz.tools/rf"
)

// FilterKind names one stage of the user-requested filter chain, §4.8.
type FilterKind uint8

const (
	// FilterLowpass passes frequencies below Freq.
	FilterLowpass FilterKind = iota + 1
	// FilterHighpass passes frequencies above Freq.
	FilterHighpass
	// FilterBandpass passes a band of width Bandwidth centered at Freq.
	FilterBandpass
	// FilterBandstop rejects a band of width Bandwidth centered at Freq.
	FilterBandstop
)

// MaxFilterChain is the maximum number of filter stages a user may chain,
// per spec.md §4.8 (MAX_FILTER_CHAIN).
const MaxFilterChain = 5

// FilterSpec is one entry of the user-requested filter chain.
type FilterSpec struct {
	Kind FilterKind

	// Freq is the cutoff (lowpass/highpass) or center (bandpass/bandstop)
	// frequency.
	Freq rf.Hz

	// Bandwidth is only meaningful for FilterBandpass/FilterBandstop.
	Bandwidth rf.Hz
}

// ContainerFormat names a FileWriter output container.
type ContainerFormat uint8

const (
	// ContainerRaw writes bare sample bytes with no header or trailer.
	ContainerRaw ContainerFormat = iota + 1
	// ContainerWav writes a 32-bit RIFF/WAV container.
	ContainerWav
	// ContainerRF64Wav names the 64-bit RF64/WAV container. cmd/iqproc
	// writes it with the same 32-bit RIFF/WAV writer as ContainerWav
	// (source.WavFile): no RF64 header is produced, and an output past
	// 4 GiB fails on Close.
	ContainerRF64Wav
)

// AppConfig is the resolved, validated configuration the pipeline
// observes. Per spec.md §6, the command-line parser and preset loader
// that produce this value are external collaborators; this struct is the
// seam between them and the core.
type AppConfig struct {
	// InputRate is the sample rate, in samples/sec, the InputSource
	// produces. It is authoritative even if the source disagrees (the
	// source is validated against it via InputSource.ValidateOptions).
	InputRate uint32

	// OutputRate is the sample rate, in samples/sec, the pipeline should
	// produce after resampling. Equal to InputRate (or NoResample set)
	// selects resampler passthrough mode, §4.5.
	OutputRate uint32

	// NoResample forces resampler passthrough mode regardless of the
	// InputRate/OutputRate ratio.
	NoResample bool

	// InputFormat is the SampleFormat of bytes the InputSource produces.
	InputFormat SampleFormat

	// OutputFormat is the SampleFormat the PostProcessor should convert
	// to before handing chunks to the Writer.
	OutputFormat SampleFormat

	// OutputContainer selects the FileWriter implementation for
	// file-output mode; ignored in stdout mode.
	OutputContainer ContainerFormat

	// Gain is a linear multiplier applied in the PreProcessor, §4.4 step 2.
	// A value of 1.0 is a no-op.
	Gain float32

	// FreqShift, if non-zero, is the NCO shift frequency applied by either
	// the PreProcessor or the PostProcessor depending on ShiftAfterResample.
	FreqShift rf.Hz

	// ShiftAfterResample selects whether FreqShift is applied before
	// (false) or after (true) the Resampler, §4.4 step 6 / §4.6 step 2.
	ShiftAfterResample bool

	// EnableDCBlock turns on the PreProcessor's DC blocker, §4.4 step 3.
	EnableDCBlock bool

	// EnableIQCorrection turns on I/Q imbalance correction and the
	// IqOptimizer worker that estimates its coefficients, §4.4 step 4,
	// §4.9.
	EnableIQCorrection bool

	// Filters is the user-requested filter chain, up to MaxFilterChain
	// entries, §4.8.
	Filters []FilterSpec

	// ForceFFTFilter forces FFT overlap-save filtering even when the
	// composite filter chain is real-symmetric and would otherwise use a
	// time-domain FIR, §4.8.
	ForceFFTFilter bool

	// FilterBlockSize, if non-zero, overrides the FFT filter's block
	// size; must be a power of two large enough for the composite filter,
	// §4.8.
	FilterBlockSize int

	// ResamplerStopbandDB is a stopband attenuation in dB; cmd/iqproc
	// defaults it to ResamplerStopbandDefaultDB (60). The value is carried
	// in the config only: dsp.Resampler designs a fixed 63-tap prototype
	// and does not read it.
	ResamplerStopbandDB float64

	// OutputToStdout selects realtime-SDR/stdout mode (§4.3 mode 3, §4.7
	// stdout mode) over file-output mode.
	OutputToStdout bool

	// OutputPath is the destination file path in file-output mode.
	OutputPath string

	// SourceName identifies which InputSource implementation to construct
	// (e.g. "file", "tone"); the construction itself is a collaborator
	// concern, not the core's.
	SourceName string

	// SourceOptions carries per-source string parameters (file path,
	// device index, ...), opaque to the core.
	SourceOptions map[string]string

	// ProgressInterval controls how often the pipeline orchestrator
	// invokes AppConfig.Progress, if set. Defaults to one second.
	ProgressInterval float64

	// Progress, if non-nil, is called periodically with a snapshot of
	// pipeline counters.
	Progress ProgressFunc
}

// ResamplerStopbandDefaultDB is the spec.md §4.5 default stopband
// attenuation.
const ResamplerStopbandDefaultDB = 60.0

// ProgressSnapshot is the value delivered to a ProgressFunc. Shape defined
// by this spec (see SPEC_FULL.md §C) since spec.md leaves the progress
// callback's payload unspecified beyond naming the two counters it must
// expose.
type ProgressSnapshot struct {
	TotalFramesRead   uint64
	TotalOutputFrames uint64
	ChunksDropped     uint64
	Elapsed           float64
}

// ProgressFunc is invoked periodically by the pipeline orchestrator.
type ProgressFunc func(ProgressSnapshot)

// Validate checks internal consistency of the config that does not depend
// on the chosen InputSource (which validates itself via
// InputSource.ValidateOptions). Setup errors per spec.md §7 are returned
// here, to be logged fatally and abort initialization before any worker
// starts.
func (c AppConfig) Validate() error {
	if c.InputRate == 0 {
		return fmt.Errorf("%w: input rate must be non-zero", ErrInvalidConfig)
	}
	if !c.NoResample {
		ratio := float64(c.OutputRate) / float64(c.InputRate)
		if c.OutputRate == 0 {
			return fmt.Errorf("%w: output rate must be non-zero unless no-resample is set", ErrInvalidConfig)
		}
		if ratio < 0.001 || ratio > 1000 {
			return fmt.Errorf("%w: resample ratio %f out of [0.001, 1000]", ErrInvalidConfig, ratio)
		}
	}
	if c.InputFormat == 0 || !c.InputFormat.IsComplex() {
		return fmt.Errorf("%w: input format must be a complex SampleFormat", ErrInvalidConfig)
	}
	if c.OutputFormat == 0 {
		return fmt.Errorf("%w: output format must be set", ErrInvalidConfig)
	}
	if len(c.Filters) > MaxFilterChain {
		return fmt.Errorf("%w: filter chain has %d stages, max is %d", ErrInvalidConfig, len(c.Filters), MaxFilterChain)
	}
	if c.Gain == 0 {
		return fmt.Errorf("%w: gain of exactly 0 would mute all output; use a small value if intentional", ErrInvalidConfig)
	}
	return nil
}

// ErrInvalidConfig is returned by AppConfig.Validate for any setup-time
// configuration error, per spec.md §7.
var ErrInvalidConfig = fmt.Errorf("iqproc: invalid configuration")

// vim: foldmethod=marker
