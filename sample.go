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
)

var (
	// ErrSampleFormatMismatch will be returned when there's a mismatch
	// between sample formats.
	ErrSampleFormatMismatch = fmt.Errorf("iqproc: sample formats do not match")

	// ErrSampleFormatUnknown will be returned when a specific iq format is
	// not understood.
	ErrSampleFormatUnknown = fmt.Errorf("iqproc: sample format is not understood")

	// ErrDstTooSmall will be returned when attempting to perform an
	// operation and the target buffer is too small to use.
	ErrDstTooSmall = fmt.Errorf("iqproc: destination sample buffer is too small")
)

// SampleFormat identifies the on-the-wire representation of a real or
// complex sample. It is carried per-chunk (input_bytes_per_sample_pair in
// spec terms is derived from it) so the codec and the converter never need
// to guess at a byte layout.
type SampleFormat uint8

const (
	// SampleFormatS8 is a real, signed 8-bit sample.
	SampleFormatS8 SampleFormat = iota + 1
	// SampleFormatU8 is a real, unsigned 8-bit sample, zero-biased at 128.
	SampleFormatU8
	// SampleFormatS16 is a real, signed 16-bit sample.
	SampleFormatS16
	// SampleFormatU16 is a real, unsigned 16-bit sample, zero-biased at 32768.
	SampleFormatU16
	// SampleFormatS32 is a real, signed 32-bit sample.
	SampleFormatS32
	// SampleFormatU32 is a real, unsigned 32-bit sample, zero-biased at 2^31.
	SampleFormatU32
	// SampleFormatF32 is a real, IEEE-754 32-bit float sample.
	SampleFormatF32
	// SampleFormatCS8 is a complex sample, two signed 8-bit scalars, I then Q.
	SampleFormatCS8
	// SampleFormatCU8 is a complex sample, two unsigned 8-bit scalars.
	SampleFormatCU8
	// SampleFormatCS16 is a complex sample, two signed 16-bit scalars.
	SampleFormatCS16
	// SampleFormatCU16 is a complex sample, two unsigned 16-bit scalars.
	SampleFormatCU16
	// SampleFormatCS32 is a complex sample, two signed 32-bit scalars.
	SampleFormatCS32
	// SampleFormatCU32 is a complex sample, two unsigned 32-bit scalars.
	SampleFormatCU32
	// SampleFormatCF32 is a complex sample, two IEEE-754 32-bit floats.
	SampleFormatCF32
	// SampleFormatSC16Q11 is a complex sample, two signed 16-bit scalars
	// carrying an implicit Q4.11 fixed point (divide by 2048 for [-1, 1)).
	SampleFormatSC16Q11
)

// IsComplex returns true if this format carries an I and a Q scalar per
// sample rather than a single real scalar.
func (sf SampleFormat) IsComplex() bool {
	switch sf {
	case SampleFormatCS8, SampleFormatCU8, SampleFormatCS16, SampleFormatCU16,
		SampleFormatCS32, SampleFormatCU32, SampleFormatCF32, SampleFormatSC16Q11:
		return true
	}
	return false
}

// BytesPerSample returns the number of bytes a single I or Q scalar (or a
// single real scalar, for non-complex formats) occupies on the wire.
func (sf SampleFormat) BytesPerSample() int {
	switch sf {
	case SampleFormatS8, SampleFormatU8, SampleFormatCS8, SampleFormatCU8:
		return 1
	case SampleFormatS16, SampleFormatU16, SampleFormatCS16, SampleFormatCU16, SampleFormatSC16Q11:
		return 2
	case SampleFormatS32, SampleFormatU32, SampleFormatF32, SampleFormatCS32, SampleFormatCU32, SampleFormatCF32:
		return 4
	default:
		return 0
	}
}

// BytesPerSamplePair returns the number of bytes a single sample occupies
// in its interleaved, on-the-wire form: one scalar for real formats, two
// (I and Q) for complex ones. This is the unit spec.md calls "pair_bytes".
func (sf SampleFormat) BytesPerSamplePair() int {
	if sf.IsComplex() {
		return 2 * sf.BytesPerSample()
	}
	return sf.BytesPerSample()
}

// String returns a human readable name for the format, matching the names
// used on the command line and in WAV fmt chunks (cs16, cu8, ...).
func (sf SampleFormat) String() string {
	switch sf {
	case SampleFormatS8:
		return "s8"
	case SampleFormatU8:
		return "u8"
	case SampleFormatS16:
		return "s16"
	case SampleFormatU16:
		return "u16"
	case SampleFormatS32:
		return "s32"
	case SampleFormatU32:
		return "u32"
	case SampleFormatF32:
		return "f32"
	case SampleFormatCS8:
		return "cs8"
	case SampleFormatCU8:
		return "cu8"
	case SampleFormatCS16:
		return "cs16"
	case SampleFormatCU16:
		return "cu16"
	case SampleFormatCS32:
		return "cs32"
	case SampleFormatCU32:
		return "cu32"
	case SampleFormatCF32:
		return "cf32"
	case SampleFormatSC16Q11:
		return "sc16q11"
	default:
		return "unknown"
	}
}

// ParseSampleFormat parses the String() form of a SampleFormat back into
// its value, for config/preset loading.
func ParseSampleFormat(s string) (SampleFormat, error) {
	for _, sf := range AllSampleFormats {
		if sf.String() == s {
			return sf, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrSampleFormatUnknown, s)
}

// AllSampleFormats enumerates every format this package understands, in
// the bit-exact set spec.md §6 requires.
var AllSampleFormats = []SampleFormat{
	SampleFormatS8, SampleFormatU8, SampleFormatS16, SampleFormatU16,
	SampleFormatS32, SampleFormatU32, SampleFormatF32,
	SampleFormatCS8, SampleFormatCU8, SampleFormatCS16, SampleFormatCU16,
	SampleFormatCS32, SampleFormatCU32, SampleFormatCF32, SampleFormatSC16Q11,
}

// Samples represents a vector of complex IQ data flowing through the
// pipeline's DSP stages. The pipeline works exclusively in this format
// internally (the SampleChunk complex buffers); only raw_input_data and
// final_output_data carry other formats, and only as opaque bytes handled
// by a SampleConverter.
type Samples interface {
	// Format always returns SampleFormatCF32 for the concrete type this
	// package ships (SamplesC64); the method exists so generic helpers
	// don't need a type switch to identify what they were handed.
	Format() SampleFormat

	// Size returns the size of this buffer in bytes.
	Size() int

	// Length returns the number of IQ pairs in this buffer.
	Length() int

	// Slice returns a slice of the sample buffer between the provided
	// bounds. The returned value aliases the same backing array.
	Slice(int, int) Samples
}

// SamplesC64 is a vector of interleaved complex64 IQ samples: the pipeline's
// single working format between the PreProcessor and the final format
// conversion in the PostProcessor.
type SamplesC64 []complex64

// Format implements the Samples interface.
func (s SamplesC64) Format() SampleFormat {
	return SampleFormatCF32
}

// Size implements the Samples interface.
func (s SamplesC64) Size() int {
	return len(s) * 8
}

// Length implements the Samples interface.
func (s SamplesC64) Length() int {
	return len(s)
}

// Slice implements the Samples interface.
func (s SamplesC64) Slice(start, end int) Samples {
	return s[start:end]
}

// MakeSamplesC64 allocates a SamplesC64 buffer of the given length, per the
// teacher's sdr.MakeSamples convention of a single allocation function
// rather than scattering make() calls through calling code.
func MakeSamplesC64(length int) SamplesC64 {
	return make(SamplesC64, length)
}

// vim: foldmethod=marker
