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

// Package source provides the concrete InputSource, FileWriter, and
// SampleConverter implementations the pipeline needs but does not itself
// know how to construct: reading raw or tone-generated IQ, converting
// between the 8 complex on-the-wire SampleFormats and the pipeline's internal
// complex64 working format, and writing raw or WAV output containers.
package source

import (
	"encoding/binary"
	"fmt"
	"math"

	"hz.tools/iqproc"
)

// Converter is the default iqproc.SampleConverter, covering every complex
// format named in iqproc.AllSampleFormats; the real (single-scalar)
// formats are rejected with an error. Unsigned integer formats are
// normalized against a half-LSB-centered full scale, the same convention
// the teacher's SamplesU8.ToC64 uses for its zero-bias ((v-127.5)/127.5)
// so that corner sample values round-trip symmetrically around zero;
// signed integer formats divide by 2^(bits-1).
type Converter struct{}

// NewConverter returns the default Converter.
func NewConverter() *Converter {
	return &Converter{}
}

// BytesPerSamplePair implements iqproc.SampleConverter.
func (c *Converter) BytesPerSamplePair(format iqproc.SampleFormat) int {
	return format.BytesPerSamplePair()
}

// ConvertIn implements iqproc.SampleConverter.
func (c *Converter) ConvertIn(dst iqproc.SamplesC64, raw []byte, format iqproc.SampleFormat) (iqproc.SamplesC64, error) {
	pair := format.BytesPerSamplePair()
	if pair == 0 {
		return nil, fmt.Errorf("%w: %v", iqproc.ErrSampleFormatUnknown, format)
	}
	if len(raw)%pair != 0 {
		return nil, fmt.Errorf("iqproc/source: raw buffer length %d is not a multiple of %d bytes", len(raw), pair)
	}
	n := len(raw) / pair
	for i := 0; i < n; i++ {
		b := raw[i*pair : (i+1)*pair]
		var sample complex64
		switch format {
		case iqproc.SampleFormatCS8:
			sample = complex(s8ToF32(int8(b[0])), s8ToF32(int8(b[1])))
		case iqproc.SampleFormatCU8:
			sample = complex(u8ToF32(b[0]), u8ToF32(b[1]))
		case iqproc.SampleFormatCS16:
			sample = complex(
				s16ToF32(int16(binary.LittleEndian.Uint16(b[0:2]))),
				s16ToF32(int16(binary.LittleEndian.Uint16(b[2:4]))),
			)
		case iqproc.SampleFormatCU16:
			sample = complex(
				u16ToF32(binary.LittleEndian.Uint16(b[0:2])),
				u16ToF32(binary.LittleEndian.Uint16(b[2:4])),
			)
		case iqproc.SampleFormatCS32:
			sample = complex(
				s32ToF32(int32(binary.LittleEndian.Uint32(b[0:4]))),
				s32ToF32(int32(binary.LittleEndian.Uint32(b[4:8]))),
			)
		case iqproc.SampleFormatCU32:
			sample = complex(
				u32ToF32(binary.LittleEndian.Uint32(b[0:4])),
				u32ToF32(binary.LittleEndian.Uint32(b[4:8])),
			)
		case iqproc.SampleFormatCF32:
			sample = complex(
				math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])),
				math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])),
			)
		case iqproc.SampleFormatSC16Q11:
			sample = complex(
				sc16q11ToF32(int16(binary.LittleEndian.Uint16(b[0:2]))),
				sc16q11ToF32(int16(binary.LittleEndian.Uint16(b[2:4]))),
			)
		case iqproc.SampleFormatS8, iqproc.SampleFormatU8, iqproc.SampleFormatS16,
			iqproc.SampleFormatU16, iqproc.SampleFormatS32, iqproc.SampleFormatU32,
			iqproc.SampleFormatF32:
			return nil, fmt.Errorf("iqproc/source: %v is a real format, not complex", format)
		default:
			return nil, fmt.Errorf("%w: %v", iqproc.ErrSampleFormatUnknown, format)
		}
		dst = append(dst, sample)
	}
	return dst, nil
}

// ConvertOut implements iqproc.SampleConverter.
func (c *Converter) ConvertOut(dst []byte, samples iqproc.SamplesC64, format iqproc.SampleFormat) ([]byte, error) {
	pair := format.BytesPerSamplePair()
	if pair == 0 {
		return nil, fmt.Errorf("%w: %v", iqproc.ErrSampleFormatUnknown, format)
	}
	var scratch [8]byte
	for _, s := range samples {
		i, q := real(s), imag(s)
		switch format {
		case iqproc.SampleFormatCS8:
			dst = append(dst, byte(f32ToS8(i)), byte(f32ToS8(q)))
		case iqproc.SampleFormatCU8:
			dst = append(dst, f32ToU8(i), f32ToU8(q))
		case iqproc.SampleFormatCS16:
			binary.LittleEndian.PutUint16(scratch[0:2], uint16(f32ToS16(i)))
			binary.LittleEndian.PutUint16(scratch[2:4], uint16(f32ToS16(q)))
			dst = append(dst, scratch[0:4]...)
		case iqproc.SampleFormatCU16:
			binary.LittleEndian.PutUint16(scratch[0:2], f32ToU16(i))
			binary.LittleEndian.PutUint16(scratch[2:4], f32ToU16(q))
			dst = append(dst, scratch[0:4]...)
		case iqproc.SampleFormatCS32:
			binary.LittleEndian.PutUint32(scratch[0:4], uint32(f32ToS32(i)))
			binary.LittleEndian.PutUint32(scratch[4:8], uint32(f32ToS32(q)))
			dst = append(dst, scratch[0:8]...)
		case iqproc.SampleFormatCU32:
			binary.LittleEndian.PutUint32(scratch[0:4], f32ToU32(i))
			binary.LittleEndian.PutUint32(scratch[4:8], f32ToU32(q))
			dst = append(dst, scratch[0:8]...)
		case iqproc.SampleFormatCF32:
			binary.LittleEndian.PutUint32(scratch[0:4], math.Float32bits(i))
			binary.LittleEndian.PutUint32(scratch[4:8], math.Float32bits(q))
			dst = append(dst, scratch[0:8]...)
		case iqproc.SampleFormatSC16Q11:
			binary.LittleEndian.PutUint16(scratch[0:2], uint16(f32ToSC16Q11(i)))
			binary.LittleEndian.PutUint16(scratch[2:4], uint16(f32ToSC16Q11(q)))
			dst = append(dst, scratch[0:4]...)
		case iqproc.SampleFormatS8, iqproc.SampleFormatU8, iqproc.SampleFormatS16,
			iqproc.SampleFormatU16, iqproc.SampleFormatS32, iqproc.SampleFormatU32,
			iqproc.SampleFormatF32:
			return nil, fmt.Errorf("iqproc/source: %v is a real format, not complex", format)
		default:
			return nil, fmt.Errorf("%w: %v", iqproc.ErrSampleFormatUnknown, format)
		}
	}
	return dst, nil
}

// The half-LSB-centered scale factors below follow the teacher's
// SamplesU8.ToC64 convention ((v-127.5)/127.5) generalized to every
// unsigned integer width this package supports; signed widths (and
// sc16q11) divide by a power of two.

func s8ToF32(v int8) float32   { return float32(v) / 128.0 }
func u8ToF32(v uint8) float32  { return (float32(v) - 127.5) / 127.5 }
func s16ToF32(v int16) float32 { return float32(v) / 32768.0 }
func u16ToF32(v uint16) float32 {
	return (float32(v) - 32767.5) / 32767.5
}
func s32ToF32(v int32) float32 { return float32(v) / 2147483648.0 }
func u32ToF32(v uint32) float32 {
	return (float32(v) - 2147483647.5) / 2147483647.5
}
func sc16q11ToF32(v int16) float32 { return float32(v) / 2048.0 }

func f32ToS8(f float32) int8 {
	return int8(clampInt(round(float64(f)*128.0), -128, 127))
}
func f32ToU8(f float32) byte {
	return byte(clampInt(round(float64(f)*127.5+127.5), 0, 255))
}
func f32ToS16(f float32) int16 {
	return int16(clampInt(round(float64(f)*32768.0), -32768, 32767))
}
func f32ToU16(f float32) uint16 {
	return uint16(clampInt(round(float64(f)*32767.5+32767.5), 0, 65535))
}
func f32ToS32(f float32) int32 {
	return int32(clampInt64(round64(float64(f)*2147483648.0), -2147483648, 2147483647))
}
func f32ToU32(f float32) uint32 {
	return uint32(clampInt64(round64(float64(f)*2147483647.5+2147483647.5), 0, 4294967295))
}
func f32ToSC16Q11(f float32) int16 {
	return int16(clampInt(round(float64(f)*2048.0), -2048, 2047))
}

func round(f float64) int       { return int(math.Round(f)) }
func round64(f float64) int64   { return int64(math.Round(f)) }
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// vim: foldmethod=marker
