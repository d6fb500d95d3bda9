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
	"encoding/binary"
	"fmt"
	"os"

	"hz.tools/iqproc"
)

// RawFile is an iqproc.FileWriter that writes bare sample bytes with no
// header or trailer, for iqproc.ContainerRaw.
type RawFile struct {
	Path  string
	f     *os.File
	total int64
}

// NewRawFile constructs a RawFile writer for the given path.
func NewRawFile(path string) *RawFile {
	return &RawFile{Path: path}
}

// Open implements iqproc.FileWriter.
func (w *RawFile) Open(ctx context.Context, cfg iqproc.AppConfig) error {
	f, err := os.Create(w.Path)
	if err != nil {
		return err
	}
	w.f = f
	return nil
}

// Write implements iqproc.FileWriter.
func (w *RawFile) Write(b []byte) (int, error) {
	n, err := w.f.Write(b)
	w.total += int64(n)
	return n, err
}

// Close implements iqproc.FileWriter.
func (w *RawFile) Close() error {
	if w.f == nil {
		return nil
	}
	return w.f.Close()
}

// TotalBytesWritten implements iqproc.FileWriter.
func (w *RawFile) TotalBytesWritten() int64 {
	return w.total
}

// wavHeaderSize is the canonical 44-byte RIFF/WAVE/fmt /data header this
// writer emits: no extra chunks, PCM or IEEE-float audio format, two
// channels (I is left, Q is right) -- the same layout the teacher's
// rspwav/duowav tooling documents for two-channel IQ capture.
const wavHeaderSize = 44

// WavFile is an iqproc.FileWriter that writes a 32-bit RIFF/WAV container,
// for iqproc.ContainerWav. The RIFF and data chunk sizes are unknown until
// the stream ends, so a placeholder header is written first and patched
// in place on Close -- the deferred-header-finalization idiom every WAV
// writer in the pack (rspwav, husafan-audio's wav package) uses, since
// streaming audio data rarely knows its own length up front.
type WavFile struct {
	Path          string
	BitsPerSample int
	Float         bool
	f             *os.File
	total         int64
}

// NewWavFile constructs a WavFile writer. bitsPerSample must match the
// output SampleFormat's per-scalar width (16 for cs16/cu16, 32 for
// cf32/cs32/cu32, 8 for cs8/cu8); float selects IEEE-float audio format
// (WAVE_FORMAT_IEEE_FLOAT, 3) over PCM (1).
func NewWavFile(path string, bitsPerSample int, float bool) *WavFile {
	return &WavFile{Path: path, BitsPerSample: bitsPerSample, Float: float}
}

// Open implements iqproc.FileWriter.
func (w *WavFile) Open(ctx context.Context, cfg iqproc.AppConfig) error {
	f, err := os.Create(w.Path)
	if err != nil {
		return err
	}
	w.f = f

	blockAlign := 2 * (w.BitsPerSample / 8)
	byteRate := cfg.OutputRate * uint32(blockAlign)
	audioFormat := uint16(1)
	if w.Float {
		audioFormat = 3
	}

	hdr := make([]byte, wavHeaderSize)
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 36) // patched on Close
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], audioFormat)
	binary.LittleEndian.PutUint16(hdr[22:24], 2)
	binary.LittleEndian.PutUint32(hdr[24:28], cfg.OutputRate)
	binary.LittleEndian.PutUint32(hdr[28:32], byteRate)
	binary.LittleEndian.PutUint16(hdr[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(hdr[34:36], uint16(w.BitsPerSample))
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], 0) // patched on Close

	if _, err := f.Write(hdr); err != nil {
		f.Close()
		return err
	}
	return nil
}

// Write implements iqproc.FileWriter.
func (w *WavFile) Write(b []byte) (int, error) {
	n, err := w.f.Write(b)
	w.total += int64(n)
	return n, err
}

// Close implements iqproc.FileWriter.
func (w *WavFile) Close() error {
	if w.f == nil {
		return nil
	}
	if w.total > (1<<32)-1-wavHeaderSize {
		w.f.Close()
		return fmt.Errorf("iqproc/source: %d bytes exceeds the 4 GiB RIFF/WAV limit", w.total)
	}
	riffSize := uint32(w.total) + wavHeaderSize - 8
	dataSize := uint32(w.total)
	if _, err := w.f.Seek(4, 0); err != nil {
		return err
	}
	var sz [4]byte
	binary.LittleEndian.PutUint32(sz[:], riffSize)
	if _, err := w.f.Write(sz[:]); err != nil {
		return err
	}
	if _, err := w.f.Seek(40, 0); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(sz[:], dataSize)
	if _, err := w.f.Write(sz[:]); err != nil {
		return err
	}
	return w.f.Close()
}

// TotalBytesWritten implements iqproc.FileWriter.
func (w *WavFile) TotalBytesWritten() int64 {
	return w.total
}

// vim: foldmethod=marker
