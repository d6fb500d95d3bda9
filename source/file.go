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
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"hz.tools/iqproc"
)

// FileSource is an iqproc.InputSource reading raw, headerless IQ samples
// from a file on disk, optionally skipping a WAV/RIFF header first
// (WavHeader true). It reports HasKnownLength true, since the file's
// size bounds the number of frames it can produce.
type FileSource struct {
	Path       string
	Format     iqproc.SampleFormat
	Rate       uint32
	WavHeader  bool
	pairBytes  int
	f          *os.File
	r          *bufio.Reader
	totalBytes int64
}

// NewFileSource constructs a FileSource for the given path, format and
// sample rate. If wavHeader is true, Initialize checks the RIFF/WAVE
// preamble and skips chunk by chunk up to the start of the data chunk's
// payload before streaming begins, following the same RIFF layout the teacher's
// rspwav/duowav tooling writes.
func NewFileSource(path string, format iqproc.SampleFormat, rate uint32, wavHeader bool) *FileSource {
	return &FileSource{Path: path, Format: format, Rate: rate, WavHeader: wavHeader}
}

// Initialize implements iqproc.InputSource.
func (s *FileSource) Initialize(ctx context.Context) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return err
	}
	s.f = f
	s.pairBytes = s.Format.BytesPerSamplePair()
	if s.pairBytes == 0 {
		f.Close()
		return fmt.Errorf("%w: %v", iqproc.ErrSampleFormatUnknown, s.Format)
	}
	if s.WavHeader {
		if err := skipWavHeader(f); err != nil {
			f.Close()
			return err
		}
	}
	s.r = bufio.NewReaderSize(f, 1<<20)
	return nil
}

func skipWavHeader(f *os.File) error {
	var hdr [12]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		return fmt.Errorf("iqproc/source: reading RIFF header: %w", err)
	}
	if string(hdr[0:4]) != "RIFF" || string(hdr[8:12]) != "WAVE" {
		return fmt.Errorf("iqproc/source: not a RIFF/WAVE file")
	}
	for {
		var chunkHdr [8]byte
		if _, err := io.ReadFull(f, chunkHdr[:]); err != nil {
			return fmt.Errorf("iqproc/source: reading chunk header: %w", err)
		}
		id := string(chunkHdr[0:4])
		size := int64(binary.LittleEndian.Uint32(chunkHdr[4:8]))
		if id == "data" {
			return nil
		}
		if _, err := f.Seek(size, io.SeekCurrent); err != nil {
			return err
		}
	}
}

// StartStream implements iqproc.InputSource.
func (s *FileSource) StartStream(ctx context.Context, buf []byte) (int, error) {
	n, err := io.ReadFull(s.r, buf)
	s.totalBytes += int64(n)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return n, nil
	}
	return n, err
}

// StopStream implements iqproc.InputSource.
func (s *FileSource) StopStream(ctx context.Context) error {
	return nil
}

// Cleanup implements iqproc.InputSource.
func (s *FileSource) Cleanup(ctx context.Context) error {
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}

// GetSummaryInfo implements iqproc.InputSource.
func (s *FileSource) GetSummaryInfo(ctx context.Context) (map[string]string, error) {
	return map[string]string{
		"path":   s.Path,
		"format": s.Format.String(),
	}, nil
}

// ValidateOptions implements iqproc.InputSource.
func (s *FileSource) ValidateOptions(cfg iqproc.AppConfig) error {
	if cfg.InputFormat != s.Format {
		return fmt.Errorf("%w: file source is %v, config requested %v", iqproc.ErrSampleFormatMismatch, s.Format, cfg.InputFormat)
	}
	if cfg.InputRate != s.Rate {
		return fmt.Errorf("iqproc/source: file source rate %d does not match config rate %d", s.Rate, cfg.InputRate)
	}
	return nil
}

// SampleFormat implements iqproc.InputSource.
func (s *FileSource) SampleFormat() iqproc.SampleFormat {
	return s.Format
}

// SampleRate implements iqproc.InputSource.
func (s *FileSource) SampleRate() uint32 {
	return s.Rate
}

// HasKnownLength implements iqproc.InputSource.
func (s *FileSource) HasKnownLength() bool {
	return true
}

// vim: foldmethod=marker
