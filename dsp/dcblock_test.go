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

package dsp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hz.tools/iqproc"
	"hz.tools/iqproc/dsp"
)

func TestDCBlockerRemovesOffset(t *testing.T) {
	blocker := dsp.NewDCBlocker(48000, dsp.DefaultDCBlockCutoffHz)

	buf := make(iqproc.SamplesC64, 4096)
	for i := range buf {
		buf[i] = complex(1.0, 1.0) // pure DC offset, no AC content
	}
	blocker.Process(buf)

	// After enough samples the single-pole high-pass should have driven
	// the DC component close to zero.
	tail := buf[len(buf)-16:]
	for _, s := range tail {
		assert.InDelta(t, 0, real(s), 0.05)
		assert.InDelta(t, 0, imag(s), 0.05)
	}
}

func TestDCBlockerResetClearsState(t *testing.T) {
	blocker := dsp.NewDCBlocker(48000, dsp.DefaultDCBlockCutoffHz)
	buf := make(iqproc.SamplesC64, 256)
	for i := range buf {
		buf[i] = complex(1, 0)
	}
	blocker.Process(buf)
	blocker.Reset()

	buf2 := make(iqproc.SamplesC64, 1)
	buf2[0] = complex(1, 0)
	blocker.Process(buf2)
	// Immediately after reset, the first sample's output should equal a
	// fresh filter's first-sample output (no residual memory).
	fresh := dsp.NewDCBlocker(48000, dsp.DefaultDCBlockCutoffHz)
	freshBuf := iqproc.SamplesC64{complex(1, 0)}
	fresh.Process(freshBuf)
	assert.Equal(t, freshBuf[0], buf2[0])
}

// vim: foldmethod=marker
