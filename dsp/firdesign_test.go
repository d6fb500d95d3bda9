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
	"github.com/stretchr/testify/require"

	"hz.tools/iqproc/dsp"
	"hz.tools/rf"
)

func TestDesignLowpassIsSymmetric(t *testing.T) {
	taps := dsp.DesignLowpass(rf.Hz(1000), 48000, 65)
	require.Len(t, taps, 65)
	for i := range taps {
		assert.InDelta(t, taps[i], taps[len(taps)-1-i], 1e-6)
	}
}

func TestDesignLowpassUnityDCGain(t *testing.T) {
	taps := dsp.DesignLowpass(rf.Hz(1000), 48000, 65)
	var sum float32
	for _, v := range taps {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-3)
}

func TestDesignHighpassComplementsLowpass(t *testing.T) {
	lp := dsp.DesignLowpass(rf.Hz(5000), 48000, 65)
	hp := dsp.DesignHighpass(rf.Hz(5000), 48000, 65)
	require.Equal(t, len(lp), len(hp))
	for i := range lp {
		if i == len(lp)/2 {
			continue
		}
		assert.InDelta(t, -lp[i], hp[i], 1e-6)
	}
}

// vim: foldmethod=marker
