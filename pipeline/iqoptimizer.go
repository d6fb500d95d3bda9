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

package pipeline

import (
	"context"
	"math"

	"hz.tools/iqproc"
	"hz.tools/iqproc/dsp"
	"hz.tools/iqproc/fft"
)

// Constants from spec.md §4.9.
const (
	// IQCorrectionFFTSize is the block size the IqOptimizer accumulates
	// before each estimation pass.
	IQCorrectionFFTSize = 1024

	// IQMaxPasses bounds the gradient-descent search per estimation pass.
	IQMaxPasses = 25

	// IQBaseIncrement is the gradient step size for both magnitude and
	// phase.
	IQBaseIncrement = 0.0001

	// IQCorrectionPeakThresholdDB is the minimum signal strength, in
	// dBFS, an estimation pass requires before trusting its image
	// measurement; weak blocks are mostly noise and would otherwise walk
	// the correction factors off in a random direction.
	IQCorrectionPeakThresholdDB = -60.0

	// IQCorrectionSmoothingFactor exponentially smooths each pass's
	// estimate into the live correction factors, so a single noisy block
	// can't cause a visible step change in the corrected output.
	IQCorrectionSmoothingFactor = 0.05
)

// IqOptimizer is the off-path worker spec.md §4.9 describes: it consumes
// post-correction sample snapshots the PreProcessor periodically forwards
// (spec.md §4.4 step 5), estimates an improved I/Q gain/phase correction
// by gradient descent on the image-to-signal ratio, and publishes it back
// through the shared IQCorrector via its atomic double-buffered swap.
type IqOptimizer struct {
	res    *AppResources
	window []float32
	accum  iqproc.SamplesC64
}

// NewIqOptimizer builds an IqOptimizer.
func NewIqOptimizer(res *AppResources) *IqOptimizer {
	return &IqOptimizer{
		res:    res,
		window: dsp.BlackmanWindow(IQCorrectionFFTSize),
	}
}

// Run drains the iq_optimization queue, accumulating snapshots into
// IQCorrectionFFTSize-sample blocks and running one estimation pass per
// full block, until shutdown.
func (o *IqOptimizer) Run(ctx context.Context) error {
	for {
		c, ok := o.res.Queues.IQOpt.Dequeue()
		if !ok {
			return nil
		}
		o.accum = append(o.accum, c.ComplexPreResampleData[:c.FramesToWrite]...)
		c.Reset()
		o.res.Queues.Free.Enqueue(c)

		for len(o.accum) >= IQCorrectionFFTSize {
			o.estimate(o.accum[:IQCorrectionFFTSize])
			o.accum = append(o.accum[:0], o.accum[IQCorrectionFFTSize:]...)
		}
	}
}

// estimate runs steps 2 through 5 of spec.md §4.9 against one
// IQCorrectionFFTSize-sample block.
func (o *IqOptimizer) estimate(block iqproc.SamplesC64) {
	windowed := make(iqproc.SamplesC64, len(block))
	for i := range block {
		windowed[i] = block[i] * complex(o.window[i], 0)
	}

	freq := make([]complex64, len(windowed))
	if err := fft.TransformOnce(o.res.Planner, windowed, freq, fft.Forward); err != nil {
		if o.res.Logger != nil {
			o.res.Logger.Warn("iq optimizer: forward fft failed", "err", err)
		}
		return
	}

	peakBin, peakMag := peakBin(freq)
	if peakBin == 0 || peakMag == 0 {
		return
	}
	signalDB := 20 * math.Log10(float64(peakMag)/float64(len(freq)))
	if signalDB < IQCorrectionPeakThresholdDB {
		return
	}
	imageBin := fft.SymmetricBin(len(freq), peakBin)

	mag, phase := o.res.IQCorrector.Get()
	bestMag, bestPhase := mag, phase
	bestRatio := o.imageRatio(block, bestMag, bestPhase, peakBin, imageBin)

	type step struct{ dm, dp float32 }
	steps := []step{
		{IQBaseIncrement, 0}, {-IQBaseIncrement, 0},
		{0, IQBaseIncrement}, {0, -IQBaseIncrement},
	}

	for pass := 0; pass < IQMaxPasses; pass++ {
		improved := false
		for _, s := range steps {
			candMag := bestMag + s.dm
			candPhase := bestPhase + s.dp
			ratio := o.imageRatio(block, candMag, candPhase, peakBin, imageBin)
			if ratio < bestRatio {
				bestRatio = ratio
				bestMag, bestPhase = candMag, candPhase
				improved = true
			}
		}
		if !improved {
			break
		}
	}

	newMag := mag + IQCorrectionSmoothingFactor*(bestMag-mag)
	newPhase := phase + IQCorrectionSmoothingFactor*(bestPhase-phase)
	o.res.IQCorrector.Set(newMag, newPhase)
}

// imageRatio applies a trial (magnitude, phase) correction to a scratch
// copy of block, windows and forward-transforms it, and returns the
// image-to-signal energy ratio at the given bin pair.
func (o *IqOptimizer) imageRatio(block iqproc.SamplesC64, magnitude, phase float32, signalBin, imageBin int) float64 {
	sinP := float32(math.Sin(float64(phase)))
	cosP := float32(math.Cos(float64(phase)))

	trial := make(iqproc.SamplesC64, len(block))
	for i, s := range block {
		i0 := real(s)
		q0 := imag(s)
		q1 := (q0 - magnitude*i0*sinP) / cosP
		trial[i] = complex(i0*o.window[i], q1*o.window[i])
	}

	freq := make([]complex64, len(trial))
	if err := fft.TransformOnce(o.res.Planner, trial, freq, fft.Forward); err != nil {
		return math.MaxFloat64
	}

	signalMag := cmplxAbs(freq[signalBin])
	imageMag := cmplxAbs(freq[imageBin])
	if signalMag == 0 {
		return math.MaxFloat64
	}
	return float64(imageMag / signalMag)
}

// peakBin returns the index and magnitude of the strongest non-DC bin in
// freq -- the block's estimated carrier, which the image-ratio
// measurement is centered on.
func peakBin(freq []complex64) (int, float32) {
	var bestIdx int
	var bestMag float32
	for i := 1; i < len(freq); i++ {
		m := cmplxAbs(freq[i])
		if m > bestMag {
			bestMag = m
			bestIdx = i
		}
	}
	return bestIdx, bestMag
}

func cmplxAbs(c complex64) float32 {
	re, im := real(c), imag(c)
	return float32(math.Hypot(float64(re), float64(im)))
}

// vim: foldmethod=marker
