package fbank

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// hannWindow generates a periodic Hann window of length n.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melFSp       = 200.0 / 3
	melMinLogHz  = 1000.0
	melMinLogMel = melMinLogHz / melFSp
)

var melLogStep = math.Log(6.4) / 27

// hzToMel converts frequency in Hz to the Slaney mel scale.
func hzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLogMel + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

// melToHz converts Slaney mel back to Hz.
func melToHz(mel float64) float64 {
	if mel >= melMinLogMel {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLogMel))
	}
	return melFSp * mel
}

// melFrequencies returns n frequencies evenly spaced on the mel scale
// between fmin and fmax inclusive.
func melFrequencies(n int, fmin, fmax float64) []float64 {
	lo, hi := hzToMel(fmin), hzToMel(fmax)
	out := make([]float64, n)
	for i := range out {
		m := lo
		if n > 1 {
			m = lo + (hi-lo)*float64(i)/float64(n-1)
		}
		out[i] = melToHz(m)
	}
	return out
}

// melFilterBank creates [numMels, fftSize/2+1] triangular filters with
// Slaney area normalization.
func melFilterBank(numMels, fftSize, sampleRate int, fmin, fmax float64) *mat.Dense {
	numBins := fftSize/2 + 1
	fftFreqs := make([]float64, numBins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(fftSize)
	}
	melF := melFrequencies(numMels+2, fmin, fmax)

	bank := mat.NewDense(numMels, numBins, nil)
	for m := 0; m < numMels; m++ {
		lowDiff := melF[m+1] - melF[m]
		highDiff := melF[m+2] - melF[m+1]
		enorm := 2 / (melF[m+2] - melF[m])
		for k, f := range fftFreqs {
			lower := (f - melF[m]) / lowDiff
			upper := (melF[m+2] - f) / highDiff
			w := math.Max(0, math.Min(lower, upper))
			bank.Set(m, k, w*enorm)
		}
	}
	return bank
}
