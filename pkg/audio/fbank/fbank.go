// Package fbank computes power mel spectrograms from mono waveforms.
//
// The transform follows the librosa defaults used by speaker encoders:
// centered frames with reflect padding, a periodic Hann window the length
// of the FFT, power 2 magnitudes, and a Slaney-style mel filterbank with
// area normalization. No log is applied.
//
// With the GE2E defaults:
//
//	SampleRate: 16000
//	FFTSize:    400 (25 ms)
//	HopSize:    160 (10 ms)
//	NumMels:    40
//	FMin:       0
//	FMax:       SampleRate / 2
package fbank

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// Config controls mel spectrogram extraction.
type Config struct {
	SampleRate int     // audio sample rate in Hz
	FFTSize    int     // FFT and window length in samples
	HopSize    int     // hop length in samples
	NumMels    int     // number of mel bins
	FMin       float64 // lowest filter edge in Hz
	FMax       float64 // highest filter edge in Hz; 0 means SampleRate/2
}

// ConfigFor derives a Config from a sample rate and window/step lengths
// in milliseconds.
func ConfigFor(sampleRate, windowMs, stepMs, numMels int) Config {
	return Config{
		SampleRate: sampleRate,
		FFTSize:    sampleRate * windowMs / 1000,
		HopSize:    sampleRate * stepMs / 1000,
		NumMels:    numMels,
	}
}

// DefaultConfig returns the 16 kHz, 25 ms / 10 ms, 40 mel configuration.
func DefaultConfig() Config {
	return ConfigFor(16000, 25, 10, 40)
}

// Extractor computes mel spectrograms. It reuses FFT work buffers, so it
// is not safe for concurrent use.
type Extractor struct {
	cfg    Config
	window []float64
	bank   *mat.Dense // [NumMels, FFTSize/2+1]
	fft    *fourier.FFT
	frame  []float64
	coeffs []complex128
}

// New creates an Extractor for cfg.
func New(cfg Config) (*Extractor, error) {
	if cfg.FMax == 0 {
		cfg.FMax = float64(cfg.SampleRate) / 2
	}
	switch {
	case cfg.SampleRate <= 0:
		return nil, fmt.Errorf("fbank: invalid sample rate %d", cfg.SampleRate)
	case cfg.FFTSize < 2:
		return nil, fmt.Errorf("fbank: invalid fft size %d", cfg.FFTSize)
	case cfg.HopSize <= 0:
		return nil, fmt.Errorf("fbank: invalid hop size %d", cfg.HopSize)
	case cfg.NumMels <= 0:
		return nil, fmt.Errorf("fbank: invalid mel count %d", cfg.NumMels)
	case cfg.FMin < 0 || cfg.FMax <= cfg.FMin:
		return nil, fmt.Errorf("fbank: invalid frequency range [%v, %v]", cfg.FMin, cfg.FMax)
	}
	return &Extractor{
		cfg:    cfg,
		window: hannWindow(cfg.FFTSize),
		bank:   melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, cfg.FMin, cfg.FMax),
		fft:    fourier.NewFFT(cfg.FFTSize),
		frame:  make([]float64, cfg.FFTSize),
	}, nil
}

// Config returns the extractor configuration with defaults filled in.
func (e *Extractor) Config() Config { return e.cfg }

// NumFrames returns the number of frames Extract yields for n samples.
func (e *Extractor) NumFrames(n int) int {
	return 1 + n/e.cfg.HopSize
}

// Extract computes the mel spectrogram of pcm as [frames][NumMels] with
// frames = 1 + len(pcm)/HopSize. An empty input yields nil.
func (e *Extractor) Extract(pcm []float32) [][]float32 {
	if len(pcm) == 0 {
		return nil
	}
	nfft := e.cfg.FFTSize
	padded := reflectPad(pcm, nfft/2)
	numFrames := e.NumFrames(len(pcm))
	numBins := nfft/2 + 1

	power := mat.NewDense(numFrames, numBins, nil)
	for t := 0; t < numFrames; t++ {
		start := t * e.cfg.HopSize
		for i := 0; i < nfft; i++ {
			e.frame[i] = padded[start+i] * e.window[i]
		}
		e.coeffs = e.fft.Coefficients(e.coeffs, e.frame)
		row := power.RawRowView(t)
		for k, c := range e.coeffs[:numBins] {
			row[k] = real(c)*real(c) + imag(c)*imag(c)
		}
	}

	var mel mat.Dense
	mel.Mul(power, e.bank.T())

	out := make([][]float32, numFrames)
	for t := range out {
		row := mel.RawRowView(t)
		frame := make([]float32, len(row))
		for m, v := range row {
			frame[m] = float32(v)
		}
		out[t] = frame
	}
	return out
}

// Flatten converts [T][numMels] to a flat row-major [T*numMels] slice.
func Flatten(features [][]float32) []float32 {
	if len(features) == 0 {
		return nil
	}
	cols := len(features[0])
	flat := make([]float32, len(features)*cols)
	for t, row := range features {
		copy(flat[t*cols:], row)
	}
	return flat
}

// reflectPad mirrors pad samples onto both ends of x without repeating
// the edge sample. Inputs shorter than pad are reflected repeatedly.
func reflectPad(x []float32, pad int) []float64 {
	n := len(x)
	out := make([]float64, n+2*pad)
	for i := range out {
		out[i] = float64(x[reflectIndex(i-pad, n)])
	}
	return out
}

func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}
