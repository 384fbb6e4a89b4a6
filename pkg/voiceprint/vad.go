package voiceprint

import (
	"fmt"
	"math"
)

// VoiceDetector classifies one window of 16-bit PCM as speech or not.
type VoiceDetector interface {
	IsSpeech(frame []int16, sampleRate int) (bool, error)
}

// EnergyVAD is a [VoiceDetector] that marks a window as speech when its
// RMS amplitude exceeds Threshold (in int16 units).
type EnergyVAD struct {
	Threshold float64
}

// DefaultEnergyThreshold is about -40 dBFS.
const DefaultEnergyThreshold = 300

// IsSpeech implements [VoiceDetector].
func (v EnergyVAD) IsSpeech(frame []int16, _ int) (bool, error) {
	if len(frame) == 0 {
		return false, nil
	}
	var sum float64
	for _, s := range frame {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum/float64(len(frame))) > v.Threshold, nil
}

// VADParams controls [TrimLongSilences].
type VADParams struct {
	WindowMs           int // detection window length in milliseconds
	MovingAverageWidth int // number of windows smoothed together
	MaxSilenceLength   int // silent windows tolerated inside speech
}

// TrimLongSilences removes silences longer than params.MaxSilenceLength
// windows from wav. The tail that does not fill a whole window is
// dropped. Short pauses inside speech are kept.
func TrimLongSilences(wav []float32, sampleRate int, params VADParams, det VoiceDetector) ([]float32, error) {
	perWindow := params.WindowMs * sampleRate / 1000
	if perWindow <= 0 || params.MovingAverageWidth <= 0 || params.MaxSilenceLength < 0 {
		return nil, fmt.Errorf("voiceprint: invalid vad params %+v", params)
	}
	numWindows := len(wav) / perWindow
	wav = wav[:numWindows*perWindow]

	pcm := make([]int16, len(wav))
	for i, s := range wav {
		pcm[i] = quantize16(s)
	}

	flags := make([]bool, numWindows)
	for w := range flags {
		speech, err := det.IsSpeech(pcm[w*perWindow:(w+1)*perWindow], sampleRate)
		if err != nil {
			return nil, fmt.Errorf("voiceprint: vad window %d: %w", w, err)
		}
		flags[w] = speech
	}

	mask := smoothFlags(flags, params.MovingAverageWidth)
	mask = dilate(mask, params.MaxSilenceLength+1)

	out := make([]float32, 0, len(wav))
	for w, keep := range mask {
		if keep {
			out = append(out, wav[w*perWindow:(w+1)*perWindow]...)
		}
	}
	return out, nil
}

func quantize16(s float32) int16 {
	v := math.Round(float64(s) * math.MaxInt16)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// smoothFlags applies a centered moving average of the given width over
// flags and rounds the result half to even, so a tie counts as silence.
func smoothFlags(flags []bool, width int) []bool {
	left := (width - 1) / 2
	out := make([]bool, len(flags))
	for i := range flags {
		count := 0
		for j := i - left; j < i-left+width; j++ {
			if j >= 0 && j < len(flags) && flags[j] {
				count++
			}
		}
		out[i] = math.RoundToEven(float64(count)/float64(width)) >= 1
	}
	return out
}

// dilate performs binary dilation of mask with a run of size ones whose
// origin is at size/2. Outside the mask is false.
func dilate(mask []bool, size int) []bool {
	lo := -(size / 2)
	hi := size - 1 - size/2
	out := make([]bool, len(mask))
	for i, on := range mask {
		if !on {
			continue
		}
		for b := lo; b <= hi; b++ {
			if j := i + b; j >= 0 && j < len(out) {
				out[j] = true
			}
		}
	}
	return out
}
