package voiceprint

import "math"

// NormalizeVolume scales wav so that its mean power reaches targetDBFS.
// With increaseOnly, quieter-than-target audio is boosted but louder
// audio is returned unchanged. The input slice is not modified.
func NormalizeVolume(wav []float32, targetDBFS float64, increaseOnly bool) []float32 {
	out := make([]float32, len(wav))
	copy(out, wav)
	if len(wav) == 0 {
		return out
	}

	var power float64
	for _, s := range wav {
		power += float64(s) * float64(s)
	}
	power /= float64(len(wav))
	if power == 0 {
		return out
	}

	change := targetDBFS - 10*math.Log10(power)
	if change < 0 && increaseOnly {
		return out
	}
	gain := float32(math.Pow(10, change/20))
	for i := range out {
		out[i] *= gain
	}
	return out
}
