// Package resampler converts mono float32 waveforms between sample rates
// using a pure Go polyphase resampler.
//
// Example usage:
//
//	out, err := resampler.Resample(samples, 44100, 16000)
//	if err != nil {
//	    return err
//	}
package resampler
