// Package audio is the umbrella for the audio front-end of the ge2e
// tool:
//
//   - wav: WAV decoding to mono float32 and 16-bit encoding
//   - resampler: sample-rate conversion
//   - fbank: librosa-compatible mel spectrograms
//
// Example usage:
//
//	w, err := wav.ReadFile("utt.wav")
//	if err != nil {
//	    return err
//	}
//	pcm, err := resampler.Resample(w.Samples, w.SampleRate, 16000)
//	if err != nil {
//	    return err
//	}
//	mel, err := fbank.New(fbank.ConfigFor(16000, 25, 10, 40))
//	if err != nil {
//	    return err
//	}
//	frames := mel.Extract(pcm)
package audio
