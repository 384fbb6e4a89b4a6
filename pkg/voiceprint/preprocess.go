package voiceprint

import (
	"fmt"

	"github.com/yt605155624/Parakeet/pkg/audio/fbank"
	"github.com/yt605155624/Parakeet/pkg/audio/resampler"
	"github.com/yt605155624/Parakeet/pkg/audio/wav"
	"github.com/yt605155624/Parakeet/pkg/cli"
)

// Preprocessor turns audio files into mel partials ready for an
// [Encoder]. It holds FFT buffers, so it is not safe for concurrent use.
type Preprocessor struct {
	cfg cli.DataConfig
	vad VoiceDetector
	mel *fbank.Extractor
	hop int
}

// PreprocessorOption configures a Preprocessor.
type PreprocessorOption func(*Preprocessor)

// WithVoiceDetector replaces the default [EnergyVAD].
func WithVoiceDetector(d VoiceDetector) PreprocessorOption {
	return func(p *Preprocessor) {
		if d != nil {
			p.vad = d
		}
	}
}

// NewPreprocessor creates a Preprocessor for the data section of a
// configuration.
func NewPreprocessor(cfg cli.DataConfig, opts ...PreprocessorOption) (*Preprocessor, error) {
	mel, err := fbank.New(fbank.ConfigFor(cfg.SamplingRate, cfg.MelWindowLength, cfg.MelWindowStep, cfg.NMels))
	if err != nil {
		return nil, fmt.Errorf("voiceprint: %w", err)
	}
	p := &Preprocessor{
		cfg: cfg,
		vad: EnergyVAD{Threshold: DefaultEnergyThreshold},
		mel: mel,
		hop: mel.Config().HopSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// LoadWav decodes a WAV file to mono float32 at the configured rate.
func (p *Preprocessor) LoadWav(path string) ([]float32, error) {
	w, err := wav.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("voiceprint: load: %w", err)
	}
	if w.SampleRate == p.cfg.SamplingRate {
		return w.Samples, nil
	}
	out, err := resampler.Resample(w.Samples, w.SampleRate, p.cfg.SamplingRate)
	if err != nil {
		return nil, fmt.Errorf("voiceprint: resample %s: %w", path, err)
	}
	return out, nil
}

// PreprocessWav normalizes the volume of wav (boost only) and trims its
// long silences. wav must already be at the configured rate.
func (p *Preprocessor) PreprocessWav(wav []float32) ([]float32, error) {
	wav = NormalizeVolume(wav, p.cfg.AudioNormTargetDBFS, true)
	trimmed, err := TrimLongSilences(wav, p.cfg.SamplingRate, VADParams{
		WindowMs:           p.cfg.VADWindowLength,
		MovingAverageWidth: p.cfg.VADMovingAverageWidth,
		MaxSilenceLength:   p.cfg.VADMaxSilenceLength,
	}, p.vad)
	if err != nil {
		return nil, err
	}
	if len(trimmed) == 0 {
		return nil, ErrAudioTooShort
	}
	return trimmed, nil
}

// PreprocessFile loads and preprocesses the WAV file at path.
func (p *Preprocessor) PreprocessFile(path string) ([]float32, error) {
	wav, err := p.LoadWav(path)
	if err != nil {
		return nil, err
	}
	out, err := p.PreprocessWav(wav)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// ExtractMelPartials zero-pads wav to cover the last partial, computes
// its mel spectrogram, and cuts it into [P][partial_n_frames][n_mels].
func (p *Preprocessor) ExtractMelPartials(wav []float32) ([][][]float32, error) {
	if len(wav) == 0 {
		return nil, ErrAudioTooShort
	}
	slices, err := ComputePartialSlices(len(wav), p.cfg.PartialNFrames, p.hop,
		p.cfg.MinPadCoverage, p.cfg.PartialOverlap())
	if err != nil {
		return nil, err
	}

	maxLen := slices.Wav[len(slices.Wav)-1].Stop
	if maxLen > len(wav) {
		padded := make([]float32, maxLen)
		copy(padded, wav)
		wav = padded
	}

	frames := p.mel.Extract(wav)
	partials := make([][][]float32, len(slices.Mel))
	for i, s := range slices.Mel {
		if s.Stop > len(frames) {
			return nil, fmt.Errorf("%w: partial %d ends at frame %d of %d", ErrShapeMismatch, i, s.Stop, len(frames))
		}
		partials[i] = frames[s.Start:s.Stop]
	}
	return partials, nil
}
