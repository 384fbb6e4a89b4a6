package voiceprint

import "fmt"

// Utterance is the result of embedding one audio file.
type Utterance struct {
	Embedding  []float32
	Partials   int // number of mel partials
	Samples    int // samples left after silence trimming
	SampleRate int
}

// Embed runs the whole pipeline on one audio file.
func Embed(pre *Preprocessor, enc Encoder, path string) (*Utterance, error) {
	wav, err := pre.PreprocessFile(path)
	if err != nil {
		return nil, err
	}
	partials, err := pre.ExtractMelPartials(wav)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	embed, err := enc.EmbedUtterance(partials)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Utterance{
		Embedding:  embed,
		Partials:   len(partials),
		Samples:    len(wav),
		SampleRate: pre.cfg.SamplingRate,
	}, nil
}

// EmbedUtterance runs the whole pipeline on one audio file and returns
// only the embedding.
func EmbedUtterance(pre *Preprocessor, enc Encoder, path string) ([]float32, error) {
	u, err := Embed(pre, enc, path)
	if err != nil {
		return nil, err
	}
	return u.Embedding, nil
}
