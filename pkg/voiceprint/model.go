package voiceprint

import "fmt"

// Encoder computes utterance embeddings from mel partials.
//
// The input is [P][T][n_mels] with P ≥ 1. The output is an L2-normalized
// vector of length Dimension(): each partial is embedded and normalized,
// then the partial embeddings are averaged and normalized again.
//
// Implementations are not required to be safe for concurrent use.
type Encoder interface {
	// EmbedUtterance computes one embedding for all partials of an
	// utterance.
	EmbedUtterance(partials [][][]float32) ([]float32, error)

	// Dimension returns the embedding size.
	Dimension() int

	// Close releases any resources held by the encoder.
	Close() error
}

// checkPartials validates the [P][T][nMels] layout of partials and
// returns T.
func checkPartials(partials [][][]float32, nMels int) (int, error) {
	if len(partials) == 0 || len(partials[0]) == 0 {
		return 0, fmt.Errorf("%w: no partials", ErrShapeMismatch)
	}
	frames := len(partials[0])
	for i, p := range partials {
		if len(p) != frames {
			return 0, fmt.Errorf("%w: partial %d has %d frames, want %d", ErrShapeMismatch, i, len(p), frames)
		}
		for t, f := range p {
			if len(f) != nMels {
				return 0, fmt.Errorf("%w: partial %d frame %d has %d mels, want %d", ErrShapeMismatch, i, t, len(f), nMels)
			}
		}
	}
	return frames, nil
}
