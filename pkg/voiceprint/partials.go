package voiceprint

import (
	"fmt"
	"math"
)

// Slice is a half-open index range [Start, Stop).
type Slice struct {
	Start, Stop int
}

// Len returns Stop - Start.
func (s Slice) Len() int { return s.Stop - s.Start }

// PartialSlices holds matching wav sample and mel frame ranges for each
// partial of an utterance.
type PartialSlices struct {
	Wav []Slice
	Mel []Slice
}

// ComputePartialSlices splits an utterance of nSamples into overlapping
// partials of partialFrames mel frames at hop samples per frame.
//
// A last partial that holds less than minPadCoverage of real audio is
// dropped, unless it is the only one. There is always at least one
// partial; short utterances are padded by the caller.
func ComputePartialSlices(nSamples, partialFrames, hop int, minPadCoverage, overlap float64) (PartialSlices, error) {
	if overlap < 0 || overlap >= 1 {
		return PartialSlices{}, fmt.Errorf("voiceprint: partial overlap %v not in [0, 1)", overlap)
	}
	if minPadCoverage <= 0 || minPadCoverage > 1 {
		return PartialSlices{}, fmt.Errorf("voiceprint: min pad coverage %v not in (0, 1]", minPadCoverage)
	}
	if partialFrames <= 0 || hop <= 0 {
		return PartialSlices{}, fmt.Errorf("voiceprint: invalid partial frames %d or hop %d", partialFrames, hop)
	}

	nFrames := int(math.Ceil(float64(nSamples+1) / float64(hop)))
	frameStep := max(1, int(math.RoundToEven(float64(partialFrames)*(1-overlap))))
	steps := max(1, nFrames-partialFrames+frameStep+1)

	var ps PartialSlices
	for i := 0; i < steps; i += frameStep {
		mel := Slice{Start: i, Stop: i + partialFrames}
		ps.Mel = append(ps.Mel, mel)
		ps.Wav = append(ps.Wav, Slice{Start: mel.Start * hop, Stop: mel.Stop * hop})
	}

	last := ps.Wav[len(ps.Wav)-1]
	coverage := float64(nSamples-last.Start) / float64(last.Len())
	if coverage < minPadCoverage && len(ps.Mel) > 1 {
		ps.Mel = ps.Mel[:len(ps.Mel)-1]
		ps.Wav = ps.Wav[:len(ps.Wav)-1]
	}
	return ps, nil
}
