package voiceprint

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// L2Normalize scales v in place to unit length. A zero vector is left
// unchanged.
func L2Normalize(v []float32) {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		scale := float32(1 / norm)
		for i := range v {
			v[i] *= scale
		}
	}
}

// MeanNormalize averages equally sized vectors and L2-normalizes the
// result. It returns nil for no input.
func MeanNormalize(vs [][]float32) []float32 {
	if len(vs) == 0 {
		return nil
	}
	sum := make([]float64, len(vs[0]))
	row := make([]float64, len(vs[0]))
	for _, v := range vs {
		for i, x := range v {
			row[i] = float64(x)
		}
		floats.Add(sum, row)
	}
	floats.Scale(1/float64(len(vs)), sum)

	out := make([]float32, len(sum))
	for i, x := range sum {
		out[i] = float32(x)
	}
	L2Normalize(out)
	return out
}

// Cosine returns the cosine similarity of a and b. It returns 0 when the
// lengths differ or either vector is zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}
