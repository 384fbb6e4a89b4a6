// Package vecid groups speaker embeddings into clusters and names each
// cluster with a stable id, so that utterances of the same voice share a
// label.
//
//	res, err := vecid.Cluster(vectors, vecid.Config{Threshold: 0.7, Prefix: "speaker"})
//	for i, id := range res.Labels { ... }         // "" for noise
//	id, sim, ok := res.Identify(newEmbedding)      // nearest centroid
//
// Clustering is DBSCAN over cosine distance with eps = 1 - Threshold.
// Clusters are numbered in order of their first member, so the same
// input order always yields the same ids.
package vecid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch is returned when vectors differ in length.
var ErrDimensionMismatch = errors.New("vecid: dimension mismatch")

// Config controls clustering.
type Config struct {
	// Threshold is the minimum cosine similarity between neighbours.
	// Default: 0.5.
	Threshold float32

	// MinSamples is the neighbourhood size (the point included) that
	// makes a core point. Default: 2.
	MinSamples int

	// Prefix is prepended to ids ("speaker" gives "speaker:001").
	Prefix string
}

func (c *Config) defaults() {
	if c.Threshold == 0 {
		c.Threshold = 0.5
	}
	if c.MinSamples == 0 {
		c.MinSamples = 2
	}
}

// Group is one cluster of embeddings.
type Group struct {
	ID string

	// Centroid is the L2-normalized mean of the members.
	Centroid []float32

	// Members are indices into the clustered vectors, ascending.
	Members []int
}

// Result is the outcome of [Cluster].
type Result struct {
	// Labels holds the group id of every input vector, "" for noise.
	Labels []string

	Groups    []Group
	threshold float32
}

// Cluster runs DBSCAN over vectors.
func Cluster(vectors [][]float32, cfg Config) (*Result, error) {
	cfg.defaults()
	if cfg.Threshold < -1 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("vecid: threshold %v outside [-1, 1]", cfg.Threshold)
	}
	res := &Result{Labels: make([]string, len(vectors)), threshold: cfg.Threshold}
	if len(vectors) == 0 {
		return res, nil
	}

	normed, err := normalizeRows(vectors)
	if err != nil {
		return nil, err
	}
	var sim mat.Dense
	sim.Mul(normed, normed.T())

	labels := dbscan(&sim, float64(cfg.Threshold), cfg.MinSamples)

	n, dim := normed.Dims()
	byLabel := make(map[int]int)
	for i := 0; i < n; i++ {
		l := labels[i]
		if l <= 0 {
			continue
		}
		g, ok := byLabel[l]
		if !ok {
			g = len(res.Groups)
			byLabel[l] = g
			res.Groups = append(res.Groups, Group{ID: formatID(cfg.Prefix, g+1)})
		}
		res.Groups[g].Members = append(res.Groups[g].Members, i)
		res.Labels[i] = res.Groups[g].ID
	}

	for g := range res.Groups {
		sum := make([]float64, dim)
		for _, i := range res.Groups[g].Members {
			floats.Add(sum, normed.RawRowView(i))
		}
		res.Groups[g].Centroid = unit(sum)
	}
	return res, nil
}

// Identify returns the group whose centroid is most similar to emb, if
// that similarity reaches the clustering threshold.
func (r *Result) Identify(emb []float32) (id string, similarity float32, ok bool) {
	best, bestSim := -1, float32(-2)
	for i, g := range r.Groups {
		if len(g.Centroid) != len(emb) {
			continue
		}
		if s := cosine(emb, g.Centroid); s > bestSim {
			best, bestSim = i, s
		}
	}
	if best < 0 || bestSim < r.threshold {
		return "", 0, false
	}
	return r.Groups[best].ID, bestSim, true
}

// Noise returns the indices of vectors that joined no group.
func (r *Result) Noise() []int {
	var out []int
	for i, l := range r.Labels {
		if l == "" {
			out = append(out, i)
		}
	}
	return out
}

func formatID(prefix string, n int) string {
	if prefix != "" {
		return fmt.Sprintf("%s:%03d", prefix, n)
	}
	return fmt.Sprintf("%03d", n)
}

// normalizeRows returns the vectors as unit-length rows of a matrix.
// Zero vectors stay zero.
func normalizeRows(vectors [][]float32) (*mat.Dense, error) {
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	m := mat.NewDense(len(vectors), dim, nil)
	row := make([]float64, dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: vector %d has %d, want %d", ErrDimensionMismatch, i, len(v), dim)
		}
		for d, x := range v {
			row[d] = float64(x)
		}
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
		m.SetRow(i, row)
	}
	return m, nil
}

func unit(v []float64) []float32 {
	norm := floats.Norm(v, 2)
	out := make([]float32, len(v))
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(x / norm)
	}
	return out
}

func cosine(a, b []float32) float32 {
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
	return float32(dot / math.Sqrt(na*nb))
}
