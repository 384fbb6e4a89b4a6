package vecid

import "gonum.org/v1/gonum/mat"

const (
	undefined = 0
	noise     = -1
)

// dbscan clusters the points of a cosine similarity matrix. Two points
// are neighbours when their similarity is at least minSim. Labels start
// at 1; noise is -1.
func dbscan(sim *mat.Dense, minSim float64, minPts int) []int {
	n, _ := sim.Dims()
	labels := make([]int, n)
	clusterID := 0

	for i := 0; i < n; i++ {
		if labels[i] != undefined {
			continue
		}
		neighbors := rangeQuery(sim, i, minSim)
		if len(neighbors) < minPts {
			labels[i] = noise
			continue
		}

		clusterID++
		labels[i] = clusterID
		seed := make([]int, 0, len(neighbors))
		for _, j := range neighbors {
			if j != i {
				seed = append(seed, j)
			}
		}

		for len(seed) > 0 {
			q := seed[0]
			seed = seed[1:]

			// Noise reached from a core point becomes a border point.
			if labels[q] == noise {
				labels[q] = clusterID
			}
			if labels[q] != undefined {
				continue
			}
			labels[q] = clusterID

			if qn := rangeQuery(sim, q, minSim); len(qn) >= minPts {
				seed = append(seed, qn...)
			}
		}
	}
	return labels
}

// rangeQuery returns the neighbours of point idx, itself included.
func rangeQuery(sim *mat.Dense, idx int, minSim float64) []int {
	var out []int
	for j, s := range sim.RawRowView(idx) {
		if j == idx || s >= minSim {
			out = append(out, j)
		}
	}
	return out
}
