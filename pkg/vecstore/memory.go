package vecstore

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Memory is a brute-force Index. The first inserted vector fixes the
// dimension.
type Memory struct {
	mu      sync.RWMutex
	dim     int
	vectors map[string][]float64
}

// NewMemory creates an empty index.
func NewMemory() *Memory {
	return &Memory{vectors: make(map[string][]float64)}
}

// Dimension returns the vector length, or 0 while the index is empty.
func (m *Memory) Dimension() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dim
}

func (m *Memory) Insert(id string, vector []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(vector) == 0 {
		return fmt.Errorf("vecstore: insert %s: empty vector", id)
	}
	if len(m.vectors) == 0 {
		m.dim = len(vector)
	}
	if len(vector) != m.dim {
		return fmt.Errorf("%w: insert %s: got %d, index has %d", ErrDimensionMismatch, id, len(vector), m.dim)
	}
	m.vectors[id] = widen(vector)
	return nil
}

// Search ranks every stored vector. Ties are broken by id so results are
// reproducible.
func (m *Memory) Search(query []float32, topK int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.vectors) == 0 || topK <= 0 {
		return nil, nil
	}
	if len(query) != m.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), m.dim)
	}

	q := widen(query)
	matches := make([]Match, 0, len(m.vectors))
	for id, vec := range m.vectors {
		matches = append(matches, Match{ID: id, Distance: cosineDistance(q, vec)})
	}
	slices.SortFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *Memory) Delete(id string) error {
	m.mu.Lock()
	delete(m.vectors, id)
	if len(m.vectors) == 0 {
		m.dim = 0
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}

func (m *Memory) Close() error {
	return nil
}

// CosineDistance returns 1 - cos(a, b) in [0, 2]. Mismatched lengths and
// zero vectors are maximally distant.
func CosineDistance(a, b []float32) float32 {
	if len(a) != len(b) {
		return 2
	}
	return cosineDistance(widen(a), widen(b))
}

func cosineDistance(a, b []float64) float32 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 2
	}
	sim := floats.Dot(a, b) / (na * nb)
	sim = math.Max(-1, math.Min(1, sim))
	return float32(1 - sim)
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
