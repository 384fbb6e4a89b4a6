// Package vecstore holds embeddings in memory and answers nearest-neighbour
// queries by cosine distance.
package vecstore

import "errors"

// ErrDimensionMismatch is returned when a vector's length differs from
// the index dimension.
var ErrDimensionMismatch = errors.New("vecstore: dimension mismatch")

// Index is a nearest-neighbour index over dense float32 vectors.
//
// Implementations must be safe for concurrent use.
type Index interface {
	// Insert adds or replaces the vector stored under id.
	Insert(id string, vector []float32) error

	// Search returns up to topK vectors closest to query, closest first.
	Search(query []float32, topK int) ([]Match, error)

	// Delete removes id. Missing ids are not an error.
	Delete(id string) error

	Len() int
	Close() error
}

// Match is a single search result.
type Match struct {
	ID string

	// Distance is the cosine distance in [0, 2]; lower is closer.
	Distance float32
}

// Similarity returns the cosine similarity 1 - Distance.
func (m Match) Similarity() float32 { return 1 - m.Distance }
