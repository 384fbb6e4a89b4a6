package vecstore

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestMemoryInsertAndSearch(t *testing.T) {
	idx := NewMemory()
	_ = idx.Insert("spk1/a.npy", []float32{1, 0, 0, 0})
	_ = idx.Insert("spk2/b.npy", []float32{0, 1, 0, 0})
	_ = idx.Insert("spk1/c.npy", []float32{0.9, 0.1, 0, 0})

	matches, err := idx.Search([]float32{1, 0, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "spk1/a.npy" || matches[1].ID != "spk1/c.npy" {
		t.Errorf("matches = %+v", matches)
	}
	if math.Abs(float64(matches[0].Similarity())-1) > 1e-6 {
		t.Errorf("top similarity = %v, want 1", matches[0].Similarity())
	}
}

func TestMemorySearchTies(t *testing.T) {
	idx := NewMemory()
	for _, id := range []string{"c", "a", "b"} {
		idx.Insert(id, []float32{1, 1})
	}
	matches, err := idx.Search([]float32{1, 1}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 3 || matches[0].ID != "a" || matches[1].ID != "b" || matches[2].ID != "c" {
		t.Fatalf("tie order = %+v", matches)
	}
}

func TestMemoryDimension(t *testing.T) {
	idx := NewMemory()
	if err := idx.Insert("a", []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if idx.Dimension() != 3 {
		t.Fatalf("Dimension = %d", idx.Dimension())
	}
	if err := idx.Insert("b", []float32{1, 0}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Insert short vector: %v", err)
	}
	if _, err := idx.Search([]float32{1}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Search short query: %v", err)
	}
	if err := idx.Insert("c", nil); err == nil {
		t.Error("expected error for empty vector")
	}

	idx.Delete("a")
	if idx.Dimension() != 0 {
		t.Errorf("Dimension after emptying = %d", idx.Dimension())
	}
	if err := idx.Insert("d", []float32{1, 0}); err != nil {
		t.Errorf("Insert into emptied index: %v", err)
	}
}

func TestMemoryDelete(t *testing.T) {
	idx := NewMemory()
	idx.Insert("a", []float32{1, 0})
	idx.Insert("b", []float32{0, 1})
	if err := idx.Delete("a"); err != nil {
		t.Fatal(err)
	}
	if err := idx.Delete("missing"); err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 1 {
		t.Fatalf("Len = %d, want 1", idx.Len())
	}
	matches, _ := idx.Search([]float32{1, 0}, 5)
	if len(matches) != 1 || matches[0].ID != "b" {
		t.Fatalf("matches = %+v", matches)
	}
}

func TestMemorySearchEmpty(t *testing.T) {
	idx := NewMemory()
	matches, err := idx.Search([]float32{1, 0}, 5)
	if err != nil || matches != nil {
		t.Fatalf("empty search = %v, %v", matches, err)
	}
	idx.Insert("a", []float32{1, 0})
	if matches, _ := idx.Search([]float32{1, 0}, 0); matches != nil {
		t.Fatalf("topK 0 = %v", matches)
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 2},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineDistance(tt.a, tt.b)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("CosineDistance = %v, want %v", got, tt.want)
			}
		})
	}
}

func BenchmarkMemorySearch(b *testing.B) {
	idx := NewMemory()
	for i := range 1000 {
		v := make([]float32, 256)
		for j := range v {
			v[j] = float32(math.Sin(float64(i*256 + j)))
		}
		idx.Insert(fmt.Sprintf("utt%04d", i), v)
	}
	q := make([]float32, 256)
	q[0] = 1
	b.ResetTimer()
	for b.Loop() {
		idx.Search(q, 10)
	}
}
