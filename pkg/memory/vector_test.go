package memory

import (
	"errors"
	"math"
	"testing"
)

func TestVectorIndex_Search(t *testing.T) {
	vi := NewVectorIndex(3)
	mustAdd := func(ref string, v []float32) {
		t.Helper()
		if err := vi.Add(ref, v); err != nil {
			t.Fatal(err)
		}
	}
	mustAdd("a", []float32{1, 0, 0})
	mustAdd("b", []float32{0.7, 0.7, 0})
	mustAdd("c", []float32{0, 1, 0})
	mustAdd("d", []float32{-1, 0, 0})

	hits, err := vi.Search([]float32{1, 0, 0}, 10, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected only positive similarities, got %v", hits)
	}
	if hits[0].Ref != "a" || hits[1].Ref != "b" {
		t.Errorf("unexpected order %v", hits)
	}
	if math.Abs(hits[0].Score-1) > 1e-9 {
		t.Errorf("expected similarity 1, got %v", hits[0].Score)
	}
}

func TestVectorIndex_TopKAndAccept(t *testing.T) {
	vi := NewVectorIndex(2)
	_ = vi.Add("a", []float32{1, 0.1})
	_ = vi.Add("b", []float32{1, 0.2})
	_ = vi.Add("c", []float32{1, 0.3})

	hits, err := vi.Search([]float32{1, 0}, 1, func(ref string) bool { return ref != "a" })
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Ref != "b" {
		t.Errorf("expected b, got %v", hits)
	}
}

func TestVectorIndex_DimensionMismatch(t *testing.T) {
	vi := NewVectorIndex(3)

	if err := vi.Add("a", []float32{1, 0}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on add, got %v", err)
	}
	if _, err := vi.Search([]float32{1}, 5, nil); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on search, got %v", err)
	}
	if vi.Len() != 0 {
		t.Errorf("expected no vectors, got %d", vi.Len())
	}
}

func TestVectorIndex_Remove(t *testing.T) {
	vi := NewVectorIndex(2)
	_ = vi.Add("a", []float32{1, 0})
	vi.Remove("a")
	vi.Remove("missing")

	hits, err := vi.Search([]float32{1, 0}, 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %v", hits)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2}, []float32{1, 2}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("cosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}
