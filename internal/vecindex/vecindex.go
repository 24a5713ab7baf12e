// Package vecindex provides an exact inner-product similarity index over
// L2-normalized vectors. Positions in the index align 1:1 with the chunk
// records stored alongside it; the mapping is never reordered.
package vecindex

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
)

// Common errors.
var (
	ErrEmptyIndex        = errors.New("no vectors to index")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrInvalidVector     = errors.New("invalid vector")
	ErrCorruptIndex      = errors.New("corrupt index data")
)

// Hit is one search result: the insertion position of the matched vector
// and its inner-product score against the normalized query.
type Hit struct {
	Position int
	Score    float32
}

// Index holds normalized vectors for exact nearest-neighbor search.
// Immutable once built.
type Index struct {
	dim     int
	vectors [][]float32
}

// Build validates, copies and L2-normalizes every vector, then constructs
// the index. All-or-nothing: any invalid vector fails the whole build and
// no index exists.
func Build(vectors [][]float32) (*Index, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyIndex
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: zero-dimension vector at position 0", ErrInvalidVector)
	}

	normalized := make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: position %d has dimension %d, want %d",
				ErrDimensionMismatch, i, len(v), dim)
		}
		for _, x := range v {
			if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
				return nil, fmt.Errorf("%w: non-finite component at position %d", ErrInvalidVector, i)
			}
		}
		cp := make([]float32, dim)
		copy(cp, v)
		Normalize(cp)
		normalized[i] = cp
	}

	return &Index{dim: dim, vectors: normalized}, nil
}

// Normalize scales v to unit L2 norm in place. Zero vectors are left as-is.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	return len(idx.vectors)
}

// Dim returns the vector dimension.
func (idx *Index) Dim() int {
	return idx.dim
}

// Search returns up to k hits ordered by inner product descending.
// The query is normalized before scoring, so scores are cosine
// similarities in [-1, 1]. Ties keep insertion order.
func (idx *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != idx.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, want %d",
			ErrDimensionMismatch, len(query), idx.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	q := make([]float32, idx.dim)
	copy(q, query)
	Normalize(q)

	scored := make([]Hit, len(idx.vectors))
	for i, v := range idx.vectors {
		scored[i] = Hit{Position: i, Score: dot(q, v)}
	}

	// Stable sort over position-ascending input keeps insertion order
	// for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// dot computes the inner product, accumulating in float64 and clamping
// the result to [-1, 1] to absorb float drift on normalized input.
func dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	if sum > 1 {
		sum = 1
	}
	if sum < -1 {
		sum = -1
	}
	return float32(sum)
}

// indexPayload is the serialized form of an Index.
type indexPayload struct {
	Dim     int
	Vectors [][]float32
}

// Encode writes the index to w in gob format.
func (idx *Index) Encode(w io.Writer) error {
	payload := indexPayload{Dim: idx.dim, Vectors: idx.vectors}
	if err := gob.NewEncoder(w).Encode(payload); err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	return nil
}

// Decode reads an index previously written by Encode and validates its
// shape before returning it.
func Decode(r io.Reader) (*Index, error) {
	var payload indexPayload
	if err := gob.NewDecoder(r).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	if payload.Dim <= 0 || len(payload.Vectors) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrCorruptIndex)
	}
	for i, v := range payload.Vectors {
		if len(v) != payload.Dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d",
				ErrCorruptIndex, i, len(v), payload.Dim)
		}
	}
	return &Index{dim: payload.Dim, vectors: payload.Vectors}, nil
}
