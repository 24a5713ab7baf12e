package vecindex

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_Validation(t *testing.T) {
	tests := []struct {
		name    string
		vectors [][]float32
		wantErr error
	}{
		{
			name:    "empty input",
			vectors: nil,
			wantErr: ErrEmptyIndex,
		},
		{
			name:    "zero dimension",
			vectors: [][]float32{{}},
			wantErr: ErrInvalidVector,
		},
		{
			name:    "dimension mismatch",
			vectors: [][]float32{{1, 0}, {1, 0, 0}},
			wantErr: ErrDimensionMismatch,
		},
		{
			name:    "NaN component",
			vectors: [][]float32{{1, float32(math.NaN())}},
			wantErr: ErrInvalidVector,
		},
		{
			name:    "Inf component",
			vectors: [][]float32{{1, float32(math.Inf(1))}},
			wantErr: ErrInvalidVector,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := Build(tt.vectors)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, idx)
		})
	}
}

func TestBuild_Normalizes(t *testing.T) {
	// {3,4} has norm 5; after normalization a same-direction query
	// scores 1.0.
	idx, err := Build([][]float32{{3, 4}})
	require.NoError(t, err)
	require.Equal(t, 1, idx.Len())
	require.Equal(t, 2, idx.Dim())

	hits, err := idx.Search([]float32{6, 8}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, float64(hits[0].Score), 1e-5)
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)

	zero := []float32{0, 0}
	Normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestSearch_Ordering(t *testing.T) {
	idx, err := Build([][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	})
	require.NoError(t, err)

	// Query closest to position 1, then 0, then 2.
	hits, err := idx.Search([]float32{0.3, 1, 0.1}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, 1, hits[0].Position)
	assert.Equal(t, 0, hits[1].Position)
	assert.Equal(t, 2, hits[2].Position)
	assert.True(t, hits[0].Score >= hits[1].Score)
	assert.True(t, hits[1].Score >= hits[2].Score)
}

func TestSearch_SelfSimilarity(t *testing.T) {
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	idx, err := Build(vectors)
	require.NoError(t, err)

	for i, v := range vectors {
		hits, err := idx.Search(v, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, i, hits[0].Position, "vector %d should match itself", i)
		assert.InDelta(t, 1.0, float64(hits[0].Score), 1e-5)
	}
}

func TestSearch_TiesKeepInsertionOrder(t *testing.T) {
	// Identical vectors score identically; hits must come back in
	// insertion order.
	idx, err := Build([][]float32{
		{1, 1},
		{1, 1},
		{1, 1},
	})
	require.NoError(t, err)

	hits, err := idx.Search([]float32{1, 1}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for i, h := range hits {
		assert.Equal(t, i, h.Position)
	}
}

func TestSearch_ScoreBounds(t *testing.T) {
	idx, err := Build([][]float32{{1, 0}, {-1, 0}})
	require.NoError(t, err)

	hits, err := idx.Search([]float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.InDelta(t, 1.0, float64(hits[0].Score), 1e-5)
	assert.InDelta(t, -1.0, float64(hits[1].Score), 1e-5)
	for _, h := range hits {
		assert.LessOrEqual(t, h.Score, float32(1))
		assert.GreaterOrEqual(t, h.Score, float32(-1))
	}
}

func TestSearch_KBounds(t *testing.T) {
	idx, err := Build([][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)

	hits, err := idx.Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = idx.Search([]float32{1, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search([]float32{1, 0}, -3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	idx, err := Build([][]float32{{1, 0, 0}})
	require.NoError(t, err)

	_, err = idx.Search([]float32{1, 0}, 1)
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	idx, err := Build([][]float32{
		{0.2, 0.9, 0.1},
		{0.8, 0.1, 0.3},
		{0.1, 0.2, 0.95},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, idx.Encode(&buf))

	loaded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, idx.Len(), loaded.Len())
	assert.Equal(t, idx.Dim(), loaded.Dim())

	query := []float32{0.15, 0.85, 0.2}
	want, err := idx.Search(query, 3)
	require.NoError(t, err)
	got, err := loaded.Search(query, 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecode_Corrupt(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("not a gob stream")))
	require.ErrorIs(t, err, ErrCorruptIndex)
}
