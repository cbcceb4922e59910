package sparse

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromTripletsSumsDuplicates(t *testing.T) {
	m, err := FromTriplets(3, 4,
		[]int{2, 0, 2, 0, 2},
		[]int{1, 3, 1, 0, 0},
		[]float64{1, 2, 4, 5, 1},
	)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	assert.Equal(t, 4, m.NNZ())
	assert.Equal(t, 5.0, m.At(0, 0))
	assert.Equal(t, 2.0, m.At(0, 3))
	assert.Equal(t, 5.0, m.At(2, 1))
	assert.Equal(t, 1.0, m.At(2, 0))
	assert.Equal(t, 0.0, m.At(1, 2))
	assert.Equal(t, []int{0, 2, 2, 4}, m.Indptr)

	cols, _ := m.Row(2)
	assert.Equal(t, []int{0, 1}, cols)
}

func TestFromTripletsRejectsBadInput(t *testing.T) {
	_, err := FromTriplets(2, 2, []int{0}, []int{0, 1}, []float64{1})
	assert.Error(t, err)
	_, err = FromTriplets(2, 2, []int{2}, []int{0}, []float64{1})
	assert.Error(t, err)
	_, err = FromTriplets(2, 2, []int{0}, []int{5}, []float64{1})
	assert.Error(t, err)
}

func TestEmptyMatrix(t *testing.T) {
	m, err := FromTriplets(0, 0, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, m.Validate())
	assert.Equal(t, 0, m.NNZ())
}

func TestRowNonZerosAndEach(t *testing.T) {
	m, err := FromTriplets(2, 3, []int{0, 0, 1}, []int{0, 2, 1}, []float64{1, 3, 2})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, m.RowNonZeros())

	var sum float64
	m.Each(func(_, _ int, v float64) { sum += v })
	assert.Equal(t, 6.0, sum)
}

func TestValidateCatchesCorruption(t *testing.T) {
	m := &CSR{Rows: 1, Cols: 2, Indptr: []int{0, 2}, Indices: []int{1, 0}, Data: []float64{1, 1}}
	assert.Error(t, m.Validate())
	m = &CSR{Rows: 1, Cols: 2, Indptr: []int{0}, Indices: nil, Data: nil}
	assert.Error(t, m.Validate())
}

func TestIDFClampsAtZero(t *testing.T) {
	assert.Equal(t, 0.0, IDF(10, 10))
	assert.Equal(t, 0.0, IDF(1, 1))
	assert.InDelta(t, 1.8458, IDF(10, 1), 1e-4)
	assert.InDelta(t, math.Log(9.5/1.5), IDF(10, 1), 1e-12)
}

func TestTFIDF(t *testing.T) {
	// token 0 in every document, token 1 only in document 2.
	counts, err := FromTriplets(2, 10,
		[]int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1},
		[]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 2},
		[]float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 3},
	)
	require.NoError(t, err)

	weights, docFreqs, idfs := TFIDF(counts)
	assert.Equal(t, []int{10, 1}, docFreqs)
	assert.Equal(t, 0.0, idfs[0])
	assert.InDelta(t, 1.8458, idfs[1], 1e-4)
	assert.Equal(t, 0.0, weights.At(0, 4))
	assert.InDelta(t, idfs[1]*math.Log1p(3), weights.At(1, 2), 1e-12)
	assert.Equal(t, counts.Indices, weights.Indices)
}
