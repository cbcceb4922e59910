package ranker

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/sparse"
)

func ids(docs []ScoredDoc) []int {
	out := make([]int, len(docs))
	for i, d := range docs {
		out[i] = d.DocID
	}
	return out
}

func TestTopKPartialAndFullSortAgree(t *testing.T) {
	scores := []float64{5, 3, 4, 1, 2}
	build := func() []ScoredDoc {
		docs := make([]ScoredDoc, len(scores))
		for i, s := range scores {
			docs[i] = ScoredDoc{DocID: i, Score: s}
		}
		return docs
	}

	partial := TopK(build(), 2)
	assert.Equal(t, []int{0, 2}, ids(partial))
	assert.Equal(t, []float64{5, 4}, []float64{partial[0].Score, partial[1].Score})

	full := TopK(build(), 5)
	assert.Equal(t, []int{0, 2, 1, 4, 3}, ids(full))
	assert.Equal(t, ids(partial), ids(full)[:2])

	assert.Len(t, TopK(build(), 10), 5)
	assert.Empty(t, TopK(build(), 0))
}

func TestTopKRandomMatchesSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := rng.Intn(200) + 1
		docs := make([]ScoredDoc, n)
		for i := range docs {
			docs[i] = ScoredDoc{DocID: i, Score: float64(rng.Intn(50)) + 1}
		}
		want := slices.Clone(docs)
		slices.SortFunc(want, byScoreDesc)

		k := rng.Intn(n) + 1
		got := TopK(slices.Clone(docs), k)
		require.Len(t, got, k)
		for i := range got {
			assert.Equal(t, want[i].Score, got[i].Score, "trial %d rank %d", trial, i)
		}
	}
}

func TestQueryVectorSkipsZeroWeights(t *testing.T) {
	idfs := []float64{0, 1.5, 2}
	terms := QueryVector(map[int]int{0: 3, 1: 1, 2: 2, 9: 1}, idfs)
	require.Len(t, terms, 2)
	assert.Equal(t, 1, terms[0].Row)
	assert.InDelta(t, math.Log(2)*1.5, terms[0].Weight, 1e-12)
	assert.Equal(t, 2, terms[1].Row)
	assert.InDelta(t, math.Log(3)*2, terms[1].Weight, 1e-12)
}

func TestScoreKeepsPositiveOnly(t *testing.T) {
	// rows are tokens, columns documents
	m, err := sparse.FromTriplets(2, 4,
		[]int{0, 0, 1},
		[]int{0, 2, 2},
		[]float64{1, 2, 3},
	)
	require.NoError(t, err)

	got := Score(m, []Term{{Row: 0, Weight: 2}, {Row: 1, Weight: 1}})
	assert.Equal(t, []ScoredDoc{{DocID: 0, Score: 2}, {DocID: 2, Score: 7}}, got)
	assert.Empty(t, Score(m, nil))
}

func BenchmarkTopK(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{100, 10000} {
		docs := make([]ScoredDoc, n)
		for i := range docs {
			docs[i] = ScoredDoc{DocID: i, Score: rng.Float64()}
		}
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			buf := make([]ScoredDoc, n)
			for i := 0; i < b.N; i++ {
				copy(buf, docs)
				_ = TopK(buf, 10)
			}
		})
	}
}
