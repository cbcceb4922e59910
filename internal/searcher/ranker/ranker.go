// Package ranker scores documents against a TF-IDF matrix and selects the
// best k of them.
package ranker

import (
	"cmp"
	"slices"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/sparse"
)

type ScoredDoc struct {
	DocID int     `json:"doc_id"`
	Score float64 `json:"score"`
}

// Term is one entry of a query vector: a matrix row and its weight.
type Term struct {
	Row    int
	Weight float64
}

// QueryVector weights each distinct query row by tf(count) * idf. Rows whose
// weight is zero are left out.
func QueryVector(rowCounts map[int]int, idfs []float64) []Term {
	terms := make([]Term, 0, len(rowCounts))
	for row, count := range rowCounts {
		if row < 0 || row >= len(idfs) {
			continue
		}
		w := sparse.TF(float64(count)) * idfs[row]
		if w == 0 {
			continue
		}
		terms = append(terms, Term{Row: row, Weight: w})
	}
	slices.SortFunc(terms, func(a, b Term) int { return cmp.Compare(a.Row, b.Row) })
	return terms
}

// Score computes query · weights and returns every document with a strictly
// positive score, in document id order.
func Score(weights *sparse.CSR, query []Term) []ScoredDoc {
	if len(query) == 0 || weights.Cols == 0 {
		return nil
	}
	scores := make([]float64, weights.Cols)
	for _, term := range query {
		if term.Row >= weights.Rows {
			continue
		}
		cols, vals := weights.Row(term.Row)
		for i, c := range cols {
			scores[c] += term.Weight * vals[i]
		}
	}
	var out []ScoredDoc
	for doc, s := range scores {
		if s > 0 {
			out = append(out, ScoredDoc{DocID: doc, Score: s})
		}
	}
	return out
}

// TopK returns the k highest-scoring docs in descending score order. With
// more than k candidates it partitions first and sorts only the survivors.
// Ties are broken arbitrarily. docs is reordered in place.
func TopK(docs []ScoredDoc, k int) []ScoredDoc {
	if k <= 0 || len(docs) == 0 {
		return nil
	}
	if len(docs) > k {
		selectTop(docs, k)
		docs = docs[:k]
	}
	slices.SortFunc(docs, byScoreDesc)
	return docs
}

func byScoreDesc(a, b ScoredDoc) int {
	return cmp.Compare(b.Score, a.Score)
}

// selectTop moves the k largest scores into docs[:k] in no particular order
// (Hoare quickselect, median-of-three pivot).
func selectTop(docs []ScoredDoc, k int) {
	lo, hi := 0, len(docs)-1
	for lo < hi {
		p := partition(docs, lo, hi)
		switch {
		case p == k-1 || p == k:
			return
		case p < k:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
}

// partition orders docs[lo:hi+1] around a pivot so larger scores come first
// and returns the pivot's final index.
func partition(docs []ScoredDoc, lo, hi int) int {
	mid := lo + (hi-lo)/2
	if docs[mid].Score > docs[lo].Score {
		docs[mid], docs[lo] = docs[lo], docs[mid]
	}
	if docs[hi].Score > docs[lo].Score {
		docs[hi], docs[lo] = docs[lo], docs[hi]
	}
	if docs[mid].Score > docs[hi].Score {
		docs[mid], docs[hi] = docs[hi], docs[mid]
	}
	// docs[hi] now holds the median.
	pivot := docs[hi].Score
	store := lo
	for i := lo; i < hi; i++ {
		if docs[i].Score > pivot {
			docs[i], docs[store] = docs[store], docs[i]
			store++
		}
	}
	docs[store], docs[hi] = docs[hi], docs[store]
	return store
}
