package sparse

import "math"

// IDF is the smoothed inverse document frequency of a token found in
// docFreq of docs documents, clamped at zero.
func IDF(docs, docFreq int) float64 {
	idf := math.Log((float64(docs) - float64(docFreq) + 0.5) / (float64(docFreq) + 0.5))
	if idf < 0 || math.IsNaN(idf) {
		return 0
	}
	return idf
}

// TF dampens a raw occurrence count.
func TF(count float64) float64 {
	return math.Log1p(count)
}

// TFIDF derives the weighted matrix from a count matrix. It also returns the
// per-token document frequencies and idf values it used, which query
// weighting needs.
func TFIDF(counts *CSR) (weights *CSR, docFreqs []int, idfs []float64) {
	docFreqs = counts.RowNonZeros()
	idfs = make([]float64, counts.Rows)
	for t, n := range docFreqs {
		idfs[t] = IDF(counts.Cols, n)
	}
	weights = counts.MapRows(func(row int, count float64) float64 {
		return idfs[row] * TF(count)
	})
	return weights, docFreqs, idfs
}
