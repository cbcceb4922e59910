// Package index holds the (token, document, count) records a builder
// accumulates while scanning facts.
package index

import (
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/vocab"
)

// Record means token TokenID occurs Count times in document DocID. Several
// records may share a (token, document) pair; consolidation sums them.
type Record struct {
	TokenID vocab.TokenID
	DocID   int
	Count   int
}

// FrequencyList stores records as three parallel slices, the layout workers
// hand to the master.
type FrequencyList struct {
	TokenIDs []vocab.TokenID
	DocIDs   []int
	Counts   []int
}

func NewFrequencyList() *FrequencyList {
	return &FrequencyList{}
}

func (f *FrequencyList) Append(r Record) {
	f.TokenIDs = append(f.TokenIDs, r.TokenID)
	f.DocIDs = append(f.DocIDs, r.DocID)
	f.Counts = append(f.Counts, r.Count)
}

func (f *FrequencyList) Len() int {
	return len(f.TokenIDs)
}

func (f *FrequencyList) At(i int) Record {
	return Record{TokenID: f.TokenIDs[i], DocID: f.DocIDs[i], Count: f.Counts[i]}
}

// Reset drops all records.
func (f *FrequencyList) Reset() {
	f.TokenIDs = nil
	f.DocIDs = nil
	f.Counts = nil
}

// CountTokens maps each distinct token of one fact to its occurrence count,
// keeping the tokens in first-occurrence order.
func CountTokens(tokens []string) (distinct []string, counts map[string]int) {
	counts = make(map[string]int, len(tokens))
	distinct = make([]string, 0, len(tokens))
	for _, token := range tokens {
		if counts[token] == 0 {
			distinct = append(distinct, token)
		}
		counts[token]++
	}
	return distinct, counts
}
