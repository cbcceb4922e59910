package indexer

import "github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/vocab"

// Message is sent from a worker to the master. A worker sends exactly one
// VocabularyMessage, then one FrequenciesMessage, then EndOfStream.
type Message interface {
	message()
}

// VocabularyMessage carries a worker's vocabulary; Tokens[i] has local id i.
type VocabularyMessage struct {
	Tokens []string
}

// FrequenciesMessage carries a worker's records as parallel slices, with
// token ids in the worker's local numbering.
type FrequenciesMessage struct {
	TokenIDs []vocab.TokenID
	DocIDs   []int
	Counts   []int
}

type EndOfStream struct{}

func (VocabularyMessage) message()  {}
func (FrequenciesMessage) message() {}
func (EndOfStream) message()        {}
