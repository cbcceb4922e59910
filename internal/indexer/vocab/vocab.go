// Package vocab assigns dense integer ids to tokens in first-seen order.
package vocab

// TokenID is a token's position in a Vocabulary. It is a distinct type so an
// already-mapped id can never be passed back in as a raw token.
type TokenID int

// Vocabulary is a bidirectional token/id map. It is not safe for concurrent
// mutation; each builder owns its own instance.
type Vocabulary struct {
	ids    map[string]TokenID
	tokens []string
}

func New() *Vocabulary {
	return &Vocabulary{ids: make(map[string]TokenID)}
}

// FromTokens rebuilds a vocabulary where tokens[i] has id i. It returns
// false if a token repeats.
func FromTokens(tokens []string) (*Vocabulary, bool) {
	v := &Vocabulary{
		ids:    make(map[string]TokenID, len(tokens)),
		tokens: make([]string, 0, len(tokens)),
	}
	for _, token := range tokens {
		if _, dup := v.ids[token]; dup {
			return nil, false
		}
		v.ID(token)
	}
	return v, true
}

// ID returns token's id, assigning the next free id on first sight.
func (v *Vocabulary) ID(token string) TokenID {
	if id, ok := v.ids[token]; ok {
		return id
	}
	id := TokenID(len(v.tokens))
	v.ids[token] = id
	v.tokens = append(v.tokens, token)
	return id
}

// Lookup returns token's id without assigning one.
func (v *Vocabulary) Lookup(token string) (TokenID, bool) {
	id, ok := v.ids[token]
	return id, ok
}

// Token returns the token with the given id.
func (v *Vocabulary) Token(id TokenID) (string, bool) {
	if id < 0 || int(id) >= len(v.tokens) {
		return "", false
	}
	return v.tokens[id], true
}

func (v *Vocabulary) Len() int {
	return len(v.tokens)
}

// Tokens returns a copy of the tokens indexed by id.
func (v *Vocabulary) Tokens() []string {
	out := make([]string, len(v.tokens))
	copy(out, v.tokens)
	return out
}
