package tokenizer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tok := New(false)
	got := tok.Tokenize(tok.Normalize("The quick brown fox, and the LAZY dog!"))
	assert.Equal(t, []string{"quick", "brown", "fox", "lazy", "dog"}, got)
}

func TestTokenizeKeepsDuplicates(t *testing.T) {
	tok := New(false)
	got := tok.Tokenize("rain rain go away")
	assert.Equal(t, []string{"rain", "rain", "go", "away"}, got)
}

func TestNormalizeFoldsAccents(t *testing.T) {
	tok := New(false)
	assert.Equal(t,
		tok.Tokenize(tok.Normalize("cafe")),
		tok.Tokenize(tok.Normalize("Café")),
	)
}

func TestTokenizeStem(t *testing.T) {
	tok := New(true)
	assert.Equal(t, []string{"jump", "index"}, tok.Tokenize("jumping indexes"))
}

func TestTokenizeEmpty(t *testing.T) {
	tok := New(false)
	assert.Empty(t, tok.Tokenize(""))
	assert.Empty(t, tok.Tokenize("a, the. of!"))
}

var sampleTexts = map[string]string{
	"short":  "The quick brown fox jumps over the lazy dog",
	"medium": strings.Repeat("Distributed search engines process queries across multiple shards. ", 8),
}

func BenchmarkTokenize(b *testing.B) {
	tok := New(false)
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tok.Tokenize(tok.Normalize(text))
			}
		})
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	tok := New(true)
	baseWord := "distributed search analytics platform indexing "
	for _, size := range []int{10, 100, 1000} {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tok.Tokenize(text)
			}
		})
	}
}
