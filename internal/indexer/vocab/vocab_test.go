package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDIsIdempotent(t *testing.T) {
	v := New()
	first := v.ID("fox")
	assert.Equal(t, first, v.ID("fox"))
	assert.Equal(t, 1, v.Len())
}

func TestIDsAreSequential(t *testing.T) {
	v := New()
	assert.Equal(t, TokenID(0), v.ID("quick"))
	assert.Equal(t, TokenID(1), v.ID("brown"))
	assert.Equal(t, TokenID(0), v.ID("quick"))
	assert.Equal(t, TokenID(2), v.ID("fox"))

	tok, ok := v.Token(1)
	require.True(t, ok)
	assert.Equal(t, "brown", tok)
	assert.Equal(t, []string{"quick", "brown", "fox"}, v.Tokens())
}

func TestLookupDoesNotAssign(t *testing.T) {
	v := New()
	_, ok := v.Lookup("ghost")
	assert.False(t, ok)
	assert.Equal(t, 0, v.Len())

	_, ok = v.Token(5)
	assert.False(t, ok)
}

func TestFromTokens(t *testing.T) {
	v, ok := FromTokens([]string{"a1", "b2", "c3"})
	require.True(t, ok)
	id, found := v.Lookup("c3")
	require.True(t, found)
	assert.Equal(t, TokenID(2), id)
	assert.Equal(t, TokenID(3), v.ID("d4"))

	_, ok = FromTokens([]string{"x", "x"})
	assert.False(t, ok)
}
