package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/pool"
)

func TestValidateFact(t *testing.T) {
	assert.NoError(t, ValidateFact(pool.Fact{Text: "Bees can see ultraviolet light"}))

	err := ValidateFact(pool.Fact{Text: "  ", Label: strings.Repeat("x", 300)})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "text")
	assert.Contains(t, verr.Fields, "label")

	assert.Error(t, ValidateFact(pool.Fact{Text: "bad \xff byte"}))
}
