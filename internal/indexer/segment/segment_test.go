package segment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/sparse"
	apperrors "github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/errors"
)

func TestVocabularyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "retriever.vocab")
	tokens := []string{"quick", "brown", "fox"}
	require.NoError(t, WriteVocabulary(path, tokens))

	got, _, err := ReadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, tokens, got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
}

func TestMatrixRoundTrip(t *testing.T) {
	m, err := sparse.FromTriplets(3, 5, []int{0, 2, 2, 1}, []int{4, 0, 3, 1}, []float64{2, 1, 7, 1})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "retriever.mat")
	require.NoError(t, WriteMatrix(path, m))

	got, _, err := ReadMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, m.Rows, got.Rows)
	assert.Equal(t, 5, got.Cols)
	assert.Equal(t, m.Indptr, got.Indptr)
	assert.Equal(t, m.Indices, got.Indices)
	assert.Equal(t, m.Data, got.Data)

	h, err := ReadHeader(path)
	require.NoError(t, err)
	assert.Equal(t, KindCountMatrix, h.Kind)
}

func TestEmptyMatrixRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.mat")
	require.NoError(t, WriteMatrix(path, sparse.Empty(0, 0)))
	got, _, err := ReadMatrix(path)
	require.NoError(t, err)
	assert.Equal(t, 0, got.NNZ())
}

func TestReadRejectsWrongKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retriever.vocab")
	require.NoError(t, WriteVocabulary(path, []string{"a1"}))
	_, _, err := ReadMatrix(path)
	assert.ErrorIs(t, err, apperrors.ErrCorruptArtifact)
}

func TestReadDetectsTampering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retriever.vocab")
	require.NoError(t, WriteVocabulary(path, []string{"alpha", "beta"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, _, err = ReadVocabulary(path)
	assert.ErrorIs(t, err, apperrors.ErrCorruptArtifact)
}

func TestReadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage")
	require.NoError(t, os.WriteFile(path, []byte("not an artifact"), 0o644))
	_, _, err := ReadVocabulary(path)
	assert.ErrorIs(t, err, apperrors.ErrCorruptArtifact)
}

func TestDigestTracksContent(t *testing.T) {
	dir := t.TempDir()
	a, err := sparse.FromTriplets(2, 2, []int{0, 1}, []int{0, 1}, []float64{1, 3})
	require.NoError(t, err)
	b, err := sparse.FromTriplets(2, 2, []int{0, 1}, []int{1, 0}, []float64{1, 3})
	require.NoError(t, err)

	require.NoError(t, WriteMatrix(filepath.Join(dir, "a1.mat"), a))
	require.NoError(t, WriteMatrix(filepath.Join(dir, "a2.mat"), a))
	require.NoError(t, WriteMatrix(filepath.Join(dir, "b.mat"), b))

	_, da1, err := ReadMatrix(filepath.Join(dir, "a1.mat"))
	require.NoError(t, err)
	_, da2, err := ReadMatrix(filepath.Join(dir, "a2.mat"))
	require.NoError(t, err)
	_, db, err := ReadMatrix(filepath.Join(dir, "b.mat"))
	require.NoError(t, err)
	assert.Equal(t, da1, da2)
	assert.NotEqual(t, da1, db)

	h, err := ReadHeader(filepath.Join(dir, "a1.mat"))
	require.NoError(t, err)
	assert.Equal(t, h.Digest, da1)
}
