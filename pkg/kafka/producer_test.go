package kafka

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Text string `json:"text"`
}

func TestEncodeRecordsKeysBySequence(t *testing.T) {
	messages, size, err := encodeRecords([]Record{
		{Seq: 7, Value: sample{Text: "ice floats"}},
		{Seq: 8, Value: sample{Text: "sound travels"}},
	})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "7", string(messages[0].Key))
	assert.Equal(t, "8", string(messages[1].Key))
	assert.Equal(t, len(messages[0].Value)+len(messages[1].Value), size)

	got, err := DecodeJSON[sample](messages[1].Value)
	require.NoError(t, err)
	assert.Equal(t, "sound travels", got.Text)
}

func TestEncodeRecordsRejectsUnencodable(t *testing.T) {
	_, _, err := encodeRecords([]Record{{Seq: 1, Value: math.NaN()}})
	assert.ErrorContains(t, err, "encoding record 1")
}
