package publisher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/pool"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/kafka"
)

type recorder struct {
	batches [][]kafka.Record
}

func (r *recorder) WriteRecords(_ context.Context, events []kafka.Record) error {
	r.batches = append(r.batches, append([]kafka.Record(nil), events...))
	return nil
}

func TestPublisherBatches(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	p := New(rec, 2)
	for _, text := range []string{"one fact", "two facts", "three facts"} {
		require.NoError(t, p.Publish(ctx, pool.Fact{Text: text}))
	}
	require.Len(t, rec.batches, 1)
	require.NoError(t, p.Flush(ctx))
	require.Len(t, rec.batches, 2)
	assert.Equal(t, 3, p.Published())
	assert.Equal(t, 2, rec.batches[1][0].Seq)
	assert.Equal(t, pool.Fact{Text: "three facts"}, rec.batches[1][0].Value)
}
