package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/pool"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/kafka"
)

type recorder struct {
	facts []pool.Fact
	err   error
}

func (r *recorder) Submit(_ context.Context, fact pool.Fact) error {
	if r.err != nil {
		return r.err
	}
	r.facts = append(r.facts, fact)
	return nil
}

func TestHandleFactsStopsAtLimit(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	accepted := ingestion.NewLimiter(2)
	handle := HandleFacts(rec, accepted)

	require.NoError(t, handle(ctx, []byte("a"), []byte(`{"text":"the moon orbits earth"}`)))
	require.NoError(t, handle(ctx, []byte("b"), []byte(`not json`)))
	require.NoError(t, handle(ctx, []byte("c"), []byte(`{"text":"water boils","label":"physics"}`)))
	assert.ErrorIs(t, handle(ctx, []byte("d"), []byte(`{"text":"one too many"}`)), kafka.ErrStop)

	assert.Equal(t, 2, accepted.Accepted())
	assert.Equal(t, []pool.Fact{
		{Text: "the moon orbits earth"},
		{Text: "water boils", Label: "physics"},
	}, rec.facts)
}

func TestHandleFactsPropagatesSubmitError(t *testing.T) {
	boom := errors.New("pool stopped")
	accepted := ingestion.NewLimiter(0)
	handle := HandleFacts(&recorder{err: boom}, accepted)
	assert.ErrorIs(t, handle(context.Background(), []byte("k"), []byte(`{"text":"x y"}`)), boom)
	assert.Zero(t, accepted.Accepted())
}
