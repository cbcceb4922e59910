// Package consumer reads facts from Kafka and feeds them to the indexer
// worker pool.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/pool"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/kafka"
)

// Submitter accepts facts for indexing.
type Submitter interface {
	Submit(ctx context.Context, fact pool.Fact) error
}

// FactConsumer wraps a Kafka consumer to drive the indexing pipeline.
type FactConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

func New(kafkaConsumer *kafka.Consumer) *FactConsumer {
	return &FactConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "fact-consumer"),
	}
}

// Start consumes until ctx is cancelled, the fact limit is reached or a
// fatal error occurs.
func (fc *FactConsumer) Start(ctx context.Context, fatal func(error) bool) error {
	fc.logger.Info("fact consumer starting")
	return fc.consumer.Start(ctx, fatal)
}

// HandleFacts returns a MessageHandler that decodes each message as a JSON
// fact and submits it through limiter. Once the limit is used up it asks the
// consumer to stop. Undecodable messages are logged and skipped.
func HandleFacts(sub Submitter, limiter *ingestion.Limiter) kafka.MessageHandler {
	logger := slog.Default().With("component", "fact-consumer")
	submit := limiter.Wrap(sub.Submit)
	return func(ctx context.Context, key []byte, value []byte) error {
		fact, err := kafka.DecodeJSON[pool.Fact](value)
		if err != nil {
			logger.Error("failed to decode fact",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if err := submit(ctx, fact); err != nil {
			if errors.Is(err, ingestion.ErrLimitReached) {
				logger.Info("fact limit reached", "accepted", limiter.Accepted())
				return kafka.ErrStop
			}
			return fmt.Errorf("submitting fact %s: %w", string(key), err)
		}
		logger.Debug("fact accepted", "key", string(key), "count", limiter.Accepted())
		return nil
	}
}
