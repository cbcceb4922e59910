// Package publisher batches facts onto the Kafka facts topic.
package publisher

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/pool"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/resilience"
)

// BatchWriter is the Kafka producer surface the publisher needs.
type BatchWriter interface {
	WriteRecords(ctx context.Context, records []kafka.Record) error
}

var _ BatchWriter = (*kafka.Producer)(nil)

// Publisher buffers facts and writes them in batches. It is not safe for
// concurrent use.
type Publisher struct {
	writer    BatchWriter
	batchSize int
	pending   []kafka.Record
	seq       int
	published int
	logger    *slog.Logger
}

func New(writer BatchWriter, batchSize int) *Publisher {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Publisher{
		writer:    writer,
		batchSize: batchSize,
		pending:   make([]kafka.Record, 0, batchSize),
		logger:    slog.Default().With("component", "publisher"),
	}
}

// Publish queues fact, writing the batch once it is full. Facts are keyed
// by their sequence number so they spread across partitions.
func (p *Publisher) Publish(ctx context.Context, fact pool.Fact) error {
	p.pending = append(p.pending, kafka.Record{Seq: p.seq, Value: fact})
	p.seq++
	if len(p.pending) < p.batchSize {
		return nil
	}
	return p.Flush(ctx)
}

// Flush writes any queued facts.
func (p *Publisher) Flush(ctx context.Context) error {
	if len(p.pending) == 0 {
		return nil
	}
	err := resilience.Retry(ctx, "publish-facts", resilience.Backoff{}, func(ctx context.Context) error {
		return p.writer.WriteRecords(ctx, p.pending)
	})
	if err != nil {
		return err
	}
	p.published += len(p.pending)
	p.logger.Debug("facts published", "batch", len(p.pending), "total", p.published)
	p.pending = p.pending[:0]
	return nil
}

func (p *Publisher) Published() int {
	return p.published
}
