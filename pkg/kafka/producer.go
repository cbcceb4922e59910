package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/config"
	"github.com/segmentio/kafka-go"
)

// Record is one JSON payload bound for a topic. Seq is the record's position
// in its source and becomes the message key, so consecutive records spread
// over partitions and a consumer can trace a message back to its line.
type Record struct {
	Seq   int
	Value any
}

// Producer appends records to one topic. Batches are zstd-compressed and
// acknowledged by every in-sync replica.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Zstd,
	}
	return &Producer{
		writer: w,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// WriteRecords encodes records and writes them in a single call.
func (p *Producer) WriteRecords(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	messages, size, err := encodeRecords(records)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.Error("failed to write records",
			"count", len(messages),
			"first_seq", records[0].Seq,
			"error", err,
		)
		return fmt.Errorf("writing records to kafka: %w", err)
	}
	p.logger.Debug("records written",
		"count", len(messages),
		"first_seq", records[0].Seq,
		"bytes", size,
	)
	return nil
}

func encodeRecords(records []Record) ([]kafka.Message, int, error) {
	messages := make([]kafka.Message, 0, len(records))
	size := 0
	for _, r := range records {
		value, err := json.Marshal(r.Value)
		if err != nil {
			return nil, 0, fmt.Errorf("encoding record %d: %w", r.Seq, err)
		}
		size += len(value)
		messages = append(messages, kafka.Message{
			Key:   strconv.AppendInt(nil, int64(r.Seq), 10),
			Value: value,
		})
	}
	return messages, size, nil
}

// Close flushes pending writes and closes the underlying Kafka writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
