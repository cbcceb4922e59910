// Command ingestion publishes a facts file to the Kafka facts topic, where
// `indexer --kafka` picks it up.
//
// Usage:
//
//	ingestion --facts facts.txt [--batch 100] [--config configs/retriever.yaml]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/logger"
)

func main() {
	configPath := pflag.String("config", "", "path to config file")
	factsPath := pflag.String("facts", "-", "facts file, one fact per line ('-' for stdin)")
	batch := pflag.Int("batch", 100, "facts per Kafka write")
	maxFacts := pflag.Int("max-facts", 0, "stop after this many facts, 0 for no limit")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in := os.Stdin
	if *factsPath != "-" {
		in, err = os.Open(*factsPath)
		if err != nil {
			slog.Error("failed to open facts file", "path", *factsPath, "error", err)
			os.Exit(1)
		}
		defer in.Close()
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.FactsTopic)
	defer producer.Close()
	pub := publisher.New(producer, *batch)
	slog.Info("publishing facts", "topic", cfg.Kafka.FactsTopic, "brokers", cfg.Kafka.Brokers)

	n, err := ingestion.ReadFacts(ctx, in, ingestion.NewLimiter(*maxFacts).Wrap(pub.Publish))
	if err == nil {
		err = pub.Flush(ctx)
	}
	if err != nil {
		slog.Error("publishing failed", "read", n, "published", pub.Published(), "error", err)
		os.Exit(1)
	}
	slog.Info("facts published", "count", pub.Published())
}
