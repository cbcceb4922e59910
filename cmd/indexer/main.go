// Command indexer builds the retrieval index from a facts file or the Kafka
// facts topic, fanning ingestion out over a pool of workers, and saves the
// vocabulary and count matrix on shutdown.
//
// Usage:
//
//	indexer --facts facts.txt [--workers 4] [--max-facts 100000]
//	indexer --kafka [--config configs/retriever.yaml]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/pool"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/metrics"
)

func main() {
	configPath := pflag.String("config", "", "path to config file")
	factsPath := pflag.String("facts", "", "facts file, one fact per line ('-' for stdin)")
	fromKafka := pflag.Bool("kafka", false, "consume facts from the Kafka facts topic")
	workers := pflag.Int("workers", -1, "number of worker builders (overrides config)")
	maxFacts := pflag.Int("max-facts", -1, "stop after this many facts, 0 for no limit (overrides config)")
	file := pflag.String("file", "", "count matrix path (overrides config)")
	shutdownTimeout := pflag.Duration("shutdown-timeout", 10*time.Minute, "time allowed for the final merge and save")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *workers >= 0 {
		cfg.Retriever.Workers = *workers
	}
	if *maxFacts >= 0 {
		cfg.Retriever.MaxFacts = *maxFacts
	}
	if *file != "" {
		cfg.Retriever.File = *file
	}
	cfg.Store.Path = cfg.SQLitePath()
	if (*factsPath == "") == !*fromKafka {
		fmt.Fprintln(os.Stderr, "exactly one of --facts or --kafka is required")
		os.Exit(2)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err := run(cfg, *factsPath, *fromKafka, *shutdownTimeout); err != nil {
		slog.Error("indexer failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, factsPath string, fromKafka bool, shutdownTimeout time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("starting indexer",
		"file", cfg.Retriever.File,
		"workers", cfg.Retriever.Workers,
		"max_facts", cfg.Retriever.MaxFacts,
		"store", cfg.Store.Driver,
	)
	if err := os.MkdirAll(filepath.Dir(cfg.Retriever.File), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	store, err := docstore.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	m := metrics.NewUnregistered()
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
		checker := health.NewChecker()
		checker.Register("document_store", health.PingCheck(store.Ping, true))
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, checker)
		defer shutdownMetrics(context.Background())
	}

	master, err := indexer.NewMaster(ctx, indexer.Options{
		Store:      store,
		Tokenizer:  tokenizer.New(cfg.Retriever.Stem),
		BufferSize: cfg.Retriever.BufferSize,
		VocabPath:  cfg.Retriever.VocabPath(),
		MatrixPath: cfg.Retriever.File,
		Metrics:    m,
	})
	if err != nil {
		return err
	}
	// A signal stops the fact source; builders still drain and save.
	p, err := pool.New(context.WithoutCancel(ctx), master, cfg.Retriever.Workers, cfg.Retriever.BufferSize)
	if err != nil {
		return err
	}

	start := time.Now()
	var (
		ingested int
		srcErr   error
	)
	limiter := ingestion.NewLimiter(cfg.Retriever.MaxFacts)
	if fromKafka {
		handler := consumer.HandleFacts(p, limiter)
		fc := consumer.New(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.FactsTopic, handler))
		slog.Info("consuming facts from kafka",
			"topic", cfg.Kafka.FactsTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		srcErr = fc.Start(ctx, apperrors.Fatal)
		ingested = limiter.Accepted()
	} else {
		ingested, srcErr = readFile(ctx, factsPath, limiter.Wrap(p.Submit))
	}
	if srcErr != nil {
		slog.Error("fact source stopped with error", "error", srcErr)
	}
	slog.Info("input exhausted, shutting down builders",
		"facts", ingested,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := p.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	slog.Info("indexer finished",
		"facts", ingested,
		"vocabulary", master.VocabularySize(),
		"documents", master.Shared().DocumentCount(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return srcErr
}

func readFile(ctx context.Context, path string, submit func(context.Context, pool.Fact) error) (int, error) {
	f := os.Stdin
	if path != "-" {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return 0, fmt.Errorf("opening facts file: %w", err)
		}
		defer f.Close()
	}
	return ingestion.ReadFacts(ctx, f, submit)
}
