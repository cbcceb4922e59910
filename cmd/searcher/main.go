// Command searcher loads a saved index and answers queries given as
// arguments, or one per line on stdin when no arguments are given.
//
// Usage:
//
//	searcher [--k 10] [--json] "capital of france" ...
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/redis"
)

func main() {
	configPath := pflag.String("config", "", "path to config file")
	k := pflag.IntP("k", "k", 10, "maximum results per query")
	asJSON := pflag.Bool("json", false, "print results as JSON lines")
	file := pflag.String("file", "", "count matrix path (overrides config)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *file != "" {
		cfg.Retriever.File = *file
	}
	cfg.Store.Path = cfg.SQLitePath()

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err := run(cfg, pflag.Args(), *k, *asJSON); err != nil {
		slog.Error("searcher failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, queries []string, k int, asJSON bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := docstore.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	// No artifact paths: the searcher never writes the index back.
	master, err := indexer.NewMaster(ctx, indexer.Options{
		Store:     store,
		Tokenizer: tokenizer.New(cfg.Retriever.Stem),
	})
	if err != nil {
		return err
	}
	defer master.Shutdown(context.Background())
	if err := master.Load(cfg.Retriever.VocabPath(), cfg.Retriever.File); err != nil {
		return fmt.Errorf("loading index %s: %w", cfg.Retriever.File, err)
	}

	var qc *cache.QueryCache
	if cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, query caching disabled", "error", err)
		} else {
			defer client.Close()
			qc = cache.New(client, cfg.Redis.CacheTTL, nil)
			slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	exec := executor.New(master, qc)

	answer := func(query string) error {
		res, err := exec.Execute(ctx, query, k)
		if err != nil {
			return err
		}
		return printResult(res, asJSON)
	}

	if len(queries) > 0 {
		for _, q := range queries {
			if err := answer(q); err != nil {
				return err
			}
		}
		return nil
	}
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		q := strings.TrimSpace(scanner.Text())
		if q == "" {
			continue
		}
		if err := answer(q); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return scanner.Err()
}

func printResult(res *executor.SearchResult, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(res)
	}
	fmt.Printf("%s (%d results)\n", res.Query, len(res.Hits))
	for i, h := range res.Hits {
		fmt.Printf("%3d. [%.4f] %s\n", i+1, h.Score, h.Text)
	}
	return nil
}
