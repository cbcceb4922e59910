// Package cache stores ranked query results in Redis. Keys include the
// index version, so any change to the index retires older entries and
// indexes sharing one Redis never read each other's rankings.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/resilience"
)

const keyPrefix = "retrieve:"

// Backend is the subset of the Redis client the cache needs.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

var _ Backend = (*pkgredis.Client)(nil)

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	if m == nil {
		m = metrics.NewUnregistered()
	}
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		breaker: resilience.NewBreaker("query-cache", 5, 30*time.Second, pkgredis.IsNilError),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, query string, limit int, version string) ([]ranker.ScoredDoc, bool) {
	key := BuildKey(query, limit, version)
	var data []byte
	err := c.breaker.Do(func() (err error) {
		data, err = c.backend.Get(ctx, key)
		return err
	})
	if err != nil {
		if !pkgredis.IsNilError(err) && !errors.Is(err, resilience.ErrOpen) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	var docs []ranker.ScoredDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	c.metrics.CacheHitsTotal.Inc()
	c.logger.Debug("cache hit", "query", query, "key", key)
	return docs, true
}

func (c *QueryCache) Set(ctx context.Context, query string, limit int, version string, docs []ranker.ScoredDoc) {
	key := BuildKey(query, limit, version)
	data, err := json.Marshal(docs)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(func() error {
		return c.backend.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached ranking or computes and stores it.
// Concurrent misses for the same key share one computation. The boolean
// reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	limit int,
	version string,
	computeFn func() ([]ranker.ScoredDoc, error),
) ([]ranker.ScoredDoc, bool, error) {
	if docs, ok := c.Get(ctx, query, limit, version); ok {
		return docs, true, nil
	}
	key := BuildKey(query, limit, version)
	val, err, _ := c.group.Do(key, func() (any, error) {
		docs, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, limit, version, docs)
		return docs, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]ranker.ScoredDoc), false, nil
}

// BuildKey hashes the normalised query with the limit and index version.
func BuildKey(query string, limit int, version string) string {
	raw := fmt.Sprintf("%s|limit=%d|index=%s", normalizeQuery(query), limit, version)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeQuery lower-cases and sorts the query words. Ranking ignores word
// order, so reordered queries share an entry.
func normalizeQuery(query string) string {
	words := strings.Fields(strings.ToLower(query))
	sort.Strings(words)
	return strings.Join(words, " ")
}
