package indexer

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/docstore"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/sparse"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/internal/indexer/vocab"
	apperrors "github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fact-retriever/pkg/metrics"
)

// Options configures a Master. Store is required.
type Options struct {
	Store      docstore.Store
	Tokenizer  tokenizer.Tokenizer
	BufferSize int
	// VocabPath and MatrixPath are where Save writes and where NewMaster
	// auto-loads from when MatrixPath exists.
	VocabPath  string
	MatrixPath string
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// cached is a derived value plus its validity flag.
type cached[T any] struct {
	value T
	valid bool
}

func (c *cached[T]) get() (T, bool) { return c.value, c.valid }

func (c *cached[T]) set(v T) {
	c.value = v
	c.valid = true
}

func (c *cached[T]) invalidate() {
	var zero T
	c.value = zero
	c.valid = false
}

type tfidfIndex struct {
	weights  *sparse.CSR
	docFreqs []int
	idfs     []float64
}

// Master owns the authoritative index. Ingest, Retrieve and the background
// merge of worker contributions may run concurrently.
type Master struct {
	opts    Options
	shared  *Shared
	logger  *slog.Logger
	buildID string

	ingestMu sync.Mutex
	builder  builder
	stopped  bool

	mu         sync.RWMutex
	vocab      *vocab.Vocabulary
	freqs      *index.FrequencyList
	counts     cached[*sparse.CSR]
	tfidf      cached[tfidfIndex]
	generation atomic.Uint64
	// origin is the artifact digest of the last Load while the index still
	// holds exactly what was loaded, and empty otherwise.
	origin string

	regMu        sync.Mutex
	channels     []chan Message
	closed       bool
	pending      sync.WaitGroup
	stop         chan struct{}
	mergeStopped chan struct{}
	group        *errgroup.Group
}

// NewMaster creates a master and starts its merge task. If opts.MatrixPath
// already exists the saved index is loaded first.
func NewMaster(ctx context.Context, opts Options) (*Master, error) {
	if opts.Store == nil {
		return nil, apperrors.New(apperrors.ErrInvalidArgument, "master requires a document store")
	}
	if opts.Tokenizer == nil {
		opts.Tokenizer = tokenizer.New(false)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewUnregistered()
	}
	if opts.Logger == nil {
		opts.Logger = logger.WithComponent("indexer")
	}
	log := opts.Logger.With("role", "master")

	shared := newShared(opts.Store)
	m := &Master{
		opts:         opts,
		shared:       shared,
		logger:       log,
		buildID:      newBuildID(),
		builder:      newBuilder(shared, opts.Tokenizer, opts.BufferSize, opts.Metrics, log, "master"),
		vocab:        vocab.New(),
		freqs:        index.NewFrequencyList(),
		stop:         make(chan struct{}),
		mergeStopped: make(chan struct{}),
	}

	if opts.MatrixPath != "" {
		if _, err := os.Stat(opts.MatrixPath); err == nil {
			if err := m.Load(opts.VocabPath, opts.MatrixPath); err != nil {
				return nil, fmt.Errorf("auto-loading index: %w", err)
			}
		}
	}

	group, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	m.group = group
	group.Go(func() error {
		defer close(m.mergeStopped)
		return m.mergeLoop(gctx)
	})
	log.Info("master started",
		"vocab_path", opts.VocabPath,
		"matrix_path", opts.MatrixPath,
		"buffer_size", opts.BufferSize,
	)
	return m, nil
}

func newBuildID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func (m *Master) Shared() *Shared {
	return m.shared
}

func (m *Master) Ingest(ctx context.Context, text string) error {
	return m.IngestLabeled(ctx, text, "")
}

// IngestLabeled adds one fact with an optional label to the master's own
// index.
func (m *Master) IngestLabeled(ctx context.Context, text, label string) error {
	m.ingestMu.Lock()
	defer m.ingestMu.Unlock()
	if m.stopped {
		return apperrors.New(apperrors.ErrClosed, "master is shut down")
	}
	fact, err := m.builder.scan(ctx, text, label)
	if apperrors.Is(err, apperrors.ErrInvalidArgument) {
		return err
	}

	m.mu.Lock()
	for _, token := range fact.distinct {
		m.freqs.Append(index.Record{
			TokenID: m.vocab.ID(token),
			DocID:   fact.docID,
			Count:   fact.counts[token],
		})
	}
	m.invalidateLocked()
	m.mu.Unlock()
	return err
}

// Flush writes the master's pending documents, waiting for the store lock.
func (m *Master) Flush(ctx context.Context) error {
	m.ingestMu.Lock()
	defer m.ingestMu.Unlock()
	return m.builder.batcher.Flush(ctx)
}

// invalidateLocked drops both derived matrices. m.mu must be held.
func (m *Master) invalidateLocked() {
	m.counts.invalidate()
	m.tfidf.invalidate()
	m.origin = ""
	m.generation.Add(1)
	m.opts.Metrics.VocabularySize.Set(float64(m.vocab.Len()))
}

// Version identifies the index contents across processes. A master holding
// exactly the artifacts it loaded reports their digest, so every process
// serving the same files agrees. Any other state is unique to this master.
func (m *Master) Version() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.origin != "" {
		return m.origin
	}
	return fmt.Sprintf("%s-%d", m.buildID, m.generation.Load())
}

func (m *Master) VocabularySize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vocab.Len()
}

// Vocabulary returns the global tokens indexed by id.
func (m *Master) Vocabulary() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vocab.Tokens()
}

// register allocates an outbound channel for a new worker.
func (m *Master) register() (int, chan Message, error) {
	m.regMu.Lock()
	defer m.regMu.Unlock()
	if m.closed {
		return 0, nil, apperrors.New(apperrors.ErrClosed, "master no longer accepts workers")
	}
	ch := make(chan Message, 3)
	m.channels = append(m.channels, ch)
	m.pending.Add(1)
	return len(m.channels) - 1, ch, nil
}

func (m *Master) channel(idx int) (chan Message, bool) {
	m.regMu.Lock()
	defer m.regMu.Unlock()
	if idx < 0 || idx >= len(m.channels) {
		return nil, false
	}
	return m.channels[idx], true
}

// announce tells the merge task that worker idx has sent everything.
func (m *Master) announce(ctx context.Context, idx int) error {
	select {
	case m.shared.notify <- idx:
		return nil
	case <-m.mergeStopped:
		m.pending.Done()
		return apperrors.New(apperrors.ErrClosed, "merge task has stopped")
	case <-ctx.Done():
		m.pending.Done()
		return ctx.Err()
	}
}

func (m *Master) mergeLoop(ctx context.Context) error {
	for {
		select {
		case idx := <-m.shared.notify:
			if err := m.drainWorker(idx); err != nil {
				m.opts.Metrics.WorkerMergesTotal.WithLabelValues("error").Inc()
				m.logger.Error("worker merge failed", "worker", idx, "error", err)
				return err
			}
			m.opts.Metrics.WorkerMergesTotal.WithLabelValues("ok").Inc()
		case <-m.stop:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func malformed(idx int, format string, args ...any) error {
	return apperrors.Newf(apperrors.ErrMalformedWorkerMessage, "worker %d: "+format, append([]any{idx}, args...)...)
}

// drainWorker folds one worker's vocabulary and records into the master,
// translating local token ids to global ones.
func (m *Master) drainWorker(idx int) error {
	defer m.pending.Done()
	ch, ok := m.channel(idx)
	if !ok {
		return malformed(idx, "unknown worker index")
	}

	var (
		remap     []vocab.TokenID
		haveVocab bool
		records   int
	)
	for {
		var msg Message
		select {
		case msg, ok = <-ch:
			if !ok {
				return malformed(idx, "channel closed before end of stream")
			}
		default:
			return malformed(idx, "stream ended without end-of-stream marker")
		}

		switch msg := msg.(type) {
		case VocabularyMessage:
			if haveVocab {
				return malformed(idx, "duplicate vocabulary message")
			}
			haveVocab = true
			remap = make([]vocab.TokenID, len(msg.Tokens))
			m.mu.Lock()
			for local, token := range msg.Tokens {
				remap[local] = m.vocab.ID(token)
			}
			m.invalidateLocked()
			m.mu.Unlock()

		case FrequenciesMessage:
			if !haveVocab {
				return malformed(idx, "frequencies before vocabulary")
			}
			if err := checkFrequencies(msg, len(remap)); err != nil {
				return malformed(idx, "%v", err)
			}
			m.mu.Lock()
			for i, local := range msg.TokenIDs {
				m.freqs.Append(index.Record{
					TokenID: remap[local],
					DocID:   msg.DocIDs[i],
					Count:   msg.Counts[i],
				})
			}
			m.invalidateLocked()
			m.mu.Unlock()
			records += len(msg.TokenIDs)
			m.opts.Metrics.MergedRecordsTotal.Add(float64(len(msg.TokenIDs)))

		case EndOfStream:
			m.logger.Info("worker merged",
				"worker", idx,
				"vocab_size", len(remap),
				"records", records,
			)
			return nil

		default:
			return malformed(idx, "unrecognised message %T", msg)
		}
	}
}

func checkFrequencies(msg FrequenciesMessage, vocabSize int) error {
	n := len(msg.TokenIDs)
	if len(msg.DocIDs) != n || len(msg.Counts) != n {
		return fmt.Errorf("length mismatch: %d token ids, %d doc ids, %d counts",
			n, len(msg.DocIDs), len(msg.Counts))
	}
	for _, id := range msg.TokenIDs {
		if id < 0 || int(id) >= vocabSize {
			return fmt.Errorf("token id %d outside worker vocabulary of %d", id, vocabSize)
		}
	}
	return nil
}

// Shutdown flushes pending documents, waits for every registered worker to
// hand over its data, stops the merge task and saves the index when paths
// are configured.
func (m *Master) Shutdown(ctx context.Context) error {
	m.ingestMu.Lock()
	if m.stopped {
		m.ingestMu.Unlock()
		return apperrors.New(apperrors.ErrClosed, "master already shut down")
	}
	m.stopped = true
	flushErr := finalFlush(ctx, m.builder.batcher)
	unflushed := m.builder.batcher.Pending()
	m.ingestMu.Unlock()
	if flushErr != nil {
		// The documents stay pending for Flush; the index is still merged
		// and saved.
		flushErr = fmt.Errorf("flushing documents: %w", flushErr)
		m.logger.Error("shutdown flush failed", "pending", unflushed, "error", flushErr)
	}

	m.regMu.Lock()
	m.closed = true
	workers := len(m.channels)
	m.regMu.Unlock()

	allIn := make(chan struct{})
	go func() {
		m.pending.Wait()
		close(allIn)
	}()
	var waitErr error
	select {
	case <-allIn:
	case <-m.mergeStopped:
	case <-ctx.Done():
		waitErr = ctx.Err()
	}
	close(m.stop)
	if err := m.group.Wait(); err != nil {
		return errors.Join(flushErr, fmt.Errorf("merging worker data: %w", err))
	}
	if waitErr != nil {
		return errors.Join(flushErr, fmt.Errorf("waiting for %d workers: %w", workers, waitErr))
	}
	m.logger.Info("all workers merged", "workers", workers, "documents", m.shared.DocumentCount())

	if m.opts.VocabPath == "" || m.opts.MatrixPath == "" {
		return flushErr
	}
	return errors.Join(flushErr, m.Save())
}

// CountMatrix returns the vocabulary × document count matrix, building it
// if anything was ingested since the last build.
func (m *Master) CountMatrix() (*sparse.CSR, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countMatrixLocked()
}

func (m *Master) countMatrixLocked() (*sparse.CSR, error) {
	if c, ok := m.counts.get(); ok {
		return c, nil
	}
	start := time.Now()
	n := m.freqs.Len()
	rows := make([]int, n)
	cols := make([]int, n)
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		r := m.freqs.At(i)
		rows[i] = int(r.TokenID)
		cols[i] = r.DocID
		vals[i] = float64(r.Count)
	}
	c, err := sparse.FromTriplets(m.vocab.Len(), m.shared.DocumentCount(), rows, cols, vals)
	if err != nil {
		return nil, fmt.Errorf("building count matrix: %w", err)
	}
	m.counts.set(c)
	m.opts.Metrics.MatrixBuildsTotal.WithLabelValues("count").Inc()
	m.opts.Metrics.MatrixBuildDuration.WithLabelValues("count").Observe(time.Since(start).Seconds())
	m.logger.Debug("count matrix built", "rows", c.Rows, "cols", c.Cols, "nnz", c.NNZ())
	return c, nil
}

// ComputeTFIDF returns the TF-IDF matrix, rebuilding it and the count
// matrix when stale.
func (m *Master) ComputeTFIDF() (*sparse.CSR, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.tfidfLocked()
	if err != nil {
		return nil, err
	}
	return t.weights, nil
}

// DocumentFrequencies returns, per token id, the number of documents
// containing the token.
func (m *Master) DocumentFrequencies() ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.tfidfLocked()
	if err != nil {
		return nil, err
	}
	return t.docFreqs, nil
}

func (m *Master) tfidfLocked() (tfidfIndex, error) {
	if t, ok := m.tfidf.get(); ok {
		return t, nil
	}
	counts, err := m.countMatrixLocked()
	if err != nil {
		return tfidfIndex{}, err
	}
	start := time.Now()
	weights, docFreqs, idfs := sparse.TFIDF(counts)
	t := tfidfIndex{weights: weights, docFreqs: docFreqs, idfs: idfs}
	m.tfidf.set(t)
	m.opts.Metrics.MatrixBuildsTotal.WithLabelValues("tfidf").Inc()
	m.opts.Metrics.MatrixBuildDuration.WithLabelValues("tfidf").Observe(time.Since(start).Seconds())
	return t, nil
}

// Save writes the vocabulary and count matrix to the configured paths.
func (m *Master) Save() error {
	if m.opts.VocabPath == "" || m.opts.MatrixPath == "" {
		return apperrors.New(apperrors.ErrInvalidArgument, "save requires vocabulary and matrix paths")
	}
	m.mu.Lock()
	counts, err := m.countMatrixLocked()
	tokens := m.vocab.Tokens()
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if err := segment.WriteVocabulary(m.opts.VocabPath, tokens); err != nil {
		return fmt.Errorf("saving vocabulary: %w", err)
	}
	if err := segment.WriteMatrix(m.opts.MatrixPath, counts); err != nil {
		return fmt.Errorf("saving count matrix: %w", err)
	}
	m.logger.Info("index saved",
		"vocab_path", m.opts.VocabPath,
		"matrix_path", m.opts.MatrixPath,
		"tokens", len(tokens),
		"documents", counts.Cols,
	)
	return nil
}

// Load replaces the master's index with the saved artifacts. The document
// counter is raised to the matrix's column count so new facts get fresh ids.
func (m *Master) Load(vocabPath, matrixPath string) error {
	if vocabPath == "" || matrixPath == "" {
		return apperrors.New(apperrors.ErrInvalidArgument, "load requires vocabulary and matrix paths")
	}
	tokens, vocabDigest, err := segment.ReadVocabulary(vocabPath)
	if err != nil {
		return err
	}
	counts, matrixDigest, err := segment.ReadMatrix(matrixPath)
	if err != nil {
		return err
	}
	if counts.Rows != len(tokens) {
		return apperrors.Newf(apperrors.ErrCorruptArtifact,
			"matrix has %d rows but vocabulary has %d tokens", counts.Rows, len(tokens))
	}
	v, ok := vocab.FromTokens(tokens)
	if !ok {
		return apperrors.New(apperrors.ErrCorruptArtifact, "vocabulary repeats a token")
	}
	freqs := index.NewFrequencyList()
	counts.Each(func(row, col int, val float64) {
		freqs.Append(index.Record{TokenID: vocab.TokenID(row), DocID: col, Count: int(val)})
	})

	m.shared.reserve(counts.Cols)
	m.mu.Lock()
	m.vocab = v
	m.freqs = freqs
	m.invalidateLocked()
	if counts.Cols == m.shared.DocumentCount() {
		m.counts.set(counts)
		m.origin = artifactIdentity(vocabDigest, matrixDigest)
	}
	m.mu.Unlock()
	m.opts.Metrics.DocumentCount.Set(float64(m.shared.DocumentCount()))
	m.logger.Info("index loaded", "tokens", v.Len(), "documents", counts.Cols, "records", freqs.Len())
	return nil
}

func artifactIdentity(vocabDigest, matrixDigest segment.Digest) string {
	h := blake3.New()
	_, _ = h.Write(vocabDigest[:])
	_, _ = h.Write(matrixDigest[:])
	return hex.EncodeToString(h.Sum(nil)[:16])
}
