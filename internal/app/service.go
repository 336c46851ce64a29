// Package service wires candidate retrieval, scoring and ranking into the
// operations exposed by the CLI and the batch worker pool.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/okian/vqs/internal/adapters/mq/queue"
	"github.com/okian/vqs/internal/adapters/mq/worker"
	"github.com/okian/vqs/internal/adapters/source"
	"github.com/okian/vqs/internal/domain/dedupe"
	"github.com/okian/vqs/internal/domain/model"
	"github.com/okian/vqs/internal/domain/ranking"
	"github.com/okian/vqs/internal/domain/scoring"
	"github.com/okian/vqs/internal/domain/types"
	"github.com/okian/vqs/pkg/logger"
	"github.com/okian/vqs/pkg/metrics"
)

// Result messages.
const (
	MsgNoCandidates  = "no candidates found for keyword"
	MsgInternalError = "internal error"
	MsgNoSource      = "no candidate source configured"
	MsgEmptyKeyword  = "keyword must not be empty"
	MsgQueueFull     = "too many keywords in flight, retry later"
	MsgNotStarted    = "service not started"
	MsgStopped       = "service stopped"
)

const (
	defaultLimit          = 100
	defaultMaxLimit       = 500
	defaultRetrievalLimit = 1000
	defaultQueueSize      = 1024
)

// BatchScorer scores a candidate batch, returning the candidates it had to
// exclude alongside the scored ones.
type BatchScorer interface {
	Score(videos []model.CandidateVideo) ([]model.ScoredVideo, []scoring.Rejection)
}

// Service scores and ranks candidate batches.
type Service struct {
	mu sync.RWMutex

	// Core components
	scorer    BatchScorer
	retriever source.Retriever
	validate  *validator.Validate
	queue     *queue.InMemoryQueue
	pool      *worker.Pool

	// Configuration
	workerCount    int
	queueSize      int
	tieBreak       ranking.TieBreak
	defaultLimit   int
	maxLimit       int
	retrievalLimit int

	// State
	started bool
	cancel  context.CancelFunc

	batches  atomic.Int64
	keywords atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithScorer replaces the default scorer.
func WithScorer(sc BatchScorer) Option {
	return func(s *Service) {
		s.scorer = sc
	}
}

// WithRetriever sets the source that Search pulls candidates from.
func WithRetriever(r source.Retriever) Option {
	return func(s *Service) {
		s.retriever = r
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkerCount sets the number of batch workers. Zero means one per CPU.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many keyword jobs may wait for a worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithTieBreak sets how equal scores are ordered.
func WithTieBreak(tb ranking.TieBreak) Option {
	return func(s *Service) {
		s.tieBreak = tb
	}
}

// WithLimits sets the limit used when none is given and the largest limit
// a caller may ask for.
func WithLimits(def, maxLimit int) Option {
	return func(s *Service) {
		if def > 0 {
			s.defaultLimit = def
		}
		if maxLimit > 0 {
			s.maxLimit = maxLimit
		}
	}
}

// WithRetrievalLimit caps how many candidates are pulled per keyword.
func WithRetrievalLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.retrievalLimit = n
		}
	}
}

// New constructs a Service. Without WithScorer it scores with the default
// configuration.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		queueSize:      defaultQueueSize,
		tieBreak:       ranking.TieBreakViews,
		defaultLimit:   defaultLimit,
		maxLimit:       defaultMaxLimit,
		retrievalLimit: defaultRetrievalLimit,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.scorer == nil {
		sc, err := scoring.New()
		if err != nil {
			return nil, fmt.Errorf("default scorer: %w", err)
		}
		s.scorer = sc
	}
	if s.defaultLimit > s.maxLimit {
		s.defaultLimit = s.maxLimit
	}
	return s, nil
}

// Start launches the batch worker pool. The pool outlives ctx; call Stop to
// shut it down.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s, s.logger)
	s.pool.Start(runCtx)
	s.started = true

	s.logger.Info(ctx, "vqs service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.String("tieBreak", string(s.tieBreak)),
	)
	return nil
}

// Stop drains queued keywords and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping vqs service")
	err := s.pool.Shutdown(ctx)
	s.cancel()
	s.started = false
	if err != nil {
		return fmt.Errorf("stop service: %w", err)
	}
	s.logger.Info(ctx, "vqs service stopped", logger.Int64("processed", s.pool.Processed()))
	return nil
}

// Rank scores candidates collected for keyword and returns the top limit of
// them together with statistics over every scored candidate. Malformed
// candidates are skipped and counted. Rank never panics.
func (s *Service) Rank(ctx context.Context, keyword string, candidates []model.CandidateVideo, limit int) (res types.Result) {
	start := time.Now()
	log := s.logger.With(logger.String("keyword", keyword))
	defer s.recoverResult(ctx, keyword, len(candidates), &res)

	s.batches.Add(1)
	metrics.RecordCandidatesReceived(len(candidates))

	valid := s.screen(ctx, log, candidates)
	skipped := len(candidates) - len(valid)

	scored, rejected := s.scorer.Score(valid)
	for _, r := range rejected {
		log.Warn(ctx, "candidate excluded", logger.String("videoId", r.VideoID), logger.Error(r.Err))
		metrics.RecordCandidateSkipped("computation_fault")
	}
	skipped += len(rejected)

	if len(scored) == 0 {
		log.Info(ctx, "nothing to rank", logger.Int("candidates", len(candidates)), logger.Int("skipped", skipped))
		metrics.RecordEmptyBatch()
		res = types.Failed(keyword, MsgNoCandidates)
		res.Total = len(candidates)
		res.Skipped = skipped
		return res
	}

	ranked := ranking.Rank(scored, s.resolveLimit(limit), s.tieBreak)
	stats := ranking.Summarize(scored)

	elapsed := time.Since(start)
	metrics.RecordBatchScored(len(scored))
	metrics.RecordScoringLatency(float64(elapsed.Microseconds()) / 1000)
	for _, v := range scored {
		metrics.RecordScore(v.Score)
	}

	log.Info(ctx, "ranked candidates",
		logger.Int("candidates", len(candidates)),
		logger.Int("skipped", skipped),
		logger.Int("returned", len(ranked)),
		logger.Int("averageScore", stats.AverageScore),
		logger.Duration("duration", elapsed),
	)

	return types.Result{
		Success: true,
		Keyword: keyword,
		Videos:  ranked,
		Stats:   stats,
		Total:   len(candidates),
		Skipped: skipped,
	}
}

// screen drops candidates that fail validation or repeat an earlier videoId.
func (s *Service) screen(ctx context.Context, log logger.Logger, candidates []model.CandidateVideo) []model.CandidateVideo {
	seen := dedupe.NewInMemoryDeduper()
	valid := make([]model.CandidateVideo, 0, len(candidates))
	for i := range candidates {
		v := &candidates[i]

		var err error
		if verr := s.validate.StructCtx(ctx, v); verr != nil || strings.TrimSpace(v.VideoID) == "" {
			err = fmt.Errorf("%w: index %d: missing videoId", scoring.ErrMalformedRecord, i)
		} else if seen.SeenAndRecord(ctx, v.VideoID) {
			err = fmt.Errorf("%w: index %d: duplicate videoId %s", scoring.ErrMalformedRecord, i, v.VideoID)
		}
		if err != nil {
			log.Warn(ctx, "skipping candidate", logger.Error(err))
			metrics.RecordCandidateSkipped("malformed")
			continue
		}
		valid = append(valid, *v)
	}
	return valid
}

// recoverResult turns a panic into a failed result for keyword. It must be
// deferred directly.
func (s *Service) recoverResult(ctx context.Context, keyword string, total int, res *types.Result) {
	r := recover()
	if r == nil {
		return
	}
	s.logger.Error(ctx, "panic while searching",
		logger.String("keyword", keyword),
		logger.Any("panic", r),
	)
	metrics.RecordKeywordError("panic")
	*res = types.Failed(keyword, fmt.Sprintf("%s: %v", MsgInternalError, r))
	res.Total = total
}

func (s *Service) resolveLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.defaultLimit
	case limit > s.maxLimit:
		return s.maxLimit
	default:
		return limit
	}
}

// Search retrieves candidates for keyword and ranks them. A failing or
// panicking retriever yields an unsuccessful result.
func (s *Service) Search(ctx context.Context, keyword string, limit int) (res types.Result) {
	keyword = strings.TrimSpace(keyword)
	defer s.recoverResult(ctx, keyword, 0, &res)
	s.keywords.Add(1)
	if keyword == "" {
		metrics.RecordKeywordError("empty_keyword")
		return types.Failed(keyword, MsgEmptyKeyword)
	}
	if s.retriever == nil {
		metrics.RecordKeywordError("no_source")
		return types.Failed(keyword, MsgNoSource)
	}

	start := time.Now()
	candidates, err := s.retriever.Retrieve(ctx, keyword, s.retrievalLimit)
	metrics.RecordRetrievalLatency(s.retriever.Name(), float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		s.logger.Error(ctx, "candidate retrieval failed",
			logger.String("keyword", keyword),
			logger.String("source", s.retriever.Name()),
			logger.Error(err),
		)
		metrics.RecordRetrievalError(s.retriever.Name())
		metrics.RecordKeywordError("retrieval")
		return types.Failed(keyword, err.Error())
	}

	s.logger.Debug(ctx, "retrieved candidates",
		logger.String("keyword", keyword),
		logger.Int("candidates", len(candidates)),
		logger.Duration("duration", time.Since(start)),
	)
	return s.Rank(ctx, keyword, candidates, limit)
}

// BatchSearch runs Search for every keyword on the worker pool. Keywords are
// trimmed and de-duplicated case-insensitively, keeping the first spelling.
// One result is returned per distinct keyword, in input order; a keyword that
// fails never affects the others.
func (s *Service) BatchSearch(ctx context.Context, keywords []string, limit int) []types.Result {
	seen := dedupe.NewInMemoryDeduper(dedupe.WithFoldCase())
	distinct := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" || seen.SeenAndRecord(ctx, kw) {
			continue
		}
		distinct = append(distinct, kw)
	}

	results := make([]types.Result, len(distinct))
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		for i, kw := range distinct {
			results[i] = types.Failed(kw, MsgNotStarted)
		}
		return results
	}

	batchID := uuid.NewString()
	replies := make(chan queue.Reply, len(distinct))
	pending := make(map[int]bool, len(distinct))
	for i, kw := range distinct {
		job := queue.Job{
			ID:      batchID + "/" + uuid.NewString(),
			Keyword: kw,
			Limit:   limit,
			Index:   i,
			Reply:   replies,
		}
		if !q.Enqueue(ctx, job) {
			results[i] = s.rejected(ctx, q, kw)
			continue
		}
		pending[i] = true
	}

	s.logger.Debug(ctx, "batch enqueued",
		logger.String("batchId", batchID),
		logger.Int("keywords", len(distinct)),
		logger.Int("queued", len(pending)),
	)

	for len(pending) > 0 {
		select {
		case r := <-replies:
			if pending[r.Index] {
				results[r.Index] = r.Result
				delete(pending, r.Index)
			}
		case <-ctx.Done():
			for i := range pending {
				results[i] = types.Failed(distinct[i], ctx.Err().Error())
			}
			return results
		}
	}
	return results
}

// rejected explains why q refused the job for kw.
func (s *Service) rejected(ctx context.Context, q *queue.InMemoryQueue, kw string) types.Result {
	switch {
	case ctx.Err() != nil:
		metrics.RecordKeywordError("cancelled")
		return types.Failed(kw, ctx.Err().Error())
	case q.IsClosed():
		metrics.RecordKeywordError("stopped")
		return types.Failed(kw, MsgStopped)
	default:
		metrics.RecordKeywordError("backpressure")
		return types.Failed(kw, MsgQueueFull)
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.started,
		"queueSize":      s.queueSize,
		"tieBreak":       string(s.tieBreak),
		"defaultLimit":   s.defaultLimit,
		"maxLimit":       s.maxLimit,
		"batchesRanked":  s.batches.Load(),
		"keywordsSeen":   s.keywords.Load(),
		"retrievalLimit": s.retrievalLimit,
	}
	if s.retriever != nil {
		stats["source"] = s.retriever.Name()
	}

	if s.started {
		queueLen := s.queue.Len(context.Background())
		stats["queueLength"] = queueLen
		stats["workerCount"] = s.pool.Size()
		stats["processed"] = s.pool.Processed()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.pool.Size())
	}

	return stats
}
