package adjudicate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scout/internal/domain"
	"github.com/kailas-cloud/scout/internal/logger"
)

// Config holds adjudication tunables.
type Config struct {
	// PoolWidth bounds the number of concurrent scoring calls.
	PoolWidth int
	// CallTimeout bounds each scoring call.
	CallTimeout time.Duration
	// RetryBackoff is the pause before the single retry of a failed call.
	RetryBackoff time.Duration
	// Threshold drops candidates scoring below it. Exposed as configuration
	// rather than hard-coded; the default is 0.4.
	Threshold float64
}

// DefaultConfig returns the adjudication defaults.
func DefaultConfig() Config {
	return Config{
		PoolWidth:    8,
		CallTimeout:  8 * time.Second,
		RetryBackoff: 200 * time.Millisecond,
		Threshold:    0.4,
	}
}

// Result is the adjudication output: the surviving ranked records plus the
// per-candidate failures that were absorbed.
type Result struct {
	Records  []domain.AdjudicatedRecord
	Failures []error
}

// Service evaluates candidates against the relevance scorer with a bounded
// worker pool. Per-candidate failures never fail the stage: the candidate is
// dropped and the failure reported.
type Service struct {
	scorer Scorer
	pool   *ants.Pool
	cfg    Config
}

// New creates an adjudication service with its own worker pool. Release must
// be called when the service is no longer needed.
func New(scorer Scorer, cfg Config) (*Service, error) {
	if cfg.PoolWidth < 1 {
		cfg.PoolWidth = 1
	}
	pool, err := ants.NewPool(cfg.PoolWidth)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Service{scorer: scorer, pool: pool, cfg: cfg}, nil
}

// Release tears down the worker pool.
func (s *Service) Release() {
	s.pool.Release()
}

// Adjudicate scores every candidate in parallel, drops those below the
// relevance threshold, and returns the survivors ranked by relevance.
// Completion order does not affect the final ordering.
func (s *Service) Adjudicate(ctx context.Context, q domain.Query, candidates []domain.CandidateRecord) (Result, error) {
	if len(candidates) == 0 {
		return Result{}, nil
	}

	queryText := q.Describe()

	// Single synchronized collection point for the fan-in.
	var mu sync.Mutex
	var records []domain.AdjudicatedRecord
	var failures []error

	var wg sync.WaitGroup
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		c := candidate
		err := s.pool.Submit(func() {
			defer wg.Done()
			rec, err := s.evaluate(ctx, queryText, c)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failures = append(failures, fmt.Errorf("candidate %s: %w", c.RecordID, err))
			case rec != nil:
				records = append(records, *rec)
			}
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			failures = append(failures, fmt.Errorf("candidate %s: submit: %w", c.RecordID, err))
			mu.Unlock()
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	sortRecords(records)
	return Result{Records: records, Failures: failures}, nil
}

// evaluate scores one candidate with a per-call timeout and a single retry.
// Returns (nil, nil) when the candidate scored below the threshold.
func (s *Service) evaluate(ctx context.Context, queryText string, c domain.CandidateRecord) (*domain.AdjudicatedRecord, error) {
	score, justification, err := s.scoreOnce(ctx, queryText, c.Snippet)
	if err != nil && retryable(err) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.cfg.RetryBackoff):
		}
		score, justification, err = s.scoreOnce(ctx, queryText, c.Snippet)
	}
	if err != nil {
		return nil, err
	}

	if score < s.cfg.Threshold {
		logger.FromContext(ctx).Debug("candidate below relevance threshold",
			zap.String("record_id", c.RecordID), zap.Float64("score", score))
		return nil, nil
	}

	return &domain.AdjudicatedRecord{
		CandidateRecord: c,
		RelevanceScore:  score,
		Justification:   justification,
	}, nil
}

// retryable gates the single retry: only timeouts and transient provider
// errors are worth a second call, a permanent rejection is not.
func retryable(err error) bool {
	return domain.IsTransient(err) || errors.Is(err, context.DeadlineExceeded)
}

func (s *Service) scoreOnce(ctx context.Context, queryText, snippet string) (float64, string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
	defer cancel()
	return s.scorer.Score(callCtx, queryText, snippet)
}

// sortRecords ranks by relevance descending, then original combined score
// descending, then record ID ascending.
func sortRecords(records []domain.AdjudicatedRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].RelevanceScore != records[j].RelevanceScore {
			return records[i].RelevanceScore > records[j].RelevanceScore
		}
		if records[i].CombinedScore != records[j].CombinedScore {
			return records[i].CombinedScore > records[j].CombinedScore
		}
		return records[i].RecordID < records[j].RecordID
	})
}
