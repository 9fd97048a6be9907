package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scout/internal/domain"
	"github.com/kailas-cloud/scout/internal/logger"
)

// Config holds retrieval tunables.
type Config struct {
	// BranchTimeout bounds each retrieval branch independently.
	BranchTimeout time.Duration
	// Alpha weighs the vector score against the tag score in the merge.
	Alpha float64
	// OverFetch multiplies max_results on the similarity search to leave room
	// for later filtering.
	OverFetch int
	// EmbedRetries is the number of retries after the first embed attempt.
	EmbedRetries int
	// EmbedBackoff is the initial backoff between embed retries (doubles each time).
	EmbedBackoff time.Duration
}

// DefaultConfig returns the retrieval defaults.
func DefaultConfig() Config {
	return Config{
		BranchTimeout: 5 * time.Second,
		Alpha:         0.6,
		OverFetch:     3,
		EmbedRetries:  2,
		EmbedBackoff:  200 * time.Millisecond,
	}
}

// Result is the retrieval output: ranked candidates plus a degradation flag
// and the branch failures that were absorbed.
type Result struct {
	Candidates []domain.CandidateRecord
	Degraded   bool
	Failures   []error
}

// Service runs the vector and tag branches concurrently and merges their
// candidates into one ranked list.
type Service struct {
	catalog Catalog
	embed   Embedder
	cfg     Config
}

// New creates a retrieval service.
func New(catalog Catalog, embed Embedder, cfg Config) *Service {
	return &Service{catalog: catalog, embed: embed, cfg: cfg}
}

type branchResult struct {
	name       string
	candidates []domain.CandidateRecord
	err        error
}

// Retrieve produces the ranked candidate list for a query. A failed branch
// degrades the result to the surviving branch; only a fatal store error or
// the failure of every active branch is returned as an error.
func (s *Service) Retrieve(ctx context.Context, q domain.Query) (Result, error) {
	branches := 0
	results := make(chan branchResult, 2)

	if q.HasText() {
		branches++
		go func() {
			candidates, err := s.vectorBranch(ctx, q)
			results <- branchResult{name: "vector", candidates: candidates, err: err}
		}()
	}

	if q.HasTags() {
		branches++
		go func() {
			candidates, err := s.tagBranch(ctx, q)
			results <- branchResult{name: "tag", candidates: candidates, err: err}
		}()
	}

	var vector, tag []domain.CandidateRecord
	var out Result

	for i := 0; i < branches; i++ {
		br := <-results
		if br.err != nil {
			if domain.IsFatal(br.err) {
				return Result{}, br.err
			}
			logger.FromContext(ctx).Warn("retrieval branch failed",
				zap.String("branch", br.name), zap.Error(br.err))
			out.Degraded = true
			out.Failures = append(out.Failures, fmt.Errorf("%s branch: %w", br.name, br.err))
			continue
		}
		if br.name == "vector" {
			vector = br.candidates
		} else {
			tag = br.candidates
		}
	}

	if len(out.Failures) == branches {
		return Result{}, fmt.Errorf("all retrieval branches failed: %w", out.Failures[0])
	}

	out.Candidates = merge(vector, tag, s.cfg.Alpha, q.MaxResults)
	return out, nil
}

// vectorBranch embeds the query text and runs similarity search with an
// over-fetch factor.
func (s *Service) vectorBranch(ctx context.Context, q domain.Query) ([]domain.CandidateRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.BranchTimeout)
	defer cancel()

	vector, err := s.embedWithRetry(ctx, q.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	topK := q.MaxResults * s.cfg.OverFetch
	candidates, err := s.catalog.SimilaritySearch(ctx, vector, topK, q.MinSimilarity)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return candidates, nil
}

// tagBranch runs the tag search with the same over-fetch budget.
func (s *Service) tagBranch(ctx context.Context, q domain.Query) ([]domain.CandidateRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.BranchTimeout)
	defer cancel()

	limit := q.MaxResults * s.cfg.OverFetch
	candidates, err := s.catalog.TagSearch(ctx, q.Tags, q.MatchAllTags, limit)
	if err != nil {
		return nil, fmt.Errorf("tag search: %w", err)
	}
	return candidates, nil
}

// embedWithRetry retries transient embedding failures with exponential backoff.
func (s *Service) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	backoff := s.cfg.EmbedBackoff
	var lastErr error

	for attempt := 0; attempt <= s.cfg.EmbedRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		vector, err := s.embed.Embed(ctx, text)
		if err == nil {
			return vector, nil
		}
		lastErr = err
		if !domain.IsTransient(err) {
			return nil, err
		}
	}

	return nil, lastErr
}
