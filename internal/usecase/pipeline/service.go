package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scout/internal/domain"
	"github.com/kailas-cloud/scout/internal/logger"
	"github.com/kailas-cloud/scout/internal/metrics"
	"github.com/kailas-cloud/scout/internal/usecase/synthesis"
)

// NO_RESULTS reasons surfaced in the terminal event.
const (
	reasonNoMatches  = "no matching records in catalog"
	reasonNoSurvivor = "no relevant candidates after adjudication"
)

// Service is the orchestrator: one invocation owns one workflow from query
// receipt to the terminal event. Instances are safe for concurrent use; each
// Search call spawns an independent workflow.
type Service struct {
	retriever   Retriever
	adjudicator Adjudicator
	streamer    Streamer
	logger      *zap.Logger
}

// New creates the orchestrator.
func New(retriever Retriever, adjudicator Adjudicator, streamer Streamer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{retriever: retriever, adjudicator: adjudicator, streamer: streamer, logger: log}
}

// Search validates the query and starts a workflow. The returned channel
// yields stage updates and narrative chunks, then exactly one terminal
// result, and is closed. Cancelling ctx stops the workflow and every
// in-flight external call.
func (s *Service) Search(ctx context.Context, q domain.Query) (<-chan domain.Event, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	events := make(chan domain.Event, 1)
	go s.run(ctx, q, events)
	return events, nil
}

// SearchText is the text-only convenience shape.
func (s *Service) SearchText(ctx context.Context, text string, maxResults int) (<-chan domain.Event, error) {
	return s.Search(ctx, domain.Query{Text: text, MaxResults: maxResults})
}

// SearchTags is the tag-only convenience shape.
func (s *Service) SearchTags(ctx context.Context, tags []string, matchAll bool, maxResults int) (<-chan domain.Event, error) {
	return s.Search(ctx, domain.Query{Tags: tags, MatchAllTags: matchAll, MaxResults: maxResults})
}

func (s *Service) run(ctx context.Context, q domain.Query, events chan<- domain.Event) {
	defer close(events)

	w := domain.NewWorkflow(q)

	log := s.logger.With(
		zap.String("workflow_id", w.WorkflowID),
		zap.String("session_id", w.SessionID),
	)
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = domain.ContextWithSession(ctx, q.SessionID)
	ctx, usage := domain.NewContextWithUsage(ctx)

	log.Info("workflow started",
		zap.Bool("has_text", q.HasText()),
		zap.Strings("tags", q.Tags),
		zap.Int("max_results", q.MaxResults),
	)

	status := s.execute(ctx, w, events)

	w.Finish(status)
	metrics.WorkflowsTotal.WithLabelValues(string(status)).Inc()
	metrics.WorkflowDuration.Observe(w.Duration.Seconds())

	log.Info("workflow finished",
		zap.String("status", string(status)),
		zap.Duration("duration", w.Duration),
		zap.Int("candidates", len(w.Candidates)),
		zap.Int("adjudicated", len(w.Adjudicated)),
		zap.Int("errors", len(w.Errors)),
		zap.Int("tokens_used", usage.Total()),
	)

	s.emitTerminal(ctx, events, terminalResult(w, usage.Total()))
}

// execute walks the state machine and returns the terminal status. The
// terminal event itself is emitted by the caller so it is sent exactly once.
func (s *Service) execute(ctx context.Context, w *domain.WorkflowState, events chan<- domain.Event) domain.Status {
	// SEARCHING
	w.BeginStage(domain.StageSearching)
	if !s.emit(ctx, events, domain.StageEvent(domain.StageSearching)) {
		w.EndStage("cancelled")
		return domain.StatusCancelled
	}

	start := time.Now()
	res, err := s.retriever.Retrieve(ctx, w.Query)
	metrics.StageDuration.WithLabelValues(string(domain.StageSearching)).Observe(time.Since(start).Seconds())
	if err != nil {
		w.EndStage("failed")
		if ctx.Err() != nil {
			return domain.StatusCancelled
		}
		// A whole-retrieval failure is stage-fatal: transient unless the store
		// itself is gone. Per-branch failures stay PartialFailure below.
		kind := domain.KindTransient
		if domain.IsFatal(err) {
			kind = domain.KindFatal
		}
		w.AddError(domain.StageSearching, kind, err.Error())
		return domain.StatusFailed
	}

	w.Candidates = res.Candidates
	w.Degraded = res.Degraded
	for _, f := range res.Failures {
		w.AddError(domain.StageSearching, domain.KindPartialFailure, f.Error())
	}
	w.EndStage(outcomeLabel(res.Degraded))

	w.Stage = domain.StageSearched
	if !s.emit(ctx, events, domain.StageEvent(domain.StageSearched)) {
		return domain.StatusCancelled
	}

	if len(w.Candidates) == 0 {
		// Short-circuit: skip the scorer and synthesizer entirely.
		return domain.StatusNoResults
	}

	// ADJUDICATING
	w.BeginStage(domain.StageAdjudicating)
	if !s.emit(ctx, events, domain.StageEvent(domain.StageAdjudicating)) {
		w.EndStage("cancelled")
		return domain.StatusCancelled
	}

	start = time.Now()
	adjRes, err := s.adjudicator.Adjudicate(ctx, w.Query, w.Candidates)
	metrics.StageDuration.WithLabelValues(string(domain.StageAdjudicating)).Observe(time.Since(start).Seconds())
	if err != nil {
		w.EndStage("cancelled")
		return domain.StatusCancelled
	}
	w.Adjudicated = adjRes.Records
	for _, f := range adjRes.Failures {
		w.AddError(domain.StageAdjudicating, domain.KindPartialFailure, f.Error())
		metrics.AdjudicationDropsTotal.Inc()
	}
	w.EndStage("ok")

	w.Stage = domain.StageAdjudicated
	if !s.emit(ctx, events, domain.StageEvent(domain.StageAdjudicated)) {
		return domain.StatusCancelled
	}

	if len(w.Adjudicated) == 0 {
		return domain.StatusNoResults
	}

	// SUMMARIZING
	w.BeginStage(domain.StageSummarizing)
	if !s.emit(ctx, events, domain.StageEvent(domain.StageSummarizing)) {
		w.EndStage("cancelled")
		return domain.StatusCancelled
	}

	start = time.Now()
	outcome, err := s.streamer.Stream(ctx, w.Query, w.Adjudicated, func(chunk string) {
		s.emit(ctx, events, domain.ChunkEvent(chunk))
	})
	metrics.StageDuration.WithLabelValues(string(domain.StageSummarizing)).Observe(time.Since(start).Seconds())

	switch {
	case ctx.Err() != nil:
		w.EndStage("cancelled")
		return domain.StatusCancelled
	case err != nil:
		// Failed twice before any chunk: keep the adjudicated list.
		w.AddError(domain.StageSummarizing, domain.KindPartialFailure, err.Error())
		w.EndStage("failed")
		w.Stage = domain.StageCompleted
		return domain.StatusPartial
	case outcome.Partial:
		w.AddError(domain.StageSummarizing, domain.KindPartialFailure, outcome.Failure.Error())
		w.EndStage("partial")
		w.Summary = s.buildSummary(w, outcome.Narrative)
		w.Stage = domain.StageCompleted
		return domain.StatusPartial
	default:
		w.EndStage("ok")
		w.Summary = s.buildSummary(w, outcome.Narrative)
		w.Stage = domain.StageCompleted
		return domain.StatusCompleted
	}
}

func (s *Service) buildSummary(w *domain.WorkflowState, narrative string) *domain.SummaryResult {
	stats := domain.ComputeStatistics(w.Candidates, w.Adjudicated, 0)
	return synthesis.BuildSummary(narrative, w.Adjudicated, w.Query.MaxResults, stats)
}

// emit sends an event unless the caller has gone away.
func (s *Service) emit(ctx context.Context, events chan<- domain.Event, ev domain.Event) bool {
	select {
	case <-ctx.Done():
		return false
	case events <- ev:
		return true
	}
}

// emitTerminal delivers the terminal event. After cancellation the caller may
// no longer be reading, so the send must not block.
func (s *Service) emitTerminal(ctx context.Context, events chan<- domain.Event, t *domain.TerminalResult) {
	ev := domain.ResultEvent(t)
	select {
	case events <- ev:
	case <-ctx.Done():
		select {
		case events <- ev:
		default:
		}
	}
}

func terminalResult(w *domain.WorkflowState, tokensUsed int) *domain.TerminalResult {
	t := &domain.TerminalResult{
		WorkflowID:  w.WorkflowID,
		Status:      w.Status,
		Summary:     w.Summary,
		Adjudicated: w.Adjudicated,
		Errors:      w.Errors,
		Duration:    w.Duration,
	}

	if w.Summary != nil {
		t.Summary.Statistics.TokensUsed = tokensUsed
		t.Recommendations = w.Summary.Recommendations
	} else if len(w.Adjudicated) > 0 {
		t.Recommendations = synthesis.FallbackRecommendations(w.Adjudicated, w.Query.MaxResults)
	}

	if w.Status == domain.StatusNoResults {
		if len(w.Candidates) == 0 {
			t.Reason = reasonNoMatches
		} else {
			t.Reason = reasonNoSurvivor
		}
	}

	return t
}

func outcomeLabel(degraded bool) string {
	if degraded {
		return "degraded"
	}
	return "ok"
}
