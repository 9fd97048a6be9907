package scout

import (
	"testing"
	"time"

	"github.com/kailas-cloud/scout/internal/domain"
	"github.com/kailas-cloud/scout/internal/usecase/adjudicate"
	"github.com/kailas-cloud/scout/internal/usecase/retrieval"
	"github.com/kailas-cloud/scout/internal/usecase/synthesis"
)

func TestConvertEvents(t *testing.T) {
	in := make(chan domain.Event, 3)
	in <- domain.StageEvent(domain.StageSearching)
	in <- domain.ChunkEvent("Two providers match.")
	in <- domain.ResultEvent(&domain.TerminalResult{
		WorkflowID: "wf-1",
		Status:     domain.StatusCompleted,
		Summary: &domain.SummaryResult{
			ExecutiveSummary: "Found them.",
			Recommendations:  []domain.Recommendation{{RecordID: "p1", Rationale: "certified"}},
			Statistics:       domain.Statistics{CandidateCount: 3, AdjudicatedCount: 2, TokensUsed: 500},
		},
		Recommendations: []domain.Recommendation{{RecordID: "p1", Rationale: "certified"}},
		Adjudicated: []domain.AdjudicatedRecord{{
			CandidateRecord: domain.CandidateRecord{RecordID: "p1", VectorScore: domain.Score(0.9), CombinedScore: 0.9},
			RelevanceScore:  0.95,
			Justification:   "exact trade match",
		}},
		Duration: 2 * time.Second,
	})
	close(in)

	out := convertEvents(in)

	ev := <-out
	if ev.Type != EventStageUpdate || ev.Stage != StageSearching {
		t.Errorf("unexpected first event: %+v", ev)
	}

	ev = <-out
	if ev.Type != EventChunk || ev.Chunk != "Two providers match." {
		t.Errorf("unexpected second event: %+v", ev)
	}

	ev = <-out
	if ev.Type != EventResult || ev.Terminal == nil {
		t.Fatalf("unexpected third event: %+v", ev)
	}
	term := ev.Terminal
	if term.WorkflowID != "wf-1" || term.Status != StatusCompleted {
		t.Errorf("unexpected terminal: %+v", term)
	}
	if term.Summary == nil || term.Summary.ExecutiveSummary != "Found them." {
		t.Errorf("unexpected summary: %+v", term.Summary)
	}
	if term.Summary.Statistics.TokensUsed != 500 {
		t.Errorf("unexpected statistics: %+v", term.Summary.Statistics)
	}
	if len(term.Adjudicated) != 1 || term.Adjudicated[0].RecordID != "p1" {
		t.Errorf("unexpected adjudicated records: %+v", term.Adjudicated)
	}
	if term.Adjudicated[0].VectorScore == nil || *term.Adjudicated[0].VectorScore != 0.9 {
		t.Errorf("branch scores must carry over: %+v", term.Adjudicated[0])
	}

	if _, ok := <-out; ok {
		t.Error("stream must close after the terminal event")
	}
}

func TestApplyPipelineOptions(t *testing.T) {
	retCfg := retrieval.DefaultConfig()
	adjCfg := adjudicate.DefaultConfig()
	synCfg := synthesis.DefaultConfig()

	applyPipelineOptions(PipelineOptions{
		BranchTimeout:      2 * time.Second,
		MergeAlpha:         0.7,
		AdjudicationWidth:  4,
		RelevanceThreshold: 0.5,
		RetryBackoff:       50 * time.Millisecond,
	}, &retCfg, &adjCfg, &synCfg)

	if retCfg.BranchTimeout != 2*time.Second || retCfg.Alpha != 0.7 {
		t.Errorf("unexpected retrieval config: %+v", retCfg)
	}
	if adjCfg.PoolWidth != 4 || adjCfg.Threshold != 0.5 {
		t.Errorf("unexpected adjudication config: %+v", adjCfg)
	}
	if adjCfg.RetryBackoff != 50*time.Millisecond || synCfg.RetryBackoff != 50*time.Millisecond {
		t.Errorf("retry backoff must apply to every stage: %+v %+v", adjCfg, synCfg)
	}
	// Untouched fields keep their defaults.
	if retCfg.OverFetch != 3 || synCfg.OpenTimeout != 10*time.Second {
		t.Errorf("zero options must not override defaults: %+v %+v", retCfg, synCfg)
	}
}

func TestNew_RequiresConfiguration(t *testing.T) {
	if _, err := New(); err == nil {
		t.Error("expected an error without a store address")
	}
	if _, err := New(WithRedis("localhost:6379")); err == nil {
		t.Error("expected an error without providers")
	}
}
