package adjudicate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/scout/internal/domain"
)

// --- Mocks ---

type scoreReply struct {
	score         float64
	justification string
	err           error
}

// mockScorer replies per snippet; failFirst snippets fail on the first
// attempt only. Safe for concurrent use by the pool.
type mockScorer struct {
	mu        sync.Mutex
	replies   map[string]scoreReply
	failFirst map[string]error
	attempts  map[string]int
}

func newMockScorer() *mockScorer {
	return &mockScorer{
		replies:   make(map[string]scoreReply),
		failFirst: make(map[string]error),
		attempts:  make(map[string]int),
	}
}

func (m *mockScorer) Score(_ context.Context, _, snippet string) (float64, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[snippet]++
	if err, ok := m.failFirst[snippet]; ok && m.attempts[snippet] == 1 {
		return 0, "", err
	}
	r := m.replies[snippet]
	return r.score, r.justification, r.err
}

func (m *mockScorer) attemptsFor(snippet string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts[snippet]
}

func candidate(id string, combined float64) domain.CandidateRecord {
	return domain.CandidateRecord{RecordID: id, CombinedScore: combined, Snippet: "snippet-" + id}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func newTestService(t *testing.T, scorer Scorer) *Service {
	t.Helper()
	svc, err := New(scorer, testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(svc.Release)
	return svc
}

// --- Tests ---

func TestAdjudicate_ThresholdFilter(t *testing.T) {
	scorer := newMockScorer()
	scorer.replies["snippet-a"] = scoreReply{score: 0.9, justification: "strong match"}
	scorer.replies["snippet-b"] = scoreReply{score: 0.39, justification: "weak"}
	scorer.replies["snippet-c"] = scoreReply{score: 0.4, justification: "borderline"}

	svc := newTestService(t, scorer)
	q := domain.Query{Text: "plumbers", MaxResults: 10}
	res, err := svc.Adjudicate(context.Background(), q,
		[]domain.CandidateRecord{candidate("a", 0.8), candidate("b", 0.7), candidate("c", 0.6)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Records) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(res.Records))
	}
	for _, r := range res.Records {
		if r.RecordID == "b" {
			t.Error("record below threshold must be dropped")
		}
	}
	if len(res.Failures) != 0 {
		t.Errorf("a threshold drop is not a failure, got %v", res.Failures)
	}
}

func TestAdjudicate_FaultIsolation(t *testing.T) {
	scorer := newMockScorer()
	boom := fmt.Errorf("scoring timed out: %w", domain.ErrProviderTransient)
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("r%d", i)
		if i == 3 {
			scorer.replies["snippet-"+id] = scoreReply{err: boom}
			continue
		}
		scorer.replies["snippet-"+id] = scoreReply{score: 0.8, justification: "ok"}
	}

	var candidates []domain.CandidateRecord
	for i := 0; i < 10; i++ {
		candidates = append(candidates, candidate(fmt.Sprintf("r%d", i), 0.5))
	}

	svc := newTestService(t, scorer)
	res, err := svc.Adjudicate(context.Background(), domain.Query{Text: "plumbers", MaxResults: 10}, candidates)
	if err != nil {
		t.Fatalf("a per-candidate failure must not fail the stage: %v", err)
	}

	if len(res.Records) != 9 {
		t.Fatalf("expected 9 survivors, got %d", len(res.Records))
	}
	if len(res.Failures) != 1 {
		t.Fatalf("expected 1 absorbed failure, got %d", len(res.Failures))
	}
	if !errors.Is(res.Failures[0], boom) {
		t.Errorf("failure must wrap the scorer error, got %v", res.Failures[0])
	}
	if got := scorer.attemptsFor("snippet-r3"); got != 2 {
		t.Errorf("failed candidate must be retried once, got %d attempts", got)
	}
}

func TestAdjudicate_RetrySucceeds(t *testing.T) {
	scorer := newMockScorer()
	scorer.replies["snippet-a"] = scoreReply{score: 0.8, justification: "recovered"}
	scorer.failFirst["snippet-a"] = fmt.Errorf("rate limited: %w", domain.ErrProviderTransient)

	svc := newTestService(t, scorer)
	res, err := svc.Adjudicate(context.Background(), domain.Query{Text: "plumbers", MaxResults: 10},
		[]domain.CandidateRecord{candidate("a", 0.5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Records) != 1 || res.Records[0].Justification != "recovered" {
		t.Fatalf("expected the retried candidate to survive, got %+v", res.Records)
	}
	if len(res.Failures) != 0 {
		t.Errorf("a recovered candidate is not a failure, got %v", res.Failures)
	}
}

func TestAdjudicate_NoRetryOnPermanentError(t *testing.T) {
	scorer := newMockScorer()
	scorer.replies["snippet-a"] = scoreReply{err: errors.New("invalid request")}

	svc := newTestService(t, scorer)
	res, err := svc.Adjudicate(context.Background(), domain.Query{Text: "plumbers", MaxResults: 10},
		[]domain.CandidateRecord{candidate("a", 0.5)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := scorer.attemptsFor("snippet-a"); got != 1 {
		t.Errorf("a permanent error must not be retried, got %d attempts", got)
	}
	if len(res.Failures) != 1 {
		t.Errorf("expected 1 absorbed failure, got %d", len(res.Failures))
	}
}

func TestAdjudicate_Ordering(t *testing.T) {
	scorer := newMockScorer()
	scorer.replies["snippet-low"] = scoreReply{score: 0.5}
	scorer.replies["snippet-high"] = scoreReply{score: 0.9}
	scorer.replies["snippet-tie1"] = scoreReply{score: 0.7}
	scorer.replies["snippet-tie2"] = scoreReply{score: 0.7}

	candidates := []domain.CandidateRecord{
		candidate("low", 0.9),
		candidate("tie2", 0.6),
		candidate("high", 0.1),
		candidate("tie1", 0.6),
	}

	svc := newTestService(t, scorer)
	res, err := svc.Adjudicate(context.Background(), domain.Query{Text: "plumbers", MaxResults: 10}, candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"high", "tie1", "tie2", "low"}
	if len(res.Records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(res.Records))
	}
	for i, id := range want {
		if res.Records[i].RecordID != id {
			t.Errorf("position %d: expected %q, got %q", i, id, res.Records[i].RecordID)
		}
	}
}

func TestAdjudicate_EmptyCandidates(t *testing.T) {
	svc := newTestService(t, newMockScorer())

	res, err := svc.Adjudicate(context.Background(), domain.Query{Text: "plumbers", MaxResults: 10}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Records) != 0 || len(res.Failures) != 0 {
		t.Errorf("expected an empty result, got %+v", res)
	}
}

func TestAdjudicate_Cancellation(t *testing.T) {
	scorer := newMockScorer()
	scorer.replies["snippet-a"] = scoreReply{score: 0.9}

	svc := newTestService(t, scorer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Adjudicate(ctx, domain.Query{Text: "plumbers", MaxResults: 10},
		[]domain.CandidateRecord{candidate("a", 0.5)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
