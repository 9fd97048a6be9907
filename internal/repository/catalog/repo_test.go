package catalog

import (
	"context"
	"errors"
	"math"
	"net"
	"testing"

	"github.com/kailas-cloud/scout/internal/db"
	"github.com/kailas-cloud/scout/internal/domain"
)

// --- Mocks ---

type mockStore struct {
	knnResult *db.SearchResult
	knnErr    error
	tagResult *db.SearchResult
	tagErr    error
	count     int
	countErr  error
	hash      map[string]string
	hashErr   error
	multi     []map[string]string
	multiErr  error

	lastKNN       *db.KNNQuery
	lastTag       *db.TagQuery
	lastMultiKeys []string
}

func (m *mockStore) SearchKNN(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.lastKNN = q
	return m.knnResult, m.knnErr
}

func (m *mockStore) SearchTags(_ context.Context, q *db.TagQuery) (*db.SearchResult, error) {
	m.lastTag = q
	return m.tagResult, m.tagErr
}

func (m *mockStore) SearchCount(_ context.Context, _, _ string) (int, error) {
	return m.count, m.countErr
}

func (m *mockStore) HGetAll(_ context.Context, _ string) (map[string]string, error) {
	return m.hash, m.hashErr
}

func (m *mockStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	m.lastMultiKeys = keys
	if m.multiErr != nil {
		return nil, m.multiErr
	}
	if m.multi != nil {
		return m.multi, nil
	}
	return make([]map[string]string, len(keys)), nil
}

func entry(key string, score float64, fields map[string]string) db.SearchEntry {
	return db.SearchEntry{Key: key, Score: score, Fields: fields}
}

// --- Tests ---

func TestSimilaritySearch(t *testing.T) {
	store := &mockStore{knnResult: &db.SearchResult{
		Total: 2,
		Entries: []db.SearchEntry{
			entry("scout:record:p1", 0.92, map[string]string{"snippet": "certified plumber"}),
			entry("scout:record:p2", 0.81, map[string]string{"snippet": "24/7 callouts"}),
		},
	}}
	repo := New(store, "scout:")

	records, err := repo.SimilaritySearch(context.Background(), []float32{0.1}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].RecordID != "p1" {
		t.Errorf("key prefix must be stripped, got %q", records[0].RecordID)
	}
	if records[0].VectorScore == nil || *records[0].VectorScore != 0.92 {
		t.Errorf("unexpected vector score: %v", records[0].VectorScore)
	}
	if records[0].Snippet != "certified plumber" {
		t.Errorf("unexpected snippet: %q", records[0].Snippet)
	}
	if store.lastKNN.IndexName != "scout:records:idx" {
		t.Errorf("unexpected index name: %q", store.lastKNN.IndexName)
	}
}

func TestSimilaritySearch_RequestsScoreField(t *testing.T) {
	// RETURN limits the reply to the named fields: without __vector_score in
	// the clause, every hit would carry score 0.
	store := &mockStore{knnResult: &db.SearchResult{}}
	repo := New(store, "scout:")

	if _, err := repo.SimilaritySearch(context.Background(), []float32{0.1}, 10, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, f := range store.lastKNN.ReturnFields {
		if f == "__vector_score" {
			found = true
		}
	}
	if !found {
		t.Errorf("__vector_score must be requested, got %v", store.lastKNN.ReturnFields)
	}
}

func TestSimilaritySearch_MinSimilarityFilter(t *testing.T) {
	store := &mockStore{knnResult: &db.SearchResult{
		Total: 2,
		Entries: []db.SearchEntry{
			entry("scout:record:p1", 0.92, nil),
			entry("scout:record:p2", 0.41, nil),
		},
	}}
	repo := New(store, "scout:")

	records, err := repo.SimilaritySearch(context.Background(), []float32{0.1}, 10, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 1 || records[0].RecordID != "p1" {
		t.Errorf("records below the similarity floor must be dropped, got %+v", records)
	}
}

func TestTagSearch_OverlapScore(t *testing.T) {
	store := &mockStore{tagResult: &db.SearchResult{
		Total: 2,
		Entries: []db.SearchEntry{
			entry("scout:record:p1", 0, map[string]string{"tags": "plumbing,emergency,insured"}),
			entry("scout:record:p2", 0, map[string]string{"tags": "Plumbing, heating"}),
		},
	}}
	repo := New(store, "scout:")

	records, err := repo.TagSearch(context.Background(), []string{"plumbing", "emergency"}, false, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if *records[0].TagScore != 1.0 {
		t.Errorf("both query tags present: expected score 1, got %g", *records[0].TagScore)
	}
	// Case-insensitive: "Plumbing" matches "plumbing", heating does not count.
	if math.Abs(*records[1].TagScore-0.5) > 1e-9 {
		t.Errorf("expected score 0.5, got %g", *records[1].TagScore)
	}
	if store.lastTag.MatchAll {
		t.Error("matchAll must pass through as false")
	}
}

func TestTagSearch_BackfillsMissingSnippets(t *testing.T) {
	// The search row may lack the snippet when the index schema does not cover
	// it; the repo reads the record hashes in one batch to fill the gap.
	store := &mockStore{
		tagResult: &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				entry("scout:record:p1", 0, map[string]string{"tags": "plumbing"}),
				entry("scout:record:p2", 0, map[string]string{"tags": "plumbing"}),
			},
		},
		multi: []map[string]string{
			{"snippet": "certified plumber"},
			{"snippet": "24/7 callouts"},
		},
	}
	repo := New(store, "scout:")

	records, err := repo.TagSearch(context.Background(), []string{"plumbing"}, false, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if records[0].Snippet != "certified plumber" || records[1].Snippet != "24/7 callouts" {
		t.Errorf("snippets must be backfilled from the record hashes, got %+v", records)
	}
	want := []string{"scout:record:p1", "scout:record:p2"}
	if len(store.lastMultiKeys) != 2 || store.lastMultiKeys[0] != want[0] || store.lastMultiKeys[1] != want[1] {
		t.Errorf("expected one batched read for %v, got %v", want, store.lastMultiKeys)
	}
}

func TestTagSearch_BackfillsSingleSnippet(t *testing.T) {
	store := &mockStore{
		tagResult: &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				entry("scout:record:p1", 0, map[string]string{"tags": "plumbing", "snippet": "certified plumber"}),
				entry("scout:record:p2", 0, map[string]string{"tags": "plumbing"}),
			},
		},
		hash: map[string]string{"snippet": "24/7 callouts"},
	}
	repo := New(store, "scout:")

	records, err := repo.TagSearch(context.Background(), []string{"plumbing"}, false, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if records[1].Snippet != "24/7 callouts" {
		t.Errorf("single missing snippet must be read from its hash, got %q", records[1].Snippet)
	}
	if store.lastMultiKeys != nil {
		t.Errorf("a single miss must not use the batched read, got %v", store.lastMultiKeys)
	}
}

func TestTagSearch_BackfillToleratesMissingRecord(t *testing.T) {
	store := &mockStore{
		tagResult: &db.SearchResult{
			Total: 1,
			Entries: []db.SearchEntry{
				entry("scout:record:p1", 0, map[string]string{"tags": "plumbing"}),
			},
		},
		hashErr: db.ErrKeyNotFound,
	}
	repo := New(store, "scout:")

	records, err := repo.TagSearch(context.Background(), []string{"plumbing"}, false, 10)
	if err != nil {
		t.Fatalf("a record missing its hash must not fail the search: %v", err)
	}
	if len(records) != 1 || records[0].Snippet != "" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestTagSearch_Empty(t *testing.T) {
	store := &mockStore{tagResult: &db.SearchResult{}}
	repo := New(store, "scout:")

	records, err := repo.TagSearch(context.Background(), []string{"plumbing"}, false, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestClassify_Timeout(t *testing.T) {
	store := &mockStore{knnErr: &db.Error{Op: db.OpSearch, Err: context.DeadlineExceeded}}
	repo := New(store, "scout:")

	_, err := repo.SimilaritySearch(context.Background(), []float32{0.1}, 10, 0)
	if !errors.Is(err, domain.ErrProviderTransient) {
		t.Fatalf("store timeout must classify as transient, got %v", err)
	}
}

func TestClassify_Unavailable(t *testing.T) {
	opErr := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	store := &mockStore{tagErr: &db.Error{Op: db.OpSearch, Err: opErr}}
	repo := New(store, "scout:")

	_, err := repo.TagSearch(context.Background(), []string{"plumbing"}, false, 10)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("connection failure must classify as fatal, got %v", err)
	}
}

func TestGetSnippet(t *testing.T) {
	store := &mockStore{hash: map[string]string{"snippet": "certified plumber"}}
	repo := New(store, "scout:")

	snippet, err := repo.GetSnippet(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snippet != "certified plumber" {
		t.Errorf("unexpected snippet: %q", snippet)
	}
}

func TestGetSnippet_NotFound(t *testing.T) {
	store := &mockStore{hashErr: db.ErrKeyNotFound}
	repo := New(store, "scout:")

	_, err := repo.GetSnippet(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestCount(t *testing.T) {
	store := &mockStore{count: 1234}
	repo := New(store, "scout:")

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1234 {
		t.Errorf("expected 1234, got %d", n)
	}
}

func TestTagOverlap(t *testing.T) {
	tests := []struct {
		name       string
		queryTags  []string
		recordTags string
		want       float64
	}{
		{"full overlap", []string{"a", "b"}, "a,b,c", 1.0},
		{"half overlap", []string{"a", "b"}, "a,x", 0.5},
		{"no overlap", []string{"a", "b"}, "x,y", 0},
		{"case insensitive", []string{"Plumbing"}, "plumbing", 1.0},
		{"whitespace tolerant", []string{"a"}, " a , b ", 1.0},
		{"empty record tags", []string{"a"}, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tagOverlap(tt.queryTags, tt.recordTags); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("got %g, want %g", got, tt.want)
			}
		})
	}
}
