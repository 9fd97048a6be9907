package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/scout/internal/db"
	"github.com/kailas-cloud/scout/internal/domain"
)

// store is the consumer interface for catalog reads (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchTags(ctx context.Context, q *db.TagQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// Repo reads provider records from the catalog index. It implements the
// retrieval usecase's store contracts and validates rows into domain records
// once, at this boundary.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a catalog repository. keyPrefix namespaces record keys and the
// index name (e.g. "scout:").
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

func (r *Repo) indexName() string { return r.keyPrefix + "records:idx" }
func (r *Repo) recordKey(id string) string {
	return fmt.Sprintf("%srecord:%s", r.keyPrefix, id)
}

// SimilaritySearch runs vector KNN over the catalog and returns candidates
// with their vector score set. Hits below minSimilarity are dropped here so
// callers never see them.
func (r *Repo) SimilaritySearch(
	ctx context.Context, vector []float32, topK int, minSimilarity float64,
) ([]domain.CandidateRecord, error) {
	// RETURN limits the reply to the named fields, so the KNN distance must be
	// requested explicitly or every hit comes back with score 0.
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{"snippet", "tags", "__vector_score"},
	})
	if err != nil {
		return nil, classify(err)
	}

	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	records := make([]domain.CandidateRecord, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		if entry.Score < minSimilarity {
			continue
		}
		records = append(records, domain.CandidateRecord{
			RecordID:    r.recordID(entry.Key),
			VectorScore: domain.Score(entry.Score),
			Snippet:     entry.Fields["snippet"],
		})
	}
	return records, nil
}

// TagSearch returns candidates whose tag sets overlap the query tags. The tag
// score is the fraction of query tags present on the record, so match-all hits
// always score 1.
func (r *Repo) TagSearch(
	ctx context.Context, tags []string, matchAll bool, limit int,
) ([]domain.CandidateRecord, error) {
	sr, err := r.store.SearchTags(ctx, &db.TagQuery{
		IndexName:    r.indexName(),
		Tags:         tags,
		MatchAll:     matchAll,
		Limit:        limit,
		ReturnFields: []string{"snippet", "tags"},
	})
	if err != nil {
		return nil, classify(err)
	}

	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	records := make([]domain.CandidateRecord, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		score := tagOverlap(tags, entry.Fields["tags"])
		records = append(records, domain.CandidateRecord{
			RecordID: r.recordID(entry.Key),
			TagScore: domain.Score(score),
			Snippet:  entry.Fields["snippet"],
		})
	}

	if err := r.fillSnippets(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

// fillSnippets backfills snippets for hits whose search row lacked one: the
// snippet lives on the record hash even when the index schema does not cover
// it. A single miss reads one hash; multiple misses batch into one round-trip.
func (r *Repo) fillSnippets(ctx context.Context, records []domain.CandidateRecord) error {
	var missing []int
	for i := range records {
		if records[i].Snippet == "" {
			missing = append(missing, i)
		}
	}
	switch len(missing) {
	case 0:
		return nil
	case 1:
		i := missing[0]
		snippet, err := r.GetSnippet(ctx, records[i].RecordID)
		if err != nil {
			if errors.Is(err, domain.ErrNoCandidates) {
				return nil
			}
			return err
		}
		records[i].Snippet = snippet
		return nil
	}

	keys := make([]string, len(missing))
	for j, i := range missing {
		keys[j] = r.recordKey(records[i].RecordID)
	}
	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return classify(err)
	}

	for j, i := range missing {
		if j < len(rows) {
			records[i].Snippet = rows[j]["snippet"]
		}
	}
	return nil
}

// GetSnippet fetches the snippet text of a single record.
func (r *Repo) GetSnippet(ctx context.Context, recordID string) (string, error) {
	fields, err := r.store.HGetAll(ctx, r.recordKey(recordID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", fmt.Errorf("record %s: %w", recordID, domain.ErrNoCandidates)
		}
		return "", classify(err)
	}
	return fields["snippet"], nil
}

// Count returns the number of records in the catalog index.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func (r *Repo) recordID(key string) string {
	return strings.TrimPrefix(key, r.keyPrefix+"record:")
}

// tagOverlap computes |query ∩ record| / |query| over comma-separated record tags.
func tagOverlap(queryTags []string, recordTags string) float64 {
	if len(queryTags) == 0 {
		return 0
	}
	present := make(map[string]struct{})
	for _, t := range strings.Split(recordTags, ",") {
		t = strings.TrimSpace(strings.ToLower(t))
		if t != "" {
			present[t] = struct{}{}
		}
	}
	matched := 0
	for _, t := range queryTags {
		if _, ok := present[strings.ToLower(t)]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTags))
}

// classify maps store errors onto the pipeline taxonomy: timeouts are
// transient, connection-level failures are fatal.
func classify(err error) error {
	switch {
	case db.IsTimeout(err):
		return fmt.Errorf("record store: %v: %w", err, domain.ErrProviderTransient)
	case db.IsUnavailable(err):
		return fmt.Errorf("record store: %v: %w", err, domain.ErrStoreUnavailable)
	default:
		return fmt.Errorf("record store: %w", err)
	}
}
