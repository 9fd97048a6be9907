package retrieval

import (
	"sort"

	"github.com/kailas-cloud/scout/internal/domain"
)

// merge combines the vector and tag branch candidates. Records present in
// both branches score alpha*vector + (1-alpha)*tag; single-branch records keep
// that branch's score. Ordering is combined score descending, ties broken by
// record ID ascending so identical queries rank identically.
func merge(vector, tag []domain.CandidateRecord, alpha float64, maxResults int) []domain.CandidateRecord {
	byID := make(map[string]domain.CandidateRecord, len(vector)+len(tag))

	for _, c := range vector {
		byID[c.RecordID] = c
	}

	for _, c := range tag {
		if existing, ok := byID[c.RecordID]; ok {
			existing.TagScore = c.TagScore
			if existing.Snippet == "" {
				existing.Snippet = c.Snippet
			}
			byID[c.RecordID] = existing
		} else {
			byID[c.RecordID] = c
		}
	}

	merged := make([]domain.CandidateRecord, 0, len(byID))
	for _, c := range byID {
		c.CombinedScore = combinedScore(c, alpha)
		merged = append(merged, c)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].CombinedScore != merged[j].CombinedScore {
			return merged[i].CombinedScore > merged[j].CombinedScore
		}
		return merged[i].RecordID < merged[j].RecordID
	})

	if len(merged) > maxResults {
		merged = merged[:maxResults]
	}

	return merged
}

func combinedScore(c domain.CandidateRecord, alpha float64) float64 {
	switch {
	case c.VectorScore != nil && c.TagScore != nil:
		return alpha**c.VectorScore + (1-alpha)**c.TagScore
	case c.VectorScore != nil:
		return *c.VectorScore
	case c.TagScore != nil:
		return *c.TagScore
	default:
		return 0
	}
}
