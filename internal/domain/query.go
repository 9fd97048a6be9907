package domain

import (
	"fmt"
	"strings"
)

// Query is a single search request against the provider catalog.
// Exactly how it was populated (text-only, tag-only, hybrid) does not matter
// past this point: empty fields simply disable the corresponding branch.
type Query struct {
	Text          string
	Tags          []string
	MatchAllTags  bool
	MaxResults    int
	MinSimilarity float64
	// SessionID is threaded through external calls for observability and
	// provider-side caching keys only. It carries no access-control semantics.
	SessionID string
}

// Validate checks query well-formedness before a workflow is started.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" && len(q.Tags) == 0 {
		return fmt.Errorf("%w: text and tags are both empty", ErrInvalidQuery)
	}
	if q.MaxResults < 1 {
		return fmt.Errorf("%w: max_results must be >= 1, got %d", ErrInvalidQuery, q.MaxResults)
	}
	if q.MinSimilarity < 0 || q.MinSimilarity > 1 {
		return fmt.Errorf("%w: minimum_similarity must be in [0,1], got %g", ErrInvalidQuery, q.MinSimilarity)
	}
	return nil
}

// HasText reports whether the vector branch should run.
func (q Query) HasText() bool { return strings.TrimSpace(q.Text) != "" }

// HasTags reports whether the tag branch should run.
func (q Query) HasTags() bool { return len(q.Tags) > 0 }

// Describe returns the query text, or a description reconstructed from the
// tags when no text was given. Used as the scoring and synthesis prompt topic.
func (q Query) Describe() string {
	if q.HasText() {
		return q.Text
	}
	mode := "any of"
	if q.MatchAllTags {
		mode = "all of"
	}
	return fmt.Sprintf("service providers matching %s: %s", mode, strings.Join(q.Tags, ", "))
}
