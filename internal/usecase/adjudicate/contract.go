package adjudicate

import "context"

// Scorer rates the topical relevance of a snippet against the query and
// returns a justification. Implementations must be safe for concurrent use.
type Scorer interface {
	Score(ctx context.Context, queryText, snippet string) (float64, string, error)
}
