package pipeline

import (
	"context"

	"github.com/kailas-cloud/scout/internal/domain"
	"github.com/kailas-cloud/scout/internal/usecase/adjudicate"
	"github.com/kailas-cloud/scout/internal/usecase/retrieval"
	"github.com/kailas-cloud/scout/internal/usecase/synthesis"
)

// Retriever produces the ranked candidate list for a query.
type Retriever interface {
	Retrieve(ctx context.Context, q domain.Query) (retrieval.Result, error)
}

// Adjudicator filters and scores candidates for true relevance.
type Adjudicator interface {
	Adjudicate(ctx context.Context, q domain.Query, candidates []domain.CandidateRecord) (adjudicate.Result, error)
}

// Streamer forwards the synthesized narrative chunk by chunk.
type Streamer interface {
	Stream(ctx context.Context, q domain.Query, records []domain.AdjudicatedRecord, emit func(string)) (synthesis.Outcome, error)
}
