package retrieval

import (
	"context"

	"github.com/kailas-cloud/scout/internal/domain"
)

// Catalog is the record store contract for retrieval.
type Catalog interface {
	SimilaritySearch(ctx context.Context, vector []float32, topK int, minSimilarity float64) ([]domain.CandidateRecord, error)
	TagSearch(ctx context.Context, tags []string, matchAll bool, limit int) ([]domain.CandidateRecord, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
