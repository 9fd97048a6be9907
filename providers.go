package scout

import (
	"context"

	"github.com/kailas-cloud/scout/internal/domain"
	"github.com/kailas-cloud/scout/internal/usecase/synthesis"
)

// Embedder vectorizes query text. Supply one via WithProviders to replace
// the OpenAI embedding client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Scorer rates the topical relevance of a snippet against the query text on
// [0, 1] and returns a justification. Implementations must be safe for
// concurrent use.
type Scorer interface {
	Score(ctx context.Context, queryText, snippet string) (float64, string, error)
}

// ChunkStream yields narrative text chunks in generation order. It is finite
// and not restartable. Recv returns io.EOF after the last chunk.
type ChunkStream interface {
	Recv() (string, error)
	Close()
}

// Synthesizer opens a narrative stream for a query and its ranked records.
type Synthesizer interface {
	Synthesize(ctx context.Context, queryText string, records []AdjudicatedRecord) (ChunkStream, error)
}

type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	return a.inner.Embed(ctx, text)
}

type scorerAdapter struct {
	inner Scorer
}

func (a *scorerAdapter) Score(ctx context.Context, queryText, snippet string) (float64, string, error) {
	return a.inner.Score(ctx, queryText, snippet)
}

type synthesizerAdapter struct {
	inner Synthesizer
}

func (a *synthesizerAdapter) Synthesize(
	ctx context.Context, queryText string, records []domain.AdjudicatedRecord,
) (synthesis.ChunkStream, error) {
	converted := make([]AdjudicatedRecord, len(records))
	for i, r := range records {
		converted[i] = convertAdjudicated(r)
	}
	stream, err := a.inner.Synthesize(ctx, queryText, converted)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
