package synthesis

import (
	"context"

	"github.com/kailas-cloud/scout/internal/domain"
)

// ChunkStream yields narrative text chunks in generation order. It is finite
// and not restartable. Recv returns io.EOF after the last chunk.
type ChunkStream interface {
	Recv() (string, error)
	Close()
}

// Synthesizer opens a narrative stream for a query and its ranked records.
type Synthesizer interface {
	Synthesize(ctx context.Context, queryText string, records []domain.AdjudicatedRecord) (ChunkStream, error)
}
