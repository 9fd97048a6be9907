package db

import (
	"context"
	"time"
)

// Store is the catalog database facade. Consumers depend on the narrow
// sub-interfaces, not the facade.
type Store interface {
	Pinger
	HashReader
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashReader reads record hashes (snippets, tags).
type HashReader interface {
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// Searcher provides FT.SEARCH operations over the catalog index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchTags(ctx context.Context, q *TagQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}
