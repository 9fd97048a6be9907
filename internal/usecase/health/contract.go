package health

import "context"

// StorePinger checks record store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// ProviderChecker checks the embedding/scoring/synthesis provider.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

// CatalogCounter reports the number of searchable records.
type CatalogCounter interface {
	Count(ctx context.Context) (int, error)
}
