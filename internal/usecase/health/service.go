package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the provider is failing but the store is up; the
	// pipeline can still serve degraded results.
	Degraded Status = "degraded"
	// Unhealthy indicates the record store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status      Status
	Checks      map[string]CheckResult
	RecordCount int
}

// Service coordinates health checks across the pipeline's dependencies.
type Service struct {
	store    StorePinger
	provider ProviderChecker
	catalog  CatalogCounter
}

// New creates a Service. provider and catalog can be nil.
func New(store StorePinger, provider ProviderChecker, catalog CatalogCounter) *Service {
	return &Service{store: store, provider: provider, catalog: catalog}
}

// Check runs health checks against all components. A store failure is fatal
// for the pipeline, so it dominates the aggregate status; a provider failure
// only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.store.Ping(ctx); err != nil {
		checks["store"] = CheckError
		status = Unhealthy
	} else {
		checks["store"] = CheckOK
	}

	if s.provider != nil {
		if err := s.provider.HealthCheck(ctx); err != nil {
			checks["provider"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["provider"] = CheckOK
		}
	}

	report := Report{Status: status, Checks: checks}

	if s.catalog != nil && checks["store"] == CheckOK {
		if n, err := s.catalog.Count(ctx); err == nil {
			report.RecordCount = n
		}
	}

	return report
}
