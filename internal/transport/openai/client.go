package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/scout/internal/domain"
)

// Config holds the shared provider connection settings.
type Config struct {
	APIKey  string
	BaseURL string
	// RequestsPerSecond caps the combined call rate of every client built on
	// this provider. Zero disables rate limiting.
	RequestsPerSecond float64
	// Burst is the rate limiter burst size. Defaults to 1 when limiting is on.
	Burst int
}

// Provider wraps one OpenAI-compatible API connection shared by the
// embedding, scoring, and synthesis clients. Safe for concurrent use by
// multiple in-flight workflows.
type Provider struct {
	client  *openai.Client
	limiter *rate.Limiter
}

// NewProvider creates a provider connection.
func NewProvider(cfg Config) *Provider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Provider{client: openai.NewClientWithConfig(clientCfg), limiter: limiter}
}

// wait blocks on the shared rate limiter, honoring cancellation.
func (p *Provider) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// sessionFromContext resolves the workflow session ID for the request user
// field, used by the provider for observability and caching keys.
func sessionFromContext(ctx context.Context) string {
	return domain.SessionFromContext(ctx)
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (p *Provider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
