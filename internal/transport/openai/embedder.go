package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scout/internal/domain"
	"github.com/kailas-cloud/scout/internal/metrics"
)

// Embedder turns query text into a fixed-length vector using the
// OpenAI-compatible embeddings API.
type Embedder struct {
	provider   *Provider
	model      openai.EmbeddingModel
	dimensions int
	logger     *zap.Logger
}

// EmbedderConfig holds the embedding client settings.
type EmbedderConfig struct {
	Model      string
	Dimensions int
	Logger     *zap.Logger
}

// NewEmbedder creates an embedding client on a shared provider connection.
func NewEmbedder(provider *Provider, cfg EmbedderConfig) *Embedder {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Embedder{
		provider:   provider,
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		logger:     log,
	}
}

// Embed implements retrieval.Embedder. The session ID travels in the request
// user field for provider-side observability and caching.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := e.provider.wait(ctx); err != nil {
		return nil, err
	}

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           sessionFromContext(ctx),
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.provider.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	model := string(e.model)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("embed", model, "error").Inc()
		metrics.ProviderErrorsTotal.WithLabelValues("embed", model, "api_error").Inc()
		return nil, classifyAPIError("embed", err)
	}

	if len(resp.Data) == 0 {
		metrics.ProviderRequestsTotal.WithLabelValues("embed", model, "error").Inc()
		metrics.ProviderErrorsTotal.WithLabelValues("embed", model, "empty_response").Inc()
		return nil, fmt.Errorf("empty embedding response: %w", domain.ErrProviderTransient)
	}

	metrics.ProviderRequestsTotal.WithLabelValues("embed", model, "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues("embed", model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.ProviderTokensTotal.WithLabelValues("embed", model).Add(float64(resp.Usage.TotalTokens))
		domain.UsageFromContext(ctx).AddTokens(resp.Usage.TotalTokens)
	}

	e.logger.Debug("embedded query",
		zap.Int("dimensions", len(resp.Data[0].Embedding)),
		zap.Int("tokens", resp.Usage.TotalTokens),
		zap.Duration("duration", duration),
	)

	return resp.Data[0].Embedding, nil
}
