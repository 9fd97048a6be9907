package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scout/internal/domain"
	"github.com/kailas-cloud/scout/internal/metrics"
)

const scorerSystemPrompt = `You rate how relevant a service-provider record is to a search query.
Respond with a single JSON object and nothing else:
{"score": <float between 0 and 1>, "justification": "<one or two sentences>"}`

// Scorer rates (query, snippet) pairs via chat completion with a JSON-only
// instruction. Safe for concurrent use by the adjudication pool.
type Scorer struct {
	provider *Provider
	model    string
	logger   *zap.Logger
}

// ScorerConfig holds the scoring client settings.
type ScorerConfig struct {
	Model  string
	Logger *zap.Logger
}

// NewScorer creates a relevance scoring client on a shared provider connection.
func NewScorer(provider *Provider, cfg ScorerConfig) *Scorer {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Scorer{provider: provider, model: cfg.Model, logger: log}
}

// Score implements adjudicate.Scorer.
func (s *Scorer) Score(ctx context.Context, queryText, snippet string) (float64, string, error) {
	if err := s.provider.wait(ctx); err != nil {
		return 0, "", err
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: scorerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Query: %s\n\nRecord: %s", queryText, snippet)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		User: sessionFromContext(ctx),
	}

	start := time.Now()
	resp, err := s.provider.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("score", s.model, "error").Inc()
		metrics.ProviderErrorsTotal.WithLabelValues("score", s.model, "api_error").Inc()
		return 0, "", classifyAPIError("score", err)
	}

	if len(resp.Choices) == 0 {
		metrics.ProviderRequestsTotal.WithLabelValues("score", s.model, "error").Inc()
		metrics.ProviderErrorsTotal.WithLabelValues("score", s.model, "empty_response").Inc()
		return 0, "", fmt.Errorf("empty scoring response: %w", domain.ErrProviderTransient)
	}

	metrics.ProviderRequestsTotal.WithLabelValues("score", s.model, "success").Inc()
	metrics.ProviderRequestDuration.WithLabelValues("score", s.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.ProviderTokensTotal.WithLabelValues("score", s.model).Add(float64(resp.Usage.TotalTokens))
		domain.UsageFromContext(ctx).AddTokens(resp.Usage.TotalTokens)
	}

	score, justification, err := parseScore(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.ProviderErrorsTotal.WithLabelValues("score", s.model, "parse_error").Inc()
		return 0, "", fmt.Errorf("parse score: %v: %w", err, domain.ErrProviderTransient)
	}

	s.logger.Debug("scored candidate",
		zap.Float64("score", score),
		zap.Duration("duration", duration),
	)

	return score, justification, nil
}

// parseScore extracts and clamps the score payload.
func parseScore(content string) (float64, string, error) {
	var payload struct {
		Score         float64 `json:"score"`
		Justification string  `json:"justification"`
	}

	content = strings.TrimSpace(content)
	// Strip a markdown fence if the model added one despite the JSON mode.
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return 0, "", err
	}

	score := payload.Score
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, payload.Justification, nil
}
