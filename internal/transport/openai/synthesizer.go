package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scout/internal/domain"
	"github.com/kailas-cloud/scout/internal/metrics"
	"github.com/kailas-cloud/scout/internal/usecase/synthesis"
)

const synthesizerSystemPrompt = `You write a narrative summary explaining why each of the given
service-provider records is relevant to the query, ordered by relevance.
After the narrative, append exactly one fenced json block:
` + "```json" + `
{"executive_summary": "...", "detailed_summary": "...",
 "recommendations": [{"record_id": "...", "rationale": "..."}],
 "key_insights": ["..."]}
` + "```"

// Synthesizer streams a narrative via chat completion streaming.
type Synthesizer struct {
	provider *Provider
	model    string
	logger   *zap.Logger
}

// SynthesizerConfig holds the synthesis client settings.
type SynthesizerConfig struct {
	Model  string
	Logger *zap.Logger
}

// NewSynthesizer creates a narrative synthesis client on a shared provider
// connection.
func NewSynthesizer(provider *Provider, cfg SynthesizerConfig) *Synthesizer {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Synthesizer{provider: provider, model: cfg.Model, logger: log}
}

// Synthesize implements synthesis.Synthesizer. The returned stream is finite
// and not restartable; cancelling ctx aborts the in-flight generation.
func (s *Synthesizer) Synthesize(
	ctx context.Context, queryText string, records []domain.AdjudicatedRecord,
) (synthesis.ChunkStream, error) {
	if err := s.provider.wait(ctx); err != nil {
		return nil, err
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: synthesizerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildSynthesisPrompt(queryText, records)},
		},
		Stream: true,
		User:   sessionFromContext(ctx),
	}

	stream, err := s.provider.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("synthesize", s.model, "error").Inc()
		metrics.ProviderErrorsTotal.WithLabelValues("synthesize", s.model, "api_error").Inc()
		return nil, classifyAPIError("synthesize", err)
	}

	metrics.ProviderRequestsTotal.WithLabelValues("synthesize", s.model, "success").Inc()
	s.logger.Debug("synthesis stream opened", zap.Int("records", len(records)))

	return &chunkStream{stream: stream}, nil
}

// chunkStream adapts the completion stream to synthesis.ChunkStream. Empty
// deltas (role frames, finish frames) are skipped so every yielded chunk
// carries text.
type chunkStream struct {
	stream *openai.ChatCompletionStream
}

func (c *chunkStream) Recv() (string, error) {
	for {
		resp, err := c.stream.Recv()
		if err != nil {
			// io.EOF passes through as the end-of-stream marker.
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (c *chunkStream) Close() {
	_ = c.stream.Close()
}

// buildSynthesisPrompt lays out the query and the ranked records for the model.
func buildSynthesisPrompt(queryText string, records []domain.AdjudicatedRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\nRanked records:\n", queryText)
	for i, r := range records {
		fmt.Fprintf(&b, "%d. id=%s relevance=%.2f\n   %s\n   Why: %s\n",
			i+1, r.RecordID, r.RelevanceScore, r.Snippet, r.Justification)
	}
	return b.String()
}
