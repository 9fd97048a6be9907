// Package scout provides the embedded-mode client for the hybrid search
// pipeline: retrieval over a Redis-backed catalog, relevance adjudication,
// and streamed narrative synthesis, wired directly against the store without
// an HTTP server in between.
package scout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/scout/internal/db"
	dbRedis "github.com/kailas-cloud/scout/internal/db/redis"
	"github.com/kailas-cloud/scout/internal/domain"
	"github.com/kailas-cloud/scout/internal/repository/catalog"
	openaiTransport "github.com/kailas-cloud/scout/internal/transport/openai"
	"github.com/kailas-cloud/scout/internal/usecase/adjudicate"
	pipelineuc "github.com/kailas-cloud/scout/internal/usecase/pipeline"
	"github.com/kailas-cloud/scout/internal/usecase/retrieval"
	"github.com/kailas-cloud/scout/internal/usecase/synthesis"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the scout embedded-mode entry point.
type Client struct {
	store       db.Store
	pipeline    *pipelineuc.Service
	adjudicator *adjudicate.Service
}

type clientConfig struct {
	addrs     []string
	username  string
	password  string
	keyPrefix string

	openAIKey     string
	openAIBaseURL string

	embedder    Embedder
	scorer      Scorer
	synthesizer Synthesizer

	pipeline PipelineOptions
	logger   *zap.Logger
}

// Option configures the client.
type Option func(*clientConfig)

// WithRedis sets the record store addresses.
func WithRedis(addrs ...string) Option {
	return func(c *clientConfig) { c.addrs = addrs }
}

// WithAuth sets store credentials.
func WithAuth(username, password string) Option {
	return func(c *clientConfig) { c.username = username; c.password = password }
}

// WithKeyPrefix overrides the record key prefix (default "scout:").
func WithKeyPrefix(prefix string) Option {
	return func(c *clientConfig) { c.keyPrefix = prefix }
}

// WithOpenAI builds the embedding, scoring, and synthesis clients on one
// OpenAI-compatible connection.
func WithOpenAI(apiKey string) Option {
	return func(c *clientConfig) { c.openAIKey = apiKey }
}

// WithOpenAIBaseURL points WithOpenAI at a compatible provider.
func WithOpenAIBaseURL(baseURL string) Option {
	return func(c *clientConfig) { c.openAIBaseURL = baseURL }
}

// WithProviders supplies custom provider implementations instead of
// WithOpenAI. All three are required together.
func WithProviders(embedder Embedder, scorer Scorer, synthesizer Synthesizer) Option {
	return func(c *clientConfig) {
		c.embedder = embedder
		c.scorer = scorer
		c.synthesizer = synthesizer
	}
}

// WithPipelineOptions overrides pipeline tunables. Zero fields keep defaults.
func WithPipelineOptions(opts PipelineOptions) Option {
	return func(c *clientConfig) { c.pipeline = opts }
}

// WithLogger sets the logger (default: no-op).
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}

// PipelineOptions mirrors the pipeline tunables for embedded use.
type PipelineOptions struct {
	BranchTimeout      time.Duration
	MergeAlpha         float64
	OverFetch          int
	AdjudicationWidth  int
	AdjudicationCall   time.Duration
	RelevanceThreshold float64
	RetryBackoff       time.Duration
	SynthesisTimeout   time.Duration
}

// New creates a scout Client and connects to the record store.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{keyPrefix: "scout:", logger: zap.NewNop()}
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("scout: record store address required (use WithRedis)")
	}
	if cfg.openAIKey == "" && cfg.embedder == nil {
		return nil, errors.New("scout: providers required (use WithOpenAI or WithProviders)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("scout: create store: %w", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("scout: record store not ready: %w", err)
	}

	return wireClient(store, cfg)
}

func wireClient(store db.Store, cfg *clientConfig) (*Client, error) {
	catalogRepo := catalog.New(store, cfg.keyPrefix)

	embedder, scorer, synthesizer := buildProviders(cfg)

	retCfg := retrieval.DefaultConfig()
	adjCfg := adjudicate.DefaultConfig()
	synCfg := synthesis.DefaultConfig()
	applyPipelineOptions(cfg.pipeline, &retCfg, &adjCfg, &synCfg)

	retriever := retrieval.New(catalogRepo, embedder, retCfg)

	adjudicator, err := adjudicate.New(scorer, adjCfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("scout: create adjudicator: %w", err)
	}

	streamer := synthesis.New(synthesizer, synCfg)

	return &Client{
		store:       store,
		pipeline:    pipelineuc.New(retriever, adjudicator, streamer, cfg.logger),
		adjudicator: adjudicator,
	}, nil
}

func buildProviders(cfg *clientConfig) (retrieval.Embedder, adjudicate.Scorer, synthesis.Synthesizer) {
	if cfg.embedder != nil {
		return &embedderAdapter{inner: cfg.embedder},
			&scorerAdapter{inner: cfg.scorer},
			&synthesizerAdapter{inner: cfg.synthesizer}
	}

	provider := openaiTransport.NewProvider(openaiTransport.Config{
		APIKey:  cfg.openAIKey,
		BaseURL: cfg.openAIBaseURL,
	})
	embedder := openaiTransport.NewEmbedder(provider, openaiTransport.EmbedderConfig{
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
		Logger:     cfg.logger,
	})
	scorer := openaiTransport.NewScorer(provider, openaiTransport.ScorerConfig{
		Model:  "gpt-4o-mini",
		Logger: cfg.logger,
	})
	synthesizer := openaiTransport.NewSynthesizer(provider, openaiTransport.SynthesizerConfig{
		Model:  "gpt-4o-mini",
		Logger: cfg.logger,
	})
	return embedder, scorer, synthesizer
}

func applyPipelineOptions(
	opts PipelineOptions, ret *retrieval.Config, adj *adjudicate.Config, syn *synthesis.Config,
) {
	if opts.BranchTimeout > 0 {
		ret.BranchTimeout = opts.BranchTimeout
	}
	if opts.MergeAlpha > 0 {
		ret.Alpha = opts.MergeAlpha
	}
	if opts.OverFetch > 0 {
		ret.OverFetch = opts.OverFetch
	}
	if opts.RetryBackoff > 0 {
		ret.EmbedBackoff = opts.RetryBackoff
		adj.RetryBackoff = opts.RetryBackoff
		syn.RetryBackoff = opts.RetryBackoff
	}
	if opts.AdjudicationWidth > 0 {
		adj.PoolWidth = opts.AdjudicationWidth
	}
	if opts.AdjudicationCall > 0 {
		adj.CallTimeout = opts.AdjudicationCall
	}
	if opts.RelevanceThreshold > 0 {
		adj.Threshold = opts.RelevanceThreshold
	}
	if opts.SynthesisTimeout > 0 {
		syn.OpenTimeout = opts.SynthesisTimeout
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.adjudicator != nil {
		c.adjudicator.Release()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks record store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search starts a workflow for the query and returns its event stream.
// Cancelling ctx stops the workflow and every in-flight provider call.
func (c *Client) Search(ctx context.Context, q Query) (<-chan Event, error) {
	events, err := c.pipeline.Search(ctx, domain.Query{
		Text:          q.Text,
		Tags:          q.Tags,
		MatchAllTags:  q.MatchAllTags,
		MaxResults:    q.MaxResults,
		MinSimilarity: q.MinSimilarity,
		SessionID:     q.SessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("scout: %w", err)
	}
	return convertEvents(events), nil
}

// SearchText is the text-only call shape.
func (c *Client) SearchText(ctx context.Context, text string, maxResults int) (<-chan Event, error) {
	return c.Search(ctx, Query{Text: text, MaxResults: maxResults})
}

// SearchTags is the tag-only call shape.
func (c *Client) SearchTags(ctx context.Context, tags []string, matchAll bool, maxResults int) (<-chan Event, error) {
	return c.Search(ctx, Query{Tags: tags, MatchAllTags: matchAll, MaxResults: maxResults})
}
