package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scout/internal/config"
	dbRedis "github.com/kailas-cloud/scout/internal/db/redis"
	logpkg "github.com/kailas-cloud/scout/internal/logger"
	"github.com/kailas-cloud/scout/internal/metrics"
	"github.com/kailas-cloud/scout/internal/repository/catalog"
	chiTransport "github.com/kailas-cloud/scout/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/scout/internal/transport/openai"
	"github.com/kailas-cloud/scout/internal/usecase/adjudicate"
	healthuc "github.com/kailas-cloud/scout/internal/usecase/health"
	pipelineuc "github.com/kailas-cloud/scout/internal/usecase/pipeline"
	"github.com/kailas-cloud/scout/internal/usecase/retrieval"
	"github.com/kailas-cloud/scout/internal/usecase/synthesis"
	"github.com/kailas-cloud/scout/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting scout API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create record store", zap.Error(err))
	}
	defer store.Close()

	// Wait for the record store to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Record store not ready", zap.Error(err))
	}
	logger.Info("Connected to record store")

	// Register metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()
	metrics.RegisterProviderMetrics()

	// Shared provider connection for embedding, scoring, and synthesis
	provider := openaiTransport.NewProvider(openaiTransport.Config{
		APIKey:            cfg.Provider.APIKey,
		BaseURL:           cfg.Provider.BaseURL,
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
		Burst:             cfg.Provider.Burst,
	})

	embedder := openaiTransport.NewEmbedder(provider, openaiTransport.EmbedderConfig{
		Model:      cfg.Provider.EmbeddingModel,
		Dimensions: cfg.Provider.EmbeddingDims,
		Logger:     logger,
	})
	scorer := openaiTransport.NewScorer(provider, openaiTransport.ScorerConfig{
		Model:  cfg.Provider.ScoringModel,
		Logger: logger,
	})
	synthesizer := openaiTransport.NewSynthesizer(provider, openaiTransport.SynthesizerConfig{
		Model:  cfg.Provider.SynthesisModel,
		Logger: logger,
	})
	logger.Info("Provider clients created",
		zap.String("embedding_model", cfg.Provider.EmbeddingModel),
		zap.String("scoring_model", cfg.Provider.ScoringModel),
		zap.String("synthesis_model", cfg.Provider.SynthesisModel),
	)

	// Catalog repository
	catalogRepo := catalog.New(store, cfg.Storage.KeyPrefix)

	// Pipeline stage services
	retriever := retrieval.New(catalogRepo, embedder, retrieval.Config{
		BranchTimeout: time.Duration(cfg.Pipeline.BranchTimeoutSec) * time.Second,
		Alpha:         cfg.Pipeline.MergeAlpha,
		OverFetch:     cfg.Pipeline.OverFetch,
		EmbedRetries:  2,
		EmbedBackoff:  time.Duration(cfg.Pipeline.RetryBackoffMs) * time.Millisecond,
	})

	adjudicator, err := adjudicate.New(scorer, adjudicate.Config{
		PoolWidth:    cfg.Pipeline.AdjudicationWidth,
		CallTimeout:  time.Duration(cfg.Pipeline.AdjudicationTimeout) * time.Second,
		RetryBackoff: time.Duration(cfg.Pipeline.RetryBackoffMs) * time.Millisecond,
		Threshold:    cfg.Pipeline.RelevanceThreshold,
	})
	if err != nil {
		logger.Fatal("Failed to create adjudicator", zap.Error(err))
	}
	defer adjudicator.Release()

	streamer := synthesis.New(synthesizer, synthesis.Config{
		OpenTimeout:  time.Duration(cfg.Pipeline.SynthesisTimeoutSec) * time.Second,
		RetryBackoff: time.Duration(cfg.Pipeline.RetryBackoffMs) * time.Millisecond,
	})

	pipeline := pipelineuc.New(retriever, adjudicator, streamer, logger)
	healthSvc := healthuc.New(store, provider, catalogRepo)

	// Chi server
	server := chiTransport.NewServer(pipeline, healthSvc, logger, cfg.Pipeline.DefaultMaxResults)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	server.Routes(r, cfg.Auth.APIKeys)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
