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
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/boqmatch/internal/catalog"
	"github.com/kailas-cloud/boqmatch/internal/config"
	dbRedis "github.com/kailas-cloud/boqmatch/internal/db/redis"
	"github.com/kailas-cloud/boqmatch/internal/domain"
	logpkg "github.com/kailas-cloud/boqmatch/internal/logger"
	"github.com/kailas-cloud/boqmatch/internal/metrics"
	"github.com/kailas-cloud/boqmatch/internal/repository/embcache"
	jobrepo "github.com/kailas-cloud/boqmatch/internal/repository/job"
	chiTransport "github.com/kailas-cloud/boqmatch/internal/transport/chi"
	cohereEmb "github.com/kailas-cloud/boqmatch/internal/transport/cohere"
	openaiEmb "github.com/kailas-cloud/boqmatch/internal/transport/openai"
	batchuc "github.com/kailas-cloud/boqmatch/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/boqmatch/internal/usecase/health"
	hybriduc "github.com/kailas-cloud/boqmatch/internal/usecase/hybrid"
	jobuc "github.com/kailas-cloud/boqmatch/internal/usecase/job"
	matchuc "github.com/kailas-cloud/boqmatch/internal/usecase/match"
	"github.com/kailas-cloud/boqmatch/internal/version"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

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

	logger.Info("Starting boqmatch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("catalog_path", cfg.Matching.CatalogPath),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create job store", zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Job store not ready", zap.Error(err))
	}
	logger.Info("Connected to job store")

	// Register matching metrics explicitly (no init())
	metrics.RegisterMatchingMetrics()

	// Embedders — composition root
	openaiEmbedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.OpenAI.APIKey,
		BaseURL:    cfg.Embedding.OpenAI.BaseURL,
		Model:      cfg.Embedding.OpenAI.Model,
		Dimensions: cfg.Embedding.OpenAI.Dimensions,
		BatchSize:  cfg.Embedding.OpenAI.BatchSize,
		BatchDelay: time.Duration(cfg.Embedding.OpenAI.BatchDelayMS) * time.Millisecond,
		Logger:     logger,
	})
	cohereEmbedder := cohereEmb.NewEmbedder(&cohereEmb.Config{
		APIKey:     cfg.Embedding.Cohere.APIKey,
		BaseURL:    cfg.Embedding.Cohere.BaseURL,
		Model:      cfg.Embedding.Cohere.Model,
		Dimensions: cfg.Embedding.Cohere.Dimensions,
		BatchSize:  cfg.Embedding.Cohere.BatchSize,
		BatchDelay: time.Duration(cfg.Embedding.Cohere.BatchDelayMS) * time.Millisecond,
		Logger:     logger,
	})
	logger.Info("Embedders created",
		zap.String("openai_model", cfg.Embedding.OpenAI.Model),
		zap.String("cohere_model", cfg.Embedding.Cohere.Model),
	)

	// Embedding cache over the job store; vectors keyed per provider and role
	openaiCached := embcache.New(openaiEmbedder, store, cfg.Storage.KeyPrefix, metrics.EmbeddingCacheTotal, logger)
	cohereCached := embcache.New(cohereEmbedder, store, cfg.Storage.KeyPrefix, metrics.EmbeddingCacheTotal, logger)

	// Matchers: one per provider plus the hybrid consensus matcher
	openaiMatcher := matchuc.New(openaiCached, logger)
	cohereMatcher := matchuc.New(cohereCached, logger)
	hybridMatcher := hybriduc.New(openaiMatcher, cohereMatcher, logger)
	matchers := map[string]domain.Matcher{
		openaiEmb.ProviderName: openaiMatcher,
		cohereEmb.ProviderName: cohereMatcher,
		hybriduc.Name:          hybridMatcher,
	}

	catalogSrc := catalog.NewFileSource(cfg.Matching.CatalogPath)

	repo := jobrepo.New(store, cfg.Storage.KeyPrefix, time.Duration(cfg.Storage.JobTTLHours)*time.Hour)

	// Use case services
	jobSvc := jobuc.New(repo, matchers, catalogSrc, cfg.Storage.QueueBacklog, logger)
	jobSvc.Start(ctx)

	checkers := map[string]batchuc.CredentialChecker{
		openaiEmb.ProviderName: openaiEmbedder,
		cohereEmb.ProviderName: cohereEmbedder,
	}
	batchSvc := batchuc.New(repo, matchers, checkers, catalogSrc, logger)

	healthSvc := healthuc.New(store, map[string]healthuc.EmbeddingChecker{
		openaiEmb.ProviderName: openaiEmbedder,
		cohereEmb.ProviderName: cohereEmbedder,
	})

	server := chiTransport.NewServer(jobSvc, batchSvc, hybridMatcher, catalogSrc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
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

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
