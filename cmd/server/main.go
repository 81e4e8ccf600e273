// Command server starts the AI mock interview HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	ai "github.com/fairyhunter13/ai-mock-interview/internal/adapter/ai"
	"github.com/fairyhunter13/ai-mock-interview/internal/adapter/ai/real"
	httpserver "github.com/fairyhunter13/ai-mock-interview/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-mock-interview/internal/adapter/observability"
	"github.com/fairyhunter13/ai-mock-interview/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/ai-mock-interview/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-mock-interview/internal/adapter/storage/minio"
	"github.com/fairyhunter13/ai-mock-interview/internal/app"
	"github.com/fairyhunter13/ai-mock-interview/internal/config"
	"github.com/fairyhunter13/ai-mock-interview/internal/domain"
	"github.com/fairyhunter13/ai-mock-interview/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-mock-interview/internal/usecase"
)

func main() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Infra: DB pool
	pool, err := postgres.Connect(ctx, cfg.DBURL, cfg.GetDBRetryConfig().NewBackOff())
	if err != nil {
		slog.Error("db connect failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		slog.Error("db migrate failed", slog.Any("error", err))
		os.Exit(1)
	}

	interviewRepo := postgres.NewInterviewRepo(pool)
	questionRepo := postgres.NewQuestionRepo(pool)
	answerRepo := postgres.NewAnswerRepo(pool)

	// Start cleanup service for data retention
	if cfg.DataRetentionDays > 0 {
		cleanupSvc := postgres.NewCleanupService(pool, cfg.DataRetentionDays)
		go cleanupSvc.RunPeriodic(ctx, cfg.CleanupInterval)
		slog.Info("cleanup service started", slog.Int("retention_days", cfg.DataRetentionDays), slog.Duration("interval", cfg.CleanupInterval))
	}

	rdb := buildRedis(cfg)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	aiClient := buildAI(cfg)
	var quota domain.QuotaLimiter
	if rdb != nil {
		quota = ratelimiter.NewRedisLuaLimiter(rdb, map[string]ratelimiter.BucketConfig{
			"ai": ratelimiter.NewBucketConfigFromPerMinute(cfg.AIQuotaPerMin),
		})
	}
	analysis := usecase.NewAnalysisService(aiClient, quota, cfg.GetAICallTimeout(), cfg.AIMaxTokens)

	events, closeEvents := buildPublisher(ctx, cfg)
	defer closeEvents()

	fallback, err := buildFallback(cfg)
	if err != nil {
		slog.Error("question bank load failed", slog.Any("error", err))
		os.Exit(1)
	}

	// Usecases
	answerSvc := usecase.NewAnswerService(questionRepo, answerRepo, analysis, events)
	interviewSvc := usecase.NewInterviewService(interviewRepo, analysis, fallback)
	resultSvc := usecase.NewResultService(interviewRepo)

	var mediaPinger app.Pinger
	var media httpserver.MediaUploader
	if cfg.MediaEnabled() {
		store, err := minio.New(cfg)
		if err != nil {
			slog.Error("media store init failed", slog.Any("error", err))
			os.Exit(1)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			slog.Warn("media bucket not ready", slog.String("bucket", cfg.S3Bucket), slog.Any("error", err))
		}
		media = usecase.NewMediaService(store, cfg.MaxMediaMB*1024*1024)
		mediaPinger = store
	}

	var redisPinger app.RedisPinger
	if rdb != nil {
		redisPinger = rdb
	}
	checks := app.BuildReadinessChecks(pool, redisPinger, mediaPinger)

	if !cfg.AuthEnabled() {
		slog.Warn("AUTH_JWT_SECRET not set; every business request will be rejected")
	}
	srv := httpserver.NewServer(cfg, answerSvc, interviewSvc, resultSvc, media, checks...)
	handler := app.BuildRouter(cfg, srv, httpserver.NewAuthenticator(cfg.AuthJWTSecret, cfg.AuthJWTIssuer))

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("env", cfg.AppEnv))
		errCh <- srvHTTP.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", slog.Any("error", err))
	}
}

// buildRedis returns nil when REDIS_URL is unset or invalid; quota metering
// is then disabled.
func buildRedis(cfg config.Config) *redis.Client {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set; AI quota disabled")
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL; AI quota disabled", slog.Any("error", err))
		return nil
	}
	return redis.NewClient(opts)
}

// buildAI returns a nil client when no API key is configured, so every
// evaluation takes the fallback path.
func buildAI(cfg config.Config) domain.AIClient {
	if !cfg.AIEnabled() {
		slog.Warn("AI_API_KEY not set; answers will receive fallback evaluations")
		return nil
	}
	breaker := ai.NewCircuitBreaker("ai_provider", cfg.AIBreakerThreshold, cfg.AIBreakerCooldown)
	slog.Info("AI client initialized", slog.String("model", cfg.AIModel), slog.Duration("timeout", cfg.GetAICallTimeout()))
	return ai.NewBreakerClient(real.New(cfg), breaker)
}

func buildPublisher(ctx context.Context, cfg config.Config) (domain.EventPublisher, func()) {
	if !cfg.KafkaEnabled() {
		return redpanda.NoopPublisher{}, func() {}
	}
	p, err := redpanda.NewProducer(ctx, cfg.KafkaBrokers, cfg.KafkaAnswersTopic)
	if err != nil {
		slog.Error("event producer init failed; events disabled", slog.Any("error", err))
		return redpanda.NoopPublisher{}, func() {}
	}
	return p, func() {
		if err := p.Close(); err != nil {
			slog.Error("failed to close event producer", slog.Any("error", err))
		}
	}
}

func buildFallback(cfg config.Config) (func(n int, skills []string) []usecase.GeneratedQuestion, error) {
	bank, err := config.LoadQuestionBank(cfg.QuestionBankPath)
	if err != nil {
		return nil, err
	}
	return func(n int, skills []string) []usecase.GeneratedQuestion {
		picked := bank.Pick(n, skills)
		out := make([]usecase.GeneratedQuestion, 0, len(picked))
		for _, q := range picked {
			out = append(out, usecase.GeneratedQuestion{Text: q.Text, Category: q.Category, MaxScore: q.MaxScore})
		}
		return out
	}, nil
}
