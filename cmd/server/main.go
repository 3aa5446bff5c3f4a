// Command server starts the AI interviewer HTTP API.
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

	ai "github.com/fairyhunter13/ai-interviewer/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interviewer/internal/adapter/ai/gemini"
	"github.com/fairyhunter13/ai-interviewer/internal/adapter/ai/openrouter"
	"github.com/fairyhunter13/ai-interviewer/internal/adapter/ai/stub"
	"github.com/fairyhunter13/ai-interviewer/internal/adapter/ai/tokencount"
	httpserver "github.com/fairyhunter13/ai-interviewer/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interviewer/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interviewer/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interviewer/internal/adapter/resources"
	"github.com/fairyhunter13/ai-interviewer/internal/adapter/session"
	"github.com/fairyhunter13/ai-interviewer/internal/adapter/skills"
	"github.com/fairyhunter13/ai-interviewer/internal/app"
	"github.com/fairyhunter13/ai-interviewer/internal/config"
	"github.com/fairyhunter13/ai-interviewer/internal/domain"
	"github.com/fairyhunter13/ai-interviewer/internal/service/ratelimiter"
	"github.com/fairyhunter13/ai-interviewer/internal/usecase"
)

// modelGenerator is a provider client that can name its model for metrics.
type modelGenerator interface {
	domain.Generator
	Model() string
}

func main() {
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
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

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	data, err := config.LoadInterviewData(cfg.InterviewConfigPath)
	if err != nil {
		slog.Error("interview data load failed", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewInterviewMetrics()

	// Redis backs both sessions and generator pacing when configured.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", slog.Any("error", err))
			os.Exit(1)
		}
		rdb = redis.NewClient(opt)
		defer func() { _ = rdb.Close() }()
	}

	store := newSessionStore(ctx, cfg, rdb, metrics)

	var (
		reports domain.ReportRepository
		pinger  app.Pinger
	)
	if cfg.ArchiveEnabled() {
		pool, err := postgres.NewPool(ctx, cfg.DBURL)
		if err != nil {
			slog.Error("db connect failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			slog.Error("db schema setup failed", slog.Any("error", err))
			os.Exit(1)
		}
		reports = postgres.NewReportRepo(pool)
		pinger = pool
		if cfg.ReportRetentionDays > 0 {
			cleanupSvc := postgres.NewCleanupService(postgres.NewPoolBeginner(pool), cfg.ReportRetentionDays)
			go cleanupSvc.RunPeriodic(ctx, cfg.CleanupInterval)
			slog.Info("report cleanup started", slog.Int("retention_days", cfg.ReportRetentionDays), slog.Duration("interval", cfg.CleanupInterval))
		}
	}

	gen, err := newGenerator(ctx, cfg, rdb)
	if err != nil {
		slog.Error("generator setup failed", slog.Any("error", err))
		os.Exit(1)
	}

	decoder := ai.NewDecoder()
	interview := usecase.NewInterviewService(usecase.InterviewDeps{
		Store:         store,
		Reports:       reports,
		Generator:     gen,
		Decoder:       decoder,
		Skills:        skills.New(data.KnownSkills),
		Builder:       usecase.NewQuestionBuilder(gen, decoder, usecase.NewBank(data.Bank()), data.DifficultyHints, cfg.GenBatchAttempts, metrics),
		Evaluator:     usecase.NewEvaluator(gen, decoder, metrics),
		Rephraser:     usecase.NewRephraser(gen, cfg.MaxRephrases, metrics),
		Scorer:        usecase.NewScorer(resources.New(data.Resources)),
		Distribution:  data.Distribution,
		DefaultSkills: data.DefaultSkills,
		Metrics:       metrics,
	})

	var redisClient app.RedisClient
	if rdb != nil {
		redisClient = app.RedisPinger{C: rdb}
	}
	dbCheck, redisCheck := app.BuildReadinessChecks(pinger, redisClient)

	srv := httpserver.NewServer(cfg, interview, dbCheck, redisCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port), slog.String("provider", cfg.GeneratorProvider))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
	stop()
}

// newSessionStore picks Redis when configured, otherwise an in-memory store with a background sweeper.
func newSessionStore(ctx context.Context, cfg config.Config, rdb *redis.Client, metrics domain.InterviewMetrics) domain.SessionStore {
	if rdb != nil {
		slog.Info("session store: redis", slog.Duration("ttl", cfg.SessionTTL))
		return session.NewRedisStore(rdb, cfg.SessionTTL)
	}
	mem := session.NewMemoryStore(cfg.SessionTTL, session.WithExpireHook(func(string) {
		metrics.SessionEvent("expired")
	}))
	go mem.Run(ctx, cfg.SessionSweepInterval, func(live int) {
		observability.SessionsActive.Set(float64(live))
	})
	slog.Info("session store: memory", slog.Duration("ttl", cfg.SessionTTL), slog.Duration("sweep", cfg.SessionSweepInterval))
	return mem
}

// newGenerator builds the provider client and decorates it with pacing, timeout,
// circuit breaking and instrumentation.
func newGenerator(ctx context.Context, cfg config.Config, rdb *redis.Client) (domain.Generator, error) {
	var base modelGenerator
	switch cfg.GeneratorProvider {
	case "gemini":
		g, err := gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("op=main.newGenerator: %w", err)
		}
		base = g
	case "openrouter":
		if cfg.OpenRouterAPIKey == "" {
			slog.Warn("OPENROUTER_API_KEY not set, using offline generator")
			base = stub.New()
			break
		}
		base = openrouter.New(cfg)
	case "offline":
		base = stub.New()
	default:
		return nil, fmt.Errorf("op=main.newGenerator: unknown GENERATOR_PROVIDER %q", cfg.GeneratorProvider)
	}

	minInterval, callTimeout := cfg.GetGeneratorLimits()
	var limiter ratelimiter.Limiter
	if minInterval > 0 {
		buckets := map[string]ratelimiter.BucketConfig{
			ai.LimiterKey: ratelimiter.NewBucketConfigFromInterval(minInterval, 1),
		}
		if rdb != nil {
			limiter = ratelimiter.NewRedisLuaLimiter(rdb, buckets)
		} else {
			limiter = ratelimiter.NewLocalLimiter(buckets)
		}
	}

	provider := cfg.GeneratorProvider
	breaker := ai.NewCircuitBreaker(provider, cfg.GenBreakerThreshold, cfg.GenBreakerCooldown)
	slog.Info("generator ready", slog.String("provider", provider), slog.String("model", base.Model()),
		slog.Duration("min_interval", minInterval), slog.Duration("call_timeout", callTimeout))

	return ai.Chain(base,
		ai.WithBreaker(breaker),
		ai.WithLimiter(limiter, ai.LimiterKey),
		ai.WithTimeout(callTimeout),
		ai.WithInstrumentation(tokencount.NewCounter(), provider, base.Model()),
	), nil
}
