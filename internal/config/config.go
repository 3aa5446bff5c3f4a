// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`
	// DBURL enables the Postgres report archive when non-empty.
	DBURL string `env:"DB_URL"`
	// RedisURL switches sessions and the generator rate limiter to Redis when non-empty.
	RedisURL string `env:"REDIS_URL"`

	GeneratorProvider string `env:"GENERATOR_PROVIDER" envDefault:"openrouter"`
	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	OpenRouterModel   string `env:"OPENROUTER_MODEL" envDefault:"qwen/qwen-2.5-7b-instruct"`
	OpenRouterReferer string `env:"OPENROUTER_REFERER"`
	OpenRouterTitle   string `env:"OPENROUTER_TITLE" envDefault:"AI Interviewer"`
	GeminiAPIKey      string `env:"GEMINI_API_KEY"`
	GeminiModel       string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`

	// GenCallTimeout bounds every single generator call; the pipelines cannot tell slow from never.
	GenCallTimeout time.Duration `env:"GEN_CALL_TIMEOUT" envDefault:"45s"`
	// GenMinInterval is the spacing enforced between generator calls across the process
	// (or across replicas when Redis is configured).
	GenMinInterval      time.Duration `env:"GEN_MIN_INTERVAL" envDefault:"1500ms"`
	GenBatchAttempts    int           `env:"GEN_BATCH_ATTEMPTS" envDefault:"3"`
	GenBreakerThreshold int           `env:"GEN_BREAKER_THRESHOLD" envDefault:"3"`
	GenBreakerCooldown  time.Duration `env:"GEN_BREAKER_COOLDOWN" envDefault:"30s"`

	SessionTTL           time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"5m"`
	MaxRephrases         int           `env:"MAX_REPHRASES" envDefault:"2"`
	// InterviewConfigPath overrides the embedded distribution, fallback bank, resources and skills.
	InterviewConfigPath string `env:"INTERVIEW_CONFIG_PATH"`

	ReportRetentionDays int           `env:"REPORT_RETENTION_DAYS" envDefault:"30"`
	CleanupInterval     time.Duration `env:"CLEANUP_INTERVAL" envDefault:"24h"`

	LogLevel        string `env:"LOG_LEVEL"`
	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"ai-interviewer"`
	// OTELSampleRatio of 0 selects 0.1 in prod and 1.0 elsewhere.
	OTELSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"0"`

	MaxUploadMB           int64         `env:"MAX_UPLOAD_MB" envDefault:"2"`
	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	// Session creation makes several paced generator calls, so writes get a long budget.
	HTTPWriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"180s"`
	HTTPIdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	if cfg.MaxRephrases < 0 {
		return Config{}, fmt.Errorf("op=config.Load: MAX_REPHRASES must not be negative")
	}
	if cfg.GenBatchAttempts < 1 {
		cfg.GenBatchAttempts = 1
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// TraceSampleRatio returns the head sampling ratio clamped to [0,1].
func (c Config) TraceSampleRatio() float64 {
	switch {
	case c.OTELSampleRatio > 1:
		return 1
	case c.OTELSampleRatio > 0:
		return c.OTELSampleRatio
	case c.IsProd():
		return 0.1
	default:
		return 1
	}
}

// ArchiveEnabled reports whether finished reports are persisted to Postgres.
func (c Config) ArchiveEnabled() bool { return strings.TrimSpace(c.DBURL) != "" }

// GetGeneratorLimits returns pacing and timeout values for generator calls.
// In test environments pacing is disabled and timeouts are short.
func (c Config) GetGeneratorLimits() (minInterval, callTimeout time.Duration) {
	if c.IsTest() {
		return 0, 5 * time.Second
	}
	return c.GenMinInterval, c.GenCallTimeout
}
