package observability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of AI requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "AI request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)
	AITokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Estimated tokens sent and received by provider, model and direction",
		},
		[]string{"provider", "model", "direction"},
	)
	AIBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ai_circuit_breaker_state",
			Help: "Generator circuit breaker state (0 closed, 1 open, 2 half-open)",
		},
		[]string{"provider"},
	)
	AILimiterWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ai_limiter_wait_seconds",
			Help:    "Time spent waiting for the shared generator rate limiter",
			Buckets: []float64{0, 0.1, 0.5, 1, 1.5, 3, 5, 10},
		},
	)

	QuestionsBuiltTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_questions_total",
			Help: "Questions placed into sessions by category and source",
		},
		[]string{"category", "source"},
	)
	GateOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_gate_outcomes_total",
			Help: "Answer classification outcomes",
		},
		[]string{"outcome"},
	)
	EvaluationTierTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_evaluation_tier_total",
			Help: "Evaluations by the tier that produced them",
		},
		[]string{"tier"},
	)
	RephrasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_rephrases_total",
			Help: "Rephrase requests by outcome",
		},
		[]string{"outcome"},
	)
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "interview_sessions_active",
			Help: "Sessions currently held by the in-memory store",
		},
	)
	SessionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_sessions_total",
			Help: "Session lifecycle events",
		},
		[]string{"event"},
	)
	OverallScoreHistogram = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "interview_overall_percentage",
			Help:    "Distribution of final overall percentages",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)
)

func InitMetrics() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(AIRequestsTotal)
	prometheus.MustRegister(AIRequestDuration)
	prometheus.MustRegister(AITokensTotal)
	prometheus.MustRegister(AIBreakerState)
	prometheus.MustRegister(AILimiterWaitSeconds)
	prometheus.MustRegister(QuestionsBuiltTotal)
	prometheus.MustRegister(GateOutcomesTotal)
	prometheus.MustRegister(EvaluationTierTotal)
	prometheus.MustRegister(RephrasesTotal)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(SessionsTotal)
	prometheus.MustRegister(OverallScoreHistogram)
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		// Route pattern may be unavailable outside chi router; guard nil
		var route string
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		if route == "" {
			route = r.URL.Path
		}
		method := r.Method
		status := ww.Status()
		HTTPRequestsTotal.WithLabelValues(route, method, http.StatusText(status)).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(dur)
	})
}

// ObserveAIRequest records one generator call.
func ObserveAIRequest(provider, outcome string, d time.Duration) {
	AIRequestsTotal.WithLabelValues(provider, outcome).Inc()
	AIRequestDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordAITokenUsage adds counted tokens for a provider/model in one direction (prompt or completion).
func RecordAITokenUsage(provider, direction, model string, tokens int) {
	if tokens <= 0 {
		return
	}
	AITokensTotal.WithLabelValues(provider, model, direction).Add(float64(tokens))
}

// RecordBreakerState publishes the numeric breaker state for a provider.
func RecordBreakerState(provider string, state int) {
	AIBreakerState.WithLabelValues(provider).Set(float64(state))
}

// ObserveLimiterWait records how long a call waited for pacing.
func ObserveLimiterWait(d time.Duration) { AILimiterWaitSeconds.Observe(d.Seconds()) }

// RecordQuestion counts a question placed into a session.
func RecordQuestion(category, source string) {
	QuestionsBuiltTotal.WithLabelValues(category, source).Inc()
}

// RecordGateOutcome counts an answer classification.
func RecordGateOutcome(outcome string) { GateOutcomesTotal.WithLabelValues(outcome).Inc() }

// RecordEvaluationTier counts which evaluation tier produced a result.
func RecordEvaluationTier(tier string) { EvaluationTierTotal.WithLabelValues(tier).Inc() }

// RecordRephrase counts a rephrase request outcome.
func RecordRephrase(outcome string) { RephrasesTotal.WithLabelValues(outcome).Inc() }

// RecordSessionEvent counts a session lifecycle event (created, completed, deleted, expired, restarted).
func RecordSessionEvent(event string) { SessionsTotal.WithLabelValues(event).Inc() }

// ObserveOverallScore records the final overall percentage of a completed session.
func ObserveOverallScore(pct float64) {
	if pct >= 0 && pct <= 100 {
		OverallScoreHistogram.Observe(pct)
	}
}

// InterviewMetrics publishes interview pipeline events to the Prometheus collectors above.
type InterviewMetrics struct{}

// NewInterviewMetrics returns the Prometheus-backed domain.InterviewMetrics.
func NewInterviewMetrics() InterviewMetrics { return InterviewMetrics{} }

// QuestionBuilt implements domain.InterviewMetrics.
func (InterviewMetrics) QuestionBuilt(c domain.Category, s domain.QuestionSource) {
	RecordQuestion(string(c), string(s))
}

// GateOutcome implements domain.InterviewMetrics.
func (InterviewMetrics) GateOutcome(outcome string) { RecordGateOutcome(outcome) }

// EvaluationTier implements domain.InterviewMetrics.
func (InterviewMetrics) EvaluationTier(tier string) { RecordEvaluationTier(tier) }

// Rephrase implements domain.InterviewMetrics.
func (InterviewMetrics) Rephrase(outcome string) { RecordRephrase(outcome) }

// SessionEvent implements domain.InterviewMetrics.
func (InterviewMetrics) SessionEvent(event string) { RecordSessionEvent(event) }

// OverallScore implements domain.InterviewMetrics.
func (InterviewMetrics) OverallScore(pct float64) { ObserveOverallScore(pct) }

var _ domain.InterviewMetrics = InterviewMetrics{}
