package httpserver

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	obsctx "github.com/fairyhunter13/ai-interviewer/internal/observability"
)

func TestRecoverer_WritesEnvelope(t *testing.T) {
	t.Parallel()
	h := Recoverer()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL", errorCode(t, rec))
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	var seen string
	h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = obsctx.RequestIDFromContext(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Len(t, rec.Header().Get("X-Request-Id"), 26)
		assert.Equal(t, rec.Header().Get("X-Request-Id"), seen)
	})
	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", "client-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "client-1", rec.Header().Get("X-Request-Id"))
		assert.Equal(t, "client-1", seen)
	})
}

func TestAcceptJSON(t *testing.T) {
	t.Parallel()
	h := AcceptJSON(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))
	tests := []struct {
		accept string
		code   int
	}{
		{"", http.StatusNoContent},
		{"application/json", http.StatusNoContent},
		{"text/html, */*;q=0.1", http.StatusNoContent},
		{"text/html", http.StatusNotAcceptable},
	}
	for _, tt := range tests {
		t.Run(tt.accept, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Accept", tt.accept)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	SecurityHeaders(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestAccessLog_LevelByStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusNotFound, "WARN"},
		{http.StatusBadGateway, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			lg := slog.New(slog.NewJSONHandler(&buf, nil))
			r := chi.NewRouter()
			r.Use(AccessLog())
			r.Get("/v1/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(tt.status) })

			req := httptest.NewRequest(http.MethodGet, "/v1/sessions/abc", nil)
			req = req.WithContext(obsctx.ContextWithLogger(req.Context(), lg))
			r.ServeHTTP(httptest.NewRecorder(), req)

			out := buf.String()
			assert.Contains(t, out, `"level":"`+tt.level+`"`)
			assert.Contains(t, out, `"route":"/v1/sessions/{id}"`)
		})
	}
}

func TestTraceMiddleware_NamesSpanByRoute(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	r := chi.NewRouter()
	r.Use(TraceMiddleware)
	r.Get("/v1/reports/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/reports/xyz", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /v1/reports/{id}", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestValidateSessionID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		id   string
		code string
	}{
		{"", "REQUIRED"},
		{"0f8e2b4c-1d2a-4f7e-9b1a-3c5d7e9f1a2b", ""},
		{"abc_DEF-123", ""},
		{"../etc", "INVALID_FORMAT"},
		{string(make([]byte, 101)), "TOO_LONG"},
	}
	for _, tt := range tests {
		res := ValidateSessionID(tt.id)
		if tt.code == "" {
			assert.True(t, res.Valid, tt.id)
			continue
		}
		require.False(t, res.Valid)
		assert.Equal(t, tt.code, res.Errors[0].Code)
	}
}

func TestValidateStructAndSanitize(t *testing.T) {
	t.Parallel()
	errs := validateStruct(createSessionRequest{Skills: []string{"go", ""}})
	assert.Equal(t, "required", errs["skills[1]"])

	assert.Nil(t, validateStruct(answerRequest{Answer: "a real answer"}))
	assert.Equal(t, []string{"go", "rust"}, sanitizeSkills([]string{" go ", "", "\x00", "rust"}))
	assert.Equal(t, 1000, len([]rune(SanitizeString(string(bytes.Repeat([]byte("é"), 1500))))))
}
