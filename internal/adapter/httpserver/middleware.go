package httpserver

import (
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
	obsctx "github.com/fairyhunter13/ai-interviewer/internal/observability"
)

const headerRequestID = "X-Request-Id"

// Recoverer turns a handler panic into the INTERNAL error envelope.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				LoggerFrom(r).Error("handler panic", slog.Any("panic", rec), slog.String("route", routePattern(r)))
				writeError(w, r, fmt.Errorf("%w: panic", domain.ErrInternal), nil)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// reqIDSource hands out monotonic ULIDs; the entropy reader is not goroutine safe.
type reqIDSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var requestIDs = &reqIDSource{
	entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0), //nolint:gosec // ids are not secrets
}

func (s *reqIDSource) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	id, err := ulid.New(ulid.Timestamp(now), s.entropy)
	if err != nil {
		return now.UTC().Format("20060102150405.000000000")
	}
	return id.String()
}

// RequestID reuses the caller's X-Request-Id or mints a ULID, echoes it back and
// seeds the request logger with it and the active trace ids.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(headerRequestID))
			if id == "" {
				id = requestIDs.next()
				r.Header.Set(headerRequestID, id)
			}
			w.Header().Set(headerRequestID, id)

			lg := slog.Default().With(slog.String("request_id", id))
			if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
				lg = lg.With(slog.String("trace_id", sc.TraceID().String()), slog.String("span_id", sc.SpanID().String()))
			}
			ctx := obsctx.ContextWithRequestID(obsctx.ContextWithLogger(r.Context(), lg), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AcceptJSON answers 406 when the client refuses JSON.
func AcceptJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accept := r.Header.Get("Accept")
		if accept == "" || strings.Contains(accept, "*/*") || strings.Contains(accept, "application/json") {
			next.ServeHTTP(w, r)
			return
		}
		writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
			Code:    "INVALID_ARGUMENT",
			Message: "not acceptable",
			Details: map[string]string{"accept": accept},
		}})
	})
}

var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Content-Security-Policy", "default-src 'none'"},
	{"Referrer-Policy", "no-referrer"},
}

// SecurityHeaders sets the fixed response headers of a JSON-only API.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, h := range securityHeaders {
			w.Header().Set(h[0], h[1])
		}
		next.ServeHTTP(w, r)
	})
}

// LoggerFrom returns the request-scoped logger.
func LoggerFrom(r *http.Request) *slog.Logger {
	return obsctx.LoggerFromContext(r.Context())
}

// routePattern returns the chi route pattern, or the raw path outside a chi router.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

func accessLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// AccessLog writes one http_access line per request once the handler returns.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			LoggerFrom(r).LogAttrs(r.Context(), accessLevel(status), "http_access",
				slog.String("method", r.Method),
				slog.String("route", routePattern(r)),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
