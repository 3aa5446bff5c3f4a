package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	httpserver "github.com/fairyhunter13/ai-interviewer/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interviewer/internal/app"
	"github.com/fairyhunter13/ai-interviewer/internal/config"
	"github.com/fairyhunter13/ai-interviewer/internal/domain"
	"github.com/fairyhunter13/ai-interviewer/internal/usecase"
)

// notFoundService answers every lookup with ErrNotFound.
type notFoundService struct{}

func (notFoundService) ValidateSkills(s []string) ([]string, []string) { return s, nil }
func (notFoundService) CreateSession(context.Context, []string, string, string) (string, error) {
	return "", domain.ErrNotFound
}
func (notFoundService) StartFromResume(context.Context, string) (usecase.ResumeStart, error) {
	return usecase.ResumeStart{}, domain.ErrNotFound
}
func (notFoundService) SubmitAnswer(context.Context, string, string) (usecase.SubmitResult, error) {
	return usecase.SubmitResult{}, domain.ErrNotFound
}
func (notFoundService) RephraseCurrent(context.Context, string) (usecase.RephraseResult, error) {
	return usecase.RephraseResult{}, domain.ErrNotFound
}
func (notFoundService) CurrentQuestion(context.Context, string) (usecase.QuestionView, error) {
	return usecase.QuestionView{}, domain.ErrNotFound
}
func (notFoundService) SessionInfo(context.Context, string) (usecase.SessionInfo, error) {
	return usecase.SessionInfo{}, domain.ErrNotFound
}
func (notFoundService) RestartSession(context.Context, string) (string, []string, error) {
	return "", nil, domain.ErrNotFound
}
func (notFoundService) DeleteSession(context.Context, string) error { return nil }
func (notFoundService) Report(context.Context, string) (domain.Report, error) {
	return domain.Report{}, domain.ErrNotFound
}

func newRouter(t *testing.T, cfg config.Config) http.Handler {
	t.Helper()
	ok := func(context.Context) error { return nil }
	return app.BuildRouter(cfg, httpserver.NewServer(cfg, notFoundService{}, ok, ok))
}

func TestBuildRouter_Routes(t *testing.T) {
	t.Parallel()
	h := newRouter(t, config.Config{RateLimitPerMin: 100})
	tests := []struct {
		method string
		path   string
		body   string
		code   int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodGet, "/v1/sessions/abc", "", http.StatusNotFound},
		{http.MethodGet, "/v1/sessions/abc/question", "", http.StatusNotFound},
		{http.MethodPost, "/v1/sessions/abc/answers", `{"answer":"a real answer"}`, http.StatusNotFound},
		{http.MethodPost, "/v1/sessions/abc/rephrase", "", http.StatusNotFound},
		{http.MethodPost, "/v1/sessions/abc/restart", "", http.StatusNotFound},
		{http.MethodDelete, "/v1/sessions/abc", "", http.StatusOK},
		{http.MethodGet, "/v1/reports/abc", "", http.StatusNotFound},
		{http.MethodPut, "/v1/sessions/abc", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestBuildRouter_RejectsNonJSONAccept(t *testing.T) {
	t.Parallel()
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/abc", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	newRouter(t, config.Config{RateLimitPerMin: 100}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
}

func TestBuildRouter_RateLimitsMutatingRoutes(t *testing.T) {
	t.Parallel()
	h := newRouter(t, config.Config{RateLimitPerMin: 2})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/sessions/abc/rephrase", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNotFound, http.StatusNotFound, http.StatusTooManyRequests}, codes)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
