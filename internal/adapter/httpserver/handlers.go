package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/ai-interviewer/internal/config"
	"github.com/fairyhunter13/ai-interviewer/internal/domain"
	"github.com/fairyhunter13/ai-interviewer/internal/usecase"
	"github.com/fairyhunter13/ai-interviewer/pkg/textx"
)

// InterviewService is the part of usecase.InterviewService the handlers need.
type InterviewService interface {
	ValidateSkills(skills []string) (valid, invalid []string)
	CreateSession(ctx context.Context, skills []string, experience, role string) (string, error)
	StartFromResume(ctx context.Context, resume string) (usecase.ResumeStart, error)
	SubmitAnswer(ctx context.Context, id, text string) (usecase.SubmitResult, error)
	RephraseCurrent(ctx context.Context, id string) (usecase.RephraseResult, error)
	CurrentQuestion(ctx context.Context, id string) (usecase.QuestionView, error)
	SessionInfo(ctx context.Context, id string) (usecase.SessionInfo, error)
	RestartSession(ctx context.Context, id string) (string, []string, error)
	DeleteSession(ctx context.Context, id string) error
	Report(ctx context.Context, id string) (domain.Report, error)
}

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Interview  InterviewService
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
}

// NewServer constructs a Server. Nil checks are skipped by /readyz.
func NewServer(cfg config.Config, interview InterviewService, dbCheck, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Interview: interview, DBCheck: dbCheck, RedisCheck: redisCheck}
}

type startResponse struct {
	SessionID     string                `json:"session_id"`
	Skills        []string              `json:"skills"`
	InvalidSkills []string              `json:"invalid_skills"`
	Question      *usecase.QuestionView `json:"question,omitempty"`
}

type submitResponse struct {
	Completed          bool              `json:"completed"`
	Warning            string            `json:"warning,omitempty"`
	Question           *domain.Question  `json:"question,omitempty"`
	Progress           *usecase.Progress `json:"progress,omitempty"`
	RephrasesRemaining *int              `json:"rephrases_remaining,omitempty"`
	Report             *domain.Report    `json:"report,omitempty"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// sessionID reads and validates the {id} path parameter, writing the error response itself.
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if res := ValidateSessionID(id); !res.Valid {
		writeError(w, r, fmt.Errorf("%w: invalid session id", domain.ErrInvalidArgument), res.Errors)
		return "", false
	}
	return id, true
}

// firstQuestion attaches the opening question to a start response when it can be read.
func (s *Server) firstQuestion(ctx context.Context, id string) *usecase.QuestionView {
	q, err := s.Interview.CurrentQuestion(ctx, id)
	if err != nil {
		return nil
	}
	return &q
}

// CreateSessionHandler starts an interview from a list of skills.
func (s *Server) CreateSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		req.Skills = sanitizeSkills(req.Skills)
		if verrs := validateStruct(req); verrs != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
			return
		}
		valid, rejected := s.Interview.ValidateSkills(req.Skills)
		if len(valid) == 0 {
			writeError(w, r, fmt.Errorf("%w: no valid AI/ML/tech skills found", domain.ErrInvalidArgument),
				map[string][]string{"invalid_skills": nonNil(rejected)})
			return
		}
		ctx := r.Context()
		id, err := s.Interview.CreateSession(ctx, valid, SanitizeString(req.Experience), SanitizeString(req.Role))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, startResponse{
			SessionID:     id,
			Skills:        valid,
			InvalidSkills: nonNil(rejected),
			Question:      s.firstQuestion(ctx, id),
		})
	}
}

// ResumeHandler starts an interview from an uploaded plain-text resume.
func (s *Server) ResumeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		if maxBytes <= 0 {
			maxBytes = 2 << 20
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
					Code: "INVALID_ARGUMENT", Message: "payload too large", Details: map[string]int64{"max_mb": s.Cfg.MaxUploadMB},
				}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: resume file required", domain.ErrInvalidArgument), map[string]string{"field": "file"})
			return
		}
		defer func() { _ = file.Close() }()
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: resume read: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".txt" {
			writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{
				Code: "INVALID_ARGUMENT", Message: "only .txt resumes are supported", Details: map[string]string{"filename": header.Filename},
			}})
			return
		}
		if mt := mimetype.Detect(data); !strings.HasPrefix(mt.String(), "text/") {
			writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{
				Code: "INVALID_ARGUMENT", Message: "unsupported media type for resume (content)", Details: map[string]string{"mime": mt.String()},
			}})
			return
		}

		ctx := r.Context()
		res, err := s.Interview.StartFromResume(ctx, textx.SanitizeText(string(data)))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, startResponse{
			SessionID:     res.SessionID,
			Skills:        res.Skills,
			InvalidSkills: nonNil(res.InvalidSkills),
			Question:      s.firstQuestion(ctx, res.SessionID),
		})
	}
}

// SessionInfoHandler returns the status and progress of a live session.
func (s *Server) SessionInfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		info, err := s.Interview.SessionInfo(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

// CurrentQuestionHandler returns the question under the cursor.
func (s *Server) CurrentQuestionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		view, err := s.Interview.CurrentQuestion(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// SubmitAnswerHandler submits an answer for the current question.
func (s *Server) SubmitAnswerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		req.Answer = textx.SanitizeText(req.Answer)
		if res := ValidateAnswer(req.Answer); !res.Valid {
			writeError(w, r, fmt.Errorf("%w: answer too short", domain.ErrInvalidArgument), res.Errors)
			return
		}
		if verrs := validateStruct(req); verrs != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
			return
		}
		out, err := s.Interview.SubmitAnswer(r.Context(), id, req.Answer)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		resp := submitResponse{Completed: out.Completed, Warning: out.Warning, Report: out.Report}
		if out.Next != nil {
			q, p, left := out.Next.Question, out.Next.Progress, out.Next.RephrasesRemaining
			resp.Question, resp.Progress, resp.RephrasesRemaining = &q, &p, &left
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// RephraseHandler rewords the current question.
func (s *Server) RephraseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		res, err := s.Interview.RephraseCurrent(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// RestartHandler starts a fresh session with the same skills and drops the old one.
func (s *Server) RestartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		ctx := r.Context()
		newID, skills, err := s.Interview.RestartSession(ctx, id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, startResponse{
			SessionID:     newID,
			Skills:        skills,
			InvalidSkills: []string{},
			Question:      s.firstQuestion(ctx, newID),
		})
	}
}

// DeleteSessionHandler removes a session. Unknown ids succeed.
func (s *Server) DeleteSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		if err := s.Interview.DeleteSession(r.Context(), id); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Session deleted"})
	}
}

// ReportHandler returns the final report of a completed session.
func (s *Server) ReportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(w, r)
		if !ok {
			return
		}
		rep, err := s.Interview.Report(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

// ReadyzHandler returns a readiness handler that probes the configured backends.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{{"db", s.DBCheck}, {"redis", s.RedisCheck}}

		checks := make([]check, 0, len(probes))
		st := http.StatusOK
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			c := check{Name: p.name, OK: true}
			if err := p.fn(ctx); err != nil {
				c.OK, c.Details = false, err.Error()
				st = http.StatusServiceUnavailable
			}
			checks = append(checks, c)
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
