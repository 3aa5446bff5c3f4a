package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
	"github.com/fairyhunter13/ai-interviewer/internal/observability"
	"github.com/fairyhunter13/ai-interviewer/pkg/textx"
)

const (
	minResumeChars    = 200
	resumePromptChars = 2000
	skillsMaxTokens   = 256
	skillsTemp        = 0.2
)

// Progress is the 1-based position of the current question.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// QuestionView is the current question as shown to the candidate.
type QuestionView struct {
	Question           domain.Question `json:"question"`
	Progress           Progress        `json:"progress"`
	RephrasesRemaining int             `json:"rephrases_remaining"`
}

// SubmitResult is exactly one of: a warning, the next question, or the final report.
type SubmitResult struct {
	Warning   string
	Completed bool
	Next      *QuestionView
	Report    *domain.Report
}

// SessionInfo summarizes a live session.
type SessionInfo struct {
	SessionID string               `json:"session_id"`
	Skills    []string             `json:"skills"`
	Status    domain.SessionStatus `json:"status"`
	Progress  Progress             `json:"progress"`
	CreatedAt time.Time            `json:"created_at"`
}

// ResumeStart is the outcome of starting an interview from a resume.
type ResumeStart struct {
	SessionID     string
	Skills        []string
	InvalidSkills []string
}

// InterviewDeps groups the collaborators of InterviewService. Reports and Metrics may be nil.
type InterviewDeps struct {
	Store         domain.SessionStore
	Reports       domain.ReportRepository
	Generator     domain.Generator
	Decoder       domain.OutputDecoder
	Skills        domain.SkillValidator
	Builder       *QuestionBuilder
	Evaluator     *Evaluator
	Rephraser     *Rephraser
	Scorer        *Scorer
	Distribution  domain.Distribution
	DefaultSkills []string
	Metrics       domain.InterviewMetrics
}

// InterviewService runs the session lifecycle. Operations on one session id are serialized.
type InterviewService struct {
	InterviewDeps
	locks *keyedMutex
	now   func() time.Time
	newID func() string
}

// NewInterviewService constructs an InterviewService.
func NewInterviewService(deps InterviewDeps) *InterviewService {
	deps.Metrics = metricsOrNop(deps.Metrics)
	return &InterviewService{
		InterviewDeps: deps,
		locks:         newKeyedMutex(),
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}
}

// ValidateSkills splits free-text skills into recognised and rejected entries.
func (s *InterviewService) ValidateSkills(skills []string) (valid, invalid []string) {
	if s.Skills == nil {
		return skills, nil
	}
	return s.Skills.Validate(skills)
}

// CreateSession builds a ready session. It only fails on an invalid distribution,
// a cancelled context, or a store error.
func (s *InterviewService) CreateSession(ctx context.Context, skills []string, experience, role string) (string, error) {
	tracer := otel.Tracer("usecase.interview")
	ctx, span := tracer.Start(ctx, "CreateSession")
	defer span.End()

	if len(skills) == 0 {
		skills = s.DefaultSkills
	}
	now := s.now()
	sess := &domain.Session{
		ID:         s.newID(),
		Skills:     append([]string(nil), skills...),
		Experience: experience,
		Role:       role,
		Rephrases:  map[int]int{},
		Status:     domain.SessionInitializing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	span.SetAttributes(attribute.String("session.id", sess.ID))
	ctx = observability.ContextWithSessionID(ctx, sess.ID)
	lg := observability.LoggerFromContext(ctx)

	unlock := s.locks.Lock(sess.ID)
	defer unlock()

	if err := s.Store.Put(ctx, sess); err != nil {
		return "", fmt.Errorf("op=usecase.CreateSession: %w", err)
	}
	questions, err := s.Builder.Build(ctx, sess.Skills, s.Distribution)
	if err != nil {
		_ = s.Store.Delete(context.WithoutCancel(ctx), sess.ID)
		return "", fmt.Errorf("op=usecase.CreateSession: %w", err)
	}
	sess.Questions = questions
	sess.Status = domain.SessionInProgress
	sess.UpdatedAt = s.now()
	if err := s.Store.Put(ctx, sess); err != nil {
		_ = s.Store.Delete(context.WithoutCancel(ctx), sess.ID)
		return "", fmt.Errorf("op=usecase.CreateSession: %w", err)
	}
	s.Metrics.SessionEvent("created")
	lg.Info("session created", slog.Int("questions", len(questions)), slog.Int("skills", len(sess.Skills)))
	return sess.ID, nil
}

// SubmitAnswer runs the gate and, for accepted answers, the evaluation pipeline.
func (s *InterviewService) SubmitAnswer(ctx context.Context, id, text string) (SubmitResult, error) {
	tracer := otel.Tracer("usecase.interview")
	ctx, span := tracer.Start(ctx, "SubmitAnswer")
	defer span.End()

	unlock := s.locks.Lock(id)
	defer unlock()
	ctx = observability.ContextWithSessionID(ctx, id)

	sess, err := s.Store.Get(ctx, id)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("op=usecase.SubmitAnswer: %w", err)
	}
	q, ok := sess.Current()
	if !ok {
		return SubmitResult{}, fmt.Errorf("%w: no more questions", domain.ErrExhausted)
	}

	outcome := Classify(text)
	s.Metrics.GateOutcome(string(outcome))
	span.SetAttributes(attribute.String("gate.outcome", string(outcome)), attribute.Int("question.index", q.Index))

	if outcome != GateAccepted {
		sess.Warnings++
		if sess.Warnings == 1 {
			sess.UpdatedAt = s.now()
			if err := s.Store.Put(ctx, sess); err != nil {
				return SubmitResult{}, fmt.Errorf("op=usecase.SubmitAnswer: %w", err)
			}
			return SubmitResult{Warning: WarningMessage}, nil
		}
		sess.Record(text, domain.Evaluation{Feedback: RefusedFeedback})
		return s.advance(ctx, sess)
	}

	sess.Warnings = 0
	prior := make([]PriorPair, 0, len(sess.Answers))
	for i, a := range sess.Answers {
		prior = append(prior, PriorPair{Question: sess.Questions[i].Prompt, Answer: a})
	}
	ev := s.Evaluator.Evaluate(ctx, q, text, prior)
	sess.Record(text, ev)
	return s.advance(ctx, sess)
}

// advance persists sess after the cursor moved and builds the caller-facing result.
func (s *InterviewService) advance(ctx context.Context, sess *domain.Session) (SubmitResult, error) {
	sess.Warnings = 0
	sess.UpdatedAt = s.now()
	if err := s.Store.Put(ctx, sess); err != nil {
		return SubmitResult{}, fmt.Errorf("op=usecase.SubmitAnswer: %w", err)
	}
	if !sess.Done() {
		view := s.view(sess)
		return SubmitResult{Next: &view}, nil
	}

	report := s.report(sess)
	s.Metrics.SessionEvent("completed")
	s.Metrics.OverallScore(report.Percentage)
	observability.LoggerFromContext(ctx).Info("session completed",
		slog.Float64("percentage", report.Percentage),
		slog.String("verdict", report.Verdict))
	if s.Reports != nil {
		if err := s.Reports.Save(ctx, report, sess.Skills); err != nil {
			observability.LoggerFromContext(ctx).Warn("report archive failed", slog.Any("error", err))
		}
	}
	return SubmitResult{Completed: true, Report: &report}, nil
}

func (s *InterviewService) report(sess *domain.Session) domain.Report {
	r := s.Scorer.Score(sess.Questions, sess.Answers, sess.Evaluations)
	r.SessionID = sess.ID
	r.CreatedAt = sess.UpdatedAt
	return r
}

func (s *InterviewService) view(sess *domain.Session) QuestionView {
	q, _ := sess.Current()
	return QuestionView{
		Question:           q,
		Progress:           Progress{Current: sess.Cursor + 1, Total: len(sess.Questions)},
		RephrasesRemaining: s.Rephraser.Remaining(sess, q.Index),
	}
}

// RephraseCurrent rewords the current question without changing the stored prompt.
func (s *InterviewService) RephraseCurrent(ctx context.Context, id string) (RephraseResult, error) {
	unlock := s.locks.Lock(id)
	defer unlock()
	ctx = observability.ContextWithSessionID(ctx, id)

	sess, err := s.Store.Get(ctx, id)
	if err != nil {
		return RephraseResult{}, fmt.Errorf("op=usecase.RephraseCurrent: %w", err)
	}
	res, err := s.Rephraser.Rephrase(ctx, sess)
	if err != nil {
		return RephraseResult{}, err
	}
	sess.UpdatedAt = s.now()
	if err := s.Store.Put(ctx, sess); err != nil {
		return RephraseResult{}, fmt.Errorf("op=usecase.RephraseCurrent: %w", err)
	}
	return res, nil
}

// CurrentQuestion returns the question under the cursor. A completed session reports ErrExhausted.
func (s *InterviewService) CurrentQuestion(ctx context.Context, id string) (QuestionView, error) {
	sess, err := s.Store.Get(ctx, id)
	if err != nil {
		return QuestionView{}, fmt.Errorf("op=usecase.CurrentQuestion: %w", err)
	}
	if sess.Done() {
		return QuestionView{}, fmt.Errorf("%w: no more questions", domain.ErrExhausted)
	}
	return s.view(sess), nil
}

// DeleteSession removes the session. Unknown ids are not an error.
func (s *InterviewService) DeleteSession(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	ctx = observability.ContextWithSessionID(ctx, id)
	if err := s.Store.Delete(ctx, id); err != nil {
		return fmt.Errorf("op=usecase.DeleteSession: %w", err)
	}
	s.Metrics.SessionEvent("deleted")
	return nil
}

// RestartSession starts a new session with the same inputs and deletes the old one
// only after the new one is ready.
func (s *InterviewService) RestartSession(ctx context.Context, id string) (string, []string, error) {
	old, err := s.Store.Get(ctx, id)
	if err != nil {
		return "", nil, fmt.Errorf("op=usecase.RestartSession: %w", err)
	}
	newID, err := s.CreateSession(ctx, old.Skills, old.Experience, old.Role)
	if err != nil {
		return "", nil, fmt.Errorf("op=usecase.RestartSession: %w", err)
	}
	if err := s.DeleteSession(ctx, id); err != nil {
		observability.LoggerFromContext(ctx).Warn("old session not deleted after restart", slog.String("old_session_id", id), slog.Any("error", err))
	}
	s.Metrics.SessionEvent("restarted")
	return newID, old.Skills, nil
}

// SessionInfo summarizes a live session.
func (s *InterviewService) SessionInfo(ctx context.Context, id string) (SessionInfo, error) {
	sess, err := s.Store.Get(ctx, id)
	if err != nil {
		return SessionInfo{}, fmt.Errorf("op=usecase.SessionInfo: %w", err)
	}
	return SessionInfo{
		SessionID: sess.ID,
		Skills:    sess.Skills,
		Status:    sess.Status,
		Progress:  Progress{Current: sess.Cursor + 1, Total: len(sess.Questions)},
		CreatedAt: sess.CreatedAt,
	}, nil
}

// ExtractSkills asks the generator for the skills listed in a resume,
// falling back to the default skills on any failure.
func (s *InterviewService) ExtractSkills(ctx context.Context, resume string) []string {
	prompt := fmt.Sprintf(`Extract ONLY AI/ML technical skills from this resume.
Return a JSON array of skill strings only.

Resume:
%s

Return ONLY valid JSON like: ["skill1", "skill2"]`, textx.Truncate(resume, resumePromptChars))

	raw, err := s.Generator.Generate(ctx, prompt, skillsMaxTokens, skillsTemp)
	if err == nil {
		var skills []string
		if skills, err = s.Decoder.Skills(raw); err == nil {
			return skills
		}
	}
	observability.LoggerFromContext(ctx).Warn("skill extraction failed, using defaults", slog.Any("error", err))
	return append([]string(nil), s.DefaultSkills...)
}

// StartFromResume extracts and validates skills from plain-text resume content
// and creates a session for the recognised ones.
func (s *InterviewService) StartFromResume(ctx context.Context, resume string) (ResumeStart, error) {
	if utf8.RuneCountInString(strings.TrimSpace(resume)) < minResumeChars {
		return ResumeStart{}, fmt.Errorf("%w: resume content too short or invalid", domain.ErrInvalidArgument)
	}
	valid, invalid := s.ValidateSkills(s.ExtractSkills(ctx, resume))
	if len(valid) == 0 {
		return ResumeStart{}, fmt.Errorf("%w: no valid AI/ML/tech skills found in resume", domain.ErrInvalidArgument)
	}
	id, err := s.CreateSession(ctx, valid, "", "")
	if err != nil {
		return ResumeStart{}, err
	}
	return ResumeStart{SessionID: id, Skills: valid, InvalidSkills: invalid}, nil
}

// Report returns the final report of a completed session, from the live session
// while it exists and from the archive afterwards.
func (s *InterviewService) Report(ctx context.Context, id string) (domain.Report, error) {
	sess, err := s.Store.Get(ctx, id)
	switch {
	case err == nil && sess.Done():
		return s.report(sess), nil
	case err == nil:
		return domain.Report{}, fmt.Errorf("%w: interview %s is still in progress", domain.ErrNotFound, id)
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Report{}, fmt.Errorf("op=usecase.Report: %w", err)
	}
	if s.Reports == nil {
		return domain.Report{}, fmt.Errorf("%w: report %s", domain.ErrNotFound, id)
	}
	r, err := s.Reports.Get(ctx, id)
	if err != nil {
		return domain.Report{}, fmt.Errorf("op=usecase.Report: %w", err)
	}
	return r, nil
}
