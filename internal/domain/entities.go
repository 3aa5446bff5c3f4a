package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrNotFound            = errors.New("not found")
	ErrExhausted           = errors.New("exhausted")
	ErrRateLimited         = errors.New("rate limited")
	ErrUpstreamTimeout     = errors.New("upstream timeout")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrSchemaInvalid       = errors.New("schema invalid")
	ErrInternal            = errors.New("internal error")
)

// Category is one of the four fixed interview sections.
type Category string

const (
	CategoryTheory     Category = "theory"
	CategoryAptitude   Category = "aptitude"
	CategoryCoding     Category = "coding"
	CategoryBehavioral Category = "behavioral"
)

// Categories lists every category in report order.
var Categories = []Category{CategoryTheory, CategoryAptitude, CategoryCoding, CategoryBehavioral}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Difficulty is the tier of a question within its category.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// QuestionSource records where a question's prompt came from.
type QuestionSource string

const (
	SourceGenerated   QuestionSource = "generated"
	SourceBorrowed    QuestionSource = "borrowed"
	SourceBank        QuestionSource = "bank"
	SourceSynthesized QuestionSource = "synthesized"
)

// Question is immutable once appended to a session.
// Invariants: Index is stable and zero-based; Difficulty is the slot's required difficulty.
type Question struct {
	Index      int            `json:"index"`
	Category   Category       `json:"category"`
	Difficulty Difficulty     `json:"difficulty"`
	Prompt     string         `json:"prompt"`
	Topic      string         `json:"topic"`
	Source     QuestionSource `json:"source,omitempty"`
}

// Candidate is one question proposed by the generator before slot assignment.
// Difficulty is the model's claim and may lie outside the known tiers; the slot it
// fills decides the final difficulty.
type Candidate struct {
	Prompt     string
	Difficulty Difficulty
	Topic      string
}

// Evaluation holds the three 0..5 sub-scores of an answered question.
type Evaluation struct {
	Correctness int    `json:"correctness"`
	Depth       int    `json:"depth"`
	Clarity     int    `json:"clarity"`
	Feedback    string `json:"feedback"`
}

// Total returns the raw sum of the three sub-scores.
func (e Evaluation) Total() int { return e.Correctness + e.Depth + e.Clarity }

// Slot is a (difficulty, count) requirement inside a category.
type Slot struct {
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`
	Count      int        `json:"count" yaml:"count"`
}

// CategorySlots is the ordered requirement list of one category.
type CategorySlots struct {
	Category Category `json:"category" yaml:"category"`
	Slots    []Slot   `json:"slots" yaml:"slots"`
}

// Total returns how many questions the category contributes.
func (c CategorySlots) Total() int {
	n := 0
	for _, s := range c.Slots {
		n += s.Count
	}
	return n
}

// Order expands the slots into one difficulty per required question.
func (c CategorySlots) Order() []Difficulty {
	out := make([]Difficulty, 0, c.Total())
	for _, s := range c.Slots {
		for i := 0; i < s.Count; i++ {
			out = append(out, s.Difficulty)
		}
	}
	return out
}

// Distribution defines the exact shape of a complete session.
type Distribution []CategorySlots

// Total returns the session question count.
func (d Distribution) Total() int {
	n := 0
	for _, c := range d {
		n += c.Total()
	}
	return n
}

// Validate checks categories, difficulties and counts.
func (d Distribution) Validate() error {
	if len(d) == 0 {
		return fmt.Errorf("%w: empty distribution", ErrInvalidArgument)
	}
	seen := map[Category]bool{}
	for _, c := range d {
		if !c.Category.Valid() {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidArgument, c.Category)
		}
		if seen[c.Category] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidArgument, c.Category)
		}
		seen[c.Category] = true
		for _, s := range c.Slots {
			if !s.Difficulty.Valid() {
				return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidArgument, s.Difficulty)
			}
			if s.Count < 0 {
				return fmt.Errorf("%w: negative count for %s/%s", ErrInvalidArgument, c.Category, s.Difficulty)
			}
		}
	}
	if d.Total() == 0 {
		return fmt.Errorf("%w: distribution has no questions", ErrInvalidArgument)
	}
	return nil
}

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	SessionInitializing SessionStatus = "initializing"
	SessionInProgress   SessionStatus = "in_progress"
	SessionCompleted    SessionStatus = "completed"
)

// Session is a single interview.
// Invariants: len(Answers) == len(Evaluations) == Cursor; Cursor <= len(Questions);
// Rephrases[i] never exceeds the configured maximum.
type Session struct {
	ID          string        `json:"id"`
	Skills      []string      `json:"skills"`
	Experience  string        `json:"experience,omitempty"`
	Role        string        `json:"role,omitempty"`
	Questions   []Question    `json:"questions"`
	Answers     []string      `json:"answers"`
	Evaluations []*Evaluation `json:"evaluations"`
	Cursor      int           `json:"cursor"`
	Warnings    int           `json:"warnings"`
	Rephrases   map[int]int   `json:"rephrases"`
	Status      SessionStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Current returns the question under the cursor.
func (s *Session) Current() (Question, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Questions) {
		return Question{}, false
	}
	return s.Questions[s.Cursor], true
}

// Done reports whether every question has been answered.
func (s *Session) Done() bool { return s.Cursor >= len(s.Questions) }

// Record appends the answer and evaluation for the current question and advances the cursor.
// The warning counter always resets on advance.
func (s *Session) Record(answer string, ev Evaluation) {
	s.Answers = append(s.Answers, answer)
	e := ev
	s.Evaluations = append(s.Evaluations, &e)
	s.Cursor++
	s.Warnings = 0
	if s.Done() {
		s.Status = SessionCompleted
	}
}

// Clone returns a deep copy so stores never share mutable state with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Skills = append([]string(nil), s.Skills...)
	c.Questions = append([]Question(nil), s.Questions...)
	c.Answers = append([]string(nil), s.Answers...)
	c.Evaluations = make([]*Evaluation, len(s.Evaluations))
	for i, e := range s.Evaluations {
		if e != nil {
			v := *e
			c.Evaluations[i] = &v
		}
	}
	c.Rephrases = make(map[int]int, len(s.Rephrases))
	for k, v := range s.Rephrases {
		c.Rephrases[k] = v
	}
	return &c
}

// SectionScore is the aggregated result of one category.
type SectionScore struct {
	Obtained   float64 `json:"obtained"`
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// WeakArea is a topic scoring below 50 percent on average.
type WeakArea struct {
	Topic           string  `json:"topic"`
	AvgScore        float64 `json:"avg_score"`
	QuestionsFailed int     `json:"questions_failed"`
}

// ReviewItem is the per-question breakdown shown with the final report.
type ReviewItem struct {
	Index      int        `json:"index"`
	Category   Category   `json:"category"`
	Difficulty Difficulty `json:"difficulty"`
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	Feedback   string     `json:"feedback"`
	Score      float64    `json:"score"`
}

// Verdict labels for the overall percentage.
const (
	VerdictExcellent = "excellent"
	VerdictGood      = "good"
	VerdictAverage   = "average"
	VerdictPoor      = "poor"
)

// Report is the final scoring output of a completed session.
type Report struct {
	SessionID              string                    `json:"session_id,omitempty"`
	TotalScore             float64                   `json:"total_score"`
	MaxScore               float64                   `json:"max_score"`
	Percentage             float64                   `json:"percentage"`
	Verdict                string                    `json:"verdict"`
	SectionScores          map[Category]SectionScore `json:"section_scores"`
	WeakAreas              []WeakArea                `json:"weak_areas"`
	ImprovementSuggestions []string                  `json:"improvement_suggestions"`
	LearningResources      []string                  `json:"learning_resources"`
	Review                 []ReviewItem              `json:"review,omitempty"`
	CreatedAt              time.Time                 `json:"created_at"`
}

// Ports
//go:generate mockery --name=Generator --with-expecter --filename=generator.go
//go:generate mockery --name=ResourceLookup --with-expecter --filename=resource_lookup.go
//go:generate mockery --name=SessionStore --with-expecter --filename=session_store.go
//go:generate mockery --name=ReportRepository --with-expecter --filename=report_repository.go

// Generator sends one text-completion request. It never retries and never parses.
type Generator interface {
	Generate(ctx Context, prompt string, maxOutputTokens int, temperature float64) (string, error)
}

// OutputDecoder turns raw generator text into typed values.
// Every violation of the expected shape is reported as ErrSchemaInvalid.
type OutputDecoder interface {
	Evaluation(raw string) (Evaluation, error)
	Candidates(raw string) ([]Candidate, error)
	Skills(raw string) ([]string, error)
}

// ResourceLookup maps topics to learning resource URLs.
type ResourceLookup interface {
	ResourcesFor(topics []string) []string
}

// SkillValidator splits free-text skills into recognised and rejected entries.
type SkillValidator interface {
	Validate(skills []string) (valid, invalid []string)
}

// SessionStore owns every live session. Implementations return copies.
type SessionStore interface {
	Get(ctx Context, id string) (*Session, error)
	Put(ctx Context, s *Session) error
	Delete(ctx Context, id string) error
}

// ReportRepository archives finished reports beyond the session TTL.
type ReportRepository interface {
	Save(ctx Context, r Report, skills []string) error
	Get(ctx Context, sessionID string) (Report, error)
}

// InterviewMetrics receives pipeline events. Implementations must be safe for concurrent use.
type InterviewMetrics interface {
	QuestionBuilt(category Category, source QuestionSource)
	GateOutcome(outcome string)
	EvaluationTier(tier string)
	Rephrase(outcome string)
	SessionEvent(event string)
	OverallScore(pct float64)
}

// Context is an alias to allow decoupling from std context in domain.
type Context = context.Context
