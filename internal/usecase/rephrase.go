package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

const (
	rephraseMaxTokens = 200
	rephraseTemp      = 0.4
)

// RephraseResult is a displayed variant of the current question. The stored prompt is unchanged.
type RephraseResult struct {
	Rephrased          string `json:"rephrased_question"`
	Original           string `json:"original_question"`
	RephrasesRemaining int    `json:"rephrases_remaining"`
}

// Rephraser requests reworded prompts within a per-question budget.
type Rephraser struct {
	gen     domain.Generator
	max     int
	metrics domain.InterviewMetrics
}

// NewRephraser wires a Rephraser with max rephrases per question index.
func NewRephraser(gen domain.Generator, maxRephrases int, metrics domain.InterviewMetrics) *Rephraser {
	if maxRephrases < 0 {
		maxRephrases = 0
	}
	return &Rephraser{gen: gen, max: maxRephrases, metrics: metricsOrNop(metrics)}
}

// Remaining returns the unused budget for question index idx.
func (r *Rephraser) Remaining(s *domain.Session, idx int) int {
	left := r.max - s.Rephrases[idx]
	if left < 0 {
		return 0
	}
	return left
}

// Rephrase rewords the current question of s. The counter is only charged
// once a non-empty rephrase has been obtained.
func (r *Rephraser) Rephrase(ctx context.Context, s *domain.Session) (RephraseResult, error) {
	q, ok := s.Current()
	if !ok {
		return RephraseResult{}, fmt.Errorf("%w: no current question", domain.ErrExhausted)
	}
	if r.Remaining(s, q.Index) == 0 {
		r.metrics.Rephrase("exhausted")
		return RephraseResult{}, fmt.Errorf("%w: no rephrase attempts remaining", domain.ErrExhausted)
	}
	raw, err := r.gen.Generate(ctx, rephrasePrompt(q), rephraseMaxTokens, rephraseTemp)
	if err != nil {
		r.metrics.Rephrase("unavailable")
		return RephraseResult{}, fmt.Errorf("%w: could not rephrase question: %v", domain.ErrUpstreamUnavailable, err)
	}
	text := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"'`))
	if text == "" {
		r.metrics.Rephrase("unavailable")
		return RephraseResult{}, fmt.Errorf("%w: empty rephrase", domain.ErrUpstreamUnavailable)
	}
	if s.Rephrases == nil {
		s.Rephrases = map[int]int{}
	}
	s.Rephrases[q.Index]++
	r.metrics.Rephrase("ok")
	return RephraseResult{Rephrased: text, Original: q.Prompt, RephrasesRemaining: r.Remaining(s, q.Index)}, nil
}

func rephrasePrompt(q domain.Question) string {
	return fmt.Sprintf(`Rephrase the following %s interview question to make it clearer and easier to understand.
Keep the same intent and difficulty. Do NOT make it easier, just clearer wording.

Original: %s

Return ONLY the rephrased question text, nothing else.`, q.Category, q.Prompt)
}
