package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
	"github.com/fairyhunter13/ai-interviewer/internal/observability"
)

const (
	batchMaxTokens   = 1800
	batchBaseTemp    = 0.6
	batchTempStep    = 0.1
	promptSkillLimit = 5
	dedupePrefix     = 80
	avoidListLimit   = 20
)

// QuestionBuilder fills a session's question list from generator batches,
// borrowing across difficulties and falling back to the bank when the generator under-delivers.
type QuestionBuilder struct {
	gen      domain.Generator
	decoder  domain.OutputDecoder
	bank     Bank
	hints    map[domain.Category]map[domain.Difficulty]string
	attempts int
	metrics  domain.InterviewMetrics
}

// NewQuestionBuilder wires a builder. attempts below 1 is treated as 1.
func NewQuestionBuilder(gen domain.Generator, decoder domain.OutputDecoder, bank Bank, hints map[domain.Category]map[domain.Difficulty]string, attempts int, metrics domain.InterviewMetrics) *QuestionBuilder {
	if attempts < 1 {
		attempts = 1
	}
	return &QuestionBuilder{gen: gen, decoder: decoder, bank: bank, hints: hints, attempts: attempts, metrics: metricsOrNop(metrics)}
}

// Build produces exactly dist.Total() questions in distribution order.
// Categories run sequentially; spacing between generator calls is the limiter's job.
// Only an invalid distribution or a cancelled context is returned as an error.
func (b *QuestionBuilder) Build(ctx context.Context, skills []string, dist domain.Distribution) ([]domain.Question, error) {
	if err := dist.Validate(); err != nil {
		return nil, fmt.Errorf("op=usecase.Build: %w", err)
	}
	tracer := otel.Tracer("usecase.questions")
	ctx, span := tracer.Start(ctx, "BuildQuestions")
	defer span.End()

	questions := make([]domain.Question, 0, dist.Total())
	for _, cs := range dist {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("op=usecase.Build: %w", err)
		}
		candidates := b.requestBatch(ctx, skills, cs, questions)
		for _, q := range b.fill(cs, candidates) {
			q.Index = len(questions)
			questions = append(questions, q)
			b.metrics.QuestionBuilt(q.Category, q.Source)
		}
	}
	span.SetAttributes(attribute.Int("questions.total", len(questions)))
	return questions, nil
}

// fill assigns one question per required slot, in slot order.
func (b *QuestionBuilder) fill(cs domain.CategorySlots, candidates []domain.Candidate) []domain.Question {
	buckets := newBuckets(candidates)
	out := make([]domain.Question, 0, cs.Total())
	for _, diff := range cs.Order() {
		q := domain.Question{Category: cs.Category, Difficulty: diff}
		c, ok := buckets.pop(diff)
		q.Source = domain.SourceGenerated
		if !ok {
			c, ok = buckets.popAny()
			q.Source = domain.SourceBorrowed
		}
		if !ok {
			c, ok = b.bank.First(cs.Category, diff)
			q.Source = domain.SourceBank
		}
		if !ok {
			c = domain.Candidate{Prompt: fmt.Sprintf("Explain your experience with %s concepts.", cs.Category)}
			q.Source = domain.SourceSynthesized
		}
		q.Prompt = c.Prompt
		q.Topic = c.Topic
		if q.Topic == "" {
			q.Topic = defaultTopic(cs.Category)
		}
		out = append(out, q)
	}
	return out
}

// requestBatch returns accepted candidates or nil. Generator and decode failures never escape.
func (b *QuestionBuilder) requestBatch(ctx context.Context, skills []string, cs domain.CategorySlots, existing []domain.Question) []domain.Candidate {
	lg := observability.LoggerFromContext(ctx).With(slog.String("category", string(cs.Category)))
	total := cs.Total()
	prompt := b.batchPrompt(skills, cs, existing)
	seen := make([]string, 0, len(existing))
	for _, q := range existing {
		seen = append(seen, dedupeKey(q.Prompt))
	}

	var accepted []domain.Candidate
	attempt := 0
	op := func() error {
		temp := batchBaseTemp + float64(attempt)*batchTempStep
		attempt++
		raw, err := b.gen.Generate(ctx, prompt, batchMaxTokens, temp)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		items, err := b.decoder.Candidates(raw)
		if err != nil {
			return err
		}
		filtered := dedupe(items, seen)
		if len(filtered) < max(1, total-1) {
			return fmt.Errorf("%w: %d of %d usable questions", domain.ErrSchemaInvalid, len(filtered), total)
		}
		if len(filtered) > total {
			filtered = filtered[:total]
		}
		accepted = filtered
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(b.attempts-1)), ctx)
	notify := func(err error, _ time.Duration) {
		lg.Warn("question batch attempt failed", slog.Int("attempt", attempt), slog.Any("error", err))
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		lg.Warn("question batch unavailable, filling from fallbacks", slog.Int("attempts", attempt), slog.Any("error", err))
		return nil
	}
	lg.Info("question batch accepted", slog.Int("count", len(accepted)), slog.Int("required", total))
	return accepted
}

func (b *QuestionBuilder) batchPrompt(skills []string, cs domain.CategorySlots, existing []domain.Question) string {
	if len(skills) > promptSkillLimit {
		skills = skills[:promptSkillLimit]
	}
	var spec strings.Builder
	for i, s := range cs.Slots {
		if i > 0 {
			spec.WriteByte('\n')
		}
		fmt.Fprintf(&spec, "  - %d %q question(s): %s", s.Count, s.Difficulty, b.hints[cs.Category][s.Difficulty])
	}
	note := "\nSkills to focus on: " + strings.Join(skills, ", ")
	if cs.Category == domain.CategoryAptitude {
		note = "\nIMPORTANT: Aptitude questions must NOT be about the skills above. " +
			"They are pure logical/quantitative reasoning problems."
	}
	note += avoidList(existing)
	return fmt.Sprintf(`Generate exactly %d unique %s interview questions.%s

Breakdown:
%s

Return ONLY a JSON array (no extra text):
[
  {"question": "...", "difficulty": "easy", "topic": "..."},
  ...
]

Rules:
- All questions must be different from each other
- Do NOT include code snippets in theory/aptitude/behavioral questions
- topic should be a short label (2-4 words)`, cs.Total(), cs.Category, note, spec.String())
}

// avoidList renders the most recent session prompts, each cut to the dedupe prefix.
func avoidList(existing []domain.Question) string {
	if len(existing) == 0 {
		return ""
	}
	if len(existing) > avoidListLimit {
		existing = existing[len(existing)-avoidListLimit:]
	}
	var sb strings.Builder
	sb.WriteString("\n\nAvoid repeating:")
	for _, q := range existing {
		r := []rune(strings.TrimSpace(q.Prompt))
		if len(r) > dedupePrefix {
			r = r[:dedupePrefix]
		}
		sb.WriteString("\n  - ")
		sb.WriteString(string(r))
	}
	return sb.String()
}

// dedupe drops candidates whose prompt prefix overlaps an existing prompt or an earlier candidate.
func dedupe(items []domain.Candidate, existing []string) []domain.Candidate {
	seen := append(make([]string, 0, len(existing)+len(items)), existing...)
	out := make([]domain.Candidate, 0, len(items))
	for _, it := range items {
		key := dedupeKey(it.Prompt)
		if key == "" || overlaps(key, seen) {
			continue
		}
		seen = append(seen, key)
		out = append(out, it)
	}
	return out
}

func overlaps(key string, seen []string) bool {
	for _, ex := range seen {
		if strings.Contains(ex, key) || strings.Contains(key, ex) {
			return true
		}
	}
	return false
}

func dedupeKey(prompt string) string {
	r := []rune(strings.ToLower(strings.TrimSpace(prompt)))
	if len(r) > dedupePrefix {
		r = r[:dedupePrefix]
	}
	return string(r)
}

func defaultTopic(c domain.Category) string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// buckets groups candidates by claimed difficulty, remembering first-seen order.
type buckets struct {
	order []domain.Difficulty
	items map[domain.Difficulty][]domain.Candidate
}

func newBuckets(cs []domain.Candidate) *buckets {
	b := &buckets{items: map[domain.Difficulty][]domain.Candidate{}}
	for _, c := range cs {
		if _, ok := b.items[c.Difficulty]; !ok {
			b.order = append(b.order, c.Difficulty)
		}
		b.items[c.Difficulty] = append(b.items[c.Difficulty], c)
	}
	return b
}

func (b *buckets) pop(d domain.Difficulty) (domain.Candidate, bool) {
	list := b.items[d]
	if len(list) == 0 {
		return domain.Candidate{}, false
	}
	b.items[d] = list[1:]
	return list[0], true
}

func (b *buckets) popAny() (domain.Candidate, bool) {
	for _, d := range b.order {
		if c, ok := b.pop(d); ok {
			return c, true
		}
	}
	return domain.Candidate{}, false
}
