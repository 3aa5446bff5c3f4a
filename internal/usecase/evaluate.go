package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
	"github.com/fairyhunter13/ai-interviewer/internal/observability"
	"github.com/fairyhunter13/ai-interviewer/pkg/textx"
)

// Fixed feedback strings.
const (
	FeedbackGibberish    = "Invalid answer: gibberish or placeholder detected."
	FeedbackNoAnswer     = "No answer provided; candidate indicated they do not know."
	FeedbackAutoScored   = "Auto-scored (evaluation unavailable) based on response length."
	feedbackStrong       = "Strong answer covering all key points."
	feedbackGood         = "Good answer with most key points covered."
	feedbackPartial      = "Partially correct; some key points missing."
	feedbackInsufficient = "Answer was insufficient or incorrect."
)

// Evaluation tiers, as reported to metrics.
const (
	TierGibberish = "gibberish"
	TierNoAnswer  = "no_answer"
	TierPrimary   = "primary"
	TierStrict    = "strict"
	TierHeuristic = "heuristic"
)

const (
	primaryMaxTokens  = 400
	primaryTemp       = 0.3
	strictMaxTokens   = 150
	strictTemp        = 0.2
	strictQuestionCap = 200
	strictAnswerCap   = 300
	contextPairs      = 3
	contextAnswerCap  = 200
	noAnswerMaxChars  = 80
)

var noAnswerPhrases = []string{
	"don't know", "dont know", "do not know", "no idea",
	"no clue", "not sure", "i give up", "can't answer",
	"cannot answer", "cant answer", "don't understand",
	"dont understand", "i have no", "i don't", "i dont",
	"have no idea", "skip", "pass", "idk", "n/a", "na",
	"no solution", "don't know how", "dont know how",
}

// Short phrases are matched as whole words so "na" does not fire inside "gradient".
var noAnswerWordPatterns = compileWordPatterns(noAnswerPhrases, 4)

func compileWordPatterns(phrases []string, maxLen int) map[string]*regexp.Regexp {
	out := map[string]*regexp.Regexp{}
	for _, p := range phrases {
		if len(p) <= maxLen {
			out[p] = regexp.MustCompile(`(^|[^a-z0-9])` + regexp.QuoteMeta(p) + `($|[^a-z0-9])`)
		}
	}
	return out
}

// PriorPair is an earlier question and the answer given to it.
type PriorPair struct {
	Question string
	Answer   string
}

// Evaluator scores accepted answers through the degrading chain:
// local shortcuts, primary prompt, strict prompt, word-count heuristic.
type Evaluator struct {
	gen     domain.Generator
	decoder domain.OutputDecoder
	metrics domain.InterviewMetrics
}

// NewEvaluator wires an Evaluator.
func NewEvaluator(gen domain.Generator, decoder domain.OutputDecoder, metrics domain.InterviewMetrics) *Evaluator {
	return &Evaluator{gen: gen, decoder: decoder, metrics: metricsOrNop(metrics)}
}

// Evaluate never fails. The result always has sub-scores in [0,5] and non-empty feedback.
func (e *Evaluator) Evaluate(ctx context.Context, q domain.Question, answer string, prior []PriorPair) domain.Evaluation {
	tracer := otel.Tracer("usecase.evaluate")
	ctx, span := tracer.Start(ctx, "EvaluateAnswer")
	defer span.End()

	ev, tier := e.evaluate(ctx, q, answer, prior)
	span.SetAttributes(attribute.String("evaluation.tier", tier), attribute.String("question.category", string(q.Category)))
	e.metrics.EvaluationTier(tier)
	return ev
}

func (e *Evaluator) evaluate(ctx context.Context, q domain.Question, answer string, prior []PriorPair) (domain.Evaluation, string) {
	if isNoAnswer(answer) {
		return domain.Evaluation{Feedback: FeedbackNoAnswer}, TierNoAnswer
	}
	if isGibberish(answer) {
		return domain.Evaluation{Feedback: FeedbackGibberish}, TierGibberish
	}
	lg := observability.LoggerFromContext(ctx).With(slog.Int("question_index", q.Index), slog.String("category", string(q.Category)))

	ev, err := e.attempt(ctx, primaryPrompt(q, answer, prior), primaryMaxTokens, primaryTemp)
	if err == nil {
		return ev, TierPrimary
	}
	lg.Warn("primary evaluation failed, retrying with strict prompt", slog.Any("error", err))

	ev, err = e.attempt(ctx, strictPrompt(q.Prompt, answer), strictMaxTokens, strictTemp)
	if err == nil {
		return ev, TierStrict
	}
	lg.Warn("strict evaluation failed, using length heuristic", slog.Any("error", err))
	return heuristicScore(answer), TierHeuristic
}

func (e *Evaluator) attempt(ctx context.Context, prompt string, maxTokens int, temp float64) (domain.Evaluation, error) {
	raw, err := e.gen.Generate(ctx, prompt, maxTokens, temp)
	if err != nil {
		return domain.Evaluation{}, err
	}
	ev, err := e.decoder.Evaluation(raw)
	if err != nil {
		return domain.Evaluation{}, err
	}
	ev.Correctness = clamp(ev.Correctness)
	ev.Depth = clamp(ev.Depth)
	ev.Clarity = clamp(ev.Clarity)
	if strings.TrimSpace(ev.Feedback) == "" {
		ev.Feedback = bandFeedback(ev.Total())
	}
	return ev, nil
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 5 {
		return 5
	}
	return v
}

func bandFeedback(total int) string {
	switch {
	case total >= 12:
		return feedbackStrong
	case total >= 8:
		return feedbackGood
	case total >= 4:
		return feedbackPartial
	default:
		return feedbackInsufficient
	}
}

// heuristicScore bands the answer by word count.
func heuristicScore(answer string) domain.Evaluation {
	words := len(strings.Fields(answer))
	ev := domain.Evaluation{Feedback: FeedbackAutoScored}
	switch {
	case words < 10:
		ev.Correctness, ev.Depth, ev.Clarity = 1, 0, 1
	case words < 30:
		ev.Correctness, ev.Depth, ev.Clarity = 2, 1, 2
	case words < 80:
		ev.Correctness, ev.Depth, ev.Clarity = 3, 2, 3
	default:
		ev.Correctness, ev.Depth, ev.Clarity = 3, 3, 3
	}
	return ev
}

func isNoAnswer(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" || utf8.RuneCountInString(t) > noAnswerMaxChars {
		return false
	}
	for _, p := range noAnswerPhrases {
		if re, ok := noAnswerWordPatterns[p]; ok {
			if re.MatchString(t) {
				return true
			}
			continue
		}
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}

func isGibberish(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	n := utf8.RuneCountInString(t)
	if n < 10 {
		return true
	}
	distinct := map[rune]struct{}{}
	alnumOrSpace, letters, consonants := 0, 0, 0
	for _, r := range t {
		if r != ' ' {
			distinct[r] = struct{}{}
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			alnumOrSpace++
		}
		if unicode.IsLetter(r) {
			letters++
			if !strings.ContainsRune("aeiou", r) {
				consonants++
			}
		}
	}
	if len(distinct) < 5 {
		return true
	}
	if len(strings.Fields(t)) < 3 {
		return true
	}
	if float64(alnumOrSpace)/float64(n) < 0.7 {
		return true
	}
	if letters > 0 && float64(consonants)/float64(letters) > 0.85 {
		return true
	}
	var code []string
	for _, line := range strings.Split(t, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			code = append(code, line)
		}
	}
	return utf8.RuneCountInString(strings.TrimSpace(strings.Join(code, " "))) < 10
}

func contextBlock(prior []PriorPair) string {
	if len(prior) > contextPairs {
		prior = prior[len(prior)-contextPairs:]
	}
	lines := make([]string, 0, len(prior))
	for _, p := range prior {
		lines = append(lines, fmt.Sprintf("Q: %s\nA: %s...", p.Question, textx.Truncate(p.Answer, contextAnswerCap)))
	}
	return strings.Join(lines, "\n")
}

func primaryPrompt(q domain.Question, answer string, prior []PriorPair) string {
	ctxBlock := contextBlock(prior)
	switch q.Category {
	case domain.CategoryCoding:
		return fmt.Sprintf(`You are a STRICT code reviewer evaluating a coding interview submission.

Question: %s
Topic: %s
Submitted Code:
%s

%s

Score 0-5 each:
- correctness: Does the code logically solve the problem?
- depth: Quality of implementation (edge cases, efficiency)?
- clarity: Code readability and structure?

IMPORTANT: If only a comment or placeholder is written, score 0 for all.

Return ONLY JSON:
{
  "correctness": 0-5,
  "depth": 0-5,
  "clarity": 0-5,
  "feedback": "1 sentence stating what was good or wrong in the code"
}`, q.Prompt, q.Topic, answer, ctxBlock)
	case domain.CategoryAptitude:
		return fmt.Sprintf(`You are evaluating a quantitative aptitude / logical reasoning answer.

Question: %s
Answer: %s

%s

IMPORTANT RULES:
- Step-by-step working with math symbols is CORRECT and expected
- A numerical final answer with correct working should score high
- Only mark correctness=0 if the final answer is clearly wrong or missing

Score 0-5 each:
- correctness: Is the final answer correct?
- depth: Did they show clear working/steps?
- clarity: Is the solution easy to follow?

Return ONLY JSON:
{
  "correctness": 0-5,
  "depth": 0-5,
  "clarity": 0-5,
  "feedback": "1 sentence stating if final answer is correct or not"
}`, q.Prompt, answer, ctxBlock)
	default:
		return fmt.Sprintf(`You are a STRICT AI/ML interviewer evaluating a theory/behavioral answer.

Question: %s
Topic: %s
Answer: %s

%s

Score 0-5 for each dimension:
- correctness: Is the answer factually correct?
- depth: Does it go beyond surface-level?
- clarity: Is it clearly communicated?

Return ONLY JSON:
{
  "correctness": 0-5,
  "depth": 0-5,
  "clarity": 0-5,
  "feedback": "1 sentence stating what was right or wrong"
}`, q.Prompt, q.Topic, answer, ctxBlock)
	}
}

func strictPrompt(question, answer string) string {
	return fmt.Sprintf(`Score this answer from 0-5 each for correctness, depth, clarity.

Question: %s
Answer: %s

Return ONLY this JSON with no extra text:
{"correctness": 0, "depth": 0, "clarity": 0, "feedback": "brief reason"}`,
		textx.Truncate(question, strictQuestionCap), textx.Truncate(answer, strictAnswerCap))
}
