package usecase_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interviewer/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interviewer/internal/domain"
	"github.com/fairyhunter13/ai-interviewer/internal/domain/mocks"
	"github.com/fairyhunter13/ai-interviewer/internal/usecase"
)

var theoryQ = domain.Question{Index: 3, Category: domain.CategoryTheory, Difficulty: domain.DifficultyMedium, Prompt: "Explain gradient descent.", Topic: "Optimization"}

const substantive = "Gradient descent iteratively updates parameters in the direction opposite to the gradient of the loss."

func assertValid(t *testing.T, ev domain.Evaluation) {
	t.Helper()
	for _, v := range []int{ev.Correctness, ev.Depth, ev.Clarity} {
		assert.GreaterOrEqual(t, v, 0)
		assert.LessOrEqual(t, v, 5)
	}
	assert.NotEmpty(t, ev.Feedback)
}

func TestEvaluate_LocalShortcutsMakeNoCalls(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		answer   string
		feedback string
	}{
		{"pass", "pass", usecase.FeedbackNoAnswer},
		{"dont_know", "Honestly I don't know this one", usecase.FeedbackNoAnswer},
		{"idk_word", "idk sorry about that", usecase.FeedbackNoAnswer},
		{"empty", "", usecase.FeedbackGibberish},
		{"repeated_chars", strings.Repeat("a", 200), usecase.FeedbackGibberish},
		{"symbols", "@@@ ### $$$ %%% ^^^ &&&", usecase.FeedbackGibberish},
		{"consonants", "bcdfg hjklm npqrs tvwxz", usecase.FeedbackGibberish},
		{"comment_only_code", "# todo\n# write the function\n# later", usecase.FeedbackGibberish},
		{"invalid_utf8", string([]byte{0xff, 0xfe, 0xfd, 0xff, 0xfe, 0xfd, 0xff, 0xfe, 0xfd, 0xff, 0xfe}), usecase.FeedbackGibberish},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gen := mocks.NewMockGenerator(t)
			ev := usecase.NewEvaluator(gen, ai.NewDecoder(), nil).Evaluate(context.Background(), theoryQ, tt.answer, nil)
			assert.Equal(t, domain.Evaluation{Feedback: tt.feedback}, ev)
			gen.AssertNotCalled(t, "Generate")
		})
	}
}

func TestEvaluate_NoAnswerOnlyForShortText(t *testing.T) {
	t.Parallel()
	long := "I don't know the formal definition, but gradient descent moves weights against the gradient to reduce loss step by step."
	gen := newScriptGen(ok(`{"correctness":3,"depth":2,"clarity":4,"feedback":"ok"}`))
	ev := usecase.NewEvaluator(gen, ai.NewDecoder(), nil).Evaluate(context.Background(), theoryQ, long, nil)
	assert.Equal(t, 3, ev.Correctness)
	assert.Len(t, gen.Calls(), 1)
}

func TestEvaluate_PrimaryClampsAndSynthesizesFeedback(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		want domain.Evaluation
	}{
		{"strong", `{"correctness":9,"depth":5,"clarity":4}`, domain.Evaluation{Correctness: 5, Depth: 5, Clarity: 4, Feedback: "Strong answer covering all key points."}},
		{"good", "```json\n{\"correctness\":3,\"depth\":3,\"clarity\":2,\"feedback\":\"\"}\n```", domain.Evaluation{Correctness: 3, Depth: 3, Clarity: 2, Feedback: "Good answer with most key points covered."}},
		{"partial", `Sure! {"correctness":2,"depth":2,"clarity":-3}`, domain.Evaluation{Correctness: 2, Depth: 2, Clarity: 0, Feedback: "Partially correct; some key points missing."}},
		{"insufficient", `{"correctness":1,"depth":0,"clarity":2}`, domain.Evaluation{Correctness: 1, Depth: 0, Clarity: 2, Feedback: "Answer was insufficient or incorrect."}},
		{"model_feedback_kept", `{"correctness":4,"depth":4,"clarity":4,"feedback":"Solid."}`, domain.Evaluation{Correctness: 4, Depth: 4, Clarity: 4, Feedback: "Solid."}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gen := newScriptGen(ok(tt.raw))
			m := newRecordingMetrics()
			ev := usecase.NewEvaluator(gen, ai.NewDecoder(), m).Evaluate(context.Background(), theoryQ, substantive, nil)
			assert.Equal(t, tt.want, ev)
			assert.Equal(t, 1, m.count("tier:"+usecase.TierPrimary))
			calls := gen.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, 400, calls[0].maxTokens)
			assert.InDelta(t, 0.3, calls[0].temp, 1e-9)
		})
	}
}

func TestEvaluate_StrictRetryAfterSchemaFailure(t *testing.T) {
	t.Parallel()
	longQ := theoryQ
	longQ.Prompt = strings.Repeat("q", 500)
	gen := newScriptGen(ok(`{"correctness":"high"}`), ok(`{"correctness":2,"depth":2,"clarity":2,"feedback":"brief"}`))

	ev := usecase.NewEvaluator(gen, ai.NewDecoder(), nil).Evaluate(context.Background(), longQ, substantive, nil)
	assert.Equal(t, domain.Evaluation{Correctness: 2, Depth: 2, Clarity: 2, Feedback: "brief"}, ev)

	calls := gen.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 150, calls[1].maxTokens)
	assert.InDelta(t, 0.2, calls[1].temp, 1e-9)
	assert.Contains(t, calls[1].prompt, "Question: "+strings.Repeat("q", 200)+"\n")
}

func TestEvaluate_HeuristicBands(t *testing.T) {
	t.Parallel()
	words := func(n int) string {
		parts := make([]string, n)
		for i := range parts {
			parts[i] = "model"
		}
		return "the " + strings.Join(parts, " ")
	}
	tests := []struct {
		name    string
		answer  string
		c, d, l int
	}{
		{"under_10", "training uses a loss function", 1, 0, 1},
		{"under_30", words(15), 2, 1, 2},
		{"under_80", words(50), 3, 2, 3},
		{"long", words(100), 3, 3, 3},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gen := newScriptGen(down(), ok("no json here"))
			m := newRecordingMetrics()
			ev := usecase.NewEvaluator(gen, ai.NewDecoder(), m).Evaluate(context.Background(), theoryQ, tt.answer, nil)
			assert.Equal(t, domain.Evaluation{Correctness: tt.c, Depth: tt.d, Clarity: tt.l, Feedback: usecase.FeedbackAutoScored}, ev)
			assert.Equal(t, 1, m.count("tier:"+usecase.TierHeuristic))
			assert.Len(t, gen.Calls(), 2)
		})
	}
}

func TestEvaluate_PromptPerCategoryWithRecentContext(t *testing.T) {
	t.Parallel()
	prior := []usecase.PriorPair{
		{Question: "Q-one", Answer: "A-one"},
		{Question: "Q-two", Answer: strings.Repeat("x", 300)},
		{Question: "Q-three", Answer: "A-three"},
		{Question: "Q-four", Answer: "A-four"},
	}
	tests := []struct {
		category domain.Category
		marker   string
	}{
		{domain.CategoryCoding, "STRICT code reviewer"},
		{domain.CategoryAptitude, "quantitative aptitude"},
		{domain.CategoryTheory, "theory/behavioral answer"},
		{domain.CategoryBehavioral, "theory/behavioral answer"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.category), func(t *testing.T) {
			t.Parallel()
			gen := newScriptGen(ok(`{"correctness":1,"depth":1,"clarity":1,"feedback":"f"}`))
			q := theoryQ
			q.Category = tt.category
			usecase.NewEvaluator(gen, ai.NewDecoder(), nil).Evaluate(context.Background(), q, substantive, prior)

			p := gen.Calls()[0].prompt
			assert.Contains(t, p, tt.marker)
			assert.NotContains(t, p, "Q-one")
			assert.Contains(t, p, "Q-four")
			assert.Contains(t, p, "A: "+strings.Repeat("x", 200)+"...")
			assert.NotContains(t, p, strings.Repeat("x", 201))
		})
	}
}

func TestEvaluate_AlwaysStructurallyValid(t *testing.T) {
	t.Parallel()
	inputs := []string{
		"", " ", "\x00\x01\x02", strings.Repeat("ab ", 1000), "🙂🙂🙂 🙂🙂🙂 🙂🙂🙂 🙂",
		"def f(x):\n    return x * 2  # doubles the input value",
		substantive,
	}
	for _, in := range inputs {
		gen := newScriptGen(ok(`{"correctness": 99, "depth": -4, "clarity": 2.7}`))
		ev := usecase.NewEvaluator(gen, ai.NewDecoder(), nil).Evaluate(context.Background(), theoryQ, in, nil)
		assertValid(t, ev)
	}
}
