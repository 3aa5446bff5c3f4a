package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
	"github.com/fairyhunter13/ai-interviewer/internal/usecase"
)

func rephraseSession() *domain.Session {
	return &domain.Session{
		ID:        "s1",
		Questions: []domain.Question{{Index: 0, Category: domain.CategoryCoding, Prompt: "Reverse a linked list."}},
		Rephrases: map[int]int{},
		Status:    domain.SessionInProgress,
	}
}

func TestRephrase_BudgetAndStoredPromptUntouched(t *testing.T) {
	t.Parallel()
	gen := newScriptGen(ok(`"Reverse the order of a singly linked list."`), ok("'Flip a linked list.'"), ok("unused"))
	r := usecase.NewRephraser(gen, 2, nil)
	s := rephraseSession()

	res, err := r.Rephrase(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "Reverse the order of a singly linked list.", res.Rephrased)
	assert.Equal(t, "Reverse a linked list.", res.Original)
	assert.Equal(t, 1, res.RephrasesRemaining)

	res, err = r.Rephrase(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "Flip a linked list.", res.Rephrased)
	assert.Equal(t, 0, res.RephrasesRemaining)

	_, err = r.Rephrase(context.Background(), s)
	assert.True(t, errors.Is(err, domain.ErrExhausted))
	assert.Equal(t, 2, s.Rephrases[0])
	assert.Equal(t, "Reverse a linked list.", s.Questions[0].Prompt)
	assert.Len(t, gen.Calls(), 2)
}

func TestRephrase_FailureDoesNotChargeCredit(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		reply reply
	}{
		{"transport", down()},
		{"empty", ok(`  ""  `)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := rephraseSession()
			m := newRecordingMetrics()
			_, err := usecase.NewRephraser(newScriptGen(tt.reply), 2, m).Rephrase(context.Background(), s)
			assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
			assert.Equal(t, 0, s.Rephrases[0])
			assert.Equal(t, 1, m.count("rephrase:unavailable"))
		})
	}
}

func TestRephrase_PromptAndLimits(t *testing.T) {
	t.Parallel()
	gen := newScriptGen(ok("x"))
	_, err := usecase.NewRephraser(gen, 1, nil).Rephrase(context.Background(), rephraseSession())
	require.NoError(t, err)
	c := gen.Calls()[0]
	assert.Equal(t, 200, c.maxTokens)
	assert.InDelta(t, 0.4, c.temp, 1e-9)
	assert.Contains(t, c.prompt, "Rephrase the following coding interview question")
	assert.Contains(t, c.prompt, "Original: Reverse a linked list.")
}

func TestRephrase_CompletedSessionIsExhausted(t *testing.T) {
	t.Parallel()
	s := rephraseSession()
	s.Cursor = 1
	_, err := usecase.NewRephraser(newScriptGen(), 2, nil).Rephrase(context.Background(), s)
	assert.True(t, errors.Is(err, domain.ErrExhausted))
}
