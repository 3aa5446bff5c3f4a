package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/ai-interviewer/internal/usecase"
)

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		answer string
		want   usecase.GateOutcome
	}{
		{"refusal_phrase", "I refuse to answer this one", usecase.GateRefusal},
		{"refusal_case_insensitive", "Why Are You Asking me about gradients?", usecase.GateRefusal},
		{"refusal_wins_over_short", "i won't", usecase.GateRefusal},
		{"short_chars", "  yes no  ", usecase.GateOffTopic},
		{"two_words", "gradient descent", usecase.GateOffTopic},
		{"empty", "", usecase.GateOffTopic},
		{"accepted", "It minimises the loss iteratively.", usecase.GateAccepted},
		{"pass_is_not_gated", "pass on this", usecase.GateAccepted},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, usecase.Classify(tt.answer))
		})
	}
}
