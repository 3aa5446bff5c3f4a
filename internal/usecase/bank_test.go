package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
	"github.com/fairyhunter13/ai-interviewer/internal/usecase"
)

func TestBank_First(t *testing.T) {
	t.Parallel()
	src := map[domain.Category]map[domain.Difficulty][]domain.Candidate{
		domain.CategoryTheory: {
			domain.DifficultyEasy: {
				{Prompt: "first", Topic: "A"},
				{Prompt: "second", Topic: "B"},
			},
		},
	}
	bank := usecase.NewBank(src)
	src[domain.CategoryTheory][domain.DifficultyEasy][0].Prompt = "mutated"

	got, ok := bank.First(domain.CategoryTheory, domain.DifficultyEasy)
	assert.True(t, ok)
	assert.Equal(t, "first", got.Prompt)

	_, ok = bank.First(domain.CategoryTheory, domain.DifficultyHard)
	assert.False(t, ok)
	_, ok = bank.First(domain.CategoryCoding, domain.DifficultyEasy)
	assert.False(t, ok)
}
