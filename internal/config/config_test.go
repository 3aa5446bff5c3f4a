package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

func Test_Load_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.IsProd())
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 2, cfg.MaxRephrases)
	assert.Equal(t, 1500*time.Millisecond, cfg.GenMinInterval)
	assert.Equal(t, 3, cfg.GenBatchAttempts)
	assert.False(t, cfg.ArchiveEnabled())
}

func Test_Load_RejectsNegativeRephrases(t *testing.T) {
	t.Setenv("MAX_REPHRASES", "-1")
	_, err := Load()
	require.Error(t, err)
}

func Test_GetGeneratorLimits(t *testing.T) {
	cfg := Config{AppEnv: "test", GenMinInterval: time.Second, GenCallTimeout: time.Minute}
	interval, timeout := cfg.GetGeneratorLimits()
	assert.Zero(t, interval)
	assert.Equal(t, 5*time.Second, timeout)

	cfg.AppEnv = "prod"
	interval, timeout = cfg.GetGeneratorLimits()
	assert.Equal(t, time.Second, interval)
	assert.Equal(t, time.Minute, timeout)
}

func TestLoadInterviewData_EmbeddedDefaults(t *testing.T) {
	data, err := LoadInterviewData("")
	require.NoError(t, err)

	assert.Equal(t, 15, data.Distribution.Total())
	assert.Len(t, data.FallbackBank[domain.CategoryTheory][domain.DifficultyEasy], 2)
	assert.Equal(t, "ML Basics", data.FallbackBank[domain.CategoryTheory][domain.DifficultyEasy][0].Topic)
	assert.NotEmpty(t, data.DifficultyHints[domain.CategoryCoding][domain.DifficultyHard])
	assert.Equal(t, "machine_learning", data.Resources.FallbackTopic)
	assert.Equal(t, 10, data.Resources.MaxLinks)
	assert.Contains(t, data.KnownSkills, "pytorch")
	assert.Equal(t, []string{"Machine Learning", "Python", "Deep Learning"}, data.DefaultSkills)
}

func TestInterviewData_BankKeepsOrderAndDifficulty(t *testing.T) {
	data, err := LoadInterviewData("")
	require.NoError(t, err)

	bank := data.Bank()
	entries := bank[domain.CategoryAptitude][domain.DifficultyHard]
	require.Len(t, entries, 1)
	assert.Equal(t, domain.DifficultyHard, entries[0].Difficulty)
	assert.Equal(t, "Permutations", entries[0].Topic)
	assert.Equal(t, "ML Basics", bank[domain.CategoryTheory][domain.DifficultyEasy][0].Topic)
	assert.Empty(t, bank[domain.CategoryBehavioral][domain.DifficultyEasy])
}

func TestLoadInterviewData_FileOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "interview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
distribution:
  - category: theory
    slots:
      - {difficulty: easy, count: 1}
`), 0o600))

	data, err := LoadInterviewData(path)
	require.NoError(t, err)
	assert.Equal(t, 1, data.Distribution.Total())
	assert.Equal(t, 10, data.Resources.MaxLinks)
	assert.NotEmpty(t, data.DefaultSkills)
}

func TestLoadInterviewData_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"invalid_yaml", "distribution: [", "failed to parse YAML"},
		{"empty_distribution", "distribution: []", "empty distribution"},
		{"unknown_bank_category", `
distribution:
  - category: theory
    slots: [{difficulty: easy, count: 1}]
fallback_bank:
  hr:
    medium: [{prompt: "x", topic: "y"}]
`, "unknown category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseInterviewData([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	_, err := LoadInterviewData("non-existent-file.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}
