package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

//go:embed defaults/interview.yaml
var defaultInterviewYAML []byte

// BankEntry is one canned fallback question.
type BankEntry struct {
	Prompt string `yaml:"prompt"`
	Topic  string `yaml:"topic"`
}

// ResourceTopic maps a normalized topic key to learning resource URLs.
type ResourceTopic struct {
	Key  string   `yaml:"key"`
	URLs []string `yaml:"urls"`
}

// ResourcesConfig holds the ordered topic table used by the resource lookup.
type ResourcesConfig struct {
	FallbackTopic string          `yaml:"fallback_topic"`
	MaxLinks      int             `yaml:"max_links"`
	Topics        []ResourceTopic `yaml:"topics"`
}

// InterviewData is the immutable interview configuration injected at startup.
type InterviewData struct {
	Distribution    domain.Distribution                                   `yaml:"distribution"`
	DifficultyHints map[domain.Category]map[domain.Difficulty]string      `yaml:"difficulty_hints"`
	FallbackBank    map[domain.Category]map[domain.Difficulty][]BankEntry `yaml:"fallback_bank"`
	Resources       ResourcesConfig                                       `yaml:"resources"`
	DefaultSkills   []string                                              `yaml:"default_skills"`
	KnownSkills     []string                                              `yaml:"known_skills"`
}

// LoadInterviewData parses the interview data document. An empty path selects the embedded defaults.
func LoadInterviewData(path string) (*InterviewData, error) {
	content := defaultInterviewYAML
	if strings.TrimSpace(path) != "" {
		raw, err := readConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("op=config.LoadInterviewData: %w", err)
		}
		content = raw
	}
	data, err := ParseInterviewData(content)
	if err != nil {
		return nil, fmt.Errorf("op=config.LoadInterviewData: %w", err)
	}
	return data, nil
}

// ParseInterviewData decodes and validates an interview data document.
func ParseInterviewData(content []byte) (*InterviewData, error) {
	var data InterviewData
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := data.Distribution.Validate(); err != nil {
		return nil, err
	}
	for cat, byDiff := range data.FallbackBank {
		if !cat.Valid() {
			return nil, fmt.Errorf("%w: fallback bank has unknown category %q", domain.ErrInvalidArgument, cat)
		}
		for diff := range byDiff {
			if !diff.Valid() {
				return nil, fmt.Errorf("%w: fallback bank has unknown difficulty %q", domain.ErrInvalidArgument, diff)
			}
		}
	}
	if data.Resources.MaxLinks <= 0 {
		data.Resources.MaxLinks = 10
	}
	if len(data.DefaultSkills) == 0 {
		data.DefaultSkills = []string{"Machine Learning", "Python", "Deep Learning"}
	}
	return &data, nil
}

func readConfigFile(filePath string) ([]byte, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", absPath)
	}
	// #nosec G304 -- path comes from operator configuration
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// Bank returns the fallback bank keyed by category and difficulty, in declared order.
func (d *InterviewData) Bank() map[domain.Category]map[domain.Difficulty][]domain.Candidate {
	out := make(map[domain.Category]map[domain.Difficulty][]domain.Candidate, len(d.FallbackBank))
	for cat, byDiff := range d.FallbackBank {
		out[cat] = make(map[domain.Difficulty][]domain.Candidate, len(byDiff))
		for diff, entries := range byDiff {
			for _, e := range entries {
				out[cat][diff] = append(out[cat][diff], domain.Candidate{Prompt: e.Prompt, Difficulty: diff, Topic: e.Topic})
			}
		}
	}
	return out
}
