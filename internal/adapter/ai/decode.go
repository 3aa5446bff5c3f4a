// Package ai holds the generator adapters, their decorators and the strict model-output decoder.
package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// maxSkills caps how many skills a resume extraction may return.
const maxSkills = 15

// Decoder is the strict schema decoder for generator output. It implements domain.OutputDecoder.
type Decoder struct{}

// NewDecoder creates a Decoder.
func NewDecoder() *Decoder { return &Decoder{} }

var _ domain.OutputDecoder = (*Decoder)(nil)

type evaluationPayload struct {
	Correctness *float64 `json:"correctness" validate:"required"`
	Depth       *float64 `json:"depth" validate:"required"`
	Clarity     *float64 `json:"clarity" validate:"required"`
	Feedback    string   `json:"feedback"`
}

// maxTopicRunes bounds a candidate topic label; longer labels are cut, not rejected.
const maxTopicRunes = 120

type candidatePayload struct {
	Question   string `json:"question" validate:"required"`
	Difficulty string `json:"difficulty"`
	Topic      string `json:"topic"`
}

// Evaluation decodes a scoring object. Sub-scores are truncated and clamped to [0,5];
// feedback may be empty and is left for the caller to synthesize.
func (d *Decoder) Evaluation(raw string) (domain.Evaluation, error) {
	body, err := isolate(raw, '{', '}')
	if err != nil {
		return domain.Evaluation{}, err
	}
	var p evaluationPayload
	if err := decodeJSON(body, &p); err != nil {
		return domain.Evaluation{}, err
	}
	if err := getValidator().Struct(p); err != nil {
		return domain.Evaluation{}, fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	return domain.Evaluation{
		Correctness: clampScore(*p.Correctness),
		Depth:       clampScore(*p.Depth),
		Clarity:     clampScore(*p.Clarity),
		Feedback:    strings.TrimSpace(p.Feedback),
	}, nil
}

// Candidates decodes a question batch. Items without a question are dropped and
// a batch with no usable item is a schema failure. The claimed difficulty is kept
// as written (lowercased), so labels outside easy/medium/hard still reach the
// borrow step; a missing label reads as medium.
func (d *Decoder) Candidates(raw string) ([]domain.Candidate, error) {
	body, err := isolate(raw, '[', ']')
	if err != nil {
		return nil, err
	}
	var items []candidatePayload
	if err := decodeJSON(body, &items); err != nil {
		return nil, err
	}
	out := make([]domain.Candidate, 0, len(items))
	for _, it := range items {
		it.Question = strings.TrimSpace(it.Question)
		it.Difficulty = strings.ToLower(strings.TrimSpace(it.Difficulty))
		it.Topic = truncateRunes(strings.TrimSpace(it.Topic), maxTopicRunes)
		if getValidator().Struct(it) != nil {
			continue
		}
		diff := domain.Difficulty(it.Difficulty)
		if diff == "" {
			diff = domain.DifficultyMedium
		}
		out = append(out, domain.Candidate{Prompt: it.Question, Difficulty: diff, Topic: it.Topic})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: batch has no valid question items", domain.ErrSchemaInvalid)
	}
	return out, nil
}

// Skills decodes a JSON array of skill strings, dropping blanks and capping the list.
func (d *Decoder) Skills(raw string) ([]string, error) {
	body, err := isolate(raw, '[', ']')
	if err != nil {
		return nil, err
	}
	var items []string
	if err := decodeJSON(body, &items); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
		if len(out) == maxSkills {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no skills in response", domain.ErrSchemaInvalid)
	}
	return out, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

func decodeJSON(body string, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSchemaInvalid, err)
	}
	return nil
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	n := int(v)
	if v > 5 {
		n = 5
	}
	if n < 0 {
		return 0
	}
	return n
}

// isolate strips markdown fences and typographic single quotes, then returns the
// first balanced value opened by open. Brackets inside JSON strings are ignored.
func isolate(raw string, open, closing byte) (string, error) {
	s := removeMarkdownBlocks(raw)
	s = strings.NewReplacer("’", "'", "‘", "'").Replace(s)

	start := strings.IndexByte(s, open)
	if start == -1 {
		return "", fmt.Errorf("%w: no %q in response", domain.ErrSchemaInvalid, open)
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unbalanced %q in response", domain.ErrSchemaInvalid, open)
}

func removeMarkdownBlocks(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}
