package httpserver

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-interviewer/pkg/textx"
)

// MinAnswerChars is the shortest trimmed answer accepted before it reaches the interview service.
const MinAnswerChars = 5

const (
	maxSessionIDLen = 100
	maxFieldLen     = 1000
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

func invalid(field, code, msg string) ValidationResult {
	return ValidationResult{Errors: []ValidationError{{Field: field, Code: code, Message: msg}}}
}

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateSessionID checks the path id before any store lookup.
func ValidateSessionID(id string) ValidationResult {
	switch {
	case id == "":
		return invalid("id", "REQUIRED", "Session ID is required")
	case len(id) > maxSessionIDLen:
		return invalid("id", "TOO_LONG", "Session ID is too long (max 100 characters)")
	case !sessionIDPattern.MatchString(id):
		return invalid("id", "INVALID_FORMAT", "Session ID contains invalid characters")
	}
	return ValidationResult{Valid: true}
}

// ValidateAnswer rejects answers that are too short to be worth evaluating.
func ValidateAnswer(answer string) ValidationResult {
	if utf8.RuneCountInString(strings.TrimSpace(answer)) < MinAnswerChars {
		return invalid("answer", "TOO_SHORT", "Answer too short")
	}
	return ValidationResult{Valid: true}
}

type createSessionRequest struct {
	Skills     []string `json:"skills" validate:"required,min=1,max=20,dive,required,max=100"`
	Experience string   `json:"experience" validate:"max=200"`
	Role       string   `json:"role" validate:"max=200"`
}

type answerRequest struct {
	Answer string `json:"answer" validate:"required,max=10000"`
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New(validator.WithRequiredStructEnabled()) })
	return vld
}

// validateStruct runs the struct tags and flattens failures into field -> tag.
func validateStruct(v interface{}) map[string]string {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}
	out := map[string]string{}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[strings.ToLower(fe.Field())] = fe.Tag()
		}
		return out
	}
	out["request"] = err.Error()
	return out
}

// SanitizeString strips control characters and caps the length in runes.
func SanitizeString(input string) string {
	input = strings.ToValidUTF8(input, "")
	return textx.Truncate(textx.SanitizeText(input), maxFieldLen)
}

// sanitizeSkills cleans every entry and drops the ones left empty.
func sanitizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = SanitizeString(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
