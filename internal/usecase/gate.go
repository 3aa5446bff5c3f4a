package usecase

import (
	"strings"
	"unicode/utf8"
)

// GateOutcome is the local classification of a submitted answer.
type GateOutcome string

const (
	GateAccepted GateOutcome = "accepted"
	GateOffTopic GateOutcome = "off_topic"
	GateRefusal  GateOutcome = "refusal"
)

// RefusedFeedback is recorded when a question is force-failed on the second strike.
const RefusedFeedback = "FAILED: Refused to answer the question properly."

// WarningMessage is returned on the first strike.
const WarningMessage = "WARNING: Stay on topic. Answer the question asked or you will fail this question."

const (
	minAnswerChars = 8
	minAnswerWords = 3
)

var refusalPhrases = []string{
	"don't want to answer", "not answering", "refuse to answer",
	"skip this", "next question", "i refuse", "won't answer",
	"not relevant", "this is irrelevant", "bad question",
	"why are you asking", "what does this have to do",
	"this is unfair", "stupid question", "wrong question",
	"stop asking", "i won't", "i will not answer",
}

// Classify applies the refusal, length and word-count rules in that order.
func Classify(answer string) GateOutcome {
	lower := strings.ToLower(strings.TrimSpace(answer))
	for _, p := range refusalPhrases {
		if strings.Contains(lower, p) {
			return GateRefusal
		}
	}
	trimmed := strings.TrimSpace(answer)
	if utf8.RuneCountInString(trimmed) < minAnswerChars || len(strings.Fields(trimmed)) < minAnswerWords {
		return GateOffTopic
	}
	return GateAccepted
}
