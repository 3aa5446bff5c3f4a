package usecase

import "github.com/fairyhunter13/ai-interviewer/internal/domain"

type nopMetrics struct{}

func (nopMetrics) QuestionBuilt(domain.Category, domain.QuestionSource) {}
func (nopMetrics) GateOutcome(string)                                   {}
func (nopMetrics) EvaluationTier(string)                                {}
func (nopMetrics) Rephrase(string)                                      {}
func (nopMetrics) SessionEvent(string)                                  {}
func (nopMetrics) OverallScore(float64)                                 {}

func metricsOrNop(m domain.InterviewMetrics) domain.InterviewMetrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
