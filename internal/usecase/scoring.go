package usecase

import (
	"fmt"
	"math"
	"sort"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

const (
	maxQuestionScore = 15.0
	weakThreshold    = 50.0
	maxWeakAreas     = 5
	maxSuggestions   = 5
)

var sectionSuggestions = map[domain.Category]string{
	domain.CategoryTheory:     "Focus on theoretical foundations and core concepts",
	domain.CategoryAptitude:   "Practice more problem-solving and analytical thinking exercises",
	domain.CategoryCoding:     "Improve coding skills through regular practice on platforms like LeetCode",
	domain.CategoryBehavioral: "Prepare better behavioral answers using the STAR method",
}

const encouragement = "Maintain your strong performance through continuous practice"

// Scorer aggregates a finished session into a Report.
type Scorer struct {
	resources domain.ResourceLookup
}

// NewScorer wires a Scorer. A nil lookup yields no learning resources.
func NewScorer(resources domain.ResourceLookup) *Scorer {
	return &Scorer{resources: resources}
}

// QuestionScore is 0 when correctness is 0, otherwise the sum of the sub-scores capped at 15.
func QuestionScore(e domain.Evaluation) float64 {
	if e.Correctness == 0 {
		return 0
	}
	return math.Min(float64(e.Total()), maxQuestionScore)
}

// Verdict maps an overall percentage to its label.
func Verdict(pct float64) string {
	switch {
	case pct >= 80:
		return domain.VerdictExcellent
	case pct >= 60:
		return domain.VerdictGood
	case pct >= 40:
		return domain.VerdictAverage
	default:
		return domain.VerdictPoor
	}
}

type topicTally struct {
	topic string
	count int
	sum   float64
}

// Score builds the report. Evaluations may be shorter than questions or hold nil
// entries for questions never reached; those are skipped.
func (s *Scorer) Score(questions []domain.Question, answers []string, evaluations []*domain.Evaluation) domain.Report {
	sections := make(map[domain.Category]domain.SectionScore, len(domain.Categories))
	for _, c := range domain.Categories {
		sections[c] = domain.SectionScore{}
	}

	var (
		earned, possible float64
		tallies          []*topicTally
		byTopic          = map[string]*topicTally{}
		review           []domain.ReviewItem
	)
	for i, q := range questions {
		if i >= len(evaluations) || evaluations[i] == nil {
			continue
		}
		ev := *evaluations[i]
		score := QuestionScore(ev)
		pct := score / maxQuestionScore * 100
		earned += score
		possible += maxQuestionScore

		sec := sections[q.Category]
		sec.Obtained += pct
		sec.Total += 100
		sec.Count++
		sections[q.Category] = sec

		if pct < weakThreshold {
			topic := q.Topic
			if topic == "" {
				topic = "Unknown"
			}
			tt, ok := byTopic[topic]
			if !ok {
				tt = &topicTally{topic: topic}
				byTopic[topic] = tt
				tallies = append(tallies, tt)
			}
			tt.count++
			tt.sum += pct
		}

		answer := ""
		if i < len(answers) {
			answer = answers[i]
		}
		review = append(review, domain.ReviewItem{
			Index:      i + 1,
			Category:   q.Category,
			Difficulty: q.Difficulty,
			Question:   q.Prompt,
			Answer:     answer,
			Feedback:   ev.Feedback,
			Score:      round1(float64(ev.Total()) / maxQuestionScore * 100),
		})
	}

	for c, sec := range sections {
		if sec.Total > 0 {
			sec.Percentage = round1(sec.Obtained / sec.Total * 100)
		}
		sections[c] = sec
	}

	weak := make([]domain.WeakArea, 0, len(tallies))
	for _, tt := range tallies {
		weak = append(weak, domain.WeakArea{Topic: tt.topic, AvgScore: round1(tt.sum / float64(tt.count)), QuestionsFailed: tt.count})
	}
	sort.SliceStable(weak, func(i, j int) bool { return weak[i].AvgScore < weak[j].AvgScore })
	if len(weak) > maxWeakAreas {
		weak = weak[:maxWeakAreas]
	}

	overall := 0.0
	if possible > 0 {
		overall = math.Min(round1(earned/possible*100), 100)
	}

	var resources []string
	if len(weak) > 0 && s.resources != nil {
		topics := make([]string, 0, len(weak))
		for _, w := range weak {
			topics = append(topics, w.Topic)
		}
		resources = s.resources.ResourcesFor(topics)
	}
	if resources == nil {
		resources = []string{}
	}

	return domain.Report{
		TotalScore:             overall,
		MaxScore:               100,
		Percentage:             overall,
		Verdict:                Verdict(overall),
		SectionScores:          sections,
		WeakAreas:              weak,
		ImprovementSuggestions: suggestions(sections, weak),
		LearningResources:      resources,
		Review:                 review,
	}
}

func suggestions(sections map[domain.Category]domain.SectionScore, weak []domain.WeakArea) []string {
	out := make([]string, 0, maxSuggestions)
	for _, c := range domain.Categories {
		sec := sections[c]
		if sec.Count > 0 && sec.Percentage < weakThreshold {
			out = append(out, sectionSuggestions[c])
		}
	}
	if len(weak) > 0 {
		out = append(out, fmt.Sprintf("Deep dive into %s (this is your weakest area)", weak[0].Topic))
	}
	if len(out) == 0 {
		out = append(out, encouragement)
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
