// Package usecase contains the interview orchestration services.
package usecase

import (
	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

// Bank is the immutable fallback question table.
type Bank struct {
	entries map[domain.Category]map[domain.Difficulty][]domain.Candidate
}

// NewBank copies entries so later mutation by the caller has no effect.
func NewBank(entries map[domain.Category]map[domain.Difficulty][]domain.Candidate) Bank {
	b := Bank{entries: make(map[domain.Category]map[domain.Difficulty][]domain.Candidate, len(entries))}
	for cat, byDiff := range entries {
		b.entries[cat] = make(map[domain.Difficulty][]domain.Candidate, len(byDiff))
		for diff, list := range byDiff {
			b.entries[cat][diff] = append([]domain.Candidate(nil), list...)
		}
	}
	return b
}

// First returns the first canned question for the pair.
func (b Bank) First(category domain.Category, difficulty domain.Difficulty) (domain.Candidate, bool) {
	list := b.entries[category][difficulty]
	if len(list) == 0 {
		return domain.Candidate{}, false
	}
	return list[0], true
}
