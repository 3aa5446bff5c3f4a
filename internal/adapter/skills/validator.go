// Package skills validates free-text skill names against a known-skill table.
package skills

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

// shortSkillLen is the length at or below which a known skill only matches exactly.
const shortSkillLen = 2

// Validator accepts skills that match the table and rejects gibberish.
type Validator struct {
	known []string
}

// New builds a Validator. Entries are lower-cased and blanks dropped.
func New(known []string) *Validator {
	v := &Validator{known: make([]string, 0, len(known))}
	for _, k := range known {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			v.known = append(v.known, k)
		}
	}
	return v
}

// Validate splits skills into valid and invalid lists, keeping the caller's spelling
// (trimmed). Blank entries are dropped from both.
func (v *Validator) Validate(skills []string) (valid, invalid []string) {
	for _, raw := range skills {
		name := strings.TrimSpace(raw)
		clean := strings.ToLower(name)
		if clean == "" {
			continue
		}
		if !isGibberish(clean) && v.matches(clean) {
			valid = append(valid, name)
			continue
		}
		invalid = append(invalid, name)
	}
	return valid, invalid
}

func (v *Validator) matches(skill string) bool {
	for _, k := range v.known {
		if utf8.RuneCountInString(k) <= shortSkillLen {
			if skill == k {
				return true
			}
			continue
		}
		if skill == k || strings.Contains(k, skill) || strings.Contains(skill, k) {
			return true
		}
	}
	return false
}

// isGibberish rejects keyboard mashing. Inputs of three runes or fewer are left to exact matching.
func isGibberish(s string) bool {
	n := utf8.RuneCountInString(s)
	if n <= 3 {
		return false
	}
	counts := map[rune]int{}
	letters, alnum, vowels, top := 0, 0, 0, 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		counts[r]++
		if counts[r] > top {
			top = counts[r]
		}
		if strings.ContainsRune("aeiou", r) {
			vowels++
		}
	}
	if letters < 2 {
		return true
	}
	if float64(alnum)/float64(n) < 0.6 {
		return true
	}
	threshold := 0.55
	if n <= 5 {
		threshold = 0.80
	}
	if float64(top)/float64(letters) > threshold {
		return true
	}
	return n > 5 && float64(vowels)/float64(letters) < 0.10
}

var _ domain.SkillValidator = (*Validator)(nil)
