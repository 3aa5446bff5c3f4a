// Package resources maps weak topics to learning resource links.
package resources

import (
	"strings"

	"github.com/fairyhunter13/ai-interviewer/internal/config"
	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

// Lookup matches normalized topic names against an ordered key table.
type Lookup struct {
	topics   []config.ResourceTopic
	fallback []string
	maxLinks int
}

// New builds a Lookup from the interview data resources section.
func New(cfg config.ResourcesConfig) *Lookup {
	l := &Lookup{topics: cfg.Topics, maxLinks: cfg.MaxLinks}
	if l.maxLinks <= 0 {
		l.maxLinks = 10
	}
	for _, t := range cfg.Topics {
		if t.Key == cfg.FallbackTopic {
			l.fallback = t.URLs
			break
		}
	}
	return l
}

// ResourcesFor returns deduplicated links for the first matching key of each topic.
// A key matches when either side contains the other. With no match at all the
// fallback topic's links are returned.
func (l *Lookup) ResourcesFor(topics []string) []string {
	var links []string
	for _, topic := range topics {
		norm := normalize(topic)
		if norm == "" {
			continue
		}
		for _, t := range l.topics {
			if strings.Contains(norm, t.Key) || strings.Contains(t.Key, norm) {
				links = append(links, t.URLs...)
				break
			}
		}
	}
	if len(links) == 0 {
		links = l.fallback
	}

	out := make([]string, 0, l.maxLinks)
	seen := make(map[string]struct{}, len(links))
	for _, u := range links {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if len(out) == l.maxLinks {
			break
		}
	}
	return out
}

func normalize(topic string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(topic)), " ", "_")
}

var _ domain.ResourceLookup = (*Lookup)(nil)
