// Package tokencount estimates prompt and completion token counts for generator calls.
//
// Every supported provider is counted on cl100k_base through tiktoken-go with the
// offline BPE loader, so counting never touches the network. Counts for non-OpenAI
// models are approximations.
package tokencount

import (
	"log/slog"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Encoding is the BPE used for every model.
const Encoding = "cl100k_base"

// chatOverhead covers message framing, the role token and reply priming of a one-message chat.
const chatOverhead = 7

// Usage is the token count of one generator call.
type Usage struct {
	Prompt     int
	Completion int
}

// Total returns Prompt + Completion.
func (u Usage) Total() int { return u.Prompt + u.Completion }

// Counter counts tokens. The encoding is loaded on first use and shared.
type Counter struct {
	load func() (*tiktoken.Tiktoken, error)
}

// NewCounter returns a Counter backed by the offline cl100k_base table.
func NewCounter() *Counter {
	return &Counter{load: sync.OnceValues(func() (*tiktoken.Tiktoken, error) {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		return tiktoken.GetEncoding(Encoding)
	})}
}

// Count returns the token count of text, or a 4-chars-per-token estimate when the
// encoding cannot be loaded.
func (c *Counter) Count(text string) int {
	enc, err := c.load()
	if err != nil {
		slog.Warn("token encoding unavailable, using estimate", slog.Any("error", err))
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// Usage counts a single-user-message prompt and its completion.
func (c *Counter) Usage(prompt, completion string) Usage {
	return Usage{
		Prompt:     c.Count(prompt) + chatOverhead,
		Completion: c.Count(completion),
	}
}
