package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-interviewer/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interviewer/internal/config"
	"github.com/fairyhunter13/ai-interviewer/internal/domain"
	"github.com/fairyhunter13/ai-interviewer/internal/usecase"
)

type call struct {
	prompt    string
	maxTokens int
	temp      float64
}

type reply struct {
	out string
	err error
}

// scriptGen replays replies in order and then keeps failing.
type scriptGen struct {
	mu      sync.Mutex
	replies []reply
	calls   []call
}

func newScriptGen(replies ...reply) *scriptGen { return &scriptGen{replies: replies} }

func (g *scriptGen) Generate(_ context.Context, prompt string, maxTokens int, temp float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call{prompt: prompt, maxTokens: maxTokens, temp: temp})
	if len(g.replies) == 0 {
		return "", fmt.Errorf("%w: script exhausted", domain.ErrUpstreamUnavailable)
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r.out, r.err
}

func (g *scriptGen) Calls() []call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]call(nil), g.calls...)
}

func down() reply { return reply{err: fmt.Errorf("%w: down", domain.ErrUpstreamUnavailable)} }

func ok(out string) reply { return reply{out: out} }

// fakeStore is a map-backed SessionStore that copies on every access.
type fakeStore struct {
	mu   sync.Mutex
	data map[string]*domain.Session
}

func newFakeStore() *fakeStore { return &fakeStore{data: map[string]*domain.Session{}} }

func (f *fakeStore) Get(_ domain.Context, id string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.data[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, id)
	}
	return s.Clone(), nil
}

func (f *fakeStore) Put(_ domain.Context, s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[s.ID] = s.Clone()
	return nil
}

func (f *fakeStore) Delete(_ domain.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, id)
	return nil
}

// recordingMetrics counts events by name.
type recordingMetrics struct {
	mu     sync.Mutex
	events map[string]int
}

func newRecordingMetrics() *recordingMetrics { return &recordingMetrics{events: map[string]int{}} }

func (m *recordingMetrics) inc(k string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[k]++
}

func (m *recordingMetrics) count(k string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events[k]
}

func (m *recordingMetrics) QuestionBuilt(_ domain.Category, s domain.QuestionSource) {
	m.inc("question:" + string(s))
}
func (m *recordingMetrics) GateOutcome(o string)    { m.inc("gate:" + o) }
func (m *recordingMetrics) EvaluationTier(t string) { m.inc("tier:" + t) }
func (m *recordingMetrics) Rephrase(o string)       { m.inc("rephrase:" + o) }
func (m *recordingMetrics) SessionEvent(e string)   { m.inc("session:" + e) }
func (m *recordingMetrics) OverallScore(_ float64)  { m.inc("score") }

func interviewData(t *testing.T) *config.InterviewData {
	t.Helper()
	data, err := config.LoadInterviewData("")
	require.NoError(t, err)
	return data
}

func newBuilder(t *testing.T, gen domain.Generator, attempts int) *usecase.QuestionBuilder {
	t.Helper()
	data := interviewData(t)
	return usecase.NewQuestionBuilder(gen, ai.NewDecoder(), usecase.NewBank(data.Bank()), data.DifficultyHints, attempts, nil)
}
