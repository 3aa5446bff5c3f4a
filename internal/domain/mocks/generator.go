package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

// MockGenerator is a mock type for the Generator type
type MockGenerator struct {
	mock.Mock
}

// Generate provides a mock function with given fields: ctx, prompt, maxOutputTokens, temperature
func (_m *MockGenerator) Generate(ctx domain.Context, prompt string, maxOutputTokens int, temperature float64) (string, error) {
	ret := _m.Called(ctx, prompt, maxOutputTokens, temperature)

	if rf, ok := ret.Get(0).(func(domain.Context, string, int, float64) (string, error)); ok {
		return rf(ctx, prompt, maxOutputTokens, temperature)
	}
	return ret.String(0), ret.Error(1)
}

// NewMockGenerator creates a new instance of MockGenerator. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockGenerator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGenerator {
	m := &MockGenerator{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
