package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/ai-interviewer/internal/domain"
)

// MockSessionStore is a mock type for the SessionStore type
type MockSessionStore struct {
	mock.Mock
}

// Get provides a mock function with given fields: ctx, id
func (_m *MockSessionStore) Get(ctx domain.Context, id string) (*domain.Session, error) {
	ret := _m.Called(ctx, id)

	var s *domain.Session
	if v := ret.Get(0); v != nil {
		s = v.(*domain.Session)
	}
	return s, ret.Error(1)
}

// Put provides a mock function with given fields: ctx, s
func (_m *MockSessionStore) Put(ctx domain.Context, s *domain.Session) error {
	ret := _m.Called(ctx, s)
	return ret.Error(0)
}

// Delete provides a mock function with given fields: ctx, id
func (_m *MockSessionStore) Delete(ctx domain.Context, id string) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// NewMockSessionStore creates a new instance of MockSessionStore. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockSessionStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSessionStore {
	m := &MockSessionStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
