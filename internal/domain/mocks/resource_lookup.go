package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockResourceLookup is a mock type for the ResourceLookup type
type MockResourceLookup struct {
	mock.Mock
}

// ResourcesFor provides a mock function with given fields: topics
func (_m *MockResourceLookup) ResourcesFor(topics []string) []string {
	ret := _m.Called(topics)

	var out []string
	if v := ret.Get(0); v != nil {
		out = v.([]string)
	}
	return out
}

// NewMockResourceLookup creates a new instance of MockResourceLookup. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockResourceLookup(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockResourceLookup {
	m := &MockResourceLookup{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
